package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Use(Logging())
	app.Get("/me", RequireAuth(AuthConfig{Secret: secret}), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	valid, err := IssueToken(secret, "user-1", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "user-1", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other-secret", "user-1", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-1"}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: valid}) }, 200, "user-1"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, 200, "user-1"},
		{"missing", func(*http.Request) {}, 401, ""},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, 401, ""},
		{"wrong key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongKey) }, 401, ""},
		{"alg none", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+none) }, 401, ""},
		{"no expiry", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+noExpiry) }, 401, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def") }, 401, ""},
	}

	app := newAuthApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			if tt.wantStatus == 200 {
				assert.Equal(t, tt.wantBody, string(body))
			} else {
				assert.JSONEq(t, `{"success":false,"message":"Unauthorized"}`, string(body))
			}
		})
	}
}

func TestClaimsFallBackToSubject(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := newAuthApp().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "user-9", string(body))
}

func TestLoggingKeepsRequestIntact(t *testing.T) {
	app := fiber.New()
	app.Use(Logging())
	app.Get("/bugs/:id", func(c *fiber.Ctx) error {
		return c.SendString(c.Method() + " " + c.Path())
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/bugs/abc", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "GET /bugs/abc", string(body))
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "user-1", time.Hour)
	assert.Error(t, err)
}

func TestLoggingSetsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(Logging())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestID(c)) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	id := resp.Header.Get(RequestIDHeader)
	body, _ := io.ReadAll(resp.Body)
	assert.Len(t, id, 36)
	assert.Equal(t, id, string(body))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c0e58-3c1b-4a57-9a47-0c5d7b1e2f90")
	resp2, err := app.Test(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "6f1c0e58-3c1b-4a57-9a47-0c5d7b1e2f90", resp2.Header.Get(RequestIDHeader))
}
