package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const localUserID = "userID"

// AuthConfig configures RequireAuth.
type AuthConfig struct {
	Secret     string
	CookieName string
}

// Claims is the JWT payload. The user ID travels in both "id" and "sub"
// so tokens minted by the account service are accepted either way.
type Claims struct {
	UserID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// User picks the user ID out of c.
func (c Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// RequireAuth rejects requests without a valid, expiring HS256 token. The token is
// read from the auth cookie first, then from an Authorization: Bearer header.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *fiber.Ctx) error {
		raw := c.Cookies(cfg.CookieName)
		if raw == "" {
			if parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				raw = strings.TrimSpace(parts[1])
			}
		}
		if raw == "" {
			return unauthorized(c)
		}

		var claims Claims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return []byte(cfg.Secret), nil
		})
		if err != nil {
			return unauthorized(c)
		}
		uid := claims.User()
		if uid == "" {
			return unauthorized(c)
		}

		c.Locals(localUserID, uid)
		return c.Next()
	}
}

// UserID returns the authenticated user ID, or "" outside RequireAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// IssueToken signs a token for userID valid for ttl.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": "Unauthorized",
	})
}
