package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRequireUser(t *testing.T) {
	for _, cmd := range []string{"backfill", "regenerate", "stats", "token"} {
		t.Run(cmd, func(t *testing.T) {
			app := newApp()
			app.Writer = &bytes.Buffer{}
			app.ErrWriter = &bytes.Buffer{}

			err := app.Run([]string{"embedctl", cmd})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "user")
		})
	}
}

func TestRegenerateRequiresID(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"embedctl", "regenerate", "--user", "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
}

func TestInvalidLogLevel(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"embedctl", "--log-level", "loud", "token", "--user", "u1"})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	out := &bytes.Buffer{}
	app := newApp()
	app.Writer = out

	require.NoError(t, app.Run([]string{"embedctl", "token", "--user", "user-7"}))

	raw := strings.TrimSpace(out.String())
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("cli-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims["id"])
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"embedctl", "token", "--user", "user-7"})
	assert.ErrorContains(t, err, "JWT_SECRET")
}
