package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tourney/internal/auth"
)

func signedToken(t *testing.T, secret, role string) string {
	t.Helper()
	tok, err := auth.SignHS256([]byte(secret), map[string]any{"sub": "tester", "role": role})
	require.NoError(t, err)
	return tok
}
