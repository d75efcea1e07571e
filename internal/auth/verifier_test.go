package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokens(t *testing.T) {
	v := NewVerifier("", "")
	p, err := v.Verify("alice:Admin")
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "alice", Role: "admin"}, p)
	assert.True(t, p.IsAdmin())

	p, err = v.Verify("viewer")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, p.Role)

	_, err = v.Verify("bob:")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACTokens(t *testing.T) {
	secret := []byte("s3cret")
	v := NewVerifier(ModeHMAC, string(secret))
	v.now = func() time.Time { return time.Unix(1000, 0) }

	tok, err := SignHS256(secret, map[string]any{"sub": "ops", "role": "admin", "exp": 2000})
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "ops", Role: "admin"}, p)

	noRole, err := SignHS256(secret, map[string]any{"sub": "x"})
	require.NoError(t, err)
	p, err = v.Verify(noRole)
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, p.Role)

	expired, err := SignHS256(secret, map[string]any{"role": "admin", "exp": 999})
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrExpired)

	forged, err := SignHS256([]byte("other"), map[string]any{"role": "admin"})
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("a.b")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
