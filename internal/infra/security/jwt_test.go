package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	v := NewTokenVerifier("secret", "lendit")
	token, err := v.Issue("user-1", "member", time.Hour)
	require.NoError(t, err)

	p, err := v.ParseAuthorization("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "member", p.Role)
}

func TestTokenRejected(t *testing.T) {
	v := NewTokenVerifier("secret", "lendit")

	_, err := v.ParseAuthorization("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other := NewTokenVerifier("other", "lendit")
	token, err := other.Issue("user-1", "", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseAuthorization(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue("user-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.ParseAuthorization("bearer " + expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
