package auth_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traininghall/go-club-auth"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := auth.HashPassword("correct horse battery staple")
		require.NoError(t, err)
		require.NotEmpty(t, hash)

		assert.NoError(t, auth.ComparePasswordAndHash("correct horse battery staple", hash))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("the-right-password")
	require.NoError(t, err)

	t.Run("wrong password mismatches", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("the-wrong-password", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("garbage hash errors", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("whatever", "not-a-bcrypt-hash")
		assert.Error(t, err)
	})
}

func TestNewSetupToken(t *testing.T) {
	token, err := auth.NewSetupToken()
	require.NoError(t, err)

	assert.Len(t, token, 64)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := auth.NewSetupToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
