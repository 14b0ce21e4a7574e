package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, "s3cret-pass", hash)

	// salted: hashing twice never yields the same string
	again, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, hash, again)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	require.True(t, CheckPassword("correct horse", hash))
	require.False(t, CheckPassword("wrong horse", hash))
	require.False(t, CheckPassword("", hash))
	require.False(t, CheckPassword("correct horse", "not-a-hash"))
}
