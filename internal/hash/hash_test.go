package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("Str0ng!Pass1")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	require.NotEqual(t, "Str0ng!Pass1", digest)

	assert.True(t, CheckPassword(digest, "Str0ng!Pass1"))
	assert.False(t, CheckPassword(digest, "wrong password"))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	assert.False(t, CheckPassword("not-a-bcrypt-digest", "whatever"))
	assert.False(t, CheckPassword("", "whatever"))
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	a, err := HashPassword("Str0ng!Pass1")
	require.NoError(t, err)
	b, err := HashPassword("Str0ng!Pass1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
