package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	t.Run("matching password verifies", func(t *testing.T) {
		ok, err := Verify("correct horse battery staple", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password does not verify", func(t *testing.T) {
		ok, err := Verify("wrong password", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		other, err := Hash("correct horse battery staple")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other, "salts must differ")
	})
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := Hash("")
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, bad := range []string{"", "not-a-hash", "$bcrypt$whatever"} {
		_, err := Verify("password", bad)
		assert.Error(t, err, bad)
	}
}
