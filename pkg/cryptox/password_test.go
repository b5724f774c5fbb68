package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Hashing at cost 14 is deliberately slow, so most tests hash at MinCost via
// hashAtCost; only TestHashPasswordUsesConfiguredCost pays the real price.
func hashAtCost(t *testing.T, password string, cost int) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword(prehash(password), cost)
	require.NoError(t, err)
	return string(hash)
}

func setupPepper(t *testing.T) {
	t.Helper()
	pepper = ""
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
}

func TestHashNeverEqualsPlaintext(t *testing.T) {
	setupPepper(t)

	hash := hashAtCost(t, "secret1", bcrypt.MinCost)
	require.NotEqual(t, "secret1", hash)
	require.NotContains(t, hash, "secret1")
	require.True(t, strings.HasPrefix(hash, "$2"))
}

func TestVerifyPassword(t *testing.T) {
	setupPepper(t)

	hash := hashAtCost(t, "secret1", bcrypt.MinCost)

	t.Run("correct password verifies", func(t *testing.T) {
		require.NoError(t, VerifyPassword("secret1", hash))
	})

	t.Run("any single altered character fails", func(t *testing.T) {
		for i := range "secret1" {
			altered := []byte("secret1")
			altered[i] ^= 0x01
			require.ErrorIs(t, VerifyPassword(string(altered), hash), ErrMismatch)
		}
	})

	t.Run("empty password fails", func(t *testing.T) {
		require.ErrorIs(t, VerifyPassword("", hash), ErrMismatch)
	})
}

func TestLongPasswordsAreNotTruncated(t *testing.T) {
	setupPepper(t)

	// bcrypt alone ignores bytes past 72; the sha256 prehash must not.
	long := strings.Repeat("a", 100)
	hash := hashAtCost(t, long, bcrypt.MinCost)
	require.NoError(t, VerifyPassword(long, hash))
	require.ErrorIs(t, VerifyPassword(long+"b", hash), ErrMismatch)
}

func TestHashPasswordUsesConfiguredCost(t *testing.T) {
	setupPepper(t)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, HashCost, cost)

	require.NoError(t, VerifyPassword("secret1", hash))
}

func TestPepperPersistsAcrossReload(t *testing.T) {
	pepper = ""
	dir := t.TempDir()
	SetPepperPath(filepath.Join(dir, "pepper"))

	first := GetPepper()
	require.NotEmpty(t, first)

	// Simulate a restart with the same pepper file.
	pepper = ""
	SetPepperPath(filepath.Join(dir, "pepper"))
	require.Equal(t, first, GetPepper())
}
