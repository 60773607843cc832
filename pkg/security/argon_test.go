package security_test

import (
	"testing"

	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func cheapParams() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := security.HashSecret("482913", cheapParams())
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := security.VerifySecret("482913", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifySecret("482914", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashSecretSaltsEachCall(t *testing.T) {
	first, err := security.HashSecret("111111", cheapParams())
	require.NoError(t, err)
	second, err := security.HashSecret("111111", cheapParams())
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestHashSecretRejectsEmpty(t *testing.T) {
	_, err := security.HashSecret("", cheapParams())
	require.Error(t, err)
}

func TestVerifySecretBadHash(t *testing.T) {
	_, err := security.VerifySecret("irrelevant", "not-a-hash")
	require.ErrorIs(t, err, security.ErrInvalidHash)
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := security.GenerateNumericCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
	_, err := security.GenerateNumericCode(0)
	require.Error(t, err)
}
