package validators

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", token)

	token, err = BearerToken("  bearer   xyz ")
	require.NoError(t, err)
	require.Equal(t, "xyz", token)

	for _, raw := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, err := BearerToken(raw)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}
