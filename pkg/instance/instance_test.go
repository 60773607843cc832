package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "dispatcher-2")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "dispatcher-2", GetID())
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "web.1", GetID())
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "")
	require.NotEmpty(t, GetID())
}
