package runregistry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *Registry {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "registry.db")
	r, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNextRunNumberIncrements(t *testing.T) {
	r := open(t)

	n1, err := r.NextRunNumber()
	require.NoError(t, err)
	n2, err := r.NextRunNumber()
	require.NoError(t, err)

	assert.Equal(t, n1+1, n2)
}

func TestRecordLifecycle(t *testing.T) {
	r := open(t)

	n, err := r.NextRunNumber()
	require.NoError(t, err)

	started := time.Now()
	require.NoError(t, r.RecordOpened(n, "MyRun", "EMU", "/runs/MyRun.nxs", started))

	open, err := r.FindOpenRuns()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, n, open[0].RunNumber)

	require.NoError(t, r.RecordStopped(n, started.Add(time.Minute)))
	require.NoError(t, r.RecordClosed(n, started.Add(90*time.Second), false))

	open, err = r.FindOpenRuns()
	require.NoError(t, err)
	assert.Empty(t, open)
}
