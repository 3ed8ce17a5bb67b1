package sequencer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateIO_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	a := NewRunner(NewCore(2, 42), nil)
	a.Randomize()
	a.Core().Scheduler().SetPeriod(0.25)
	require.NoError(t, SaveState(a))

	b := NewRunner(NewCore(2, 42), nil)
	require.NoError(t, LoadState(b))
	assert.Equal(t, a.Snapshot().Mapping, b.Snapshot().Mapping)
	assert.Equal(t, 0.25, b.Core().Scheduler().Period())
}

func TestStateIO_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	r := NewRunner(NewCore(2, 42), nil)
	require.NoError(t, LoadState(r))

	// Untouched defaults
	assert.Equal(t, DefaultClockPeriod, r.Core().Scheduler().Period())
}

func TestStateIO_MalformedFileKeepsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := StatePath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	r := NewRunner(NewCore(2, 42), nil)
	require.NoError(t, LoadState(r))
	assert.Equal(t, DefaultClockPeriod, r.Core().Scheduler().Period())
}

func TestStateIO_PartialDocumentLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := StatePath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"truthTable":[3]}`), 0644))

	r := NewRunner(NewCore(2, 42), nil)
	require.NoError(t, LoadState(r))

	// First entry restored, the rest default to identity; missing
	// period keeps the default
	assert.Equal(t, uint16(3), r.Snapshot().Mapping[0])
	assert.Equal(t, uint16(1), r.Snapshot().Mapping[1])
	assert.Equal(t, DefaultClockPeriod, r.Core().Scheduler().Period())
}
