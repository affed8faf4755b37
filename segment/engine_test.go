package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	cfg := DefaultConfig()
	cfg.NumMerges = 50
	cfg.MinFrequency = 2
	return New(cfg, nil)
}

func TestTrainMergesFrequentPairs(t *testing.T) {
	e := newTestEngine()
	e.Initialize("abababab cdcdcdcd abababab")
	require.NoError(t, e.Train())
	assert.Greater(t, e.MergeCount(), 0)
	assert.Greater(t, e.VocabSize(), 0)
}

func TestSegmentReturnsCharacterLevelUnitsRegardlessOfTraining(t *testing.T) {
	e := newTestEngine()
	e.Initialize("abababab")
	require.NoError(t, e.Train())

	units := e.Segment("ab")
	assert.Equal(t, []string{"a", "b"}, units)
}

func TestPruneArchivesLowConfidenceOldSegments(t *testing.T) {
	e := newTestEngine()
	e.Initialize("xyzxyzxyz")
	require.NoError(t, e.Train())

	old := time.Now().Add(-60 * 24 * time.Hour)
	names := make([]string, 0)
	for name, st := range e.active {
		st.Confidence = 0.01
		st.CreatedAt = old
		names = append(names, name)
		if len(names) >= 3 {
			break
		}
	}

	archived := e.Prune()
	assert.NotEmpty(t, archived)

	for _, name := range archived {
		st, ok := e.Get(name)
		require.True(t, ok)
		assert.True(t, st.IsArchived)
	}
}

func TestRestoreMovesSegmentBackToActive(t *testing.T) {
	e := newTestEngine()
	e.Initialize("mnmnmn")
	require.NoError(t, e.Train())

	var target string
	for name, st := range e.active {
		st.Confidence = 0
		st.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
		target = name
		break
	}
	archived := e.Prune()
	require.Contains(t, archived, target)

	ok := e.Restore(target)
	require.True(t, ok)

	st, found := e.Get(target)
	require.True(t, found)
	assert.False(t, st.IsArchived)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine")

	e := newTestEngine()
	e.Initialize("abcabcabc defdefdef")
	require.NoError(t, e.Train())
	require.NoError(t, e.Save(path))

	reloaded := New(DefaultConfig(), nil)
	require.NoError(t, reloaded.Load(path))

	assert.Equal(t, e.VocabSize(), reloaded.VocabSize())
	for name, st := range e.active {
		rst, ok := reloaded.Get(name)
		require.True(t, ok)
		assert.Equal(t, st.Frequency, rst.Frequency)
	}
}

func TestBackupRotationRetainsAtMostMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine")

	cfg := DefaultConfig()
	cfg.MaxBackups = 2
	e := New(cfg, nil)
	e.Initialize("abab")

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Save(path))
		time.Sleep(1100 * time.Millisecond)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	backups := 0
	for _, ent := range entries {
		if filepath.Ext(ent.Name()) != ".json" {
			backups++
		}
	}
	assert.LessOrEqual(t, backups, cfg.MaxBackups)
}
