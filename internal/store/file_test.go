package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/event"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope", "reg_events.json"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg_events.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "reg_events.json")

	s := event.NewStore()
	now := time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC)
	s.Merge([]event.Raw{{
		Name:     "大菩薩林道",
		NormName: "大菩薩",
		Status:   classify.StatusClosed,
		Reason:   "落石",
	}}, "山梨県", "19", "https://www.pref.yamanashi.jp/rindo/kisei.php?id=3", now)

	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, s.Updated(), loaded.Updated())

	orig := s.Events()[0]
	got, ok := loaded.Get(orig.ID)
	require.True(t, ok)
	assert.Equal(t, orig, got)

	// Restored stores start clean until something merges.
	assert.False(t, loaded.Dirty())
}

func TestLoadToleratesBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg_events.json")
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"updated":"","events":[]}`)...)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}
