package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endou0310-byte/rindo/internal/classify"
)

var t0 = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

func TestCanonicalURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://example.jp/kisei.php?id=3#main", "https://example.jp/kisei.php?id=3"},
		{"https://example.jp/kisei.php?area_id=2&id=3", "https://example.jp/kisei.php?id=3"},
		{"https://example.jp/page.html", "https://example.jp/page.html"},
		{"https://example.jp/page.html?area_id=1", "https://example.jp/page.html"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalURL(tc.in), "input %q", tc.in)
	}
}

func TestIDStability(t *testing.T) {
	a := ID("山梨県", "小森川", CanonicalURL("https://example.jp/kisei.php?id=3#x"))
	b := ID("山梨県", "小森川", CanonicalURL("https://example.jp/kisei.php?area_id=9&id=3"))
	require.Equal(t, a, b, "tracked params and fragments must not change identity")
	require.Len(t, a, 16)

	c := ID("長野県", "小森川", CanonicalURL("https://example.jp/kisei.php?id=3"))
	require.NotEqual(t, a, c, "a different agency is a different event")
}

func TestMergeInsertAndUpdate(t *testing.T) {
	s := NewStore()
	n := s.Merge([]Raw{{
		Name:       "林道小森川線",
		StatusText: "全面通行止",
		Reason:     "落石",
		From:       "2024-10-01",
	}}, "山梨県", "19", "https://example.jp/r.html", t0)
	require.Equal(t, 1, n)
	require.Equal(t, 1, s.Len())

	ev := s.Events()[0]
	assert.Equal(t, "小森川", ev.NormName)
	assert.Equal(t, classify.StatusClosed, ev.Status)
	assert.Equal(t, "落石", ev.Reason)
	assert.Equal(t, "19", ev.PrefCode)

	// A sparser later page must not blank populated fields.
	s.Merge([]Raw{{
		Name:       "林道小森川線",
		StatusText: "通行止",
	}}, "山梨県", "19", "https://example.jp/r.html", t0.Add(time.Hour))
	require.Equal(t, 1, s.Len(), "same identity triple must collapse to one record")
	ev = s.Events()[0]
	assert.Equal(t, "落石", ev.Reason)
	assert.Equal(t, "2024-10-01", ev.From)
	assert.Equal(t, Timestamp(t0.Add(time.Hour)), ev.UpdatedAt)
}

func TestMergeSeverityMonotonic(t *testing.T) {
	s := NewStore()
	page := "https://example.jp/r.html"
	s.Merge([]Raw{{Name: "小森川線", Status: classify.StatusClosed}}, "山梨県", "19", page, t0)
	s.Merge([]Raw{{Name: "小森川線", Status: classify.StatusRegulated}}, "山梨県", "19", page, t0.Add(time.Hour))

	ev := s.Events()[0]
	assert.Equal(t, classify.StatusClosed, ev.Status, "status must not drop to a lower severity")
	assert.Equal(t, Timestamp(t0.Add(time.Hour)), ev.UpdatedAt, "updated_at always refreshes")

	// Exact severity tie: last write wins.
	s.Merge([]Raw{{Name: "小森川線", Status: classify.StatusClosed}}, "山梨県", "19", page, t0.Add(2*time.Hour))
	assert.Equal(t, classify.StatusClosed, s.Events()[0].Status)
}

func TestMergeIdempotent(t *testing.T) {
	raws := []Raw{{Name: "林道御岳線", StatusText: "片側交互通行"}}
	s := NewStore()
	s.Merge(raws, "山梨県", "19", "https://example.jp/r.html", t0)
	first := s.Events()

	s.Merge(raws, "山梨県", "19", "https://example.jp/r.html", t0)
	second := s.Events()
	require.Equal(t, first, second, "replaying identical input must be a no-op")
}

func TestMergeDiscardsEmptyName(t *testing.T) {
	s := NewStore()
	n := s.Merge([]Raw{{Name: "林道線", StatusText: "通行止"}}, "山梨県", "19", "https://example.jp/r.html", t0)
	assert.Zero(t, n, "a name that normalizes to nothing never reaches the store")
	assert.Zero(t, s.Len())
}

func TestBestForName(t *testing.T) {
	s := NewStore()
	s.Merge([]Raw{{Name: "御岳線", Status: classify.StatusRegulated}}, "山梨県", "19", "https://a.example.jp/1", t0)
	s.Merge([]Raw{{Name: "御岳線", Status: classify.StatusClosed}}, "長野県", "20", "https://b.example.jp/2", t0.Add(time.Minute))

	best, ok := s.BestForName("御岳")
	require.True(t, ok)
	assert.Equal(t, classify.StatusClosed, best.Status)
	assert.Equal(t, "長野県", best.Pref)

	_, ok = s.BestForName("存在しない")
	assert.False(t, ok)
}

func TestRestoreRebuildsIndex(t *testing.T) {
	s := NewStore()
	s.Merge([]Raw{{Name: "御岳線", Status: classify.StatusClosed}}, "山梨県", "19", "https://a.example.jp/1", t0)
	restored := Restore(s.Updated(), s.Events())
	require.Equal(t, s.Events(), restored.Events())
	assert.False(t, restored.Dirty())

	best, ok := restored.BestForName("御岳")
	require.True(t, ok)
	assert.Equal(t, classify.StatusClosed, best.Status)
}
