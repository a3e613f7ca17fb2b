package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentText(t *testing.T) {
	t.Parallel()

	c := Content{Body: " Ship small PRs ", Hashtags: []string{"#go", "tips", " "}, Link: "https://x.io"}
	assert.Equal(t, "Ship small PRs\n\n#go #tips\n\nhttps://x.io", c.Text())
	assert.Equal(t, "", Content{}.Text())
}

func TestDelegatedItemIsReadOnly(t *testing.T) {
	t.Parallel()

	id := int64(5)
	item := &LoopItem{SocialPostID: &id}
	err := item.SetContent(Content{Body: "new"})
	require.ErrorIs(t, err, ErrItemReadOnly)
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, "", item.Body)

	_, ok := item.Source().(Delegated)
	require.True(t, ok)
}

func TestStandaloneSetContentDefaultsFormat(t *testing.T) {
	t.Parallel()

	item := &LoopItem{}
	require.NoError(t, item.SetContent(Content{Body: "hello"}))
	require.Equal(t, DefaultFormat, item.Format)

	src, ok := item.Source().(Standalone)
	require.True(t, ok)
	require.Equal(t, "hello", src.Content.Body)
}

func TestParseFormatFallsBack(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatVideo, ParseFormat("video"))
	assert.Equal(t, DefaultFormat, ParseFormat("reel"))
	assert.Equal(t, DefaultFormat, ParseFormat(""))
}

func TestParseHashtags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"go", "tips", "loop"}, ParseHashtags("#go, tips #loop"))
	assert.Empty(t, ParseHashtags(" , "))
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	h, m, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"9:30", "24:00", "12:60", "noon", "12:3a"} {
		_, _, err := ParseTimeOfDay(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestLoopFiredWithin(t *testing.T) {
	t.Parallel()

	fired := time.Date(2026, 3, 2, 9, 0, 12, 0, time.UTC)
	loop := &Loop{LastFiredAt: &fired}
	assert.True(t, loop.FiredWithin(time.Date(2026, 3, 2, 9, 0, 59, 0, time.UTC)))
	assert.False(t, loop.FiredWithin(time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)))
	assert.False(t, (&Loop{}).FiredWithin(fired))
}

func TestMediaListScan(t *testing.T) {
	t.Parallel()

	var m MediaList
	require.NoError(t, m.Scan([]byte(`[{"url":"https://a/b.mp4","kind":"video"}]`)))
	require.True(t, m.HasKind(MediaVideo))
	require.False(t, m.HasKind(MediaImage))

	v, err := MediaList(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte("[]"), v)
}

func TestBrandLocationFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.UTC, (&Brand{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, time.UTC, (*Brand)(nil).Location())
}
