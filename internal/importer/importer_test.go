package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVCountsSkippedRows(t *testing.T) {
	t.Parallel()

	input := "content,format,hashtags,link,media_url\n" +
		"Hello,text,,,\n" +
		",text,,,\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "Hello", res.Contents[0].Body)
}

func TestParseCSVColumns(t *testing.T) {
	t.Parallel()

	input := "content,format,hashtags,link,media_url\n" +
		"\"Multi-line\nbody\",IMAGE,\"#go, tips\",https://example.com,https://cdn.example.com/a.png\n" +
		"Short row\n" +
		"Odd format,hologram,,,\n"

	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Contents, 3)

	first := res.Contents[0]
	assert.Equal(t, "Multi-line\nbody", first.Body)
	assert.Equal(t, models.FormatImage, first.Format)
	assert.Equal(t, []string{"go", "tips"}, first.Hashtags)
	assert.Equal(t, "https://example.com", first.Link)
	assert.Equal(t, models.MediaList{{URL: "https://cdn.example.com/a.png", Kind: models.MediaImage}}, first.Media)

	assert.Equal(t, models.FormatText, res.Contents[1].Format)
	assert.Empty(t, res.Contents[1].Media)
	assert.Equal(t, models.FormatText, res.Contents[2].Format)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	res, err := ParseCSV(strings.NewReader("content,format\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Contents)
	assert.Zero(t, res.Skipped)
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"=SUM(A1:A2)": "'=SUM(A1:A2)",
		"+1 idea":     "'+1 idea",
		"-tip":        "'-tip",
		"@here":       "'@here",
		"\tindent":    "'\tindent",
		"\rcr":        "'\rcr",
		"plain":       "plain",
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestParseCSVSanitizesContent(t *testing.T) {
	t.Parallel()

	res, err := ParseCSV(strings.NewReader("content\n=HYPERLINK(\"x\")\n"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "'=HYPERLINK(\"x\")", res.Contents[0].Body)
}

func TestParseCSVSanitizesBeforeTrimming(t *testing.T) {
	t.Parallel()

	input := "content\n" +
		"\"\t=cmd|' /C calc'!A0\"\n" +
		"   @SUM(A1)\n" +
		"plain text  \n"
	res, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Contents, 3)
	assert.Equal(t, "'\t=cmd|' /C calc'!A0", res.Contents[0].Body)
	assert.Equal(t, "'@SUM(A1)", res.Contents[1].Body)
	assert.Equal(t, "plain text", res.Contents[2].Body)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Blog</title>
  <item>
    <title>Ten Go tips</title>
    <description>&lt;p&gt;Short &amp;amp; sweet.&lt;/p&gt;</description>
    <link>https://blog.example.com/go-tips</link>
    <category>Go Lang</category>
    <enclosure url="https://cdn.example.com/cover.jpg" type="image/jpeg" length="1"/>
  </item>
  <item>
    <title></title>
    <description></description>
  </item>
  <item>
    <title>Third</title>
  </item>
</channel>
</rss>`

func TestFeedImporter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	imp := NewFeedImporter(srv.Client())
	res, err := imp.Fetch(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, res.Contents, 2)
	assert.Equal(t, 1, res.Skipped)

	first := res.Contents[0]
	assert.Equal(t, "Ten Go tips\n\nShort & sweet.", first.Body)
	assert.Equal(t, "https://blog.example.com/go-tips", first.Link)
	assert.Equal(t, []string{"GoLang"}, first.Hashtags)
	assert.Equal(t, models.FormatImage, first.Format)
	assert.True(t, first.Media.HasKind(models.MediaImage))

	limited, err := imp.Fetch(context.Background(), srv.URL, 1)
	require.NoError(t, err)
	assert.Len(t, limited.Contents, 1)
}

func TestFeedImporterBadFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	_, err := NewFeedImporter(srv.Client()).Fetch(context.Background(), srv.URL, 5)
	assert.Error(t, err)
}
