package importer

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"

	"github.com/maheshrc27/contentloop/internal/content"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/mmcdole/gofeed"
)

const DefaultFeedLimit = 20

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FeedImporter reads RSS, Atom and JSON feeds.
type FeedImporter struct {
	parser *gofeed.Parser
}

func NewFeedImporter(client *http.Client) *FeedImporter {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	return &FeedImporter{parser: parser}
}

// Fetch turns up to limit feed entries into item content.
func (f *FeedImporter) Fetch(ctx context.Context, feedURL string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	res := &Result{}
	for _, item := range parsed.Items {
		if len(res.Contents) >= limit {
			break
		}
		c, ok := itemContent(item)
		if !ok {
			res.Skipped++
			continue
		}
		res.Contents = append(res.Contents, c)
	}
	return res, nil
}

func itemContent(item *gofeed.Item) (models.Content, bool) {
	var blocks []string
	if title := plainText(item.Title); title != "" {
		blocks = append(blocks, title)
	}
	if desc := plainText(item.Description); desc != "" {
		blocks = append(blocks, desc)
	}
	if len(blocks) == 0 {
		return models.Content{}, false
	}

	c := models.Content{
		Body:     Sanitize(strings.Join(blocks, "\n\n")),
		Link:     strings.TrimSpace(item.Link),
		Hashtags: feedTags(item.Categories),
		Format:   models.FormatText,
	}
	if item.Image != nil && item.Image.URL != "" {
		c.Media = append(c.Media, models.MediaRef{URL: item.Image.URL, Kind: models.MediaImage})
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		var kind models.MediaKind
		switch {
		case strings.HasPrefix(enc.Type, "image/"):
			kind = models.MediaImage
		case strings.HasPrefix(enc.Type, "video/"):
			kind = models.MediaVideo
		default:
			kind = content.KindFromURL(enc.URL)
		}
		if kind == models.MediaUnknown || hasURL(c.Media, enc.URL) {
			continue
		}
		c.Media = append(c.Media, models.MediaRef{URL: enc.URL, Kind: kind})
	}
	if c.Media.HasKind(models.MediaImage) {
		c.Format = models.FormatImage
	}
	return c, true
}

func plainText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func feedTags(categories []string) []string {
	var tags []string
	for _, c := range categories {
		tag := strings.ReplaceAll(strings.TrimSpace(c), " ", "")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func hasURL(media models.MediaList, u string) bool {
	for _, m := range media {
		if m.URL == u {
			return true
		}
	}
	return false
}
