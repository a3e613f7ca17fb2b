package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaUnknown MediaKind = "unknown"
)

type MediaRef struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// MediaList is stored as a JSONB array.
type MediaList []MediaRef

func (m MediaList) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *MediaList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("media list: unsupported type %T", src)
	}
	return json.Unmarshal(raw, m)
}

func (m MediaList) HasKind(kind MediaKind) bool {
	for _, ref := range m {
		if ref.Kind == kind {
			return true
		}
	}
	return false
}

// Content holds the content-bearing fields shared by loop items and posts.
type Content struct {
	Body     string    `json:"body"`
	Hashtags []string  `json:"hashtags"`
	Link     string    `json:"link"`
	Media    MediaList `json:"media"`
	Format   Format    `json:"format"`
	Platform Platform  `json:"platform,omitempty"`
}

// ContentSource is either Standalone or Delegated.
type ContentSource interface {
	isContentSource()
}

// Standalone content lives on the loop item itself.
type Standalone struct {
	Content Content
}

// Delegated content is read through to a separately owned social post.
type Delegated struct {
	SocialPostID int64
}

func (Standalone) isContentSource() {}
func (Delegated) isContentSource()  {}

// ContentView is the flat, resolved content every consumer works from.
type ContentView struct {
	Content
	Delegated bool `json:"delegated"`
	// Dangling is set when the delegated post no longer exists; the
	// content is then empty.
	Dangling bool `json:"dangling"`
}

// Text renders the post text the way it is sent to a platform: body,
// hashtags and link as blank-line separated blocks.
func (c Content) Text() string {
	var blocks []string
	if body := strings.TrimSpace(c.Body); body != "" {
		blocks = append(blocks, body)
	}
	if len(c.Hashtags) > 0 {
		tags := make([]string, 0, len(c.Hashtags))
		for _, tag := range c.Hashtags {
			tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
			if tag != "" {
				tags = append(tags, "#"+tag)
			}
		}
		if len(tags) > 0 {
			blocks = append(blocks, strings.Join(tags, " "))
		}
	}
	if link := strings.TrimSpace(c.Link); link != "" {
		blocks = append(blocks, link)
	}
	return strings.Join(blocks, "\n\n")
}

func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.Body) == "" && len(c.Media) == 0
}

var ErrItemReadOnly = fmt.Errorf("%w: item content is delegated and cannot be edited", ErrConflict)

// ParseHashtags splits a cell like "#go, tips #loop" into bare tags.
func ParseHashtags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';' || r == '\t'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimSpace(f), "#")
		if f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}
