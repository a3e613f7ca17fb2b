package content

import (
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/contentloop/internal/models"
)

// KindFromURL guesses a media kind from the extension of the URL path.
func KindFromURL(raw string) models.MediaKind {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return models.MediaUnknown
	}
	return kindOf(filetype.GetType(ext))
}

// KindFromBytes sniffs the media kind from file content.
func KindFromBytes(buf []byte) (models.MediaKind, types.Type) {
	t, err := filetype.Match(buf)
	if err != nil || t == types.Unknown {
		return models.MediaUnknown, types.Unknown
	}
	return kindOf(t), t
}

func kindOf(t types.Type) models.MediaKind {
	switch t.MIME.Type {
	case "image":
		return models.MediaImage
	case "video":
		return models.MediaVideo
	}
	return models.MediaUnknown
}
