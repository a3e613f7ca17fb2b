package models

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformThreads   Platform = "threads"
	PlatformTiktok    Platform = "tiktok"
)

// Platforms lists every supported network in a stable order.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformInstagram,
	PlatformFacebook,
	PlatformLinkedIn,
	PlatformThreads,
	PlatformTiktok,
}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type Format string

const (
	FormatText     Format = "text"
	FormatImage    Format = "image"
	FormatCarousel Format = "carousel"
	FormatVideo    Format = "video"
	FormatThread   Format = "thread"
	FormatStory    Format = "story"
)

const DefaultFormat = FormatText

var formats = map[Format]struct{}{
	FormatText: {}, FormatImage: {}, FormatCarousel: {}, FormatVideo: {}, FormatThread: {}, FormatStory: {},
}

func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

// ParseFormat returns DefaultFormat for anything it does not recognise.
func ParseFormat(s string) Format {
	f := Format(s)
	if f.Valid() {
		return f
	}
	return DefaultFormat
}

// PlatformStrings converts a platform list into plain strings for text[] columns.
func PlatformStrings(platforms []Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, string(p))
	}
	return out
}

func ParsePlatforms(values []string) []Platform {
	out := make([]Platform, 0, len(values))
	for _, v := range values {
		out = append(out, Platform(v))
	}
	return out
}
