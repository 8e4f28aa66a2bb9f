package reassembler

import "strings"

// Media is the coarse content-type family an inscription's body
// belongs to, used only to label the peripheral REST surface's
// responses -- it has no effect on any core invariant.
type Media int

// Media categories, mirroring original_source/src/media.rs's table.
const (
	MediaUnknown Media = iota
	MediaAudio
	MediaIframe
	MediaImage
	MediaPdf
	MediaText
	MediaVideo
)

func (m Media) String() string {
	switch m {
	case MediaAudio:
		return "audio"
	case MediaIframe:
		return "iframe"
	case MediaImage:
		return "image"
	case MediaPdf:
		return "pdf"
	case MediaText:
		return "text"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// mediaTable mirrors media.rs's TABLE exactly, content-type first.
var mediaTable = map[string]Media{
	"application/json":               MediaText,
	"application/json; charset=utf-8": MediaText,
	"application/json;charset=utf-8": MediaText,
	"application/pdf":                MediaPdf,
	"application/pgp-signature":      MediaText,
	"application/yaml":               MediaText,
	"audio/flac":                     MediaAudio,
	"audio/mpeg":                     MediaAudio,
	"audio/wav":                      MediaAudio,
	"image/apng":                     MediaImage,
	"image/avif":                     MediaImage,
	"image/gif":                      MediaImage,
	"image/jpeg":                     MediaImage,
	"image/png":                      MediaImage,
	"image/svg+xml":                  MediaIframe,
	"image/webp":                     MediaImage,
	"model/gltf-binary":              MediaUnknown,
	"model/stl":                      MediaUnknown,
	"text/html;charset=utf-8":        MediaIframe,
	"text/html; charset=utf-8":       MediaIframe,
	"text/plain;charset=utf-8":       MediaText,
	"text/plain; charset=utf-8":      MediaText,
	"text/plain":                     MediaText,
	"video/mp4":                      MediaVideo,
	"video/webm":                     MediaVideo,
}

// ClassifyMedia maps a raw content-type string to its Media family.
// Unrecognized content types (including the empty string) classify as
// MediaUnknown rather than an error, since callers only use this to
// label a response, never to gate behavior.
func ClassifyMedia(contentType string) Media {
	if m, ok := mediaTable[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return m
	}
	return MediaUnknown
}
