package reassembler

import "testing"

func TestClassifyMediaMatchesKnownContentTypes(t *testing.T) {
	cases := []struct {
		contentType string
		want        Media
	}{
		{"text/plain;charset=utf-8", MediaText},
		{"text/plain", MediaText},
		{"application/json", MediaText},
		{"image/png", MediaImage},
		{"image/svg+xml", MediaIframe},
		{"text/html;charset=utf-8", MediaIframe},
		{"audio/flac", MediaAudio},
		{"video/webm", MediaVideo},
		{"application/pdf", MediaPdf},
		{"model/gltf-binary", MediaUnknown},
		{"", MediaUnknown},
		{"application/octet-stream", MediaUnknown},
	}
	for _, c := range cases {
		if got := ClassifyMedia(c.contentType); got != c.want {
			t.Errorf("ClassifyMedia(%q) = %v, want %v", c.contentType, got, c.want)
		}
	}
}

func TestClassifyMediaIsCaseInsensitive(t *testing.T) {
	if got := ClassifyMedia("IMAGE/PNG"); got != MediaImage {
		t.Fatalf("expected case-insensitive match, got %v", got)
	}
}

func TestMediaStringRoundTrip(t *testing.T) {
	for _, m := range []Media{MediaAudio, MediaIframe, MediaImage, MediaPdf, MediaText, MediaVideo, MediaUnknown} {
		if m.String() == "" {
			t.Fatalf("Media %d has no String() form", m)
		}
	}
}
