package models

import "strings"

// StreamDescriptor is one downloadable rendition of a resolved item.
// Height is zero for audio-only streams; Bitrate is zero when the upstream
// metadata omits it.
type StreamDescriptor struct {
	URL       string `json:"url"`
	Container string `json:"container"`
	SizeBytes int64  `json:"sizeBytes"`
	Height    int    `json:"heightClass"`
	Bitrate   int    `json:"bitrate"`
}

// IsManifest reports whether the stream URL points at an HLS playlist rather
// than a progressive file.
func (s *StreamDescriptor) IsManifest() bool {
	u := s.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".m3u8")
}

// ItemMeta is the upstream metadata for a single item.
type ItemMeta struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CollectionMeta is the upstream metadata for a collection.
type CollectionMeta struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ItemCount int    `json:"itemCount"`
}

// MemberRef points at one member of a collection.
type MemberRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
