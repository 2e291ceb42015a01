package models

import (
	"strings"

	"github.com/google/uuid"
)

// ItemKind is the media type of a queued download.
type ItemKind int

const (
	KindVideo ItemKind = iota
	KindAudio
)

// String returns the consumer-facing name of the kind.
func (k ItemKind) String() string {
	if k == KindAudio {
		return "Audio"
	}
	return "Video"
}

// Status texts are a consumer-facing contract; produce them only through
// these constants and StatusFailed.
const (
	StatusQueued           = "Queued"
	StatusQueuedCollection = "Queued (Collection)"
	StatusDownloading      = "Downloading"
	StatusCompleted        = "Completed"
)

// StatusFailed builds the terminal failure status for the given reason.
func StatusFailed(reason string) string {
	return "Failed: " + reason
}

// DownloadItem is one entry in the download queue. It is created by the
// resolver, configured by the caller before processing, and mutated by the
// queue processor while it runs.
type DownloadItem struct {
	ID              string
	Title           string
	URL             string // normalized
	Kind            ItemKind
	Quality         string // requested, e.g. "720p" or "Best Quality"
	Format          string // output container for audio, e.g. "mp3"
	Collection      bool
	Status          string
	Progress        float64 // 0..100
	Size            string  // human readable, informational only
	DestinationPath string
}

// NewItem creates a queued item with a fresh identifier.
func NewItem(url string, kind ItemKind, quality, format, destDir string) *DownloadItem {
	return &DownloadItem{
		ID:              uuid.NewString(),
		URL:             url,
		Kind:            kind,
		Quality:         quality,
		Format:          format,
		Status:          StatusQueued,
		DestinationPath: destDir,
	}
}

// IsTerminal reports whether the item has finished, successfully or not.
// The queue processor skips terminal items on (re-)start.
func (it *DownloadItem) IsTerminal() bool {
	return strings.Contains(it.Status, "Completed") || strings.Contains(it.Status, "Failed")
}
