// Package selector picks the stream rendition that best matches the
// requested quality.
package selector

import (
	"sort"
	"strconv"
	"strings"

	"main/pkg/models"
)

// BestQuality requests the highest available rendition.
const BestQuality = "Best Quality"

// SelectVideo returns the video stream matching the requested quality label
// ("720p", "1080p", ...), the highest available stream when no exact match
// exists, and nil only when streams is empty. The input slice is not mutated.
func SelectVideo(streams []*models.StreamDescriptor, quality string) *models.StreamDescriptor {
	if len(streams) == 0 {
		return nil
	}

	sorted := make([]*models.StreamDescriptor, len(streams))
	copy(sorted, streams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height > sorted[j].Height
	})

	if quality == BestQuality || quality == "" {
		return sorted[0]
	}

	if height, ok := parseHeight(quality); ok {
		for _, s := range sorted {
			if s.Height == height {
				return s
			}
		}
	}
	// no exact match for the requested class, fall back to the highest
	return sorted[0]
}

// SelectAudio returns the highest-bitrate audio stream, or nil when streams
// is empty.
func SelectAudio(streams []*models.StreamDescriptor) *models.StreamDescriptor {
	var best *models.StreamDescriptor
	for _, s := range streams {
		if best == nil || s.Bitrate > best.Bitrate {
			best = s
		}
	}
	return best
}

// VideoStreams filters to renditions that carry video.
func VideoStreams(streams []*models.StreamDescriptor) []*models.StreamDescriptor {
	var out []*models.StreamDescriptor
	for _, s := range streams {
		if s.Height > 0 {
			out = append(out, s)
		}
	}
	return out
}

// AudioStreams filters to audio-only renditions.
func AudioStreams(streams []*models.StreamDescriptor) []*models.StreamDescriptor {
	var out []*models.StreamDescriptor
	for _, s := range streams {
		if s.Height == 0 {
			out = append(out, s)
		}
	}
	return out
}

func parseHeight(quality string) (int, bool) {
	h, err := strconv.Atoi(strings.TrimSuffix(quality, "p"))
	if err != nil {
		return 0, false
	}
	return h, true
}
