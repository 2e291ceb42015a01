// Package ffmpeg shells out to ffmpeg for container conversion and
// metadata tagging.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"main/pkg/models"
)

// Processor runs ffmpeg commands. BinPath defaults to the ffmpeg on PATH.
type Processor struct {
	binPath string
}

// New creates a processor using binPath, or "ffmpeg" from PATH when empty.
func New(binPath string) *Processor {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Processor{binPath: binPath}
}

// Available reports whether the ffmpeg binary can be found.
func (p *Processor) Available() bool {
	_, err := exec.LookPath(p.binPath)
	return err == nil
}

// audioCodec maps an output container to the encoder ffmpeg should use.
func audioCodec(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "libmp3lame"
	case "wav":
		return "pcm_s16le"
	case "m4a", "aac":
		return "aac"
	case "ogg":
		return "libvorbis"
	default:
		return "copy"
	}
}

// Convert transcodes inPath into format at outPath, dropping any video
// track. inPath is left in place for the caller to clean up.
func (p *Processor) Convert(ctx context.Context, inPath, outPath, format string) error {
	args := []string{
		"-y",
		"-i", inPath,
		"-vn",
		"-c:a", audioCodec(format),
		outPath,
	}
	return p.run(ctx, args)
}

// Tag rewrites path with the given metadata without re-encoding. Tagging
// goes through a sibling temp file so a failed run never corrupts the
// finished download.
func (p *Processor) Tag(ctx context.Context, path string, tags map[string]string) error {
	tmpPath := path + ".tag.tmp"
	args := []string{
		"-y",
		"-i", path,
		"-c", "copy",
	}
	for key, value := range tags {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
	}
	args = append(args, "-f", formatFor(path), tmpPath)

	if err := p.run(ctx, args); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// formatFor picks the -f muxer name for a path, since ffmpeg cannot infer
// the container from a .tmp suffix.
func formatFor(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(extOf(path)), ".")
	switch ext {
	case "m4a":
		return "ipod"
	case "mkv":
		return "matroska"
	case "":
		return "mp4"
	default:
		return ext
	}
}

func extOf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

func (p *Processor) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, p.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return parseError(stderr.String(), err)
	}
	return nil
}

// parseError turns ffmpeg's stderr wall of text into something actionable.
func parseError(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "no such file or directory"):
		return models.NewDownloadError(models.ErrUnknown,
			"ffmpeg could not find the input file",
			"The download may have been moved or deleted mid-run.", err)
	case strings.Contains(lower, "invalid data found"):
		return models.NewDownloadError(models.ErrUnknown,
			"ffmpeg could not read the downloaded file",
			"The download is likely corrupt; delete it and retry.", err)
	case strings.Contains(lower, "unknown encoder"):
		return models.NewDownloadError(models.ErrUnknown,
			"ffmpeg build lacks the requested encoder",
			"Install a full ffmpeg build or pick another output format.", err)
	case strings.Contains(lower, "no space left"):
		return models.NewDownloadError(models.ErrUnknown,
			"disk full while post-processing",
			"Free up disk space and retry the item.", err)
	}

	// keep the tail of stderr, the useful part is at the end
	tail := stderr
	if len(tail) > 300 {
		tail = tail[len(tail)-300:]
	}
	return models.NewDownloadError(models.ErrUnknown,
		fmt.Sprintf("ffmpeg failed: %s", strings.TrimSpace(tail)), "", err)
}
