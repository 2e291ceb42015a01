// Package processor runs one queued item end to end: resolve, select,
// fetch, post-process, finalize.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"main/pkg/fsutil"
	"main/pkg/logger"
	"main/pkg/models"
	"main/pkg/retry"
	"main/pkg/selector"
	"main/pkg/urlnorm"
)

// Client is the slice of the platform client the workflow needs.
type Client interface {
	ResolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error)
	ListStreams(ctx context.Context, itemID string) ([]*models.StreamDescriptor, error)
	ResolveCollection(ctx context.Context, rawURL string) (*models.CollectionMeta, error)
	EnumerateMembers(ctx context.Context, collectionID string) ([]models.MemberRef, error)
	Transfer(ctx context.Context, stream *models.StreamDescriptor, destPath string, onProgress func(done, total int64)) error
	retry.Rotator
}

// PostProcessor converts and tags finished audio downloads.
type PostProcessor interface {
	Convert(ctx context.Context, inPath, outPath, format string) error
	Tag(ctx context.Context, path string, tags map[string]string) error
}

// Workflow downloads items. It is stateless; one Workflow serves the whole
// queue.
type Workflow struct {
	client Client
	policy *retry.Policy
	post   PostProcessor
}

// New creates a workflow around the given client, retry policy and
// post-processor.
func New(client Client, policy *retry.Policy, post PostProcessor) *Workflow {
	return &Workflow{client: client, policy: policy, post: post}
}

// Run processes item and returns the final output path. onProgress receives
// percentages in 0..100. Metadata is always re-resolved; what was true at
// queue time may not be by the time the item runs.
func (w *Workflow) Run(ctx context.Context, item *models.DownloadItem, onProgress func(pct float64)) (string, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	if item.Collection {
		return w.runCollection(ctx, item, onProgress)
	}
	return w.runSingle(ctx, item, onProgress)
}

func (w *Workflow) runSingle(ctx context.Context, item *models.DownloadItem, onProgress func(pct float64)) (string, error) {
	meta, err := w.resolveItem(ctx, item.URL)
	if err != nil {
		return "", fmt.Errorf("resolve: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = item.Title
	}

	stream, err := w.selectStream(ctx, meta.ID, item)
	if err != nil {
		return "", fmt.Errorf("select stream: %w", err)
	}

	if err := fsutil.MakeDirs(item.DestinationPath); err != nil {
		return "", fmt.Errorf("prepare destination: %w", err)
	}

	if item.Kind == models.KindAudio {
		return w.fetchAudio(ctx, item, stream, title, onProgress)
	}
	return w.fetchVideo(ctx, item, stream, title, onProgress)
}

func (w *Workflow) resolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error) {
	var meta *models.ItemMeta
	err := w.policy.Do(ctx, func() error {
		var rerr error
		meta, rerr = w.client.ResolveItem(ctx, rawURL)
		return rerr
	}, w.client)
	return meta, err
}

func (w *Workflow) selectStream(ctx context.Context, itemID string, item *models.DownloadItem) (*models.StreamDescriptor, error) {
	var streams []*models.StreamDescriptor
	err := w.policy.Do(ctx, func() error {
		var rerr error
		streams, rerr = w.client.ListStreams(ctx, itemID)
		return rerr
	}, w.client)
	if err != nil {
		return nil, err
	}

	var stream *models.StreamDescriptor
	if item.Kind == models.KindAudio {
		stream = selector.SelectAudio(selector.AudioStreams(streams))
	} else {
		stream = selector.SelectVideo(selector.VideoStreams(streams), item.Quality)
	}
	if stream == nil {
		return nil, models.NewDownloadError(models.ErrUnavailable,
			"no suitable stream available",
			"The item may be a live broadcast or still processing.", nil)
	}
	return stream, nil
}

func (w *Workflow) fetchVideo(ctx context.Context, item *models.DownloadItem, stream *models.StreamDescriptor, title string, onProgress func(pct float64)) (string, error) {
	ext := stream.Container
	if ext == "" {
		ext = "mp4"
	}
	finalPath := filepath.Join(item.DestinationPath, fsutil.SanitizeFileName(title)+"."+ext)

	if fsutil.FileExists(finalPath) {
		logger.GetLogger().WithField("path", finalPath).Info("File already exists, skipping download")
		onProgress(100)
		return finalPath, nil
	}

	if err := w.transfer(ctx, stream, finalPath, onProgress); err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	return finalPath, nil
}

// fetchAudio downloads into a temp file first: the finished name only ever
// appears once the file is complete and in the requested container.
func (w *Workflow) fetchAudio(ctx context.Context, item *models.DownloadItem, stream *models.StreamDescriptor, title string, onProgress func(pct float64)) (string, error) {
	format := item.Format
	if format == "" {
		format = "mp3"
	}
	finalPath := filepath.Join(item.DestinationPath, fsutil.SanitizeFileName(title)+"."+format)

	if fsutil.FileExists(finalPath) {
		logger.GetLogger().WithField("path", finalPath).Info("File already exists, skipping download")
		onProgress(100)
		return finalPath, nil
	}

	tmpPath := finalPath + ".tmp"
	if err := w.transfer(ctx, stream, tmpPath, onProgress); err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	if strings.EqualFold(stream.Container, format) {
		if err := os.Rename(tmpPath, finalPath); err != nil {
			return "", fmt.Errorf("finalize: %w", err)
		}
	} else {
		if err := w.post.Convert(ctx, tmpPath, finalPath, format); err != nil {
			return "", fmt.Errorf("post-process: %w", err)
		}
		os.Remove(tmpPath)
	}

	// tagging is cosmetic, a failure never fails the item
	if err := w.post.Tag(ctx, finalPath, map[string]string{"title": title}); err != nil {
		logger.GetLogger().WithError(err).WithField("path", finalPath).
			Warn("Tagging failed, keeping untagged file")
	}
	return finalPath, nil
}

func (w *Workflow) transfer(ctx context.Context, stream *models.StreamDescriptor, destPath string, onProgress func(pct float64)) error {
	return w.policy.Do(ctx, func() error {
		return w.client.Transfer(ctx, stream, destPath, func(done, total int64) {
			if total > 0 {
				onProgress(float64(done) / float64(total) * 100)
			}
		})
	}, w.client)
}

// runCollection expands the collection and downloads each member in order.
// A failing member is logged and skipped; parent progress counts processed
// members, not successes.
func (w *Workflow) runCollection(ctx context.Context, item *models.DownloadItem, onProgress func(pct float64)) (string, error) {
	log := logger.GetLogger()

	var meta *models.CollectionMeta
	err := w.policy.Do(ctx, func() error {
		var rerr error
		meta, rerr = w.client.ResolveCollection(ctx, item.URL)
		return rerr
	}, w.client)
	if err != nil {
		return "", fmt.Errorf("resolve collection: %w", err)
	}

	var members []models.MemberRef
	err = w.policy.Do(ctx, func() error {
		var rerr error
		members, rerr = w.client.EnumerateMembers(ctx, meta.ID)
		return rerr
	}, w.client)
	if err != nil {
		return "", fmt.Errorf("enumerate members: %w", err)
	}

	folder := "Collection"
	if meta.Title != "" {
		folder = fsutil.SanitizeFileName(meta.Title)
	}
	collectionDir := filepath.Join(item.DestinationPath, folder)
	if err := fsutil.MakeDirs(collectionDir); err != nil {
		return "", fmt.Errorf("prepare destination: %w", err)
	}

	total := len(members)
	for i, member := range members {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		child := models.NewItem(urlnorm.Normalize(member.URL), item.Kind, item.Quality, item.Format, collectionDir)
		child.Title = member.Title

		if _, err := w.runSingle(ctx, child, func(float64) {}); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.WithError(err).WithFields(map[string]interface{}{
				"member":     member.Title,
				"collection": meta.Title,
			}).Warn("Collection member failed, skipping")
		}

		onProgress(float64(i+1) / float64(total) * 100)
	}

	return collectionDir, nil
}
