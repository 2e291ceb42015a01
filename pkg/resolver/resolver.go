// Package resolver turns raw user input into queued download items.
package resolver

import (
	"context"
	"fmt"

	"main/pkg/logger"
	"main/pkg/models"
	"main/pkg/retry"
	"main/pkg/selector"
	"main/pkg/urlnorm"
)

// Client is the slice of the platform client the resolver needs.
type Client interface {
	ResolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error)
	ListStreams(ctx context.Context, itemID string) ([]*models.StreamDescriptor, error)
	ResolveCollection(ctx context.Context, rawURL string) (*models.CollectionMeta, error)
	EnumerateMembers(ctx context.Context, collectionID string) ([]models.MemberRef, error)
	retry.Rotator
}

// Resolver builds queue entries from raw URLs.
type Resolver struct {
	client Client
	policy *retry.Policy
}

// New creates a resolver using the given client and retry policy.
func New(client Client, policy *retry.Policy) *Resolver {
	return &Resolver{client: client, policy: policy}
}

// Resolve normalizes rawURL and resolves it into a queued item. Collection
// URLs produce a collection entry with a synthesized title; single URLs
// additionally get a best-effort size estimate. Metadata failures surface as
// errors, size-estimation failures never do.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, kind models.ItemKind, quality, format, destDir string) (*models.DownloadItem, error) {
	normalized := urlnorm.Normalize(rawURL)

	if urlnorm.IsCollection(normalized) {
		return r.resolveCollection(ctx, normalized, kind, quality, format, destDir)
	}
	return r.resolveSingle(ctx, normalized, kind, quality, format, destDir)
}

func (r *Resolver) resolveSingle(ctx context.Context, normalized string, kind models.ItemKind, quality, format, destDir string) (*models.DownloadItem, error) {
	var meta *models.ItemMeta
	err := r.policy.Do(ctx, func() error {
		var rerr error
		meta, rerr = r.client.ResolveItem(ctx, normalized)
		return rerr
	}, r.client)
	if err != nil {
		return nil, err
	}

	item := models.NewItem(normalized, kind, quality, format, destDir)
	item.Title = meta.Title

	// informational only, never blocks queueing
	if size := r.estimateSize(ctx, meta.ID, kind, quality); size != "" {
		item.Size = size
	}
	return item, nil
}

func (r *Resolver) resolveCollection(ctx context.Context, normalized string, kind models.ItemKind, quality, format, destDir string) (*models.DownloadItem, error) {
	var meta *models.CollectionMeta
	err := r.policy.Do(ctx, func() error {
		var rerr error
		meta, rerr = r.client.ResolveCollection(ctx, normalized)
		return rerr
	}, r.client)
	if err != nil {
		return nil, err
	}

	// count members ourselves; the resolve endpoint's itemCount can lag
	// behind the actual listing
	var members []models.MemberRef
	err = r.policy.Do(ctx, func() error {
		var rerr error
		members, rerr = r.client.EnumerateMembers(ctx, meta.ID)
		return rerr
	}, r.client)
	if err != nil {
		return nil, err
	}

	item := models.NewItem(normalized, kind, quality, format, destDir)
	item.Title = fmt.Sprintf("%s (Collection - %d items)", meta.Title, len(members))
	item.Collection = true
	item.Status = models.StatusQueuedCollection
	return item, nil
}

// estimateSize returns a human-readable size for the stream that would be
// selected at download time, or "" when anything goes wrong.
func (r *Resolver) estimateSize(ctx context.Context, itemID string, kind models.ItemKind, quality string) string {
	streams, err := r.client.ListStreams(ctx, itemID)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("item", itemID).
			Warn("Size estimation failed, queueing without size")
		return ""
	}

	var chosen *models.StreamDescriptor
	if kind == models.KindAudio {
		chosen = selector.SelectAudio(selector.AudioStreams(streams))
	} else {
		chosen = selector.SelectVideo(selector.VideoStreams(streams), quality)
	}
	if chosen == nil {
		return ""
	}
	return models.HumanSize(chosen.SizeBytes)
}
