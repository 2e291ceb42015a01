package client

import (
	"context"
	"sync"

	"main/pkg/logger"
	"main/pkg/models"
)

// Handle is the shared, swappable client used across the engine. Every call
// goes to the current client; Rotate swaps in a fully constructed
// replacement with a fresh identity. If building the replacement fails, the
// previous client stays in place so downloads can keep going.
type Handle struct {
	mu      sync.Mutex
	current *Client
	factory func() (*Client, error)
}

// NewHandle builds the initial client through factory and wraps it.
func NewHandle(factory func() (*Client, error)) (*Handle, error) {
	first, err := factory()
	if err != nil {
		return nil, err
	}
	return &Handle{current: first, factory: factory}, nil
}

func (h *Handle) client() *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Rotate replaces the current client with a newly built one. On factory
// failure the current client is kept and the error returned.
func (h *Handle) Rotate() error {
	next, err := h.factory()
	if err != nil {
		return err
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	logger.GetLogger().WithFields(map[string]interface{}{
		"old": old.Identity(),
		"new": next.Identity(),
	}).Info("Rotated client identity")
	return nil
}

// Identity returns the current client's user agent.
func (h *Handle) Identity() string {
	return h.client().Identity()
}

func (h *Handle) ResolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error) {
	return h.client().ResolveItem(ctx, rawURL)
}

func (h *Handle) ListStreams(ctx context.Context, itemID string) ([]*models.StreamDescriptor, error) {
	return h.client().ListStreams(ctx, itemID)
}

func (h *Handle) ResolveCollection(ctx context.Context, rawURL string) (*models.CollectionMeta, error) {
	return h.client().ResolveCollection(ctx, rawURL)
}

func (h *Handle) EnumerateMembers(ctx context.Context, collectionID string) ([]models.MemberRef, error) {
	return h.client().EnumerateMembers(ctx, collectionID)
}

func (h *Handle) Transfer(ctx context.Context, stream *models.StreamDescriptor, destPath string, onProgress func(done, total int64)) error {
	return h.client().Transfer(ctx, stream, destPath, onProgress)
}
