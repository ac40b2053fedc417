package mock

import (
	"context"

	"github.com/akarol/subsync"
)

var (
	_ subsync.Renderer     = (*Renderer)(nil)
	_ subsync.ArchiveStore = (*ArchiveStore)(nil)
)

// Renderer is a mock implementation of subsync.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, post *subsync.Post) error
}

func (r *Renderer) Render(ctx context.Context, post *subsync.Post) error {
	return r.RenderFn(ctx, post)
}

// ArchiveStore is a mock implementation of subsync.ArchiveStore.
type ArchiveStore struct {
	WritePostFn  func(ctx context.Context, id string, content []byte) (string, error)
	WriteAssetFn func(ctx context.Context, url string, data []byte) (string, error)
}

func (s *ArchiveStore) WritePost(ctx context.Context, id string, content []byte) (string, error) {
	return s.WritePostFn(ctx, id, content)
}

func (s *ArchiveStore) WriteAsset(ctx context.Context, url string, data []byte) (string, error) {
	return s.WriteAssetFn(ctx, url, data)
}
