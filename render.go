package subsync

import "context"

// AssetRef describes one embedded asset of a fetched post. If the image
// pipeline could not localize the asset, LocalPath is empty and the
// renderer should keep referring to RemoteURL.
type AssetRef struct {
	RemoteURL string
	LocalPath string
	Localized bool
}

// Post is what the engine emits for every successfully fetched resource:
// metadata, raw content, and the localization outcome for each embedded
// asset.
type Post struct {
	Resource *Resource
	Title    string
	HTML     string
	Assets   []AssetRef
}

// Renderer converts a fetched post into its archival form. The engine
// treats rendering as an opaque sink; a renderer failure fails the
// resource but never the run.
type Renderer interface {
	Render(ctx context.Context, post *Post) error
}

// ArchiveStore persists archival artifacts: rendered posts and localized
// assets. Writes are atomic (a crash never leaves a partial file).
type ArchiveStore interface {
	// WritePost stores rendered post content under a name derived from
	// the resource, returning the path written.
	WritePost(ctx context.Context, id string, content []byte) (string, error)

	// WriteAsset stores a fetched asset, returning the path written.
	// The name is derived from the asset URL so repeated runs overwrite
	// rather than accumulate.
	WriteAsset(ctx context.Context, url string, data []byte) (string, error)
}
