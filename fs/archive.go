// Package fs provides the filesystem archive store: rendered posts and
// localized assets written with atomic semantics.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/akarol/subsync"
)

// Ensure ArchiveStore implements subsync.ArchiveStore at compile time.
var _ subsync.ArchiveStore = (*ArchiveStore)(nil)

// ArchiveStore writes archival artifacts under a base directory:
// posts/<id>.md and images/<hash><ext>. Every write goes to a temporary
// file first and is renamed into place, so a crash never leaves a
// partial artifact.
type ArchiveStore struct {
	baseDir string
}

// NewArchiveStore creates an ArchiveStore rooted at baseDir.
func NewArchiveStore(baseDir string) *ArchiveStore {
	return &ArchiveStore{baseDir: baseDir}
}

// PostPath returns where a post with the given id is stored.
func (s *ArchiveStore) PostPath(id string) string {
	return filepath.Join(s.baseDir, "posts", sanitize(id)+".md")
}

// WritePost stores rendered post content, returning the path written.
func (s *ArchiveStore) WritePost(_ context.Context, id string, content []byte) (string, error) {
	if id == "" {
		return "", subsync.Errorf(subsync.EINVALID, "post id required")
	}
	p := s.PostPath(id)
	if err := writeAtomic(p, content); err != nil {
		return "", err
	}
	return p, nil
}

// WriteAsset stores a fetched asset under a name derived from its URL,
// so repeated runs overwrite rather than accumulate. Returns the path
// written.
func (s *ArchiveStore) WriteAsset(_ context.Context, rawURL string, data []byte) (string, error) {
	if rawURL == "" {
		return "", subsync.Errorf(subsync.EINVALID, "asset URL required")
	}
	p := filepath.Join(s.baseDir, "images", AssetFilename(rawURL))
	if err := writeAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// AssetFilename derives a stable filename for an asset URL: a hash of
// the URL plus its original extension when one is recognizable.
func AssetFilename(rawURL string) string {
	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif":
		default:
			ext = ""
		}
	}
	return fmt.Sprintf("%016x%s", xxhash.Sum64String(rawURL), ext)
}

// writeAtomic writes data to a temporary file in the target directory
// and renames it into place.
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// sanitize keeps ids filesystem-safe.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, id)
}
