package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarol/subsync"
	"github.com/akarol/subsync/fs"
)

func TestArchiveStore_WritePost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fs.NewArchiveStore(t.TempDir())

	p, err := s.WritePost(ctx, "my-post", []byte("# Hello\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, filepath.Join("posts", "my-post.md")))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n", string(data))
}

func TestArchiveStore_WritePost_overwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fs.NewArchiveStore(t.TempDir())

	_, err := s.WritePost(ctx, "my-post", []byte("old"))
	require.NoError(t, err)
	p, err := s.WritePost(ctx, "my-post", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestArchiveStore_sanitizes_post_ids(t *testing.T) {
	t.Parallel()

	s := fs.NewArchiveStore(t.TempDir())

	p, err := s.WritePost(context.Background(), "weird/../id with spaces", []byte("x"))
	require.NoError(t, err)
	assert.NotContains(t, filepath.Base(p), " ")
	assert.NotContains(t, filepath.Base(p), "/")
}

func TestArchiveStore_WritePost_requires_an_id(t *testing.T) {
	t.Parallel()

	s := fs.NewArchiveStore(t.TempDir())
	_, err := s.WritePost(context.Background(), "", []byte("x"))
	assert.Equal(t, subsync.EINVALID, subsync.ErrorCode(err))
}

func TestArchiveStore_WriteAsset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fs.NewArchiveStore(t.TempDir())

	p, err := s.WriteAsset(ctx, "https://cdn.example.com/images/photo.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, ".jpg"))
	assert.Equal(t, "images", filepath.Base(filepath.Dir(p)))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)

	// Same URL, same path: re-runs overwrite instead of accumulating.
	again, err := s.WriteAsset(ctx, "https://cdn.example.com/images/photo.jpg", []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestAssetFilename(t *testing.T) {
	t.Parallel()

	t.Run("keeps recognized extensions", func(t *testing.T) {
		t.Parallel()
		assert.True(t, strings.HasSuffix(fs.AssetFilename("https://cdn.example.com/a.PNG"), ".png"))
		assert.True(t, strings.HasSuffix(fs.AssetFilename("https://cdn.example.com/a.webp"), ".webp"))
	})

	t.Run("drops unrecognized extensions", func(t *testing.T) {
		t.Parallel()
		name := fs.AssetFilename("https://cdn.example.com/a.php?img=1")
		assert.NotContains(t, name, ".")
	})

	t.Run("stable and distinct", func(t *testing.T) {
		t.Parallel()
		a := fs.AssetFilename("https://cdn.example.com/a.jpg")
		assert.Equal(t, a, fs.AssetFilename("https://cdn.example.com/a.jpg"))
		assert.NotEqual(t, a, fs.AssetFilename("https://cdn.example.com/b.jpg"))
	})
}
