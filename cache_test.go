package subsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akarol/subsync"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	t.Run("stable for identical URLs", func(t *testing.T) {
		t.Parallel()
		a := subsync.Fingerprint("https://a.substack.com/p/my-post")
		b := subsync.Fingerprint("https://a.substack.com/p/my-post")
		assert.Equal(t, a, b)
		assert.Len(t, a, 16)
	})

	t.Run("query parameter order does not matter", func(t *testing.T) {
		t.Parallel()
		a := subsync.Fingerprint("https://a.substack.com/archive?sort=new&page=2")
		b := subsync.Fingerprint("https://a.substack.com/archive?page=2&sort=new")
		assert.Equal(t, a, b)
	})

	t.Run("fragments are ignored", func(t *testing.T) {
		t.Parallel()
		a := subsync.Fingerprint("https://a.substack.com/p/my-post")
		b := subsync.Fingerprint("https://a.substack.com/p/my-post#comments")
		assert.Equal(t, a, b)
	})

	t.Run("distinct URLs get distinct keys", func(t *testing.T) {
		t.Parallel()
		a := subsync.Fingerprint("https://a.substack.com/p/post-1")
		b := subsync.Fingerprint("https://a.substack.com/p/post-2")
		assert.NotEqual(t, a, b)
	})

	t.Run("query values distinguish keys", func(t *testing.T) {
		t.Parallel()
		a := subsync.Fingerprint("https://a.substack.com/archive?page=1")
		b := subsync.Fingerprint("https://a.substack.com/archive?page=2")
		assert.NotEqual(t, a, b)
	})
}
