package subsync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akarol/subsync"
)

func TestResourceID(t *testing.T) {
	t.Parallel()

	t.Run("uses the post slug", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "my-post", subsync.ResourceID("https://a.substack.com/p/my-post"))
	})

	t.Run("slug is stable across protocol and query variations", func(t *testing.T) {
		t.Parallel()
		want := subsync.ResourceID("https://a.substack.com/p/my-post")
		assert.Equal(t, want, subsync.ResourceID("http://a.substack.com/p/my-post?utm_source=share"))
		assert.Equal(t, want, subsync.ResourceID("https://a.substack.com/p/my-post/"))
	})

	t.Run("falls back to a hash for non-post URLs", func(t *testing.T) {
		t.Parallel()
		id := subsync.ResourceID("https://a.substack.com/about")
		assert.Len(t, id, 16)
		assert.NotEqual(t, id, subsync.ResourceID("https://a.substack.com/archive"))
	})
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, subsync.StatusPending.Terminal())
	assert.False(t, subsync.StatusFetching.Terminal())
	assert.True(t, subsync.StatusFetched.Terminal())
	assert.True(t, subsync.StatusFailed.Terminal())
	assert.True(t, subsync.StatusSkipped.Terminal())
}

func TestResource_Validate(t *testing.T) {
	t.Parallel()

	r := &subsync.Resource{ID: "my-post", URL: "https://a.substack.com/p/my-post"}
	assert.NoError(t, r.Validate())

	assert.Equal(t, subsync.EINVALID, subsync.ErrorCode((&subsync.Resource{URL: "x"}).Validate()))
	assert.Equal(t, subsync.EINVALID, subsync.ErrorCode((&subsync.Resource{ID: "x"}).Validate()))
}

func TestDateRange_Contains(t *testing.T) {
	t.Parallel()

	date := func(s string) *time.Time {
		t2, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatal(err)
		}
		return &t2
	}

	r := subsync.DateRange{Start: date("2024-01-01"), End: date("2024-06-30")}

	assert.True(t, r.Contains(date("2024-03-15")))
	assert.True(t, r.Contains(date("2024-01-01")), "bounds are inclusive")
	assert.True(t, r.Contains(date("2024-06-30")))
	assert.False(t, r.Contains(date("2023-12-31")))
	assert.False(t, r.Contains(date("2024-07-01")))

	assert.True(t, r.Contains(nil), "undated resources are included")
	assert.True(t, subsync.DateRange{}.Contains(date("1999-01-01")), "open range includes everything")

	onlyStart := subsync.DateRange{Start: date("2024-01-01")}
	assert.True(t, onlyStart.Contains(date("2030-01-01")))
	assert.False(t, onlyStart.Contains(date("2023-01-01")))
}
