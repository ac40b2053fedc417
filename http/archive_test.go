package http_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarol/subsync"
	subhttp "github.com/akarol/subsync/http"
)

func fastArchiveDiscoverer() []subhttp.ArchiveOption {
	return []subhttp.ArchiveOption{subhttp.WithPageInterval(time.Millisecond)}
}

func TestArchiveDiscoverer_walks_pages_until_empty(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	pagesServed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/archive", r.URL.Path)
		assert.Equal(t, "new", r.URL.Query().Get("sort"))

		mu.Lock()
		pagesServed++
		mu.Unlock()

		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<div>
				<a href="/p/post-one">Post One</a>
				<a href="/p/post-two?utm_source=archive">Post Two</a>
				<a href="/about">About</a>
			</div>`)
		case "2":
			fmt.Fprint(w, `<div><a href="/p/post-three">Post Three</a></div>`)
		default:
			fmt.Fprint(w, `<div>No posts to see here</div>`)
		}
	}))
	t.Cleanup(srv.Close)

	d := subhttp.NewArchiveDiscoverer(subhttp.NewTransport(), fastArchiveDiscoverer()...)

	rs, err := d.Discover(context.Background(), srv.URL, subsync.DateRange{})
	require.NoError(t, err)
	require.Len(t, rs, 3)

	assert.Equal(t, "post-one", rs[0].ID)
	assert.Equal(t, "post-two", rs[1].ID)
	assert.Equal(t, srv.URL+"/p/post-two", rs[1].URL, "query strings are stripped from post links")
	assert.Equal(t, "post-three", rs[2].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, pagesServed)
}

func TestArchiveDiscoverer_stops_at_the_end_marker(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	pagesServed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pagesServed++
		mu.Unlock()
		fmt.Fprint(w, `<div>
			<a href="/p/only-post">Only Post</a>
			<p>There are no more posts</p>
		</div>`)
	}))
	t.Cleanup(srv.Close)

	d := subhttp.NewArchiveDiscoverer(subhttp.NewTransport(), fastArchiveDiscoverer()...)

	rs, err := d.Discover(context.Background(), srv.URL, subsync.DateRange{})
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, pagesServed)
}

func TestArchiveDiscoverer_dedupes_links_across_pages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<a href="/p/post-one">A</a><a href="/p/post-two">B</a>`)
		case "2":
			// A page of nothing but repeats ends the walk.
			fmt.Fprint(w, `<a href="/p/post-one">A</a>`)
		default:
			t.Error("walk should have stopped on the all-duplicates page")
		}
	}))
	t.Cleanup(srv.Close)

	d := subhttp.NewArchiveDiscoverer(subhttp.NewTransport(), fastArchiveDiscoverer()...)

	rs, err := d.Discover(context.Background(), srv.URL, subsync.DateRange{})
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestArchiveDiscoverer_respects_the_page_cap(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	pagesServed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pagesServed++
		mu.Unlock()
		// Every page yields a fresh link, so only the cap stops the walk.
		fmt.Fprintf(w, `<a href="/p/post-%s">P</a>`, r.URL.Query().Get("page"))
	}))
	t.Cleanup(srv.Close)

	d := subhttp.NewArchiveDiscoverer(subhttp.NewTransport(),
		subhttp.WithPageInterval(time.Millisecond),
		subhttp.WithMaxPages(4),
	)

	rs, err := d.Discover(context.Background(), srv.URL, subsync.DateRange{})
	require.NoError(t, err)
	assert.Len(t, rs, 4)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, pagesServed)
}

func TestArchiveDiscoverer_non_200_page_ends_the_walk(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `<a href="/p/post-one">A</a>`)
			return
		}
		w.WriteHeader(500)
	}))
	t.Cleanup(srv.Close)

	d := subhttp.NewArchiveDiscoverer(subhttp.NewTransport(), fastArchiveDiscoverer()...)

	rs, err := d.Discover(context.Background(), srv.URL, subsync.DateRange{})
	require.NoError(t, err, "discovery keeps what it has when pagination breaks")
	assert.Len(t, rs, 1)
}
