package subsync

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Status represents the lifecycle state of a Resource within a run.
type Status string

// Resource statuses. Transitions are monotonic
// (pending → fetching → fetched) except failed → pending on retry;
// fetched and failed are terminal.
const (
	StatusPending  Status = "pending"
	StatusFetching Status = "fetching"
	StatusFetched  Status = "fetched"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Terminal returns true if the status ends a resource's processing
// within a run.
func (s Status) Terminal() bool {
	return s == StatusFetched || s == StatusFailed || s == StatusSkipped
}

// Resource represents a single remotely hosted post discovered for a
// source. Resources are created by discovery and mutated only by the
// fetch scheduler; they are retained for the run summary.
type Resource struct {
	ID           string
	URL          string
	DiscoveredAt time.Time
	PublishedAt  *time.Time
	Status       Status
	Attempts     int
}

// Validate returns an error if the resource contains invalid fields.
func (r *Resource) Validate() error {
	if r.ID == "" {
		return Errorf(EINVALID, "resource ID required")
	}
	if r.URL == "" {
		return Errorf(EINVALID, "resource URL required")
	}
	return nil
}

// ResourceID derives a stable identifier from a post URL. Substack post
// URLs carry a slug after /p/, which is stable across protocol and query
// variations; for anything else the identifier is a hash of the
// normalized URL.
func ResourceID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if i := strings.Index(u.Path, "/p/"); i != -1 {
			slug := strings.Trim(u.Path[i+len("/p/"):], "/")
			if slug != "" {
				return slug
			}
		}
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(rawURL))
}

// DateRange is an optional inclusive published-date filter applied at
// discovery time. A nil bound is open-ended.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls within the range. A nil timestamp
// passes: resources missing a published date are included unless
// conclusively excludable.
func (d DateRange) Contains(t *time.Time) bool {
	if t == nil {
		return true
	}
	if d.Start != nil && t.Before(*d.Start) {
		return false
	}
	if d.End != nil && t.After(*d.End) {
		return false
	}
	return true
}
