// Package subsync archives Substack-style newsletters to local markdown.
// It discovers posts via the site's sitemap (falling back to archive-page
// pagination), fetches them under bounded concurrency with adaptive
// per-host rate limits, caches responses to avoid redundant network work,
// and keeps crash-safe incremental sync state so repeated runs only
// process new posts.
//
// This package contains domain types and interfaces following Ben
// Johnson's Standard Package Layout. Implementations live in
// subdirectories named after their primary dependency (e.g., sqlite/,
// http/, htmltomarkdown/); the acquisition engine itself lives in fetch/.
package subsync
