// Package download implements the fetch pipeline built on top of yt-dlp
// (via internal/engine). It reserves an artifact for every request, runs the
// download on a bounded worker pool, and tracks each request as a task that
// callers can poll, wait on, or cancel.
package download
