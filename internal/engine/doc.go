package engine

// Package engine drives the yt-dlp executable (via github.com/lrstanley/go-ytdlp).
// It knows how to dump a single video's metadata as JSON and how to download a
// format selection into an exact output path, forwarding cookie material as a
// request header. Everything the tool does internally is opaque to callers.
