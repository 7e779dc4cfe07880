package platform

// Package platform contains OS integration and external tooling glue:
// filesystem helpers for the scratch and state directories, and playlist
// listing via the ytget/ytdlp library.
