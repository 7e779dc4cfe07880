package model

// Package model defines domain data structures shared across the service:
// format descriptors, cookie material, artifact tokens, fetch tasks, playlist
// listings and status enums. Structures are designed for direct JSON encoding
// in HTTP responses and explicit state transitions.
