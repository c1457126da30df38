// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket rate limiting
	RateLimitMessages = 240         // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration

	// MaxUploadBytes bounds CSV request bodies
	MaxUploadBytes = 4 << 20

	// AdminKeyHeader carries the admin key for guarded endpoints
	AdminKeyHeader = "X-Admin-Key"
)
