// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Server constants
const (
	// DefaultHost is the address the web server binds to
	DefaultHost = "0.0.0.0"

	// DefaultPort is the port the web server listens on
	DefaultPort = 8080

	// RequestTimeout bounds a single HTTP request, extraction included
	RequestTimeout = 2 * time.Minute

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

// File upload constants
const (
	// MaxUploadSize is the maximum multipart upload size in bytes (50MB for both images)
	MaxUploadSize = 50 << 20
)

// Form field names accepted by the compare endpoints
const (
	FormImageA    = "img1"
	FormImageB    = "img2"
	FormThreshold = "threshold"
)

// ComparisonIDHeader carries the per-request comparison ID
const ComparisonIDHeader = "X-Comparison-ID"
