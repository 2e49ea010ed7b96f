// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Matching constants
const (
	// DefaultThreshold is the default similarity cutoff; similarity >= threshold is a match
	DefaultThreshold = 0.6
)

// Provider constants
const (
	// DefaultProvider is the provider preset used when FACE_PROVIDER is unset
	DefaultProvider = "insightface"

	// DefaultEmbeddingTimeout bounds a single extraction request
	DefaultEmbeddingTimeout = 60 * time.Second

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding provider
	MaxImageSize = 1920

	// DefaultBreakerMaxFailures is the number of consecutive failures that opens the breaker
	DefaultBreakerMaxFailures = 5

	// DefaultBreakerOpenTimeout is how long an open breaker rejects requests
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// Processing constants
const (
	// DefaultConcurrency is the default number of parallel comparisons in batch mode
	DefaultConcurrency = 4
)
