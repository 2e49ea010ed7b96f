package facematch

import (
	"errors"
	"fmt"
	"math"
)

// Engine turns two detection sets into a same/different verdict using one metric.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	Metric Metric
}

// NewEngine creates an engine for the given metric.
func NewEngine(metric Metric) *Engine {
	return &Engine{Metric: metric}
}

// ValidateThreshold checks that a similarity threshold lies in [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: %v is outside [0, 1]", ErrInvalidThreshold, threshold)
	}
	return nil
}

// Decide selects the best cross-image pair from a and b and compares its
// similarity against threshold. A match is declared when similarity >= threshold.
func (e *Engine) Decide(a, b DetectionSet, threshold float64) (MatchResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return MatchResult{}, err
	}
	if len(a) == 0 {
		return MatchResult{}, NewImageError(SideA, "", ErrNoFaceDetected, nil)
	}
	if len(b) == 0 {
		return MatchResult{}, NewImageError(SideB, "", ErrNoFaceDetected, nil)
	}
	if !e.Metric.Valid() {
		return MatchResult{}, fmt.Errorf("engine metric %q is not configured", e.Metric.Name)
	}
	if err := a.Validate(); err != nil {
		return MatchResult{}, NewImageError(SideA, "", ErrUpstreamExtraction, err)
	}
	if err := b.Validate(); err != nil {
		return MatchResult{}, NewImageError(SideB, "", ErrUpstreamExtraction, err)
	}
	if a.Dim() != b.Dim() {
		return MatchResult{}, fmt.Errorf("%w: embedding dimensions differ (%d vs %d)",
			ErrUpstreamExtraction, a.Dim(), b.Dim())
	}

	distance, idxA, idxB := SelectBest(a, b, e.Metric.Distance())
	if math.IsNaN(distance) {
		return MatchResult{}, fmt.Errorf("%w: metric %s produced no comparable pair",
			ErrUpstreamExtraction, e.Metric.Name)
	}

	similarity := e.Metric.Similarity(distance)
	return MatchResult{
		Similarity: similarity,
		IsSame:     similarity >= threshold,
		IndexA:     idxA,
		IndexB:     idxB,
		BoxA:       a[idxA].Box,
		BoxB:       b[idxB].Box,
		MultiFaceA: a.MultipleFaces(),
		MultiFaceB: b.MultipleFaces(),
		CountA:     a.Len(),
		CountB:     b.Len(),
	}, nil
}

// IsValidation reports whether err is a caller-side validation failure rather
// than an extraction or internal failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrNoFaceDetected) ||
		errors.Is(err, ErrInvalidThreshold)
}
