// Package compare wires face extraction and the decision engine into a single comparison call.
package compare

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/face-compare/internal/embedding"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// Outcome labels a finished comparison.
type Outcome string

const (
	OutcomeSame             Outcome = "same"
	OutcomeDifferent        Outcome = "different"
	OutcomeNoFace           Outcome = "no_face"
	OutcomeMissingInput     Outcome = "missing_input"
	OutcomeInvalidThreshold Outcome = "invalid_threshold"
	OutcomeUpstreamError    Outcome = "upstream_error"
)

// Outcomes lists every outcome label.
var Outcomes = []Outcome{
	OutcomeSame, OutcomeDifferent, OutcomeNoFace,
	OutcomeMissingInput, OutcomeInvalidThreshold, OutcomeUpstreamError,
}

// OutcomeOf classifies the result of a comparison.
func OutcomeOf(res facematch.MatchResult, err error) Outcome {
	switch {
	case err == nil && res.IsSame:
		return OutcomeSame
	case err == nil:
		return OutcomeDifferent
	case errors.Is(err, facematch.ErrInvalidThreshold):
		return OutcomeInvalidThreshold
	case errors.Is(err, facematch.ErrMissingInput):
		return OutcomeMissingInput
	case errors.Is(err, facematch.ErrNoFaceDetected):
		return OutcomeNoFace
	default:
		return OutcomeUpstreamError
	}
}

// Observer receives comparison telemetry.
type Observer interface {
	ObserveExtraction(provider string, side facematch.Side, elapsed time.Duration, err error)
	ObserveComparison(outcome Outcome, similarity float64)
}

type nopObserver struct{}

func (nopObserver) ObserveExtraction(string, facematch.Side, time.Duration, error) {}
func (nopObserver) ObserveComparison(Outcome, float64)                            {}

// Option configures a Service.
type Option func(*Service)

// WithObserver attaches telemetry to the service.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMetric overrides the provider's declared metric.
func WithMetric(m facematch.Metric) Option {
	return func(s *Service) {
		s.engine = facematch.NewEngine(m)
	}
}

// Service compares two images with one embedding provider.
// It is safe for concurrent use.
type Service struct {
	provider embedding.Provider
	engine   *facematch.Engine
	observer Observer
}

// New creates a comparison service using the provider's metric.
func New(p embedding.Provider, opts ...Option) *Service {
	s := &Service{
		provider: p,
		engine:   facematch.NewEngine(p.Metric()),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the embedding provider the service extracts with.
func (s *Service) Provider() embedding.Provider {
	return s.provider
}

// Metric returns the metric used for decisions.
func (s *Service) Metric() facematch.Metric {
	return s.engine.Metric
}

// Compare decides whether images a and b show the same person.
func (s *Service) Compare(ctx context.Context, a, b imagefile.Image, threshold float64) (facematch.MatchResult, error) {
	res, err := s.compare(ctx, a, b, threshold)
	s.observer.ObserveComparison(OutcomeOf(res, err), res.Similarity)
	return res, err
}

func (s *Service) compare(ctx context.Context, a, b imagefile.Image, threshold float64) (facematch.MatchResult, error) {
	if err := facematch.ValidateThreshold(threshold); err != nil {
		return facematch.MatchResult{}, err
	}
	if a.Empty() {
		return facematch.MatchResult{}, facematch.NewImageError(facematch.SideA, a.Name, facematch.ErrMissingInput, nil)
	}
	if b.Empty() {
		return facematch.MatchResult{}, facematch.NewImageError(facematch.SideB, b.Name, facematch.ErrMissingInput, nil)
	}

	setA, err := s.extract(ctx, facematch.SideA, a)
	if err != nil {
		return facematch.MatchResult{}, err
	}
	setB, err := s.extract(ctx, facematch.SideB, b)
	if err != nil {
		return facematch.MatchResult{}, err
	}

	res, err := s.engine.Decide(setA, setB, threshold)
	if err != nil {
		var imgErr *facematch.ImageError
		if errors.As(err, &imgErr) && imgErr.Name == "" {
			imgErr.Name = nameFor(imgErr.Side, a, b)
		}
		return facematch.MatchResult{}, err
	}
	return res, nil
}

func (s *Service) extract(ctx context.Context, side facematch.Side, img imagefile.Image) (facematch.DetectionSet, error) {
	start := time.Now()
	set, err := s.provider.Extract(ctx, img)
	s.observer.ObserveExtraction(s.provider.Name(), side, time.Since(start), err)
	if err != nil {
		return nil, facematch.NewImageError(side, img.Name, facematch.ErrUpstreamExtraction, err)
	}

	if set.MultipleFaces() {
		log.Printf("Multiple faces detected in %s (%s): %d faces, using best match",
			side, sanitizeForLog(img.Name), set.Len())
	}
	return set, nil
}

func nameFor(side facematch.Side, a, b imagefile.Image) string {
	if side == facematch.SideA {
		return a.Name
	}
	return b.Name
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
