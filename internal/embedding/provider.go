// Package embedding provides face detection and embedding extraction backends.
package embedding

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// Provider detects faces in an image and computes one embedding per face.
// Zero faces is a valid, empty DetectionSet; failures are returned as errors.
// Detections come back in a stable order for a given image.
type Provider interface {
	Name() string
	Metric() facematch.Metric
	Extract(ctx context.Context, img imagefile.Image) (facematch.DetectionSet, error)
	Close() error
}

// HealthChecker is implemented by providers that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// New builds the provider described by resolved settings.
func New(s config.ProviderSettings) (Provider, error) {
	switch s.Kind {
	case config.KindHTTP:
		return NewClient(s), nil
	case config.KindDlib:
		p, err := NewDlibProvider(s)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", s.Kind)
	}
}
