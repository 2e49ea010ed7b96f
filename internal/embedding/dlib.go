//go:build dlib
// +build dlib

package embedding

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// DlibProvider runs dlib face detection and the 128-d ResNet descriptor in-process.
// The recognizer is not safe for concurrent use, so calls are serialized.
type DlibProvider struct {
	name         string
	metric       facematch.Metric
	maxImageSize int

	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlibProvider loads the dlib models from the configured directory.
func NewDlibProvider(s config.ProviderSettings) (*DlibProvider, error) {
	rec, err := face.NewRecognizer(s.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models from %s: %w", s.ModelDir, err)
	}
	return &DlibProvider{
		name:         s.Name,
		metric:       s.Metric,
		maxImageSize: s.MaxImageSize,
		rec:          rec,
	}, nil
}

func (p *DlibProvider) Name() string {
	return p.name
}

func (p *DlibProvider) Metric() facematch.Metric {
	return p.metric
}

// Extract detects every face in the image. dlib only reads JPEG, so other
// formats are re-encoded first.
func (p *DlibProvider) Extract(ctx context.Context, img imagefile.Image) (facematch.DetectionSet, error) {
	sent, err := img.JPEG(p.maxImageSize)
	if err != nil {
		return nil, err
	}
	sx, sy := sent.ScaleFrom(img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rec == nil {
		return nil, fmt.Errorf("dlib recognizer is closed")
	}

	faces, err := p.rec.Recognize(sent.Data)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	set := make(facematch.DetectionSet, 0, len(faces))
	for i, f := range faces {
		box, err := boxFromRect(f.Rectangle, sx, sy)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		descriptor := make(facematch.Embedding, len(f.Descriptor))
		copy(descriptor, f.Descriptor[:])
		set = append(set, facematch.Detection{
			Embedding: descriptor,
			Box:       box,
		})
	}
	return set, nil
}

// Close releases the recognizer resources.
func (p *DlibProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rec != nil {
		p.rec.Close()
		p.rec = nil
	}
	return nil
}

// boxFromRect converts a detector rectangle on the decoded JPEG into a box
// in source-image pixels.
func boxFromRect(r image.Rectangle, sx, sy float64) (facematch.BoundingBox, error) {
	return facematch.BoxFromCorners(scaleCorners([]float64{
		float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y),
	}, sx, sy))
}
