//go:build !dlib
// +build !dlib

package embedding

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// ErrDlibDisabled is returned when the binary was built without the dlib tag.
var ErrDlibDisabled = errors.New("dlib build tag is not enabled")

// DlibProvider is a placeholder for builds without dlib.
type DlibProvider struct{}

// NewDlibProvider always fails without the dlib build tag.
func NewDlibProvider(config.ProviderSettings) (*DlibProvider, error) {
	return nil, ErrDlibDisabled
}

func (p *DlibProvider) Name() string {
	return "dlib"
}

func (p *DlibProvider) Metric() facematch.Metric {
	return facematch.Metric{}
}

func (p *DlibProvider) Extract(context.Context, imagefile.Image) (facematch.DetectionSet, error) {
	return nil, ErrDlibDisabled
}

func (p *DlibProvider) Close() error {
	return nil
}
