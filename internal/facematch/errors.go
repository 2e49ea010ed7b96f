package facematch

import (
	"errors"
	"fmt"
)

// Error kinds returned by the comparison pipeline. Callers test them with errors.Is.
var (
	ErrMissingInput       = errors.New("missing input image")
	ErrNoFaceDetected     = errors.New("no face detected")
	ErrUpstreamExtraction = errors.New("face extraction failed")
	ErrInvalidThreshold   = errors.New("invalid threshold")
)

// ImageError reports a failure tied to one of the two compared images.
// Both the kind and the underlying cause are reachable through errors.Is.
type ImageError struct {
	Side Side
	Name string
	Kind error
	Err  error
}

func (e *ImageError) Error() string {
	subject := e.Side.String()
	if e.Name != "" {
		subject = fmt.Sprintf("%s (%s)", subject, e.Name)
	}
	if e.Err != nil && errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", subject, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s in %s: %v", e.Kind, subject, e.Err)
	}
	return fmt.Sprintf("%s in %s", e.Kind, subject)
}

func (e *ImageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewImageError builds an ImageError of the given kind.
func NewImageError(side Side, name string, kind, cause error) *ImageError {
	return &ImageError{Side: side, Name: name, Kind: kind, Err: cause}
}

// FailedSide returns the image an error refers to, if any.
func FailedSide(err error) (Side, bool) {
	var imgErr *ImageError
	if errors.As(err, &imgErr) {
		return imgErr.Side, true
	}
	return 0, false
}
