package facematch

import (
	"fmt"
	"math"
)

// Embedding is a face descriptor produced by an embedding provider.
// Its dimensionality is fixed by the provider (128 for dlib, 512 for InsightFace).
type Embedding []float32

// Detection is one detected face: its embedding and where it was found.
type Detection struct {
	Embedding Embedding
	Box       BoundingBox
}

// DetectionSet holds every face found in one image, in detection order.
// An empty set means no face was detected.
type DetectionSet []Detection

// Len returns the number of detected faces.
func (s DetectionSet) Len() int {
	return len(s)
}

// MultipleFaces reports whether more than one face was detected.
func (s DetectionSet) MultipleFaces() bool {
	return len(s) > 1
}

// Dim returns the embedding dimensionality of the set, or 0 for an empty set.
func (s DetectionSet) Dim() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0].Embedding)
}

// Validate checks that every detection carries a finite, non-empty embedding of
// the same dimensionality and a valid bounding box. An empty set is valid.
func (s DetectionSet) Validate() error {
	dim := s.Dim()
	for i, d := range s {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("face %d: empty embedding", i)
		}
		if len(d.Embedding) != dim {
			return fmt.Errorf("face %d: embedding has %d dimensions, expected %d", i, len(d.Embedding), dim)
		}
		for _, v := range d.Embedding {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("face %d: embedding contains non-finite values", i)
			}
		}
		if !d.Box.Valid() {
			return fmt.Errorf("face %d: invalid bounding box %v", i, d.Box)
		}
	}
	return nil
}

// MatchResult is the outcome of comparing two detection sets.
type MatchResult struct {
	Similarity float64
	IsSame     bool
	IndexA     int
	IndexB     int
	BoxA       BoundingBox
	BoxB       BoundingBox
	MultiFaceA bool
	MultiFaceB bool
	CountA     int
	CountB     int
}

// Side identifies one of the two compared images.
type Side int

const (
	SideA Side = iota + 1
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "image A"
	case SideB:
		return "image B"
	default:
		return "unknown image"
	}
}
