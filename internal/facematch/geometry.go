package facematch

import (
	"fmt"
	"math"
)

// BoundingBox locates a face in its source image, in pixels.
// Offsets follow the dlib convention: top, right, bottom, left.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Valid reports whether the box satisfies 0 <= top < bottom and 0 <= left < right.
func (b BoundingBox) Valid() bool {
	return b.Top >= 0 && b.Left >= 0 && b.Top < b.Bottom && b.Left < b.Right
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() int {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() int {
	return b.Bottom - b.Top
}

// Area returns the box area in square pixels, or 0 for an invalid box.
func (b BoundingBox) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[top=%d right=%d bottom=%d left=%d]", b.Top, b.Right, b.Bottom, b.Left)
}

// BoxFromCorners converts a detector bbox [x1, y1, x2, y2] in pixels to a BoundingBox.
// Coordinates are rounded to the nearest pixel and negative values are clamped to 0,
// since detectors may report faces that extend slightly past the image edge.
func BoxFromCorners(bbox []float64) (BoundingBox, error) {
	if len(bbox) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox must have 4 coordinates, got %d", len(bbox))
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("bbox contains non-finite coordinates: %v", bbox)
		}
	}

	box := BoundingBox{
		Left:   max(int(math.Round(bbox[0])), 0),
		Top:    max(int(math.Round(bbox[1])), 0),
		Right:  max(int(math.Round(bbox[2])), 0),
		Bottom: max(int(math.Round(bbox[3])), 0),
	}
	if !box.Valid() {
		return BoundingBox{}, fmt.Errorf("bbox %v is empty after conversion", bbox)
	}
	return box, nil
}
