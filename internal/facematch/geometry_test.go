package facematch

import (
	"math"
	"testing"
)

func TestBoxFromCorners(t *testing.T) {
	tests := []struct {
		name     string
		bbox     []float64
		expected BoundingBox
		wantErr  bool
	}{
		{
			name:     "simple conversion",
			bbox:     []float64{10, 20, 110, 220},
			expected: BoundingBox{Top: 20, Right: 110, Bottom: 220, Left: 10},
		},
		{
			name:     "rounds to nearest pixel",
			bbox:     []float64{10.4, 20.6, 110.5, 219.49},
			expected: BoundingBox{Top: 21, Right: 111, Bottom: 219, Left: 10},
		},
		{
			name:     "clamps negative coordinates",
			bbox:     []float64{-5.2, -1, 40, 50},
			expected: BoundingBox{Top: 0, Right: 40, Bottom: 50, Left: 0},
		},
		{
			name:    "wrong length",
			bbox:    []float64{0, 0, 10},
			wantErr: true,
		},
		{
			name:    "empty",
			bbox:    []float64{},
			wantErr: true,
		},
		{
			name:    "inverted corners",
			bbox:    []float64{100, 100, 10, 10},
			wantErr: true,
		},
		{
			name:    "zero width",
			bbox:    []float64{10, 10, 10, 50},
			wantErr: true,
		},
		{
			name:    "NaN coordinate",
			bbox:    []float64{0, math.NaN(), 10, 10},
			wantErr: true,
		},
		{
			name:    "infinite coordinate",
			bbox:    []float64{0, 0, math.Inf(1), 10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BoxFromCorners(tt.bbox)
			if tt.wantErr {
				if err == nil {
					t.Errorf("BoxFromCorners(%v) expected error, got %v", tt.bbox, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BoxFromCorners(%v) unexpected error: %v", tt.bbox, err)
			}
			if got != tt.expected {
				t.Errorf("BoxFromCorners(%v) = %v, want %v", tt.bbox, got, tt.expected)
			}
		})
	}
}

func TestBoundingBoxValid(t *testing.T) {
	tests := []struct {
		name     string
		box      BoundingBox
		expected bool
	}{
		{"valid", BoundingBox{Top: 0, Right: 10, Bottom: 10, Left: 0}, true},
		{"zero box", BoundingBox{}, false},
		{"negative top", BoundingBox{Top: -1, Right: 10, Bottom: 10, Left: 0}, false},
		{"negative left", BoundingBox{Top: 0, Right: 10, Bottom: 10, Left: -1}, false},
		{"top equals bottom", BoundingBox{Top: 5, Right: 10, Bottom: 5, Left: 0}, false},
		{"left after right", BoundingBox{Top: 0, Right: 5, Bottom: 10, Left: 6}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.expected {
				t.Errorf("%v.Valid() = %v, want %v", tt.box, got, tt.expected)
			}
		})
	}
}

func TestBoundingBoxDimensions(t *testing.T) {
	box := BoundingBox{Top: 20, Right: 110, Bottom: 220, Left: 10}
	if box.Width() != 100 {
		t.Errorf("Width() = %d, want 100", box.Width())
	}
	if box.Height() != 200 {
		t.Errorf("Height() = %d, want 200", box.Height())
	}
	if box.Area() != 20000 {
		t.Errorf("Area() = %d, want 20000", box.Area())
	}
	if (BoundingBox{}).Area() != 0 {
		t.Errorf("Area() of invalid box should be 0")
	}
}
