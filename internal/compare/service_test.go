package compare

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// fakeProvider returns canned detections keyed by image name.
type fakeProvider struct {
	metric facematch.Metric
	sets   map[string]facematch.DetectionSet
	errs   map[string]error

	mu    sync.Mutex
	calls []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	m, err := facematch.MetricByName(facematch.MetricEuclidean)
	require.NoError(t, err)
	return &fakeProvider{
		metric: m,
		sets:   map[string]facematch.DetectionSet{},
		errs:   map[string]error{},
	}
}

func (p *fakeProvider) Name() string             { return "fake" }
func (p *fakeProvider) Metric() facematch.Metric { return p.metric }
func (p *fakeProvider) Close() error             { return nil }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) Extract(ctx context.Context, img imagefile.Image) (facematch.DetectionSet, error) {
	p.mu.Lock()
	p.calls = append(p.calls, img.Name)
	p.mu.Unlock()
	if err := p.errs[img.Name]; err != nil {
		return nil, err
	}
	return p.sets[img.Name], nil
}

type recordingObserver struct {
	mu          sync.Mutex
	outcomes    []Outcome
	similarity  []float64
	extractions []facematch.Side
}

func (o *recordingObserver) ObserveExtraction(provider string, side facematch.Side, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extractions = append(o.extractions, side)
}

func (o *recordingObserver) ObserveComparison(outcome Outcome, similarity float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	o.similarity = append(o.similarity, similarity)
}

func face(offset int, values ...float32) facematch.Detection {
	return facematch.Detection{
		Embedding: facematch.Embedding(values),
		Box:       facematch.BoundingBox{Top: offset, Right: offset + 20, Bottom: offset + 20, Left: offset},
	}
}

func img(name string) imagefile.Image {
	return imagefile.Image{Name: name, Data: []byte{0xFF, 0xD8, 0xFF}, Format: "jpeg", Width: 100, Height: 100}
}

func TestCompare_IdenticalFaces(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 0.1, 0.2, 0.3)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(5, 0.1, 0.2, 0.3)}

	res, err := New(p).Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Similarity)
	assert.True(t, res.IsSame)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.calls)
}

func TestCompare_MultipleFaces(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["group.jpg"] = facematch.DetectionSet{
		face(0, 0.9, 0.9),
		face(30, 0.2, 0.1),
		face(60, -0.9, 0.4),
	}
	p.sets["pair.jpg"] = facematch.DetectionSet{
		face(10, 0.2, 0.12),
		face(40, 0.8, -0.8),
	}

	res, err := New(p).Compare(context.Background(), img("group.jpg"), img("pair.jpg"), 0.6)
	require.NoError(t, err)
	assert.Equal(t, 1, res.IndexA)
	assert.Equal(t, 0, res.IndexB)
	assert.True(t, res.MultiFaceA)
	assert.True(t, res.MultiFaceB)
	assert.Equal(t, 3, res.CountA)
	assert.Equal(t, 2, res.CountB)
	assert.Equal(t, p.sets["group.jpg"][1].Box, res.BoxA)
	assert.Equal(t, p.sets["pair.jpg"][0].Box, res.BoxB)
}

func TestCompare_BelowThreshold(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 0, 0)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 0.25, 0)}

	res, err := New(p).Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Similarity, 1e-9)
	assert.False(t, res.IsSame)
}

func TestCompare_NoFaceInB(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	p.sets["empty.jpg"] = facematch.DetectionSet{}

	_, err := New(p).Compare(context.Background(), img("a.jpg"), img("empty.jpg"), 0.6)
	require.ErrorIs(t, err, facematch.ErrNoFaceDetected)

	var imgErr *facematch.ImageError
	require.ErrorAs(t, err, &imgErr)
	assert.Equal(t, facematch.SideB, imgErr.Side)
	assert.Equal(t, "empty.jpg", imgErr.Name)
	assert.Contains(t, err.Error(), "image B (empty.jpg)")
}

func TestCompare_NoFaceInA(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 1, 0)}

	_, err := New(p).Compare(context.Background(), img("nobody.jpg"), img("b.jpg"), 0.6)
	require.ErrorIs(t, err, facematch.ErrNoFaceDetected)
	side, ok := facematch.FailedSide(err)
	require.True(t, ok)
	assert.Equal(t, facematch.SideA, side)
}

func TestCompare_InvalidThresholdBeforeExtraction(t *testing.T) {
	p := newFakeProvider(t)

	for _, threshold := range []float64{-0.5, 1.5} {
		_, err := New(p).Compare(context.Background(), img("a.jpg"), img("b.jpg"), threshold)
		assert.ErrorIs(t, err, facematch.ErrInvalidThreshold)
	}
	assert.Zero(t, p.callCount())
}

func TestCompare_MissingInput(t *testing.T) {
	p := newFakeProvider(t)

	_, err := New(p).Compare(context.Background(), imagefile.Image{Name: "a.jpg"}, img("b.jpg"), 0.6)
	require.ErrorIs(t, err, facematch.ErrMissingInput)
	side, _ := facematch.FailedSide(err)
	assert.Equal(t, facematch.SideA, side)

	_, err = New(p).Compare(context.Background(), img("a.jpg"), imagefile.Image{}, 0.6)
	require.ErrorIs(t, err, facematch.ErrMissingInput)
	side, _ = facematch.FailedSide(err)
	assert.Equal(t, facematch.SideB, side)

	assert.Zero(t, p.callCount())
}

func TestCompare_UpstreamFailurePreservesCause(t *testing.T) {
	cause := errors.New("cannot identify image file")
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	p.errs["corrupt.jpg"] = cause

	_, err := New(p).Compare(context.Background(), img("a.jpg"), img("corrupt.jpg"), 0.6)
	require.ErrorIs(t, err, facematch.ErrUpstreamExtraction)
	require.ErrorIs(t, err, cause)
	assert.False(t, facematch.IsValidation(err))
	side, _ := facematch.FailedSide(err)
	assert.Equal(t, facematch.SideB, side)
	assert.Contains(t, err.Error(), "cannot identify image file")
}

func TestCompare_UpstreamFailureInAStopsBeforeB(t *testing.T) {
	p := newFakeProvider(t)
	p.errs["a.jpg"] = context.DeadlineExceeded

	_, err := New(p).Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
	require.ErrorIs(t, err, facematch.ErrUpstreamExtraction)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.callCount())
}

func TestCompare_MalformedDetectionsAreUpstream(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 1, 0, 0)}

	_, err := New(p).Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
	assert.ErrorIs(t, err, facematch.ErrUpstreamExtraction)
}

func TestCompare_WithMetric(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 1, 1)}

	cosine, err := facematch.MetricByName(facematch.MetricCosine)
	require.NoError(t, err)
	s := New(p, WithMetric(cosine))
	assert.Equal(t, facematch.MetricCosine, s.Metric().Name)

	res, err := s.Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.7)
	require.NoError(t, err)
	assert.InDelta(t, 0.7071, res.Similarity, 1e-4)
	assert.True(t, res.IsSame)
}

func TestCompare_Observer(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 1, 0)}
	obs := &recordingObserver{}
	s := New(p, WithObserver(obs))

	_, err := s.Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
	require.NoError(t, err)
	_, err = s.Compare(context.Background(), img("a.jpg"), img("none.jpg"), 0.6)
	require.Error(t, err)
	_, err = s.Compare(context.Background(), img("a.jpg"), img("b.jpg"), 7)
	require.Error(t, err)

	assert.Equal(t, []Outcome{OutcomeSame, OutcomeNoFace, OutcomeInvalidThreshold}, obs.outcomes)
	assert.Equal(t, []facematch.Side{facematch.SideA, facematch.SideB, facematch.SideA, facematch.SideB}, obs.extractions)
}

func TestCompare_ConcurrentUse(t *testing.T) {
	p := newFakeProvider(t)
	p.sets["a.jpg"] = facematch.DetectionSet{face(0, 0.3, 0.4)}
	p.sets["b.jpg"] = facematch.DetectionSet{face(0, 0.3, 0.5)}
	s := New(p)

	want, err := s.Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]facematch.MatchResult, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = s.Compare(context.Background(), img("a.jpg"), img("b.jpg"), 0.6)
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		res  facematch.MatchResult
		err  error
		want Outcome
	}{
		{"same", facematch.MatchResult{IsSame: true}, nil, OutcomeSame},
		{"different", facematch.MatchResult{}, nil, OutcomeDifferent},
		{"no face", facematch.MatchResult{}, facematch.NewImageError(facematch.SideA, "", facematch.ErrNoFaceDetected, nil), OutcomeNoFace},
		{"missing", facematch.MatchResult{}, facematch.NewImageError(facematch.SideB, "", facematch.ErrMissingInput, errors.New("gone")), OutcomeMissingInput},
		{"threshold", facematch.MatchResult{}, facematch.ValidateThreshold(3), OutcomeInvalidThreshold},
		{"upstream", facematch.MatchResult{}, facematch.NewImageError(facematch.SideA, "", facematch.ErrUpstreamExtraction, errors.New("x")), OutcomeUpstreamError},
		{"unknown", facematch.MatchResult{}, errors.New("boom"), OutcomeUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.res, tt.err))
		})
	}
}

func TestToResponse(t *testing.T) {
	single := facematch.MatchResult{Similarity: 0.82, IsSame: true, CountA: 1, CountB: 1}
	data, err := json.Marshal(ToResponse(single))
	require.NoError(t, err)
	assert.JSONEq(t, `{"similarity":0.82,"is_same":true}`, string(data))

	multi := facematch.MatchResult{
		Similarity: 0.4,
		BoxA:       facematch.BoundingBox{Top: 1, Right: 2, Bottom: 3, Left: 0},
		BoxB:       facematch.BoundingBox{Top: 5, Right: 9, Bottom: 8, Left: 4},
		MultiFaceA: true,
		CountA:     3,
		CountB:     1,
	}
	data, err = json.Marshal(ToResponse(multi))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"similarity": 0.4,
		"is_same": false,
		"match_info": {
			"face_a_location": {"top": 1, "right": 2, "bottom": 3, "left": 0},
			"face_b_location": {"top": 5, "right": 9, "bottom": 8, "left": 4},
			"multiple_faces_a": true,
			"multiple_faces_b": false,
			"total_faces_a": 3,
			"total_faces_b": 1
		}
	}`, string(data))
}
