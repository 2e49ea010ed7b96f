package facematch

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/coder/hnsw"
)

// Convention tells the engine how to interpret a metric's raw value.
type Convention int

const (
	// ConventionDistance means lower is more alike; similarity = 1 - distance.
	ConventionDistance Convention = iota + 1
	// ConventionSimilarity means higher is more alike; the value is already a similarity.
	ConventionSimilarity
)

func (c Convention) String() string {
	switch c {
	case ConventionDistance:
		return "distance"
	case ConventionSimilarity:
		return "similarity"
	default:
		return "unknown"
	}
}

// DistanceFunc returns a non-negative-ranking value where lower means more alike.
type DistanceFunc func(a, b Embedding) float64

// Metric pairs a raw scoring function with the convention its values follow.
type Metric struct {
	Name       string
	Convention Convention
	Score      func(a, b Embedding) float64
}

// Metric names understood by MetricByName.
const (
	MetricEuclidean      = "euclidean"
	MetricCosineDistance = "cosine-distance"
	MetricCosine         = "cosine"
)

var metrics = map[string]Metric{
	MetricEuclidean: {
		Name:       MetricEuclidean,
		Convention: ConventionDistance,
		Score:      EuclideanDistance,
	},
	MetricCosineDistance: {
		Name:       MetricCosineDistance,
		Convention: ConventionDistance,
		Score:      CosineDistance,
	},
	MetricCosine: {
		Name:       MetricCosine,
		Convention: ConventionSimilarity,
		Score:      CosineSimilarity,
	},
}

// MetricByName looks up a built-in metric.
func MetricByName(name string) (Metric, error) {
	m, ok := metrics[name]
	if !ok {
		return Metric{}, fmt.Errorf("unknown metric %q (available: %v)", name, MetricNames())
	}
	return m, nil
}

// MetricNames returns the names of all built-in metrics, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Distance returns the ranking function used by the selector: the raw score for
// distance metrics, the negated score for similarity metrics.
func (m Metric) Distance() DistanceFunc {
	if m.Convention == ConventionSimilarity {
		return func(a, b Embedding) float64 {
			return -m.Score(a, b)
		}
	}
	return DistanceFunc(m.Score)
}

// Similarity converts a ranking distance produced by Distance back into a
// similarity score, clamped to [-1, 1].
func (m Metric) Similarity(distance float64) float64 {
	var sim float64
	if m.Convention == ConventionSimilarity {
		sim = -distance
	} else {
		sim = 1 - distance
	}
	return clamp(sim, -1, 1)
}

// Valid reports whether the metric has a name, a known convention and a score function.
func (m Metric) Valid() bool {
	return m.Name != "" && m.Score != nil &&
		(m.Convention == ConventionDistance || m.Convention == ConventionSimilarity)
}

// EuclideanDistance is the L2 distance used for dlib 128-d encodings.
func EuclideanDistance(a, b Embedding) float64 {
	return float64(hnsw.EuclideanDistance(a, b))
}

// CosineDistance returns 1 - cosine similarity. A zero vector is treated as
// maximally distant.
func CosineDistance(a, b Embedding) float64 {
	if isZero(a) || isZero(b) {
		return 2
	}
	return float64(hnsw.CosineDistance(a, b))
}

// CosineSimilarity computes cosine similarity between two embeddings.
// Returns 0 for mismatched lengths or zero vectors and exactly 1 for
// identical vectors.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	if slices.Equal(a, b) {
		return 1
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func isZero(e Embedding) bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
