package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	faceEndpoint        = "/embed/face"
	healthEndpoint      = "/health"
)

// ErrBreakerOpen is returned while the circuit breaker rejects requests.
var ErrBreakerOpen = errors.New("embedding server unavailable (circuit open)")

// Client computes face embeddings using the embedding server.
type Client struct {
	name         string
	baseURL      string
	metric       facematch.Metric
	maxImageSize int
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
}

// NewClient creates a new embedding client from resolved provider settings.
func NewClient(s config.ProviderSettings) *Client {
	baseURL := s.URL
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	name := s.Name
	if name == "" {
		name = "embedding"
	}

	c := &Client{
		name:         name,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		metric:       s.Metric,
		maxImageSize: s.MaxImageSize,
		client:       &http.Client{Timeout: s.Timeout},
	}
	c.breaker = newBreaker(name, s.Breaker)
	return c
}

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	maxFailures := uint32(max(cfg.MaxFailures, 1))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state change: %s -> %s", name, from, to)
		},
		// Rejected input and abandoned requests say nothing about server health.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.status < http.StatusInternalServerError
			}
			var ce *canceledError
			if errors.As(err, &ce) {
				return true
			}
			return err == nil
		},
	})
}

// statusError is a non-200 answer from the embedding server.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API error (status %d)", e.status)
	}
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

// canceledError is a request cut short by the caller's own context.
type canceledError struct {
	err error
}

func (e *canceledError) Error() string { return e.err.Error() }
func (e *canceledError) Unwrap() error { return e.err }

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Name returns the provider preset name.
func (c *Client) Name() string {
	return c.name
}

// Metric returns the metric the server's embeddings are compared with.
func (c *Client) Metric() facematch.Metric {
	return c.metric
}

// Close releases idle keep-alive connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings.
// Bounding boxes are reported in the pixel space of img even when a
// downscaled copy was uploaded.
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, img imagefile.Image) (*FaceResponse, error) {
	sent := img
	if c.maxImageSize > 0 && (img.Width > c.maxImageSize || img.Height > c.maxImageSize) {
		resized, err := img.JPEG(c.maxImageSize)
		if err != nil {
			return nil, err
		}
		sent = resized
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.postMultipartImage(ctx, faceEndpoint, sent.Data, sent.MIMEType())
		if err != nil && ctx.Err() != nil {
			return nil, &canceledError{err: err}
		}
		return body, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(result.([]byte), &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	faceResp.scaleBoxes(sent.ScaleFrom(img))

	return &faceResp, nil
}

// Extract returns the faces the server detected, ordered by face index.
func (c *Client) Extract(ctx context.Context, img imagefile.Image) (facematch.DetectionSet, error) {
	resp, err := c.ComputeFaceEmbeddings(ctx, img)
	if err != nil {
		return nil, err
	}
	return resp.DetectionSet()
}

// DetectionSet converts the server response into detections ordered by face index.
func (r *FaceResponse) DetectionSet() (facematch.DetectionSet, error) {
	faces := make([]FaceDetection, len(r.Faces))
	copy(faces, r.Faces)
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].FaceIndex < faces[j].FaceIndex
	})

	set := make(facematch.DetectionSet, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", f.FaceIndex)
		}
		if f.Dim != 0 && f.Dim != len(f.Embedding) {
			return nil, fmt.Errorf("face %d: declared dim %d but got %d values", f.FaceIndex, f.Dim, len(f.Embedding))
		}
		box, err := facematch.BoxFromCorners(f.BBox)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f.FaceIndex, err)
		}
		set = append(set, facematch.Detection{
			Embedding: facematch.Embedding(f.Embedding),
			Box:       box,
		})
	}
	return set, nil
}

// scaleBoxes maps boxes detected on a downscaled upload back to source pixels.
func (r *FaceResponse) scaleBoxes(sx, sy float64) {
	if sx == 1 && sy == 1 {
		return
	}
	for i := range r.Faces {
		r.Faces[i].BBox = scaleCorners(r.Faces[i].BBox, sx, sy)
	}
}

// scaleCorners multiplies [x1, y1, x2, y2] by per-axis factors. Malformed
// boxes are returned as is and rejected later by BoxFromCorners.
func scaleCorners(bbox []float64, sx, sy float64) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	return []float64{bbox[0] * sx, bbox[1] * sy, bbox[2] * sx, bbox[3] * sy}
}

// Health checks that the embedding server is reachable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.StatusCode}
	}
	return nil
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
