package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facematch"
	"github.com/kozaktomas/face-compare/internal/imagefile"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Match: config.MatchConfig{Threshold: 0.6},
		Web:   config.WebConfig{MaxUploadSize: 10 << 20},
		Providers: config.ProvidersConfig{Presets: map[string]config.ProviderPreset{
			"fake":  {Kind: config.KindHTTP, URL: "http://localhost:8000", Metric: facematch.MetricEuclidean},
			"other": {Kind: config.KindHTTP, URL: "http://localhost:9000", Metric: facematch.MetricCosine, Description: "second"},
		}},
	}
}

// mockProvider returns canned detections keyed by uploaded file name.
type mockProvider struct {
	sets      map[string]facematch.DetectionSet
	errs      map[string]error
	healthErr error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		sets: map[string]facematch.DetectionSet{},
		errs: map[string]error{},
	}
}

func (p *mockProvider) Name() string { return "fake" }
func (p *mockProvider) Close() error { return nil }

func (p *mockProvider) Metric() facematch.Metric {
	m, _ := facematch.MetricByName(facematch.MetricEuclidean)
	return m
}

func (p *mockProvider) Extract(ctx context.Context, img imagefile.Image) (facematch.DetectionSet, error) {
	if err := p.errs[img.Name]; err != nil {
		return nil, err
	}
	return p.sets[img.Name], nil
}

func (p *mockProvider) Health(ctx context.Context) error {
	return p.healthErr
}

// face builds a detection with a small box at the given offset.
func face(offset int, values ...float32) facematch.Detection {
	return facematch.Detection{
		Embedding: values,
		Box:       facematch.BoundingBox{Top: offset, Left: offset, Bottom: offset + 10, Right: offset + 10},
	}
}

// newTestCompareHandler wires a compare handler around the mock provider
func newTestCompareHandler(p *mockProvider) *CompareHandler {
	return NewCompareHandler(testConfig(), compare.New(p))
}

// pngBytes encodes a tiny image so uploads pass format detection
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// formFile is one file part of a multipart request
type formFile struct {
	field    string
	filename string
	data     []byte
}

// multipartRequest builds a POST request carrying the given files and fields
func multipartRequest(t *testing.T, path string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
