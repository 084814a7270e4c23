package vision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fullAnalysisBody is a representative analyze response exercising every
// feature branch of the normaliser.
const fullAnalysisBody = `{
  "captionResult": {"text": "a cat on a sofa", "confidence": 0.93},
  "denseCaptionsResult": {"values": [
    {"text": "a sleeping cat", "confidence": 0.88, "boundingBox": {"x": 10, "y": 20, "w": 100, "h": 50}},
    {"text": "a grey sofa", "confidence": 0.75, "boundingBox": {"x": 0, "y": 0, "w": 640, "h": 480}}
  ]},
  "objectsResult": {"values": [
    {"boundingBox": {"x": 12, "y": 22, "w": 96, "h": 44}, "tags": [{"name": "cat", "confidence": 0.91}, {"name": "animal", "confidence": 0.85}]},
    {"boundingBox": {"x": 1, "y": 2, "w": 3, "h": 4}, "tags": []}
  ]},
  "tagsResult": {"values": [
    {"name": "indoor", "confidence": 0.99},
    {"name": "cat", "confidence": 0.97}
  ]},
  "readResult": {"blocks": [
    {"lines": [
      {"text": "HELLO", "boundingPolygon": [{"x":1,"y":1},{"x":2,"y":1},{"x":2,"y":2},{"x":1,"y":2}]}
    ]},
    {"lines": [
      {"text": "WORLD", "boundingPolygon": [{"x":5,"y":5},{"x":6,"y":5},{"x":6,"y":6},{"x":5,"y":6}]}
    ]}
  ]}
}`

func newAnalysisTestServer(t *testing.T, status int, body string, lastQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-key" {
			t.Errorf("subscription key header: got %q", got)
		}
		if lastQuery != nil {
			*lastQuery = r.URL.RawQuery
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Analyze(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := newAnalysisTestServer(t, http.StatusOK, fullAnalysisBody, &gotQuery)

	c, err := New(&Config{Endpoint: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := c.Analyze(context.Background(), "https://acct.blob.core.windows.net/photos/cat.jpg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !strings.Contains(gotQuery, "features=caption,denseCaptions,objects,tags,read") {
		t.Errorf("query missing feature list: %q", gotQuery)
	}

	if a.Caption != "a cat on a sofa" || a.CaptionConfidence != 0.93 {
		t.Errorf("caption: got %q (%v)", a.Caption, a.CaptionConfidence)
	}

	if len(a.DenseCaptions) != 2 {
		t.Fatalf("dense captions: got %d, want 2", len(a.DenseCaptions))
	}
	if a.DenseCaptions[0].Text != "a sleeping cat" {
		t.Errorf("dense caption order not preserved: got %q first", a.DenseCaptions[0].Text)
	}
	if got := a.DenseCaptions[0].BoundingBox; got != (BoundingBox{X: 10, Y: 20, Width: 100, Height: 50}) {
		t.Errorf("bounding box not flattened: got %+v", got)
	}

	if len(a.Objects) != 2 {
		t.Fatalf("objects: got %d, want 2", len(a.Objects))
	}
	if a.Objects[0].Name != "cat" || a.Objects[0].Confidence != 0.91 {
		t.Errorf("labelled object: got %q (%v), want highest-confidence tag", a.Objects[0].Name, a.Objects[0].Confidence)
	}
	if a.Objects[1].Name != "unknown" || a.Objects[1].Confidence != 0 {
		t.Errorf("unlabelled object: got %q (%v), want unknown/0", a.Objects[1].Name, a.Objects[1].Confidence)
	}

	if len(a.Tags) != 2 || a.Tags[0].Name != "indoor" {
		t.Errorf("tags: got %+v", a.Tags)
	}

	if len(a.TextLines) != 2 {
		t.Fatalf("text lines: got %d, want 2 (flattened across blocks)", len(a.TextLines))
	}
	if a.TextLines[0].Text != "HELLO" || a.TextLines[1].Text != "WORLD" {
		t.Errorf("text line order: got %q, %q", a.TextLines[0].Text, a.TextLines[1].Text)
	}
	if len(a.TextLines[0].BoundingPolygon) != 4 {
		t.Errorf("bounding polygon: got %d points, want 4", len(a.TextLines[0].BoundingPolygon))
	}
}

func TestClient_Analyze_EmptyFeatures(t *testing.T) {
	t.Parallel()

	srv := newAnalysisTestServer(t, http.StatusOK, `{}`, nil)
	c, err := New(&Config{Endpoint: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := c.Analyze(context.Background(), "https://example.com/x.png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Absent features normalise to empty slices, never nil, so downstream
	// JSON encoding stays stable.
	if a.Caption != "" || a.CaptionConfidence != 0 {
		t.Errorf("caption should be empty: got %q", a.Caption)
	}
	if a.DenseCaptions == nil || a.Objects == nil || a.Tags == nil || a.TextLines == nil {
		t.Error("annotation slices should be empty, not nil")
	}
}

func TestClient_Analyze_Failure(t *testing.T) {
	t.Parallel()

	srv := newAnalysisTestServer(t, http.StatusForbidden, `{"error":{"code":"403","message":"quota exceeded"}}`, nil)
	c, err := New(&Config{Endpoint: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Analyze(context.Background(), "https://example.com/x.png")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should carry the service message: %v", err)
	}
}

func TestNew_MissingConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable at construction, got %v", err)
	}
	if _, err := New(&Config{Endpoint: "https://example.com"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for missing key, got %v", err)
	}
}
