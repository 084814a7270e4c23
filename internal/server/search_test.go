package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/xximjasonxx/image-search-example/internal/index"
)

func TestHandleSearch_ReturnsHits(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{hits: []index.Hit{
		{ID: "id-1", Name: "photos/cat.jpg", URL: "https://acct.blob.core.windows.net/photos/cat.jpg", Score: 0.91},
		{ID: "id-2", Name: "photos/kitten.png", URL: "https://acct.blob.core.windows.net/photos/kitten.png", Score: 0.87},
	}}
	srv := newTestServer(t, &fakeProcessor{}, s)

	rec := postJSON(t, srv.handleSearch, "/api/search", `{"query": "a cat", "k": 2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if s.query != "a cat" || s.k != 2 {
		t.Errorf("searcher called with query=%q k=%d", s.query, s.k)
	}

	var resp searchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Query != "a cat" {
		t.Errorf("query echo: got %q", resp.Query)
	}
	if len(resp.SimilarImages) != 2 {
		t.Fatalf("hits: got %d, want 2", len(resp.SimilarImages))
	}
	first := resp.SimilarImages[0]
	if first.ID != "id-1" || first.ImageName != "photos/cat.jpg" || first.Score != 0.91 {
		t.Errorf("first hit: %+v", first)
	}
}

func TestHandleSearch_OmittedKUsesDefault(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{}
	srv := newTestServer(t, &fakeProcessor{}, s)

	rec := postJSON(t, srv.handleSearch, "/api/search", `{"query": "sunset"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	// Zero is passed through; the searcher owns the default of 5.
	if s.k != 0 {
		t.Errorf("k: got %d, want 0 passed through", s.k)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "query=cat"},
		{"missing query", `{"k": 3}`},
		{"empty query", `{"query": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &fakeSearcher{}
			srv := newTestServer(t, &fakeProcessor{}, s)

			rec := postJSON(t, srv.handleSearch, "/api/search", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
			if s.query != "" {
				t.Errorf("searcher must not be called, got query %q", s.query)
			}
		})
	}
}

func TestHandleSearch_IndexUnavailableDegradesToEmpty(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{err: fmt.Errorf("query failed: %w", index.ErrUnavailable)}
	srv := newTestServer(t, &fakeProcessor{}, s)

	rec := postJSON(t, srv.handleSearch, "/api/search", `{"query": "dog"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SimilarImages == nil || len(resp.SimilarImages) != 0 {
		t.Errorf("similar_images must be an empty array, got %v", resp.SimilarImages)
	}
}

func TestHandleSearch_OtherErrorsAreGeneric500(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{err: errors.New("embedder: vision service returned 401")}
	srv := newTestServer(t, &fakeProcessor{}, s)

	rec := postJSON(t, srv.handleSearch, "/api/search", `{"query": "dog"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	// Upstream detail must never leak to the client.
	if body := rec.Body.String(); body != "internal server error\n" {
		t.Errorf("body leaks detail: %q", body)
	}
}
