package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xximjasonxx/image-search-example/internal/index"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// fakeProcessor records every event handed to it and returns canned results.
type fakeProcessor struct {
	events   []pipeline.Event
	outcomes map[string]pipeline.Outcome
	errs     map[string]error
}

func (f *fakeProcessor) Process(_ context.Context, ev pipeline.Event) (pipeline.Outcome, error) {
	f.events = append(f.events, ev)
	if err, ok := f.errs[ev.ID]; ok {
		return f.outcomes[ev.ID], err
	}
	if out, ok := f.outcomes[ev.ID]; ok {
		return out, nil
	}
	return pipeline.OutcomeIndexed, nil
}

// fakeSearcher returns canned hits or a canned error.
type fakeSearcher struct {
	query string
	k     int
	hits  []index.Hit
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]index.Hit, error) {
	f.query = query
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// newTestServer builds a Server around fakes with a fresh metrics registry.
func newTestServer(t *testing.T, p processor, s searcher) *Server {
	t.Helper()
	return &Server{
		processor: p,
		searcher:  s,
		cfg:       &Config{},
		log:       slog.New(slog.DiscardHandler),
		metrics:   newServerMetrics(prometheus.NewRegistry()),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleEvents_SubscriptionValidation(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	srv := newTestServer(t, proc, &fakeSearcher{})

	body := `[{
		"id": "v1",
		"eventType": "Microsoft.EventGrid.SubscriptionValidationEvent",
		"data": {"validationCode": "abc-123"}
	}]`

	rec := postJSON(t, srv.handleEvents, "/api/events", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp validationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ValidationResponse != "abc-123" {
		t.Errorf("validationResponse: got %q, want %q", resp.ValidationResponse, "abc-123")
	}
	if len(proc.events) != 0 {
		t.Errorf("handshake must not reach the pipeline, got %d events", len(proc.events))
	}
}

func TestHandleEvents_ProcessesBatch(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	srv := newTestServer(t, proc, &fakeSearcher{})

	body := `[
		{"id": "e1", "subject": "/blobServices/default/containers/images/blobs/a.jpg", "eventType": "Microsoft.Storage.BlobCreated"},
		{"id": "e2", "subject": "/blobServices/default/containers/images/blobs/b.png", "eventType": "Microsoft.Storage.BlobCreated"}
	]`

	rec := postJSON(t, srv.handleEvents, "/api/events", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp eventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Received != 2 {
		t.Errorf("received: got %d, want 2", resp.Received)
	}

	if len(proc.events) != 2 {
		t.Fatalf("pipeline calls: got %d, want 2", len(proc.events))
	}
	if proc.events[0].ID != "e1" || proc.events[1].ID != "e2" {
		t.Errorf("events processed out of order: %+v", proc.events)
	}
}

func TestHandleEvents_PerEventFailureIsAbsorbed(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{
		outcomes: map[string]pipeline.Outcome{"bad": pipeline.OutcomeMalformedSubject},
		errs:     map[string]error{"bad": context.DeadlineExceeded},
	}
	srv := newTestServer(t, proc, &fakeSearcher{})

	body := `[
		{"id": "bad", "subject": "nonsense", "eventType": "Microsoft.Storage.BlobCreated"},
		{"id": "good", "subject": "/blobServices/default/containers/images/blobs/c.jpg", "eventType": "Microsoft.Storage.BlobCreated"}
	]`

	rec := postJSON(t, srv.handleEvents, "/api/events", body)

	// A failing event must not fail the delivery, and the rest of the
	// batch must still be processed.
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if len(proc.events) != 2 {
		t.Errorf("pipeline calls: got %d, want 2", len(proc.events))
	}
}

func TestHandleEvents_UndecodableBody(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	srv := newTestServer(t, proc, &fakeSearcher{})

	rec := postJSON(t, srv.handleEvents, "/api/events", `{"not": "an array"`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if len(proc.events) != 0 {
		t.Errorf("no events must be processed, got %d", len(proc.events))
	}
}
