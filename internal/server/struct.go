package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xximjasonxx/image-search-example/internal/index"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the search
	// endpoint (requests/second). Defaults to 10 if zero. The events
	// endpoint is never rate limited: dropping an EventGrid delivery loses
	// the event forever.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /api/events and /api/search.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives metric registrations. Defaults to
	// prometheus.DefaultRegisterer. Tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// processor is the interface handleEvents calls per delivered event.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type processor interface {
	// Process runs the pipeline for one event and returns its outcome.
	Process(ctx context.Context, ev pipeline.Event) (pipeline.Outcome, error)
}

// searcher is the interface handleSearch calls to answer a query.
// *pipeline.Searcher satisfies it; tests inject a fake.
type searcher interface {
	// Search embeds query and returns up to k hits by descending score.
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
}

// Server is the HTTP server hosting the event and query entry points.
type Server struct {
	// processor handles delivered blob events.
	processor processor
	// searcher handles similarity queries.
	searcher searcher
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus metrics owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// gridEvent is the EventGrid delivery shape for one event.
type gridEvent struct {
	// ID is the event's unique identifier.
	ID string `json:"id"`
	// Topic is the full resource path of the event source.
	Topic string `json:"topic"`
	// Subject is the storage path of the affected resource.
	Subject string `json:"subject"`
	// EventType discriminates blob creations, deletions, validations, etc.
	EventType string `json:"eventType"`
	// Data is the event-type-specific payload; only the validation
	// handshake inspects it.
	Data map[string]any `json:"data"`
}

// eventsResponse is the JSON response for a processed event batch.
type eventsResponse struct {
	// Received is the number of events in the delivery.
	Received int `json:"received"`
}

// validationResponse is the JSON response to the EventGrid subscription
// validation handshake.
type validationResponse struct {
	// ValidationResponse echoes the delivered validation code.
	ValidationResponse string `json:"validationResponse"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the free-text similarity query.
	Query string `json:"query"`
	// K is the number of results to return; defaults to 5 when omitted.
	K int `json:"k,omitempty"`
}

// similarImage is one hit in a search response.
type similarImage struct {
	// ID is the matched document's key.
	ID string `json:"id"`
	// ImageName is the matched document's filename.
	ImageName string `json:"image_name"`
	// ImageURL is the matched document's resource URL.
	ImageURL string `json:"image_url"`
	// Score is the similarity score.
	Score float32 `json:"score"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Message is a human-readable summary of the result.
	Message string `json:"message"`
	// Query echoes the submitted query text.
	Query string `json:"query"`
	// SimilarImages holds the hits ordered by descending score.
	SimilarImages []similarImage `json:"similar_images"`
}
