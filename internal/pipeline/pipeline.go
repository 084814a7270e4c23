// Package pipeline glues the event path together: interpret a blob-created
// event, decide eligibility, enrich the blob via the external vision
// services, and upsert the result into the vector index. Each run is one
// logical task with no cross-event state; failures are terminal for that
// run and surfaced via logging, the journal, and metrics, never to the
// event dispatcher.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/xximjasonxx/image-search-example/internal/blob"
	"github.com/xximjasonxx/image-search-example/internal/enrich"
	"github.com/xximjasonxx/image-search-example/internal/index"
	"github.com/xximjasonxx/image-search-example/internal/journal"
)

// EventTypeBlobCreated is the only event type that enters the pipeline.
const EventTypeBlobCreated = "Microsoft.Storage.BlobCreated"

// Event is the slice of an EventGrid notification the pipeline consumes.
type Event struct {
	// ID is the delivery's event ID, carried through logs.
	ID string
	// Subject is the storage path parsed by blob.ParseSubject.
	Subject string
	// EventType gates processing; only EventTypeBlobCreated proceeds.
	EventType string
}

// Outcome labels the terminal state of one pipeline run. The same labels
// partition the journal and the events_total metric.
type Outcome string

const (
	// OutcomeIndexed means the document was upserted successfully.
	OutcomeIndexed Outcome = "indexed"
	// OutcomeSkippedEventType means the event was not a blob creation.
	OutcomeSkippedEventType Outcome = "skipped_event_type"
	// OutcomeSkippedIneligible means the blob is not an image by extension.
	OutcomeSkippedIneligible Outcome = "skipped_ineligible"
	// OutcomeMalformedSubject means the subject could not be parsed.
	OutcomeMalformedSubject Outcome = "malformed_subject"
	// OutcomeEnrichmentFailed means both external calls failed.
	OutcomeEnrichmentFailed Outcome = "enrichment_failed"
	// OutcomeAnalysisOnly means enrichment succeeded without a vector; the
	// index requires one, so nothing was written.
	OutcomeAnalysisOnly Outcome = "analysis_only"
	// OutcomeWriteFailed means the index store rejected the upsert.
	OutcomeWriteFailed Outcome = "index_write_failed"
)

// Enricher is the slice of the orchestrator the pipeline needs.
// *enrich.Enricher satisfies it; tests inject a fake.
type Enricher interface {
	// Enrich returns the merged enrichment record for url.
	Enrich(ctx context.Context, url string) (*enrich.Record, error)
}

// Config holds the collaborators for constructing a Pipeline.
type Config struct {
	// StorageAccount is the storage account name used to build blob URLs.
	StorageAccount string
	// Enricher runs the two-call enrichment for each eligible blob.
	Enricher Enricher
	// Index receives one upsert per successful enrichment.
	Index index.Writer
	// Journal records run outcomes. Nil disables journaling.
	Journal journal.Journal
	// Logger is the structured logger. Nil falls back to slog.Default.
	Logger *slog.Logger
	// Metrics receives the pipeline metric registrations. Nil disables metrics.
	Metrics *Metrics
}

// Pipeline processes blob-created events one at a time. It holds only
// shared, stateless client handles and is safe for concurrent runs.
type Pipeline struct {
	// storageAccount is the storage account name for URL construction.
	storageAccount string
	// enricher runs the two-call enrichment.
	enricher Enricher
	// idx receives document upserts.
	idx index.Writer
	// jrnl records run outcomes; nil when journaling is disabled.
	jrnl journal.Journal
	// log is the structured logger.
	log *slog.Logger
	// metrics holds the pipeline counters; nil when metrics are disabled.
	metrics *Metrics
}

// New constructs a Pipeline from the given config.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.StorageAccount == "" {
		return nil, fmt.Errorf("pipeline: storage account name is required")
	}
	if cfg.Enricher == nil {
		return nil, fmt.Errorf("pipeline: enricher must not be nil")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("pipeline: index writer must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		storageAccount: cfg.StorageAccount,
		enricher:       cfg.Enricher,
		idx:            cfg.Index,
		jrnl:           cfg.Journal,
		log:            log,
		metrics:        cfg.Metrics,
	}, nil
}

// Process runs the full pipeline for one event and returns its terminal
// outcome. The returned error describes failure outcomes for CLI callers;
// the event entry point ignores it, since every failure is already logged
// and must not reach the dispatcher.
func (p *Pipeline) Process(ctx context.Context, ev Event) (Outcome, error) {
	start := time.Now()

	log := p.log.With(
		slog.String("event_id", ev.ID),
		slog.String("subject", ev.Subject),
	)

	if ev.EventType != EventTypeBlobCreated {
		log.Debug("pipeline: skipping non-blob-creation event",
			slog.String("event_type", ev.EventType),
		)
		return p.finish(ctx, ev.Subject, "", OutcomeSkippedEventType, nil, start)
	}

	blobURL, err := blob.ParseSubject(ev.Subject, p.storageAccount)
	if err != nil {
		log.Error("pipeline: failed to extract blob URL", slog.Any("error", err))
		return p.finish(ctx, ev.Subject, "", OutcomeMalformedSubject, err, start)
	}

	return p.run(ctx, ev.Subject, blobURL, start)
}

// ProcessURL runs the pipeline for a blob URL directly, bypassing subject
// parsing. Used by the one-shot CLI for backfills.
func (p *Pipeline) ProcessURL(ctx context.Context, blobURL string) (Outcome, error) {
	return p.run(ctx, "", blobURL, time.Now())
}

// run executes eligibility, enrichment, and indexing for a resolved URL.
func (p *Pipeline) run(ctx context.Context, subject, blobURL string, start time.Time) (Outcome, error) {
	log := p.log.With(slog.String("url", blobURL))

	if !blob.IsImageFile(blobURL) {
		log.Info("pipeline: skipping non-image file")
		return p.finish(ctx, subject, blobURL, OutcomeSkippedIneligible, nil, start)
	}

	rec, err := p.enricher.Enrich(ctx, blobURL)
	if err != nil {
		if !errors.Is(err, enrich.ErrEnrichmentFailed) {
			err = fmt.Errorf("pipeline: enrich: %w", err)
		}
		log.Error("pipeline: enrichment failed", slog.Any("error", err))
		return p.finish(ctx, subject, blobURL, OutcomeEnrichmentFailed, err, start)
	}

	if rec.Embedding == nil {
		// The index requires a vector; an analysis-only record is logged
		// and journaled but never written.
		log.Warn("pipeline: no embedding produced, document not indexed",
			slog.String("caption", captionOf(rec)),
		)
		return p.finish(ctx, subject, blobURL, OutcomeAnalysisOnly, nil, start)
	}

	name := logicalName(blobURL)
	doc := index.Document{
		ID:       index.DocumentID(name),
		Filename: name,
		URL:      blobURL,
		Caption:  captionOf(rec),
		Vector:   rec.Embedding,
	}

	res, err := p.idx.Upsert(ctx, doc)
	if err == nil && !res.Succeeded {
		err = fmt.Errorf("pipeline: index rejected document %s (status %s)", res.Key, res.Status)
	}
	if err != nil {
		log.Error("pipeline: index write failed",
			slog.String("document_id", doc.ID),
			slog.Any("error", err),
		)
		return p.finish(ctx, subject, blobURL, OutcomeWriteFailed, err, start)
	}

	log.Info("pipeline: document indexed",
		slog.String("document_id", doc.ID),
		slog.String("filename", doc.Filename),
		slog.Int("dimensions", len(doc.Vector)),
		slog.Bool("annotated", rec.Analysis != nil),
	)
	return p.finish(ctx, subject, blobURL, OutcomeIndexed, nil, start)
}

// finish records the run's terminal outcome in the journal and metrics and
// shapes the (Outcome, error) return for the caller.
func (p *Pipeline) finish(ctx context.Context, subject, blobURL string, outcome Outcome, runErr error, start time.Time) (Outcome, error) {
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.observe(outcome, elapsed)
	}

	if p.jrnl != nil {
		entry := journal.Entry{
			Subject:  subject,
			URL:      blobURL,
			Outcome:  string(outcome),
			Duration: elapsed,
		}
		if runErr != nil {
			entry.Detail = runErr.Error()
		}
		if err := p.jrnl.Record(ctx, entry); err != nil {
			// Journal trouble never fails a run.
			p.log.Warn("pipeline: journal write failed", slog.Any("error", err))
		}
	}

	return outcome, runErr
}

// captionOf returns the record's caption, or empty when analysis is absent.
func captionOf(rec *enrich.Record) string {
	if rec.Analysis == nil {
		return ""
	}
	return rec.Analysis.Caption
}

// logicalName derives the document's logical resource name from its URL:
// the path inside the storage account ("container/blob..."), so blobs with
// identical names in different containers never share a document key.
func logicalName(blobURL string) string {
	u, err := url.Parse(blobURL)
	if err != nil {
		return blobURL
	}
	return strings.TrimPrefix(u.Path, "/")
}
