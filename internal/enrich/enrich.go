// Package enrich sequences the two external calls that turn a blob URL into
// an indexable record: embedding (vector) and visual analysis (annotations).
// The two backends are independent failure domains with separate services
// and credentials, so a failure of one never discards the other's result.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/vision"
)

// ErrEnrichmentFailed is returned by Enrich only when both the embedding
// and the analysis calls failed: there is nothing useful to index.
var ErrEnrichmentFailed = errors.New("enrichment produced no usable result")

// Analyzer is the slice of the vision client the orchestrator needs.
// *vision.Client satisfies it; tests inject a fake.
type Analyzer interface {
	// Analyze returns the annotation bundle for the image at url.
	Analyze(ctx context.Context, url string) (*vision.ImageAnalysis, error)
}

// Record is the merged enrichment output for one resource.
//
// Embedding is nil only when the embedding call failed; Analysis is nil
// only when the analysis call failed. A record with both nil is never
// produced; Enrich returns ErrEnrichmentFailed instead.
type Record struct {
	// URL is the canonical resource URL that was enriched.
	URL string
	// Embedding is the image's embedding vector, or nil on embedding failure.
	Embedding []float32
	// Analysis is the annotation bundle, or nil on analysis failure.
	Analysis *vision.ImageAnalysis
}

// Enricher orchestrates the embedding and analysis clients for one resource
// at a time. It holds no per-run state and is safe for concurrent use.
type Enricher struct {
	// embedder produces the image embedding vector.
	embedder embedder.ImageEmbedder
	// analyzer produces the annotation bundle.
	analyzer Analyzer
	// log records per-stage failures; they are absorbed, not propagated.
	log *slog.Logger
}

// New constructs an Enricher over the given clients.
func New(imageEmbedder embedder.ImageEmbedder, analyzer Analyzer, log *slog.Logger) (*Enricher, error) {
	if imageEmbedder == nil || analyzer == nil {
		return nil, fmt.Errorf("enrich: embedder and analyzer must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{embedder: imageEmbedder, analyzer: analyzer, log: log}, nil
}

// Enrich runs both external calls for url and merges their results.
//
// The calls are issued concurrently; correctness does not depend on their
// ordering, only on both completing before the merge. A failure of either
// call is logged and absorbed: an embedding-only or analysis-only record is
// still useful downstream. Only when both calls fail does Enrich return
// ErrEnrichmentFailed.
func (e *Enricher) Enrich(ctx context.Context, url string) (*Record, error) {
	var (
		wg           sync.WaitGroup
		embeddingVec []float32
		embedErr     error
		analysis     *vision.ImageAnalysis
		analyzeErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		embeddingVec, embedErr = e.embedder.EmbedImage(ctx, url)
	}()
	go func() {
		defer wg.Done()
		analysis, analyzeErr = e.analyzer.Analyze(ctx, url)
	}()
	wg.Wait()

	if embedErr != nil {
		e.log.Warn("enrich: embedding failed, continuing with analysis only",
			slog.String("url", url),
			slog.Any("error", embedErr),
		)
		embeddingVec = nil
	}
	if analyzeErr != nil {
		e.log.Warn("enrich: analysis failed, continuing with embedding only",
			slog.String("url", url),
			slog.Any("error", analyzeErr),
		)
		analysis = nil
	}

	if embedErr != nil && analyzeErr != nil {
		return nil, fmt.Errorf("enrich: embedding (%v) and analysis (%v) both failed for %s: %w",
			embedErr, analyzeErr, url, ErrEnrichmentFailed)
	}

	return &Record{URL: url, Embedding: embeddingVec, Analysis: analysis}, nil
}
