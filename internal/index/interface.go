package index

import (
	"context"
	"errors"
)

// ErrUnavailable marks read failures caused by the index being unreachable
// or refusing the query. Callers that prefer an empty result over a hard
// failure test for it with errors.Is.
var ErrUnavailable = errors.New("index unavailable")

// Document is the persisted searchable unit for one logical resource.
type Document struct {
	// ID is the deterministic document key; see DocumentID.
	ID string
	// Filename is the logical resource name (blob name, slashes preserved).
	Filename string
	// URL is the canonical resource URL.
	URL string
	// Caption is the image caption carried as searchable payload. Empty
	// when the enrichment produced no annotations.
	Caption string
	// Vector is the embedding, fixed dimensionality per collection.
	Vector []float32
}

// Hit is one nearest-neighbour query result.
type Hit struct {
	// ID is the matched document's key.
	ID string
	// Name is the matched document's filename.
	Name string
	// URL is the matched document's resource URL.
	URL string
	// Score is the similarity score; results arrive in descending order.
	Score float32
}

// UpsertResult reports the store's per-document outcome for one upsert.
// The store's answer is authoritative; no retry happens on failure.
type UpsertResult struct {
	// Succeeded is true when the store accepted the document.
	Succeeded bool
	// Key is the document key the store operated on.
	Key string
	// Status is the store's status label for the operation.
	Status string
}

// Writer upserts enrichment results into the index.
// Implementations must be safe to call from multiple goroutines.
type Writer interface {
	// Upsert stores or replaces the document keyed by doc.ID. The error
	// covers transport failures; a reachable store that rejects the
	// document is reported through UpsertResult.Succeeded.
	Upsert(ctx context.Context, doc Document) (UpsertResult, error)
}

// Reader answers nearest-neighbour queries against the index.
// Implementations must be safe to call from multiple goroutines.
type Reader interface {
	// QuerySimilar returns up to k hits for the query vector, ordered by
	// descending similarity score.
	QuerySimilar(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// Store combines the write and read paths with lifecycle management.
type Store interface {
	Writer
	Reader

	// Delete removes documents by their keys.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}
