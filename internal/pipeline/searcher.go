package pipeline

import (
	"context"
	"fmt"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/index"
)

// defaultTopK is the number of hits returned when the caller passes k <= 0.
const defaultTopK = 5

// Searcher implements the query path: embed free text, then run a
// nearest-neighbour search against the index. It holds only shared client
// handles and is safe for concurrent use.
type Searcher struct {
	// embedder converts query text to a vector in the indexed space.
	embedder embedder.TextEmbedder

	// reader performs the vector similarity search.
	reader index.Reader
}

// NewSearcher constructs a Searcher from the given embedder and reader.
func NewSearcher(textEmbedder embedder.TextEmbedder, reader index.Reader) (*Searcher, error) {
	if textEmbedder == nil {
		return nil, fmt.Errorf("pipeline: text embedder must not be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("pipeline: index reader must not be nil")
	}
	return &Searcher{embedder: textEmbedder, reader: reader}, nil
}

// Search embeds query and returns up to k hits ordered by descending
// similarity score. If k <= 0 the default of 5 is used. The query vector is
// ephemeral; it is never persisted.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	if k <= 0 {
		k = defaultTopK
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pipeline: embedding query failed: %w", err)
	}

	hits, err := s.reader.QuerySimilar(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("pipeline: vector search failed: %w", err)
	}

	return hits, nil
}
