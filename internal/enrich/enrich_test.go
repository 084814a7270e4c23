package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/vision"
)

// fakeImageEmbedder is a test double for embedder.ImageEmbedder.
type fakeImageEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeImageEmbedder) EmbedImage(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

// fakeAnalyzer is a test double for Analyzer.
type fakeAnalyzer struct {
	analysis *vision.ImageAnalysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string) (*vision.ImageAnalysis, error) {
	f.calls++
	return f.analysis, f.err
}

const testURL = "https://acct.blob.core.windows.net/photos/cat.jpg"

func TestEnrich_BothSucceed(t *testing.T) {
	t.Parallel()

	fe := &fakeImageEmbedder{vec: []float32{0.1, 0.2}}
	fa := &fakeAnalyzer{analysis: &vision.ImageAnalysis{Caption: "a cat"}}

	e, err := New(fe, fa, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec, err := e.Enrich(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if rec.URL != testURL {
		t.Errorf("URL: got %q", rec.URL)
	}
	if len(rec.Embedding) != 2 {
		t.Errorf("embedding: got %v", rec.Embedding)
	}
	if rec.Analysis == nil || rec.Analysis.Caption != "a cat" {
		t.Errorf("analysis: got %+v", rec.Analysis)
	}
	if fe.calls != 1 || fa.calls != 1 {
		t.Errorf("expected exactly one call per client, got embed=%d analyze=%d", fe.calls, fa.calls)
	}
}

func TestEnrich_EmbeddingFails(t *testing.T) {
	t.Parallel()

	fe := &fakeImageEmbedder{err: embedder.ErrUnavailable}
	fa := &fakeAnalyzer{analysis: &vision.ImageAnalysis{Caption: "a dog"}}

	e, _ := New(fe, fa, nil)
	rec, err := e.Enrich(context.Background(), testURL)
	if err != nil {
		t.Fatalf("embedding failure must be non-fatal, got %v", err)
	}

	if rec.Embedding != nil {
		t.Errorf("embedding should be absent, got %v", rec.Embedding)
	}
	if rec.Analysis == nil {
		t.Error("analysis should be present")
	}
}

func TestEnrich_AnalysisFails(t *testing.T) {
	t.Parallel()

	fe := &fakeImageEmbedder{vec: []float32{1, 2, 3}}
	fa := &fakeAnalyzer{err: vision.ErrUnavailable}

	e, _ := New(fe, fa, nil)
	rec, err := e.Enrich(context.Background(), testURL)
	if err != nil {
		t.Fatalf("analysis failure must be non-fatal, got %v", err)
	}

	if rec.Analysis != nil {
		t.Errorf("analysis should be absent, got %+v", rec.Analysis)
	}
	if len(rec.Embedding) != 3 {
		t.Errorf("embedding should be present, got %v", rec.Embedding)
	}
}

func TestEnrich_BothFail(t *testing.T) {
	t.Parallel()

	fe := &fakeImageEmbedder{err: embedder.ErrUnavailable}
	fa := &fakeAnalyzer{err: vision.ErrUnavailable}

	e, _ := New(fe, fa, nil)
	rec, err := e.Enrich(context.Background(), testURL)
	if rec != nil {
		t.Errorf("no record should be produced, got %+v", rec)
	}
	if !errors.Is(err, ErrEnrichmentFailed) {
		t.Errorf("expected ErrEnrichmentFailed, got %v", err)
	}
}

func TestNew_NilClients(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeAnalyzer{}, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := New(&fakeImageEmbedder{}, nil, nil); err == nil {
		t.Error("expected error for nil analyzer")
	}
}
