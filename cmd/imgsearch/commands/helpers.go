package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/enrich"
	"github.com/xximjasonxx/image-search-example/internal/index"
	"github.com/xximjasonxx/image-search-example/internal/journal"
	"github.com/xximjasonxx/image-search-example/internal/vision"
)

// envOrDefault returns the named environment variable, or fallback if unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the named environment variable parsed as an int, or
// fallback when unset or unparseable.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envBool returns true when the named environment variable parses as a
// boolean true value.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

// buildEnricher constructs the two enrichment clients from the environment.
func buildEnricher(log *slog.Logger) (*enrich.Enricher, error) {
	imageEmbedder, err := embedder.NewVisionFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initialise image embedder: %w", err)
	}

	analyzer, err := vision.New(&vision.Config{
		Endpoint: os.Getenv("AZURE_AI_VISION_ENDPOINT"),
		APIKey:   os.Getenv("AZURE_AI_VISION_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("initialise analysis client: %w", err)
	}

	return enrich.New(imageEmbedder, analyzer, log)
}

// buildStore connects to Qdrant using the environment configuration. The
// collection's vector size follows the configured embedding backend.
func buildStore(ctx context.Context) (*index.QdrantStore, error) {
	store, err := index.NewQdrantStore(ctx, &index.QdrantConfig{
		Host:       envOrDefault("QDRANT_HOST", "localhost"),
		Port:       envInt("QDRANT_PORT", 6334),
		Collection: envOrDefault("QDRANT_COLLECTION", "images"),
		VectorSize: uint64(embedder.Dimensions()),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     envBool("QDRANT_TLS"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	return store, nil
}

// buildJournal opens the processing journal. IMGSEARCH_JOURNAL_DB overrides
// the default path (~/.imgsearch/journal.db); "disabled" turns journaling
// off. Journal failures degrade to no journal rather than aborting startup.
func buildJournal(log *slog.Logger) journal.Journal {
	dbPath := os.Getenv("IMGSEARCH_JOURNAL_DB")
	if dbPath == "disabled" {
		log.Info("journal: disabled via IMGSEARCH_JOURNAL_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = journal.DefaultDBPath()
		if err != nil {
			log.Warn("journal: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}

	j, err := journal.Open(dbPath)
	if err != nil {
		log.Warn("journal: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("journal: opened", slog.String("path", dbPath))
	return j
}
