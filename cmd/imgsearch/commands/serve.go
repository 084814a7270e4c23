package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/logging"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
	"github.com/xximjasonxx/image-search-example/internal/server"
)

// NewServeCmd constructs the `imgsearch serve` command, which starts the
// HTTP server hosting the EventGrid webhook and the search API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the imgsearch HTTP server",
		Long: `Start the imgsearch HTTP server.

The server exposes the EventGrid webhook (POST /api/events), the similarity
search API (POST /api/search), and operational endpoints for health,
readiness, and Prometheus metrics.

Examples:
  imgsearch serve
  imgsearch serve --port 9090
  EMBEDDING_PROVIDER=azure-openai imgsearch serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("storage_account", os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")),
				slog.String("embedding_provider", envOrDefault("EMBEDDING_PROVIDER", "vision")),
			)

			storageAccount := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
			if storageAccount == "" {
				return fmt.Errorf("serve: AZURE_STORAGE_ACCOUNT_NAME is required")
			}

			enricher, err := buildEnricher(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			store, err := buildStore(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = store.Close() }()
			log.Info("index: connected",
				slog.String("host", envOrDefault("QDRANT_HOST", "localhost")),
				slog.String("collection", envOrDefault("QDRANT_COLLECTION", "images")),
				slog.Int("dimensions", embedder.Dimensions()),
			)

			jrnl := buildJournal(log)
			if jrnl != nil {
				defer func() { _ = jrnl.Close() }()
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector())

			pipe, err := pipeline.New(&pipeline.Config{
				StorageAccount: storageAccount,
				Enricher:       enricher,
				Index:          store,
				Journal:        jrnl,
				Logger:         log,
				Metrics:        pipeline.NewMetrics(registry),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			textEmbedder, err := embedder.NewTextEmbedderFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise text embedder: %w", err)
			}
			searcher, err := pipeline.NewSearcher(textEmbedder, store)
			if err != nil {
				return fmt.Errorf("serve: failed to create searcher: %w", err)
			}

			srv, err := server.New(pipe, searcher, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         []server.Pinger{server.NewQdrantPinger(store.Client())},
				APIKey:          os.Getenv("IMGSEARCH_API_KEY"),
				MetricsRegistry: registry,
				MetricsGatherer: registry,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", envOrDefault("SERVER_HOST", "0.0.0.0"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", envInt("SERVER_PORT", 8080), "TCP port to listen on")

	return cmd
}
