package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xximjasonxx/image-search-example/internal/embedder"
	"github.com/xximjasonxx/image-search-example/internal/logging"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// NewSearchCmd constructs the `imgsearch search` command, a one-shot
// text-to-image similarity query against the index.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed images by text similarity",
		Long: `Search indexed images by text similarity and print the matches.

The query text is embedded with the configured embedding backend and
matched against the stored image embeddings by cosine similarity.

Examples:
  imgsearch search "a dog on a beach"
  imgsearch search -k 10 "red bicycle"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			query := strings.Join(args, " ")

			textEmbedder, err := embedder.NewTextEmbedderFromEnv()
			if err != nil {
				return fmt.Errorf("search: failed to initialise text embedder: %w", err)
			}

			store, err := buildStore(ctx)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = store.Close() }()

			searcher, err := pipeline.NewSearcher(textEmbedder, store)
			if err != nil {
				return fmt.Errorf("search: failed to create searcher: %w", err)
			}

			hits, err := searcher.Search(ctx, query, topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(hits) == 0 {
				fmt.Println("no similar images found")
				return nil
			}

			for i, h := range hits {
				fmt.Printf("%2d. %.4f  %s\n    %s\n", i+1, h.Score, h.Name, h.URL)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Number of results to return")

	return cmd
}
