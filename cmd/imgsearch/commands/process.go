package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xximjasonxx/image-search-example/internal/logging"
	"github.com/xximjasonxx/image-search-example/internal/pipeline"
)

// NewProcessCmd constructs the `imgsearch process` command, a one-shot run
// of the enrichment pipeline for a single blob. Useful for backfilling
// images uploaded before the event subscription existed and for debugging
// pipeline behaviour without an EventGrid delivery.
func NewProcessCmd() *cobra.Command {
	var subject string
	var blobURL string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the enrichment pipeline for one blob",
		Long: `Run the enrichment pipeline for one blob and print the outcome.

Exactly one of --subject or --url must be given. --subject takes the
EventGrid subject path of a blob-created event; --url takes the blob URL
directly and skips subject parsing.

Examples:
  imgsearch process --subject /blobServices/default/containers/images/blobs/cat.jpg
  imgsearch process --url https://myacct.blob.core.windows.net/images/cat.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (subject == "") == (blobURL == "") {
				return fmt.Errorf("process: exactly one of --subject or --url is required")
			}

			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			storageAccount := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
			if storageAccount == "" {
				return fmt.Errorf("process: AZURE_STORAGE_ACCOUNT_NAME is required")
			}

			enricher, err := buildEnricher(log)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}

			store, err := buildStore(ctx)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}
			defer func() { _ = store.Close() }()

			jrnl := buildJournal(log)
			if jrnl != nil {
				defer func() { _ = jrnl.Close() }()
			}

			pipe, err := pipeline.New(&pipeline.Config{
				StorageAccount: storageAccount,
				Enricher:       enricher,
				Index:          store,
				Journal:        jrnl,
				Logger:         log,
			})
			if err != nil {
				return fmt.Errorf("process: failed to create pipeline: %w", err)
			}

			var outcome pipeline.Outcome
			if blobURL != "" {
				outcome, err = pipe.ProcessURL(ctx, blobURL)
			} else {
				outcome, err = pipe.Process(ctx, pipeline.Event{
					Subject:   subject,
					EventType: pipeline.EventTypeBlobCreated,
				})
			}
			if err != nil {
				return fmt.Errorf("process: %s: %w", outcome, err)
			}

			fmt.Printf("outcome: %s\n", outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "EventGrid subject path of the blob")
	cmd.Flags().StringVar(&blobURL, "url", "", "Blob URL to process directly")

	return cmd
}
