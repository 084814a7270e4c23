// Command imgsearch is the entry point for the image enrichment and
// similarity search service. It hosts the EventGrid webhook and search API
// (via `imgsearch serve`) and provides one-shot CLI commands for processing
// and querying.
package main

import (
	"fmt"
	"os"

	"github.com/xximjasonxx/image-search-example/cmd/imgsearch/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
