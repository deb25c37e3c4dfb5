// Command quoteseek is the entry point for the verified quote search service.
// It provides a CLI interface (via Cobra) and an HTTP server that accepts
// questions, runs them through retrieval, generation and verification on a
// background worker, and hands back only quotes that exist in the corpus.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/quoteseek/cmd/quoteseek/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
