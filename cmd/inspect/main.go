package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"rolloutdb/pkg/journal"
	"rolloutdb/pkg/logger"
	"rolloutdb/pkg/models"
)

// Dumps the batch journal as JSON lines, oldest step first.
func main() {
	var p string
	var limit int
	flag.StringVar(&p, "path", "", "journal db path")
	flag.IntVar(&limit, "limit", 0, "stop after this many batches (0 = all)")
	flag.Parse()
	if p == "" {
		fmt.Fprintln(os.Stderr, "--path required")
		os.Exit(2)
	}
	logger.Init()
	if err := journal.Open(p); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	enc := json.NewEncoder(os.Stdout)
	n := 0
	err := journal.Walk(func(b models.Batch) bool {
		_ = enc.Encode(b)
		n++
		return limit == 0 || n < limit
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk failed: %v\n", err)
		os.Exit(1)
	}
}
