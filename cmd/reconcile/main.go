// Command reconcile rebuilds the index from the blob store once and prints
// the resulting stats as JSON. Useful for verifying a bucket offline.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"clipboard-backend/internal/bootstrap"
	"clipboard-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	if err := app.Service.Reconcile(context.Background()); err != nil {
		log.Fatalf("reconcile error: %v", err)
	}

	snap := app.Service.Index.Snapshot()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		log.Fatalf("encode error: %v", err)
	}
}
