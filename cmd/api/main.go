package main

import (
	"context"
	"log"

	"clipboard-backend/internal/bootstrap"
	"clipboard-backend/internal/shared/config"
	"clipboard-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s (store=%s ocr=%s)", addr, cfg.BlobStoreType, cfg.OCRProvider)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
