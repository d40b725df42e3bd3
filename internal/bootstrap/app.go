// Package bootstrap assembles the application from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"clipboard-backend/internal/clipboard"
	"clipboard-backend/internal/ocr"
	"clipboard-backend/internal/ocr/vision"
	"clipboard-backend/internal/shared/config"
	"clipboard-backend/internal/shared/server"
	"clipboard-backend/internal/shared/storage/blob"
	localstore "clipboard-backend/internal/shared/storage/blob/local"
	miniostore "clipboard-backend/internal/shared/storage/blob/minio"
	s3store "clipboard-backend/internal/shared/storage/blob/s3"
)

// App is the assembled application.
type App struct {
	Config  config.Config
	Service *clipboard.Service
	Router  *gin.Engine
}

// Build constructs the blob store, OCR client, service, and router from
// configuration.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ocrClient, err := buildOCR(cfg)
	if err != nil {
		return nil, err
	}

	svc := &clipboard.Service{
		Store:           store,
		OCR:             ocrClient,
		Index:           clipboard.NewIndex(),
		RetentionLimit:  cfg.RetentionLimit,
		UpstreamTimeout: time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second,
	}

	router := server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Clipboard: clipboard.NewHandler(svc),
	})

	return &App{Config: cfg, Service: svc, Router: router}, nil
}

func buildStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.BlobStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(miniostore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, fmt.Errorf("unknown blob store type %q", cfg.BlobStoreType)
	}
}

func buildOCR(cfg config.Config) (ocr.Client, error) {
	switch cfg.OCRProvider {
	case "vision":
		timeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second
		return vision.NewClient(cfg.OCRAPIURL, cfg.OCRAPIKey, timeout)
	default:
		return ocr.Disabled{}, nil
	}
}
