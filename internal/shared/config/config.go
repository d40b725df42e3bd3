package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	BlobStoreType string
	LocalStoreDir string

	AWSRegion   string
	S3Bucket    string
	S3Prefix    string
	SSEKMSKeyID string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AdminSecret    string
	RetentionLimit int

	OCRProvider string
	OCRAPIURL   string
	OCRAPIKey   string

	UpstreamTimeoutSeconds int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		BlobStoreType: normalizeStoreType(getEnv("BLOB_STORE", "local")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),

		AWSRegion:   getEnv("AWS_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Prefix:    getEnv("S3_PREFIX", ""),
		SSEKMSKeyID: getEnv("SSE_KMS_KEY_ID", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		AdminSecret:    os.Getenv("ADMIN_SECRET"),
		RetentionLimit: getEnvInt("RETENTION_LIMIT", 100),

		OCRProvider: normalizeOCRProvider(getEnv("OCR_PROVIDER", "none")),
		OCRAPIURL:   getEnv("OCR_API_URL", ""),
		OCRAPIKey:   getEnv("OCR_API_KEY", ""),

		UpstreamTimeoutSeconds: getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeOCRProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "vision":
		return "vision"
	default:
		return "none"
	}
}
