package clipboard

import (
	"time"

	"clipboard-backend/internal/textparse"
)

// Kind is the category of stored artifact. It determines the blob path prefix
// and the retention bucket.
type Kind string

const (
	KindScreenshots Kind = "screenshots"
	KindOCR         Kind = "ocr"
	// KindText is the legacy plain-text snippet prefix. Legacy snippets have
	// no upload endpoint of their own; reconciliation folds them into the OCR
	// bucket with method "text".
	KindText Kind = "text"
)

// DefaultKinds are the kinds reconciled when none are requested.
var DefaultKinds = []Kind{KindScreenshots, KindOCR, KindText}

func validKind(k Kind) bool {
	switch k {
	case KindScreenshots, KindOCR, KindText:
		return true
	}
	return false
}

// DeviceInfo is opaque passthrough metadata reported by the uploading device.
type DeviceInfo struct {
	Hostname string   `json:"hostname,omitempty"`
	Platform string   `json:"platform,omitempty"`
	DeviceID string   `json:"deviceId,omitempty"`
	MACs     []string `json:"macs,omitempty"`
}

func (d DeviceInfo) isZero() bool {
	return d.Hostname == "" && d.Platform == "" && d.DeviceID == "" && len(d.MACs) == 0
}

// UserMeta is the per-user record. Created on first upload; users known only
// from reconciliation fall back to Username == UserID and empty device info.
type UserMeta struct {
	UserID     string     `json:"userId"`
	Username   string     `json:"username"`
	Device     DeviceInfo `json:"deviceInfo"`
	FirstSeen  time.Time  `json:"firstSeen"`
	LastActive time.Time  `json:"lastActive"`
}

// ScreenshotEntry is one stored screen capture.
type ScreenshotEntry struct {
	ID          string         `json:"id"`
	BlobPath    string         `json:"blobPath"`
	URL         string         `json:"url"`
	UploadedAt  time.Time      `json:"uploadedAt"`
	CapturedAt  string         `json:"timestamp,omitempty"`
	AccessType  string         `json:"accessType,omitempty"`
	SessionInfo map[string]any `json:"sessionInfo,omitempty"`
	SizeBytes   int64          `json:"byteSize"`
}

// OCREntry is one stored OCR capture with its normalized question record.
type OCREntry struct {
	ID               string                  `json:"id"`
	BlobPath         string                  `json:"blobPath"`
	URL              string                  `json:"url"`
	UploadedAt       time.Time               `json:"uploadedAt"`
	CapturedAt       string                  `json:"timestamp,omitempty"`
	ExtractedText    string                  `json:"extractedText"`
	EngineConfidence float64                 `json:"engineConfidence"`
	WordCount        int                     `json:"wordCount"`
	CharacterCount   int                     `json:"characterCount"`
	Method           string                  `json:"method"`
	SizeBytes        int64                   `json:"byteSize"`
	Question         textparse.QuestionRecord `json:"question"`
}

// Stats are the global index counters.
type Stats struct {
	TotalUsers       int       `json:"totalUsers"`
	TotalScreenshots int       `json:"totalScreenshots"`
	TotalOCREntries  int       `json:"totalOcrEntries"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// UserSummary is a user record plus entry counts, as served by listUsers.
type UserSummary struct {
	UserMeta
	ScreenshotCount int `json:"screenshotCount"`
	OCRCount        int `json:"ocrCount"`
}

// ocrPayload is the JSON document stored at ocr/{userId}/{id}.json. It is the
// durable form of an OCR capture; reconciliation hydrates entries from it.
type ocrPayload struct {
	UserID      string         `json:"userId"`
	Username    string         `json:"username,omitempty"`
	Text        string         `json:"text"`
	Confidence  float64        `json:"confidence"`
	Method      string         `json:"method,omitempty"`
	CapturedAt  string         `json:"timestamp,omitempty"`
	Device      DeviceInfo     `json:"deviceInfo,omitempty"`
	SessionInfo map[string]any `json:"sessionInfo,omitempty"`
}
