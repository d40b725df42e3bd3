package clipboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"clipboard-backend/internal/ocr"
	"clipboard-backend/internal/shared/metrics"
	"clipboard-backend/internal/shared/storage/blob"
	"clipboard-backend/internal/shared/telemetry"
	"clipboard-backend/internal/textparse"
)

// Service contains business logic for clipboard captures. The blob store is
// the only durable record; the Index is a rebuildable cache refreshed by
// Reconcile before every read.
type Service struct {
	Store blob.Store
	OCR   ocr.Client
	Index *Index

	// RetentionLimit bounds live entries per (user, kind). Zero disables
	// eviction.
	RetentionLimit int

	// UpstreamTimeout bounds each blob write/delete/list call.
	UpstreamTimeout time.Duration

	reconcileMu sync.Mutex
}

// ScreenshotUpload is the input to UploadScreenshot.
type ScreenshotUpload struct {
	UserID      string
	Username    string
	Device      DeviceInfo
	CapturedAt  string
	AccessType  string
	SessionInfo map[string]any
	Image       []byte
	Ext         string
}

// OCRUpload is the input to UploadOCR. ID is optional; reusing an id makes
// re-uploads idempotent.
type OCRUpload struct {
	ID          string
	UserID      string
	Username    string
	Device      DeviceInfo
	CapturedAt  string
	Text        string
	Confidence  float64
	Method      string
	SessionInfo map[string]any
}

// Overview is the getStats payload.
type Overview struct {
	Stats Stats         `json:"stats"`
	Users []UserSummary `json:"users"`
}

// UploadScreenshot stores the image, records the entry, and applies
// retention. When an OCR provider is configured the image text is extracted
// and recorded as a paired OCR entry; OCR failure degrades the upload, it
// never aborts it.
func (s *Service) UploadScreenshot(ctx context.Context, req ScreenshotUpload) (ScreenshotEntry, error) {
	if err := validateUserID(req.UserID); err != nil {
		return ScreenshotEntry{}, err
	}
	if len(req.Image) == 0 {
		return ScreenshotEntry{}, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	id := GenerateID()
	ext := normalizeExt(req.Ext)
	blobPath := BlobPath(KindScreenshots, req.UserID, id, ext)

	info, err := s.putBlob(ctx, blobPath, contentTypeForPath(blobPath), bytes.NewReader(req.Image))
	if err != nil {
		return ScreenshotEntry{}, err
	}

	s.Index.Touch(req.UserID, req.Username, req.Device, time.Now().UTC())

	entry := ScreenshotEntry{
		ID:          id,
		BlobPath:    info.Path,
		URL:         info.URL,
		UploadedAt:  info.UploadedAt,
		CapturedAt:  req.CapturedAt,
		AccessType:  req.AccessType,
		SessionInfo: req.SessionInfo,
		SizeBytes:   info.Size,
	}
	s.Index.AppendScreenshot(req.UserID, entry)
	metrics.IncScreenshotUpload()
	s.enforceRetention(ctx, req.UserID, KindScreenshots)

	s.extractAndRecord(ctx, id, req)

	return entry, nil
}

// extractAndRecord runs the OCR collaborator on the uploaded image. Every
// failure path degrades to "no text" and is logged, never surfaced.
func (s *Service) extractAndRecord(ctx context.Context, screenshotID string, req ScreenshotUpload) {
	if s.OCR == nil {
		return
	}

	octx, cancel := s.callContext(ctx)
	defer cancel()
	res, err := s.OCR.ExtractText(octx, req.Image)
	if err != nil {
		if !errors.Is(err, ocr.ErrNotConfigured) {
			metrics.IncOCRFailure()
			telemetry.Warn("ocr.extract_failed", map[string]any{
				"user_id": req.UserID,
				"id":      screenshotID,
				"err":     err.Error(),
			})
		}
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		return
	}

	if _, err := s.recordOCR(ctx, OCRUpload{
		ID:          screenshotID,
		UserID:      req.UserID,
		Username:    req.Username,
		Device:      req.Device,
		CapturedAt:  req.CapturedAt,
		Text:        res.Text,
		Confidence:  res.Confidence,
		Method:      "vision",
		SessionInfo: req.SessionInfo,
	}); err != nil {
		telemetry.Warn("ocr.record_failed", map[string]any{
			"user_id": req.UserID,
			"id":      screenshotID,
			"err":     err.Error(),
		})
	}
}

// UploadOCR stores a device-supplied OCR payload and its normalized question
// record.
func (s *Service) UploadOCR(ctx context.Context, req OCRUpload) (OCREntry, error) {
	if err := validateUserID(req.UserID); err != nil {
		return OCREntry{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return OCREntry{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return s.recordOCR(ctx, req)
}

func (s *Service) recordOCR(ctx context.Context, req OCRUpload) (OCREntry, error) {
	id := req.ID
	if id == "" {
		id = GenerateID()
	}
	method := req.Method
	if method == "" {
		method = "client"
	}

	payload := ocrPayload{
		UserID:      req.UserID,
		Username:    req.Username,
		Text:        req.Text,
		Confidence:  req.Confidence,
		Method:      method,
		CapturedAt:  req.CapturedAt,
		Device:      req.Device,
		SessionInfo: req.SessionInfo,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return OCREntry{}, fmt.Errorf("marshal ocr payload: %w", err)
	}

	blobPath := BlobPath(KindOCR, req.UserID, id, "json")
	info, err := s.putBlob(ctx, blobPath, "application/json", bytes.NewReader(data))
	if err != nil {
		return OCREntry{}, err
	}

	s.Index.Touch(req.UserID, req.Username, req.Device, time.Now().UTC())

	entry := OCREntry{
		ID:               id,
		BlobPath:         info.Path,
		URL:              info.URL,
		UploadedAt:       info.UploadedAt,
		CapturedAt:       req.CapturedAt,
		ExtractedText:    req.Text,
		EngineConfidence: req.Confidence,
		WordCount:        len(strings.Fields(req.Text)),
		CharacterCount:   len(req.Text),
		Method:           method,
		SizeBytes:        info.Size,
		Question:         textparse.Parse(req.Text),
	}
	s.Index.AppendOCR(req.UserID, entry)
	metrics.IncOCRUpload()
	s.enforceRetention(ctx, req.UserID, KindOCR)

	return entry, nil
}

// ListUsers reconciles and returns every known user.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	return s.Index.Users(), nil
}

// UserScreenshots reconciles and returns the user's screenshots, newest
// first.
func (s *Service) UserScreenshots(ctx context.Context, userID string) ([]ScreenshotEntry, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	entries, ok := s.Index.Screenshots(userID)
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return entries, nil
}

// UserOCR reconciles and returns the user's OCR entries, newest first.
func (s *Service) UserOCR(ctx context.Context, userID string) ([]OCREntry, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	entries, ok := s.Index.OCREntries(userID)
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return entries, nil
}

// OpenScreenshot returns the entry and a reader over its blob. The caller
// closes the reader.
func (s *Service) OpenScreenshot(ctx context.Context, userID, id string) (ScreenshotEntry, io.ReadCloser, error) {
	if err := s.Reconcile(ctx, KindScreenshots); err != nil {
		return ScreenshotEntry{}, nil, err
	}
	entries, ok := s.Index.Screenshots(userID)
	if !ok {
		return ScreenshotEntry{}, nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	for _, entry := range entries {
		if entry.ID == id {
			rc, err := s.Store.Get(ctx, entry.BlobPath)
			if err != nil {
				return ScreenshotEntry{}, nil, fmt.Errorf("%w: get %s: %v", ErrUpstream, entry.BlobPath, err)
			}
			return entry, rc, nil
		}
	}
	return ScreenshotEntry{}, nil, fmt.Errorf("%w: screenshot %s", ErrNotFound, id)
}

// DeleteScreenshot deletes the blob first, then removes the index entry, so a
// failed delete leaves the index consistent with storage.
func (s *Service) DeleteScreenshot(ctx context.Context, userID, id string) error {
	if err := s.Reconcile(ctx, KindScreenshots); err != nil {
		return err
	}
	entries, ok := s.Index.Screenshots(userID)
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	for _, entry := range entries {
		if entry.ID != id {
			continue
		}
		if err := s.deleteBlob(ctx, entry.BlobPath); err != nil {
			return err
		}
		s.Index.RemoveScreenshot(userID, id)
		return nil
	}
	return fmt.Errorf("%w: screenshot %s", ErrNotFound, id)
}

// DeleteOCR deletes the blob first, then removes the index entry.
func (s *Service) DeleteOCR(ctx context.Context, userID, id string) error {
	if err := s.Reconcile(ctx, KindOCR); err != nil {
		return err
	}
	entries, ok := s.Index.OCREntries(userID)
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	for _, entry := range entries {
		if entry.ID != id {
			continue
		}
		if err := s.deleteBlob(ctx, entry.BlobPath); err != nil {
			return err
		}
		s.Index.RemoveOCR(userID, id)
		return nil
	}
	return fmt.Errorf("%w: ocr entry %s", ErrNotFound, id)
}

// ClearUser removes the user record and best-effort deletes every blob it
// owned. Blob delete failures are logged; the next reconciliation will
// resurface anything that survived.
func (s *Service) ClearUser(ctx context.Context, userID string) (int, error) {
	if err := s.Reconcile(ctx); err != nil {
		return 0, err
	}
	paths, ok := s.Index.ClearUser(userID)
	if !ok {
		return 0, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	deleted := 0
	for _, p := range paths {
		if err := s.deleteBlob(ctx, p); err != nil {
			telemetry.Warn("clear.delete_failed", map[string]any{
				"user_id": userID,
				"path":    p,
				"err":     err.Error(),
			})
			continue
		}
		deleted++
	}
	telemetry.Info("user.cleared", map[string]any{
		"user_id": userID,
		"blobs":   len(paths),
		"deleted": deleted,
	})
	return deleted, nil
}

// StatsOverview reconciles and returns the global counters with per-user
// summaries.
func (s *Service) StatsOverview(ctx context.Context) (Overview, error) {
	if err := s.Reconcile(ctx); err != nil {
		return Overview{}, err
	}
	return Overview{Stats: s.Index.Stats(), Users: s.Index.Users()}, nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return fmt.Errorf("%w: userId must not contain path separators", ErrInvalidInput)
	}
	return nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.UpstreamTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.UpstreamTimeout)
}

func (s *Service) putBlob(ctx context.Context, path, contentType string, r io.Reader) (blob.ObjectInfo, error) {
	cctx, cancel := s.callContext(ctx)
	defer cancel()
	info, err := s.Store.Put(cctx, path, contentType, r)
	if err != nil {
		return blob.ObjectInfo{}, fmt.Errorf("%w: put %s: %v", ErrUpstream, path, err)
	}
	return info, nil
}

func (s *Service) deleteBlob(ctx context.Context, path string) error {
	cctx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.Store.Delete(cctx, path); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrUpstream, path, err)
	}
	return nil
}

func (s *Service) listBlobs(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	cctx, cancel := s.callContext(ctx)
	defer cancel()
	objs, err := s.Store.List(cctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUpstream, prefix, err)
	}
	return objs, nil
}
