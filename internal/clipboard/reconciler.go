package clipboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"clipboard-backend/internal/shared/metrics"
	"clipboard-backend/internal/shared/storage/blob"
	"clipboard-backend/internal/shared/telemetry"
	"clipboard-backend/internal/textparse"
)

const (
	hydrateWorkers  = 8
	maxHydrateBytes = 4 << 20
)

// Reconcile rebuilds the index from the blob listing for the given kinds
// (all kinds when none are given). It is a pure projection of the listing:
// running it twice with no intervening writes produces an identical index.
// Requesting the OCR kind also covers the legacy text prefix, since both
// land in the OCR bucket.
func (s *Service) Reconcile(ctx context.Context, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	doShots := hasKind(kinds, KindScreenshots)
	doOCR := hasKind(kinds, KindOCR) || hasKind(kinds, KindText)

	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()
	start := time.Now()

	shots := map[string][]ScreenshotEntry{}
	if doShots {
		objs, err := s.listBlobs(ctx, string(KindScreenshots)+"/")
		if err != nil {
			return err
		}
		for _, obj := range objs {
			kind, userID, id, ok := ParseBlobPath(obj.Path)
			if !ok || kind != KindScreenshots {
				continue
			}
			shots[userID] = append(shots[userID], ScreenshotEntry{
				ID:         id,
				BlobPath:   obj.Path,
				URL:        obj.URL,
				UploadedAt: obj.UploadedAt,
				SizeBytes:  obj.Size,
			})
		}
	}

	ocrEntries := map[string][]OCREntry{}
	if doOCR {
		var objs []blob.ObjectInfo
		for _, prefix := range []string{string(KindOCR) + "/", string(KindText) + "/"} {
			listed, err := s.listBlobs(ctx, prefix)
			if err != nil {
				return err
			}
			objs = append(objs, listed...)
		}

		hydrated := s.hydrateAll(ctx, objs)
		for _, entry := range hydrated {
			_, userID, _, _ := ParseBlobPath(entry.BlobPath)
			ocrEntries[userID] = append(ocrEntries[userID], entry)
		}
	}

	s.Index.ApplyListing(shots, ocrEntries, doShots, doOCR)

	metrics.IncReconciliation()
	metrics.ObserveReconcileDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	return nil
}

// hydrateAll fetches OCR blob payloads with a bounded worker fan-out. A
// failed fetch drops only that entry; siblings are unaffected.
func (s *Service) hydrateAll(ctx context.Context, objs []blob.ObjectInfo) []OCREntry {
	results := make([]OCREntry, len(objs))
	valid := make([]bool, len(objs))

	sem := make(chan struct{}, hydrateWorkers)
	var wg sync.WaitGroup
	for i, obj := range objs {
		kind, _, id, ok := ParseBlobPath(obj.Path)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, kind Kind, id string, obj blob.ObjectInfo) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entry, err := s.hydrateOCREntry(ctx, kind, id, obj)
			if err != nil {
				metrics.IncHydrationFailure()
				telemetry.Warn("reconcile.hydrate_failed", map[string]any{
					"path": obj.Path,
					"err":  err.Error(),
				})
				return
			}
			results[i] = entry
			valid[i] = true
		}(i, kind, id, obj)
	}
	wg.Wait()

	out := make([]OCREntry, 0, len(objs))
	for i := range results {
		if valid[i] {
			out = append(out, results[i])
		}
	}
	return out
}

func (s *Service) hydrateOCREntry(ctx context.Context, kind Kind, id string, obj blob.ObjectInfo) (OCREntry, error) {
	// fetch and read under the upstream timeout so one stalled blob cannot
	// hang the whole reconciliation
	cctx, cancel := s.callContext(ctx)
	defer cancel()

	rc, err := s.Store.Get(cctx, obj.Path)
	if err != nil {
		return OCREntry{}, fmt.Errorf("get: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxHydrateBytes))
	if err != nil {
		return OCREntry{}, fmt.Errorf("read: %w", err)
	}

	entry := OCREntry{
		ID:         id,
		BlobPath:   obj.Path,
		URL:        obj.URL,
		UploadedAt: obj.UploadedAt,
		SizeBytes:  obj.Size,
	}

	if kind == KindText {
		text := string(data)
		entry.ExtractedText = text
		entry.Method = "text"
		entry.WordCount = len(strings.Fields(text))
		entry.CharacterCount = len(text)
		entry.Question = textparse.Parse(text)
		return entry, nil
	}

	var payload ocrPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return OCREntry{}, fmt.Errorf("decode payload: %w", err)
	}
	entry.CapturedAt = payload.CapturedAt
	entry.ExtractedText = payload.Text
	entry.EngineConfidence = payload.Confidence
	entry.Method = payload.Method
	if entry.Method == "" {
		entry.Method = "client"
	}
	entry.WordCount = len(strings.Fields(payload.Text))
	entry.CharacterCount = len(payload.Text)
	entry.Question = textparse.Parse(payload.Text)
	return entry, nil
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
