package clipboard

import (
	"context"

	"clipboard-backend/internal/shared/metrics"
	"clipboard-backend/internal/shared/telemetry"
)

// enforceRetention trims the (user, kind) bucket to the configured limit and
// issues a best-effort delete for each evicted blob. A delete failure is
// logged and swallowed: the index is the rebuildable cache, so a leaked blob
// is an operational nuisance, not a correctness violation, and the upload
// that triggered eviction must still succeed.
func (s *Service) enforceRetention(ctx context.Context, userID string, kind Kind) {
	limit := s.RetentionLimit
	if limit <= 0 {
		return
	}

	var paths []string
	switch kind {
	case KindScreenshots:
		for _, e := range s.Index.TrimScreenshots(userID, limit) {
			paths = append(paths, e.BlobPath)
		}
	case KindOCR, KindText:
		for _, e := range s.Index.TrimOCR(userID, limit) {
			paths = append(paths, e.BlobPath)
		}
	}
	if len(paths) == 0 {
		return
	}

	metrics.AddEvictions(len(paths))
	failed := 0
	for _, p := range paths {
		if err := s.deleteBlob(ctx, p); err != nil {
			failed++
			metrics.IncEvictionDeleteFailure()
			telemetry.Warn("retention.delete_failed", map[string]any{
				"user_id": userID,
				"kind":    string(kind),
				"path":    p,
				"err":     err.Error(),
			})
		}
	}

	telemetry.Info("retention.evicted", map[string]any{
		"user_id":       userID,
		"kind":          string(kind),
		"evicted":       len(paths),
		"delete_failed": failed,
		"limit":         limit,
	})
}
