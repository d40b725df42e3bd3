package clipboard

import (
	"context"
	"time"

	"clipboard-backend/internal/export"
)

// defaultExportConfidence is the minimum parse confidence an OCR entry needs
// to appear in an export when the caller does not override it.
const defaultExportConfidence = 0.5

// ExportQuestions reconciles, collects question-classified OCR entries
// strictly above the confidence floor, and renders them in the requested
// format.
func (s *Service) ExportQuestions(ctx context.Context, userID string, minConfidence float64, format export.Format) ([]byte, error) {
	if minConfidence <= 0 {
		minConfidence = defaultExportConfidence
	}
	if err := s.Reconcile(ctx, KindOCR); err != nil {
		return nil, err
	}

	var questions []export.Question
	for _, user := range s.Index.Users() {
		if userID != "" && user.UserID != userID {
			continue
		}
		entries, ok := s.Index.OCREntries(user.UserID)
		if !ok {
			continue
		}
		for _, entry := range entries {
			q := entry.Question
			if !q.IsQuestion || q.ParseConfidence <= minConfidence {
				continue
			}
			choices := make([]export.Choice, 0, len(q.Choices))
			for _, c := range q.Choices {
				choices = append(choices, export.Choice{Letter: c.Letter, Text: c.Text})
			}
			questions = append(questions, export.Question{
				UserID:     user.UserID,
				Username:   user.Username,
				EntryID:    entry.ID,
				Number:     q.QuestionNumber,
				Text:       q.QuestionText,
				Choices:    choices,
				Confidence: q.ParseConfidence,
				CapturedAt: entry.CapturedAt,
				UploadedAt: entry.UploadedAt,
			})
		}
	}

	return export.Render(questions, format, time.Now())
}
