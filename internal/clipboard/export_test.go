package clipboard

import (
	"context"
	"encoding/json"
	"testing"

	"clipboard-backend/internal/export"
)

func exportTotal(t *testing.T, svc *Service, minConfidence float64) int {
	t.Helper()
	out, err := svc.ExportQuestions(context.Background(), "", minConfidence, export.FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	return doc.Total
}

func TestExportConfidenceFloorIsExclusive(t *testing.T) {
	svc := newTestService(t)
	// number + two choices, body under the length threshold: scores exactly 0.6
	uploadOCRText(t, svc, "user-1", "Question 3: Pick one. (A) Cat (B) Dog")

	if got := exportTotal(t, svc, 0.6); got != 0 {
		t.Fatalf("entry at the confidence floor must be excluded, got total=%d", got)
	}
	if got := exportTotal(t, svc, 0.55); got != 1 {
		t.Fatalf("entry above the floor must be included, got total=%d", got)
	}
}

func TestExportSkipsNonQuestions(t *testing.T) {
	svc := newTestService(t)
	uploadOCRText(t, svc, "user-1", "hello world")

	if got := exportTotal(t, svc, 0); got != 0 {
		t.Fatalf("non-question text must never export, got total=%d", got)
	}
}
