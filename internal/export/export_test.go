package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func sampleQuestions() []Question {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []Question{
		{UserID: "u1", Username: "alice", EntryID: "e1", Text: "Unnumbered newer", UploadedAt: base.Add(2 * time.Hour)},
		{UserID: "u1", Username: "alice", EntryID: "e2", Number: intp(7), Text: "Seventh", UploadedAt: base},
		{UserID: "u2", Username: "bob", EntryID: "e3", Number: intp(2), Text: "Second", UploadedAt: base.Add(time.Hour)},
		{UserID: "u2", Username: "bob", EntryID: "e4", Text: "Unnumbered older", UploadedAt: base},
	}
}

func TestSortQuestionsNumberFirstThenRecency(t *testing.T) {
	qs := sampleQuestions()
	SortQuestions(qs)

	got := []string{qs[0].EntryID, qs[1].EntryID, qs[2].EntryID, qs[3].EntryID}
	want := []string{"e3", "e2", "e1", "e4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v, want %v", got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Fatalf("empty should default to json, got %v %v", f, err)
	}
	if f, err := ParseFormat("html"); err != nil || f != FormatHTML {
		t.Fatalf("expected html, got %v %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sampleQuestions(), FormatJSON, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if doc.Total != 4 || len(doc.Questions) != 4 {
		t.Fatalf("unexpected document: total=%d questions=%d", doc.Total, len(doc.Questions))
	}
	if doc.Questions[0].EntryID != "e3" {
		t.Fatalf("expected sorted output, first entry %q", doc.Questions[0].EntryID)
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	qs := []Question{{
		UserID:     "u1",
		Username:   "alice",
		EntryID:    "e1",
		Number:     intp(1),
		Text:       "Is <script>alert(1)</script> dangerous?",
		Choices:    []Choice{{Letter: "A", Text: "Yes"}, {Letter: "B", Text: "No"}},
		Confidence: 1,
		UploadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}

	out, err := Render(qs, FormatHTML, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("question text was not escaped")
	}
	if !strings.Contains(html, "Question 1.") {
		t.Fatalf("expected numbered heading in output:\n%s", html)
	}
	if !strings.Contains(html, "<li>Yes</li>") || !strings.Contains(html, "<li>No</li>") {
		t.Fatal("expected choices rendered as list items")
	}
	if !strings.Contains(html, "alice (u1)") {
		t.Fatal("expected source metadata in output")
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	out, err := Render(nil, FormatHTML, time.Now())
	if err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(string(out), "0 questions") {
		t.Fatalf("expected zero-count header, got:\n%s", out)
	}
}
