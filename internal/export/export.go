// Package export renders collected question records as downloadable
// documents.
package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"time"
)

//go:embed templates/questions.html
var templateFS embed.FS

var questionsTmpl = template.Must(template.ParseFS(templateFS, "templates/questions.html"))

// Format selects the rendered output type.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat normalizes a query-string format value. Empty defaults to json.
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "", "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// ContentType returns the response content type for the format.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

// Choice is one answer option attached to a question.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is one exported question with its source metadata.
type Question struct {
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	EntryID    string    `json:"entryId"`
	Number     *int      `json:"questionNumber"`
	Text       string    `json:"questionText"`
	Choices    []Choice  `json:"answerChoices,omitempty"`
	Confidence float64   `json:"parseConfidence"`
	CapturedAt string    `json:"timestamp,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Document is the top-level export payload.
type Document struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	Total       int        `json:"total"`
	Questions   []Question `json:"questions"`
}

// SortQuestions orders by question number ascending; entries without a number
// follow, newest first.
func SortQuestions(qs []Question) {
	sort.SliceStable(qs, func(a, b int) bool {
		na, nb := qs[a].Number, qs[b].Number
		switch {
		case na != nil && nb != nil:
			if *na != *nb {
				return *na < *nb
			}
			return qs[a].UploadedAt.After(qs[b].UploadedAt)
		case na != nil:
			return true
		case nb != nil:
			return false
		default:
			return qs[a].UploadedAt.After(qs[b].UploadedAt)
		}
	})
}

// Render produces the document in the requested format. The question slice is
// sorted in place.
func Render(qs []Question, format Format, now time.Time) ([]byte, error) {
	SortQuestions(qs)
	doc := Document{GeneratedAt: now.UTC(), Total: len(qs), Questions: qs}
	switch format {
	case FormatHTML:
		return renderHTML(doc)
	default:
		return json.MarshalIndent(doc, "", "  ")
	}
}

func renderHTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := questionsTmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
