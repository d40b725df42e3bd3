// Package textparse normalizes raw OCR text into structured question records.
//
// The pipeline is a best-effort heuristic, not a grammar: it classifies text
// by quiz-indicator tokens, strips known noise classes, and pattern-matches a
// question number and lettered answer choices. The confidence thresholds are
// fixed so scores stay comparable across runs; the noise patterns in noise.go
// are configuration and may be tuned freely.
package textparse

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	minQuestionLength = 10

	confidenceNumber  = 0.3
	confidenceLength  = 0.4
	confidenceChoices = 0.3

	questionThreshold = 0.5
)

// Choice is one lettered answer option.
type Choice struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// QuestionRecord is the normalized result of parsing one OCR capture.
// For non-question text, QuestionText carries the raw input unchanged.
type QuestionRecord struct {
	IsQuestion      bool     `json:"isQuestion"`
	QuestionNumber  *int     `json:"questionNumber"`
	QuestionText    string   `json:"questionText"`
	Choices         []Choice `json:"answerChoices"`
	ParseConfidence float64  `json:"parseConfidence"`
}

// Parse turns raw OCR text into a QuestionRecord. It is a pure function:
// identical input always produces an identical record.
func Parse(raw string) QuestionRecord {
	if !hasQuizIndicator(raw) {
		return QuestionRecord{QuestionText: raw}
	}

	text := stripNoise(raw)

	rec := QuestionRecord{}
	if loc := questionNumberRe.FindStringSubmatchIndex(text); loc != nil {
		if n, err := strconv.Atoi(text[loc[2]:loc[3]]); err == nil {
			rec.QuestionNumber = &n
			text = text[loc[1]:]
		}
	}

	rec.Choices, text = extractChoices(text)
	rec.QuestionText = trimFragments(text)

	conf := 0.0
	if rec.QuestionNumber != nil {
		conf += confidenceNumber
	}
	if len(rec.QuestionText) >= minQuestionLength {
		conf += confidenceLength
	}
	if len(rec.Choices) >= 2 {
		conf += confidenceChoices
	}
	rec.ParseConfidence = conf
	rec.IsQuestion = conf > questionThreshold
	return rec
}

func hasQuizIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, token := range quizIndicators {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func stripNoise(text string) string {
	out := text
	for _, re := range noisePatterns {
		out = re.ReplaceAllString(out, " ")
	}
	out = codeCandidateRe.ReplaceAllStringFunc(out, func(m string) string {
		if containsDigit(m) {
			return " "
		}
		return m
	})
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// extractChoices pulls the repeating "(A) text" pattern out of the body and
// returns the remaining text before the first marker.
func extractChoices(text string) ([]Choice, string) {
	locs := choiceMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, text
	}

	choices := make([]Choice, 0, len(locs))
	for i, loc := range locs {
		letter := strings.ToUpper(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		body = strings.TrimRight(body, " \t,;")
		choices = append(choices, Choice{Letter: letter, Text: body})
	}

	return choices, text[:locs[0][0]]
}

func trimFragments(text string) string {
	trimmed := strings.TrimSpace(text)

	lower := strings.ToLower(trimmed)
	best := -1
	for _, cue := range sentenceCues {
		if idx := strings.Index(lower, cue); idx >= 0 && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best > 0 {
		trimmed = trimmed[best:]
		lower = lower[best:]
	}

	for _, suffix := range trailingNoise {
		if strings.HasSuffix(strings.TrimSpace(lower), suffix) {
			cut := strings.LastIndex(lower, suffix)
			trimmed = strings.TrimSpace(trimmed[:cut])
			lower = strings.ToLower(trimmed)
		}
	}

	trimmed = strings.TrimLeftFunc(trimmed, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '.' || r == '-' || r == ')' || r == '–'
	})
	return strings.TrimSpace(trimmed)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
