package textparse

import "regexp"

// quizIndicators classify raw OCR text as quiz-like. Matching is
// case-insensitive substring search; no indicator means no parsing happens.
var quizIndicators = []string{
	"question",
	"answer",
	"choice",
	"select",
	"which",
	"what",
	"how",
	"why",
	"when",
	"where",
}

// noisePatterns remove classes of OCR garbage before parsing: URLs,
// screen-dimension tokens, copyright glyphs, and browser/app chrome. The set
// is tunable; the parse thresholds are not.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhttps?://\S+`),
	regexp.MustCompile(`(?i)\bwww\.\S+`),
	regexp.MustCompile(`\b\d{2,5}\s?[xX×]\s?\d{2,5}\b`),
	regexp.MustCompile(`[©®™]`),
	regexp.MustCompile(`(?i)\b(new tab|untitled window|address and search bar|bookmarks bar|google chrome|mozilla firefox|microsoft edge|file edit view|history window help|add to reading list|screen recording)\b`),
}

// codeCandidateRe matches long alphanumeric runs; only candidates containing
// a digit are stripped, so ordinary long words survive.
var codeCandidateRe = regexp.MustCompile(`\b[A-Za-z0-9]{8,}\b`)

var whitespaceRe = regexp.MustCompile(`\s+`)

var questionNumberRe = regexp.MustCompile(`(?i)\bquestion\s*#?\s*(\d+)\b`)

var choiceMarkerRe = regexp.MustCompile(`\(([A-Ea-e])\)`)

// sentenceCues mark the real start of a question body; anything before the
// earliest cue is dropped as a leading fragment.
var sentenceCues = []string{
	"which of the following",
	"what is",
	"what are",
	"select the",
	"select all",
	"choose the",
	"identify the",
	"how many",
	"how does",
	"why does",
	"when does",
	"where does",
}

// trailingNoise suffixes are quiz-app buttons that OCR picks up after the
// last answer choice.
var trailingNoise = []string{
	"show transcript",
	"submit",
	"next question",
	"previous",
	"save & exit",
	"flag for review",
}
