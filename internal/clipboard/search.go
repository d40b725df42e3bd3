package clipboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// searchContextRadius is the number of characters kept on each side of the
// first match when building the highlight snippet.
const searchContextRadius = 60

// SearchHit is one OCR entry that matched the search term.
type SearchHit struct {
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
	Entry      OCREntry `json:"entry"`
	MatchCount int      `json:"matchCount"`
	Highlight  string   `json:"highlight"`
}

// Search reconciles, then scans extracted text for the term,
// case-insensitively. Hits are ranked by raw match count, ties broken newest
// first. An empty userID searches every user.
func (s *Service) Search(ctx context.Context, term, userID string) ([]SearchHit, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidInput)
	}
	if err := s.Reconcile(ctx, KindOCR); err != nil {
		return nil, err
	}

	var hits []SearchHit
	for _, user := range s.Index.Users() {
		if userID != "" && user.UserID != userID {
			continue
		}
		entries, ok := s.Index.OCREntries(user.UserID)
		if !ok {
			continue
		}
		for _, entry := range entries {
			lowered := strings.ToLower(entry.ExtractedText)
			count := strings.Count(lowered, needle)
			if count == 0 {
				continue
			}
			hits = append(hits, SearchHit{
				UserID:     user.UserID,
				Username:   user.Username,
				Entry:      entry,
				MatchCount: count,
				Highlight:  highlight(entry.ExtractedText, lowered, needle),
			})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].MatchCount != hits[b].MatchCount {
			return hits[a].MatchCount > hits[b].MatchCount
		}
		return hits[a].Entry.UploadedAt.After(hits[b].Entry.UploadedAt)
	})
	return hits, nil
}

// highlight returns a window around the first occurrence of needle, with
// ellipses where the window cuts into surrounding text. Cut points back off
// to rune boundaries so the snippet is always valid UTF-8.
func highlight(text, lowered, needle string) string {
	at := strings.Index(lowered, needle)
	if at < 0 {
		return ""
	}
	start := at - searchContextRadius
	if start < 0 {
		start = 0
	}
	for start < at && !utf8.RuneStart(text[start]) {
		start++
	}
	end := at + len(needle) + searchContextRadius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
