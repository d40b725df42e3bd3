package clipboard

import (
	"strings"
	"testing"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("empty id")
		}
		if strings.ContainsAny(id, "/\\.") {
			t.Fatalf("id contains path characters: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id: %q", id)
		}
		seen[id] = true
	}
}

func TestBlobPathRoundTrip(t *testing.T) {
	p := BlobPath(KindScreenshots, "user-1", "abc123", "png")
	if p != "screenshots/user-1/abc123.png" {
		t.Fatalf("unexpected path: %q", p)
	}

	kind, userID, id, ok := ParseBlobPath(p)
	if !ok {
		t.Fatalf("parse failed for %q", p)
	}
	if kind != KindScreenshots || userID != "user-1" || id != "abc123" {
		t.Fatalf("round trip mismatch: %v %q %q", kind, userID, id)
	}
}

func TestParseBlobPathRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"screenshots",
		"screenshots/user-1",
		"unknown/user-1/id.png",
		"screenshots/user-1/id/extra.png",
		"screenshots//id.png",
	}
	for _, p := range cases {
		if _, _, _, ok := ParseBlobPath(p); ok {
			t.Fatalf("expected parse failure for %q", p)
		}
	}
}

func TestNormalizeExtDefaultsToPNG(t *testing.T) {
	if got := normalizeExt("exe"); got != "png" {
		t.Fatalf("expected png fallback, got %q", got)
	}
	if got := normalizeExt(".JPEG"); got != "jpeg" {
		t.Fatalf("expected jpeg, got %q", got)
	}
}
