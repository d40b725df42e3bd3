package local

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	body := []byte("hello blob")

	info, err := store.Put(ctx, "screenshots/user-1/abc.png", "image/png", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Path != "screenshots/user-1/abc.png" {
		t.Fatalf("unexpected path: %q", info.Path)
	}
	if info.Size != int64(len(body)) {
		t.Fatalf("unexpected size: %d", info.Size)
	}
	if info.UploadedAt.IsZero() {
		t.Fatal("expected non-zero upload time")
	}

	rc, err := store.Get(ctx, info.Path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("content mismatch: %q", got)
	}

	if err := store.Delete(ctx, info.Path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, info.Path); err == nil {
		t.Fatal("expected get to fail after delete")
	}
}

func TestListScopedToPrefix(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	paths := []string{
		"screenshots/user-1/a.png",
		"screenshots/user-2/b.png",
		"ocr/user-1/c.json",
	}
	for _, p := range paths {
		if _, err := store.Put(ctx, p, "application/octet-stream", bytes.NewReader([]byte("x"))); err != nil {
			t.Fatalf("put %s: %v", p, err)
		}
	}

	objs, err := store.List(ctx, "screenshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 screenshots, got %d", len(objs))
	}
	for _, obj := range objs {
		if obj.Path == "ocr/user-1/c.json" {
			t.Fatalf("listing leaked outside prefix: %q", obj.Path)
		}
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs total, got %d", len(all))
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	store := New(t.TempDir())
	objs, err := store.List(context.Background(), "text/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objs) != 0 {
		t.Fatalf("expected empty listing, got %d", len(objs))
	}
}

func TestRejectsPathTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Put(ctx, "../escape.png", "image/png", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatal("expected put to reject traversal")
	}
	if _, err := store.Get(ctx, "/etc/passwd"); err == nil {
		t.Fatal("expected get to reject absolute path")
	}
	if err := store.Delete(ctx, "../../x"); err == nil {
		t.Fatal("expected delete to reject traversal")
	}
}
