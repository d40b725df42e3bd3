package clipboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"clipboard-backend/internal/ocr"
	"clipboard-backend/internal/shared/storage/blob"
	"clipboard-backend/internal/shared/storage/blob/local"
)

// faultyStore injects failures into selected operations while delegating the
// rest to a real store.
type faultyStore struct {
	blob.Store
	failPut    bool
	failDelete bool
}

func (f *faultyStore) Put(ctx context.Context, p, contentType string, r io.Reader) (blob.ObjectInfo, error) {
	if f.failPut {
		return blob.ObjectInfo{}, errors.New("injected put failure")
	}
	return f.Store.Put(ctx, p, contentType, r)
}

func (f *faultyStore) Delete(ctx context.Context, p string) error {
	if f.failDelete {
		return errors.New("injected delete failure")
	}
	return f.Store.Delete(ctx, p)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store:          local.New(t.TempDir()),
		OCR:            ocr.Disabled{},
		Index:          NewIndex(),
		RetentionLimit: 100,
	}
}

func uploadShot(t *testing.T, svc *Service, userID string, body []byte) ScreenshotEntry {
	t.Helper()
	entry, err := svc.UploadScreenshot(context.Background(), ScreenshotUpload{
		UserID:   userID,
		Username: userID,
		Image:    body,
	})
	if err != nil {
		t.Fatalf("upload screenshot: %v", err)
	}
	// keep UploadedAt strictly increasing across consecutive uploads
	time.Sleep(2 * time.Millisecond)
	return entry
}

func uploadOCRText(t *testing.T, svc *Service, userID, text string) OCREntry {
	t.Helper()
	entry, err := svc.UploadOCR(context.Background(), OCRUpload{
		UserID:   userID,
		Username: userID,
		Text:     text,
	})
	if err != nil {
		t.Fatalf("upload ocr: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	return entry
}

func TestUploadScreenshotRoundTrip(t *testing.T) {
	svc := newTestService(t)
	body := []byte("fake-png-bytes")

	entry := uploadShot(t, svc, "user-1", body)
	if entry.ID == "" || entry.BlobPath == "" {
		t.Fatalf("incomplete entry: %+v", entry)
	}
	if entry.SizeBytes != int64(len(body)) {
		t.Fatalf("expected size %d, got %d", len(body), entry.SizeBytes)
	}

	listed, err := svc.UserScreenshots(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list screenshots: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != entry.ID {
		t.Fatalf("expected the uploaded entry back, got %+v", listed)
	}

	got, rc, err := svc.OpenScreenshot(context.Background(), "user-1", entry.ID)
	if err != nil {
		t.Fatalf("open screenshot: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Fatalf("blob content mismatch: %q", data)
	}
	if got.ID != entry.ID {
		t.Fatalf("entry mismatch: %+v", got)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UploadScreenshot(context.Background(), ScreenshotUpload{UserID: "", Image: []byte("x")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
	}
	_, err = svc.UploadScreenshot(context.Background(), ScreenshotUpload{UserID: "../evil", Image: []byte("x")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for traversal user, got %v", err)
	}
	_, err = svc.UploadScreenshot(context.Background(), ScreenshotUpload{UserID: "u"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty image, got %v", err)
	}
	_, err = svc.UploadOCR(context.Background(), OCRUpload{UserID: "u", Text: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank text, got %v", err)
	}
}

func TestUploadAbortsWhenPutFails(t *testing.T) {
	svc := newTestService(t)
	svc.Store = &faultyStore{Store: svc.Store, failPut: true}

	_, err := svc.UploadScreenshot(context.Background(), ScreenshotUpload{
		UserID: "user-1",
		Image:  []byte("png-bytes"),
	})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream for failed put, got %v", err)
	}

	_, err = svc.UploadOCR(context.Background(), OCRUpload{UserID: "user-1", Text: "some text"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream for failed ocr put, got %v", err)
	}

	// an aborted upload must leave no trace in the index
	stats := svc.Index.Stats()
	if stats.TotalUsers != 0 || stats.TotalScreenshots != 0 || stats.TotalOCREntries != 0 {
		t.Fatalf("aborted uploads mutated the index: %+v", stats)
	}
}

func TestUploadSucceedsWhenEvictionDeleteFails(t *testing.T) {
	svc := newTestService(t)
	svc.RetentionLimit = 1
	fs := &faultyStore{Store: svc.Store}
	svc.Store = fs

	first := uploadShot(t, svc, "user-1", []byte("old"))

	fs.failDelete = true
	second, err := svc.UploadScreenshot(context.Background(), ScreenshotUpload{
		UserID: "user-1",
		Image:  []byte("new"),
	})
	if err != nil {
		t.Fatalf("upload must succeed despite a failing eviction delete, got %v", err)
	}

	shots, ok := svc.Index.Screenshots("user-1")
	if !ok || len(shots) != 1 || shots[0].ID != second.ID {
		t.Fatalf("expected only the new entry in the index, got %+v", shots)
	}
	if stats := svc.Index.Stats(); stats.TotalScreenshots != 1 {
		t.Fatalf("expected counter 1 after eviction, got %d", stats.TotalScreenshots)
	}

	// the delete was swallowed, so the evicted blob leaks in storage until
	// the next cleanup
	rc, err := fs.Store.Get(context.Background(), first.BlobPath)
	if err != nil {
		t.Fatalf("expected evicted blob to survive the failed delete: %v", err)
	}
	rc.Close()
}

func TestRetentionEvictsOldest(t *testing.T) {
	svc := newTestService(t)
	svc.RetentionLimit = 3

	var entries []ScreenshotEntry
	for i := 0; i < 4; i++ {
		entries = append(entries, uploadShot(t, svc, "user-1", []byte{byte(i)}))
	}
	oldest := entries[0]

	listed, err := svc.UserScreenshots(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list screenshots: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", len(listed))
	}
	for _, e := range listed {
		if e.ID == oldest.ID {
			t.Fatalf("oldest entry %s survived eviction", oldest.ID)
		}
	}

	// the evicted blob must be gone from durable storage too
	if _, err := svc.Store.Get(context.Background(), oldest.BlobPath); err == nil {
		t.Fatalf("expected evicted blob %s to be deleted", oldest.BlobPath)
	}

	stats, err := svc.StatsOverview(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Stats.TotalScreenshots != 3 {
		t.Fatalf("expected counter 3, got %d", stats.Stats.TotalScreenshots)
	}
}

func TestSearchRanksByMatchCount(t *testing.T) {
	svc := newTestService(t)
	uploadOCRText(t, svc, "user-1", "osmosis moves water; osmosis needs a membrane")
	uploadOCRText(t, svc, "user-1", "osmosis appears once here")
	uploadOCRText(t, svc, "user-2", "nothing relevant at all")

	hits, err := svc.Search(context.Background(), "OSMOSIS", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].MatchCount != 2 || hits[1].MatchCount != 1 {
		t.Fatalf("expected match counts [2 1], got [%d %d]", hits[0].MatchCount, hits[1].MatchCount)
	}
	if hits[0].Highlight == "" {
		t.Fatal("expected a highlight snippet")
	}

	scoped, err := svc.Search(context.Background(), "osmosis", "user-2")
	if err != nil {
		t.Fatalf("scoped search: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("expected no hits for user-2, got %d", len(scoped))
	}

	if _, err := svc.Search(context.Background(), "   ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank term, got %v", err)
	}
}

func TestDeleteScreenshotRemovesBlobAndEntry(t *testing.T) {
	svc := newTestService(t)
	entry := uploadShot(t, svc, "user-1", []byte("abc"))

	if err := svc.DeleteScreenshot(context.Background(), "user-1", entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Store.Get(context.Background(), entry.BlobPath); err == nil {
		t.Fatal("expected blob to be deleted")
	}
	listed, err := svc.UserScreenshots(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty bucket, got %d entries", len(listed))
	}

	err = svc.DeleteScreenshot(context.Background(), "user-1", entry.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestClearUserRemovesEverything(t *testing.T) {
	svc := newTestService(t)
	uploadShot(t, svc, "user-1", []byte("one"))
	uploadOCRText(t, svc, "user-1", "question text goes here")
	uploadShot(t, svc, "user-2", []byte("two"))

	deleted, err := svc.ClearUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted blobs, got %d", deleted)
	}

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "user-2" {
		t.Fatalf("expected only user-2 to remain, got %+v", users)
	}

	if _, err := svc.ClearUser(context.Background(), "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cleared user, got %v", err)
	}
}

func TestUnknownUserIsNotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.UserScreenshots(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UserOCR(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOCRUploadParsesQuestion(t *testing.T) {
	svc := newTestService(t)
	entry := uploadOCRText(t, svc, "user-1", "Question 3: Pick one. (A) Cat (B) Dog")

	if !entry.Question.IsQuestion {
		t.Fatalf("expected question classification, got %+v", entry.Question)
	}
	if entry.WordCount != 8 {
		t.Fatalf("expected word count 8, got %d", entry.WordCount)
	}
	if entry.Method != "client" {
		t.Fatalf("expected default method client, got %q", entry.Method)
	}
}
