package clipboard

import (
	"sort"
	"sync"
	"time"
)

// Index is the in-memory aggregate of per-user entries. It is a cache, never
// the durable record: everything in it must be reproducible from the blob
// listing via Reconcile. Mutations to a given (user, kind) bucket are
// serialized by a per-bucket mutex so uploads, evictions, and reconciliation
// cannot lose updates to each other.
//
// Lock ordering: the map lock (mu) and bucket locks are never held at the
// same time. Counter updates take mu after the bucket lock is released.
type Index struct {
	mu    sync.RWMutex
	users map[string]*userState

	totalScreenshots int
	totalOCR         int
	lastUpdated      time.Time
}

type userState struct {
	mu     sync.Mutex // guards meta and seeded
	meta   UserMeta
	seeded bool // created by an in-process upload, not just reconciliation

	screenshotsMu sync.Mutex
	screenshots   []ScreenshotEntry // newest first by UploadedAt

	ocrMu sync.Mutex
	ocr   []OCREntry // newest first by UploadedAt
}

// NewIndex constructs an empty Index.
func NewIndex() *Index {
	return &Index{users: make(map[string]*userState)}
}

func (i *Index) state(userID string, create bool) *userState {
	i.mu.RLock()
	st := i.users[userID]
	i.mu.RUnlock()
	if st != nil || !create {
		return st
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if st = i.users[userID]; st == nil {
		st = &userState{meta: UserMeta{UserID: userID, Username: userID}}
		i.users[userID] = st
	}
	return st
}

// Touch creates or updates the user record for an in-process upload.
func (i *Index) Touch(userID, username string, device DeviceInfo, now time.Time) {
	st := i.state(userID, true)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.FirstSeen.IsZero() {
		st.meta.FirstSeen = now
	}
	if username != "" {
		st.meta.Username = username
	}
	if !device.isZero() {
		st.meta.Device = device
	}
	st.meta.LastActive = now
	st.seeded = true
}

// AppendScreenshot adds an entry to the user's screenshot bucket.
func (i *Index) AppendScreenshot(userID string, e ScreenshotEntry) {
	st := i.state(userID, true)
	st.screenshotsMu.Lock()
	st.screenshots = append([]ScreenshotEntry{e}, st.screenshots...)
	sortScreenshotsDesc(st.screenshots)
	st.screenshotsMu.Unlock()

	i.mu.Lock()
	i.totalScreenshots++
	i.bumpLastUpdated(e.UploadedAt)
	i.mu.Unlock()
}

// AppendOCR adds an entry to the user's OCR bucket.
func (i *Index) AppendOCR(userID string, e OCREntry) {
	st := i.state(userID, true)
	st.ocrMu.Lock()
	st.ocr = append([]OCREntry{e}, st.ocr...)
	sortOCRDesc(st.ocr)
	st.ocrMu.Unlock()

	i.mu.Lock()
	i.totalOCR++
	i.bumpLastUpdated(e.UploadedAt)
	i.mu.Unlock()
}

// TrimScreenshots drops the oldest entries beyond limit and returns them.
func (i *Index) TrimScreenshots(userID string, limit int) []ScreenshotEntry {
	st := i.state(userID, false)
	if st == nil || limit <= 0 {
		return nil
	}

	var evicted []ScreenshotEntry
	st.screenshotsMu.Lock()
	if len(st.screenshots) > limit {
		evicted = append([]ScreenshotEntry(nil), st.screenshots[limit:]...)
		st.screenshots = st.screenshots[:limit:limit]
	}
	st.screenshotsMu.Unlock()

	if len(evicted) > 0 {
		i.mu.Lock()
		i.totalScreenshots -= len(evicted)
		i.mu.Unlock()
	}
	return evicted
}

// TrimOCR drops the oldest entries beyond limit and returns them.
func (i *Index) TrimOCR(userID string, limit int) []OCREntry {
	st := i.state(userID, false)
	if st == nil || limit <= 0 {
		return nil
	}

	var evicted []OCREntry
	st.ocrMu.Lock()
	if len(st.ocr) > limit {
		evicted = append([]OCREntry(nil), st.ocr[limit:]...)
		st.ocr = st.ocr[:limit:limit]
	}
	st.ocrMu.Unlock()

	if len(evicted) > 0 {
		i.mu.Lock()
		i.totalOCR -= len(evicted)
		i.mu.Unlock()
	}
	return evicted
}

// RemoveScreenshot removes one entry by id.
func (i *Index) RemoveScreenshot(userID, id string) (ScreenshotEntry, bool) {
	st := i.state(userID, false)
	if st == nil {
		return ScreenshotEntry{}, false
	}

	var removed ScreenshotEntry
	found := false
	st.screenshotsMu.Lock()
	for idx := range st.screenshots {
		if st.screenshots[idx].ID == id {
			removed = st.screenshots[idx]
			st.screenshots = append(st.screenshots[:idx], st.screenshots[idx+1:]...)
			found = true
			break
		}
	}
	st.screenshotsMu.Unlock()

	if found {
		i.mu.Lock()
		i.totalScreenshots--
		i.mu.Unlock()
	}
	return removed, found
}

// RemoveOCR removes one entry by id.
func (i *Index) RemoveOCR(userID, id string) (OCREntry, bool) {
	st := i.state(userID, false)
	if st == nil {
		return OCREntry{}, false
	}

	var removed OCREntry
	found := false
	st.ocrMu.Lock()
	for idx := range st.ocr {
		if st.ocr[idx].ID == id {
			removed = st.ocr[idx]
			st.ocr = append(st.ocr[:idx], st.ocr[idx+1:]...)
			found = true
			break
		}
	}
	st.ocrMu.Unlock()

	if found {
		i.mu.Lock()
		i.totalOCR--
		i.mu.Unlock()
	}
	return removed, found
}

// Screenshots returns a copy of the user's screenshot bucket. The second
// return reports whether the user exists at all.
func (i *Index) Screenshots(userID string) ([]ScreenshotEntry, bool) {
	st := i.state(userID, false)
	if st == nil {
		return nil, false
	}
	st.screenshotsMu.Lock()
	out := append([]ScreenshotEntry(nil), st.screenshots...)
	st.screenshotsMu.Unlock()
	return out, true
}

// OCREntries returns a copy of the user's OCR bucket.
func (i *Index) OCREntries(userID string) ([]OCREntry, bool) {
	st := i.state(userID, false)
	if st == nil {
		return nil, false
	}
	st.ocrMu.Lock()
	out := append([]OCREntry(nil), st.ocr...)
	st.ocrMu.Unlock()
	return out, true
}

// ClearUser removes the user and returns the blob paths of everything it
// held. The caller is responsible for deleting the blobs.
func (i *Index) ClearUser(userID string) ([]string, bool) {
	i.mu.Lock()
	st := i.users[userID]
	if st == nil {
		i.mu.Unlock()
		return nil, false
	}
	delete(i.users, userID)
	i.mu.Unlock()

	var paths []string
	st.screenshotsMu.Lock()
	shotCount := len(st.screenshots)
	for _, e := range st.screenshots {
		paths = append(paths, e.BlobPath)
	}
	st.screenshots = nil
	st.screenshotsMu.Unlock()

	st.ocrMu.Lock()
	ocrCount := len(st.ocr)
	for _, e := range st.ocr {
		paths = append(paths, e.BlobPath)
	}
	st.ocr = nil
	st.ocrMu.Unlock()

	i.mu.Lock()
	i.totalScreenshots -= shotCount
	i.totalOCR -= ocrCount
	i.mu.Unlock()

	return paths, true
}

// Users returns summaries for every known user, most recently active first.
func (i *Index) Users() []UserSummary {
	states := i.statesSnapshot()

	out := make([]UserSummary, 0, len(states))
	for _, st := range states {
		out = append(out, st.summary())
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].LastActive.Equal(out[b].LastActive) {
			return out[a].LastActive.After(out[b].LastActive)
		}
		return out[a].UserID < out[b].UserID
	})
	return out
}

// Stats returns the global counters.
func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Stats{
		TotalUsers:       len(i.users),
		TotalScreenshots: i.totalScreenshots,
		TotalOCREntries:  i.totalOCR,
		LastUpdated:      i.lastUpdated,
	}
}

// UserSnapshot is a deep copy of one user's records.
type UserSnapshot struct {
	UserSummary
	Screenshots []ScreenshotEntry `json:"screenshots"`
	OCREntries  []OCREntry        `json:"ocrEntries"`
}

// Snapshot is a deep, deterministic copy of the whole index, used by stats
// tooling and by tests asserting reconciliation idempotence.
type Snapshot struct {
	Stats Stats          `json:"stats"`
	Users []UserSnapshot `json:"users"`
}

// Snapshot captures the full index state, users sorted by id.
func (i *Index) Snapshot() Snapshot {
	states := i.statesSnapshot()

	users := make([]UserSnapshot, 0, len(states))
	for _, st := range states {
		snap := UserSnapshot{UserSummary: st.summary()}
		st.screenshotsMu.Lock()
		snap.Screenshots = append([]ScreenshotEntry{}, st.screenshots...)
		st.screenshotsMu.Unlock()
		st.ocrMu.Lock()
		snap.OCREntries = append([]OCREntry{}, st.ocr...)
		st.ocrMu.Unlock()
		users = append(users, snap)
	}
	sort.Slice(users, func(a, b int) bool { return users[a].UserID < users[b].UserID })

	return Snapshot{Stats: i.Stats(), Users: users}
}

// ApplyListing replaces the selected buckets with entries rebuilt from the
// durable listing, then recomputes counters. Users with no remaining entries
// that were never seeded by an in-process upload are dropped, keeping the
// index a pure projection of the listing.
func (i *Index) ApplyListing(shots map[string][]ScreenshotEntry, ocrEntries map[string][]OCREntry, replaceShots, replaceOCR bool) {
	for userID := range shots {
		i.state(userID, true)
	}
	for userID := range ocrEntries {
		i.state(userID, true)
	}

	states := i.statesSnapshot()

	totalShots := 0
	totalOCR := 0
	var last time.Time
	empty := make(map[string]bool, len(states))

	for userID, st := range states {
		if replaceShots {
			entries := append([]ScreenshotEntry(nil), shots[userID]...)
			sortScreenshotsDesc(entries)
			st.screenshotsMu.Lock()
			st.screenshots = entries
			st.screenshotsMu.Unlock()
		}
		if replaceOCR {
			entries := append([]OCREntry(nil), ocrEntries[userID]...)
			sortOCRDesc(entries)
			st.ocrMu.Lock()
			st.ocr = entries
			st.ocrMu.Unlock()
		}

		st.screenshotsMu.Lock()
		shotCount := len(st.screenshots)
		for _, e := range st.screenshots {
			if e.UploadedAt.After(last) {
				last = e.UploadedAt
			}
		}
		st.screenshotsMu.Unlock()

		st.ocrMu.Lock()
		ocrCount := len(st.ocr)
		for _, e := range st.ocr {
			if e.UploadedAt.After(last) {
				last = e.UploadedAt
			}
		}
		st.ocrMu.Unlock()

		totalShots += shotCount
		totalOCR += ocrCount

		st.mu.Lock()
		empty[userID] = shotCount+ocrCount == 0 && !st.seeded
		st.mu.Unlock()
	}

	i.mu.Lock()
	for userID, drop := range empty {
		if drop && i.users[userID] == states[userID] {
			delete(i.users, userID)
		}
	}
	i.totalScreenshots = totalShots
	i.totalOCR = totalOCR
	i.lastUpdated = last
	i.mu.Unlock()
}

func (i *Index) statesSnapshot() map[string]*userState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	states := make(map[string]*userState, len(i.users))
	for k, v := range i.users {
		states[k] = v
	}
	return states
}

// bumpLastUpdated must be called with i.mu held.
func (i *Index) bumpLastUpdated(t time.Time) {
	if t.After(i.lastUpdated) {
		i.lastUpdated = t
	}
}

func (st *userState) summary() UserSummary {
	st.mu.Lock()
	meta := st.meta
	st.mu.Unlock()

	st.screenshotsMu.Lock()
	shotCount := len(st.screenshots)
	st.screenshotsMu.Unlock()

	st.ocrMu.Lock()
	ocrCount := len(st.ocr)
	st.ocrMu.Unlock()

	return UserSummary{UserMeta: meta, ScreenshotCount: shotCount, OCRCount: ocrCount}
}

func sortScreenshotsDesc(entries []ScreenshotEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		if !entries[a].UploadedAt.Equal(entries[b].UploadedAt) {
			return entries[a].UploadedAt.After(entries[b].UploadedAt)
		}
		return entries[a].ID > entries[b].ID
	})
}

func sortOCRDesc(entries []OCREntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		if !entries[a].UploadedAt.Equal(entries[b].UploadedAt) {
			return entries[a].UploadedAt.After(entries[b].UploadedAt)
		}
		return entries[a].ID > entries[b].ID
	})
}
