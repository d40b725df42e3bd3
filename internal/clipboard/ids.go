package clipboard

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 6

// GenerateID returns an entry id: base-36 milliseconds since epoch plus a
// short random suffix. Ids only need to be unique within one user's
// namespace; the suffix makes same-millisecond collisions negligible.
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix
}

// BlobPath builds the deterministic storage path {kind}/{userId}/{id}.{ext}.
// The path is the primary key: the reconciler recovers userId and id from it
// with no side index.
func BlobPath(kind Kind, userID, id, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/%s/%s.%s", kind, userID, id, ext)
}

// ParseBlobPath recovers (kind, userId, id) from a listing path. Paths that
// do not follow the scheme report ok=false and are skipped by callers.
func ParseBlobPath(p string) (kind Kind, userID, id string, ok bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	kind = Kind(parts[0])
	if !validKind(kind) {
		return "", "", "", false
	}
	userID = parts[1]
	base := parts[2]
	id = strings.TrimSuffix(base, path.Ext(base))
	if userID == "" || id == "" {
		return "", "", "", false
	}
	return kind, userID, id, true
}

func normalizeExt(raw string) string {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
	switch ext {
	case "png", "jpg", "jpeg", "webp", "gif":
		return ext
	default:
		return "png"
	}
}

func contentTypeForPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
