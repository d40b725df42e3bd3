package clipboard

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clipboard-backend/internal/export"
	"clipboard-backend/internal/ocr"
	"clipboard-backend/internal/shared/server/respond"
)

const maxScreenshotBytes = 10 << 20

// Handler wires HTTP handlers to the clipboard service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches clipboard routes. Upload endpoints are open so
// devices can report without the admin secret; everything else goes through
// the admin-gated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.POST("/screenshots", h.uploadScreenshot)
	rg.POST("/ocr", h.uploadOCR)

	ag := rg.Group("", admin)
	ag.GET("/users", h.listUsers)
	ag.GET("/users/:userId/screenshots", h.userScreenshots)
	ag.GET("/users/:userId/screenshots/:id", h.getScreenshot)
	ag.DELETE("/users/:userId/screenshots/:id", h.deleteScreenshot)
	ag.GET("/users/:userId/ocr", h.userOCR)
	ag.DELETE("/users/:userId/ocr/:id", h.deleteOCR)
	ag.DELETE("/users/:userId", h.clearUser)
	ag.GET("/search", h.search)
	ag.GET("/stats", h.stats)
	ag.GET("/export/questions", h.exportQuestions)
}

type ocrRequest struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Username    string         `json:"username"`
	Device      DeviceInfo     `json:"deviceInfo"`
	Timestamp   string         `json:"timestamp"`
	Text        string         `json:"text"`
	Confidence  float64        `json:"confidence"`
	Method      string         `json:"method"`
	SessionInfo map[string]any `json:"sessionInfo"`
}

func (h *Handler) uploadScreenshot(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxScreenshotBytes)

	image, ext, err := readScreenshot(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	req := ScreenshotUpload{
		UserID:     strings.TrimSpace(c.PostForm("userId")),
		Username:   strings.TrimSpace(c.PostForm("username")),
		CapturedAt: c.PostForm("timestamp"),
		AccessType: c.PostForm("accessType"),
		Image:      image,
		Ext:        ext,
		Device: DeviceInfo{
			Hostname: c.PostForm("hostname"),
			Platform: c.PostForm("platform"),
			DeviceID: c.PostForm("deviceId"),
		},
	}
	if req.UserID == "" {
		req.UserID = strings.TrimSpace(c.Query("userId"))
	}

	entry, err := h.Svc.UploadScreenshot(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to store screenshot")
		return
	}
	respond.JSON(c, http.StatusCreated, entry)
}

// readScreenshot accepts either a multipart "screenshot"/"image" file part or
// a raw image body.
func readScreenshot(c *gin.Context) ([]byte, string, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, err := c.FormFile("screenshot")
		if err != nil {
			if file, err = c.FormFile("image"); err != nil {
				return nil, "", errors.New("screenshot file is required")
			}
		}
		f, err := file.Open()
		if err != nil {
			return nil, "", errors.New("screenshot file is unreadable")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", errors.New("screenshot file is unreadable")
		}
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(file.Filename)), ".")
		return data, ext, nil
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		return nil, "", errors.New("image body is required")
	}
	ext := ""
	switch contentType {
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	case "image/gif":
		ext = "gif"
	}
	return data, ext, nil
}

func (h *Handler) uploadOCR(c *gin.Context) {
	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	entry, err := h.Svc.UploadOCR(c.Request.Context(), OCRUpload{
		ID:          req.ID,
		UserID:      strings.TrimSpace(req.UserID),
		Username:    strings.TrimSpace(req.Username),
		Device:      req.Device,
		CapturedAt:  req.Timestamp,
		Text:        req.Text,
		Confidence:  req.Confidence,
		Method:      req.Method,
		SessionInfo: req.SessionInfo,
	})
	if err != nil {
		writeError(c, err, "failed to store ocr entry")
		return
	}
	respond.JSON(c, http.StatusCreated, entry)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list users")
		return
	}
	respond.OK(c, gin.H{"users": users, "total": len(users)})
}

func (h *Handler) userScreenshots(c *gin.Context) {
	entries, err := h.Svc.UserScreenshots(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err, "failed to list screenshots")
		return
	}
	respond.OK(c, gin.H{"screenshots": entries, "total": len(entries)})
}

func (h *Handler) userOCR(c *gin.Context) {
	entries, err := h.Svc.UserOCR(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err, "failed to list ocr entries")
		return
	}
	respond.OK(c, gin.H{"ocrEntries": entries, "total": len(entries)})
}

func (h *Handler) getScreenshot(c *gin.Context) {
	entry, rc, err := h.Svc.OpenScreenshot(c.Request.Context(), c.Param("userId"), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch screenshot")
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, entry.SizeBytes, contentTypeForPath(entry.BlobPath), rc, nil)
}

func (h *Handler) deleteScreenshot(c *gin.Context) {
	if err := h.Svc.DeleteScreenshot(c.Request.Context(), c.Param("userId"), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete screenshot")
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) deleteOCR(c *gin.Context) {
	if err := h.Svc.DeleteOCR(c.Request.Context(), c.Param("userId"), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete ocr entry")
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) clearUser(c *gin.Context) {
	deleted, err := h.Svc.ClearUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err, "failed to clear user")
		return
	}
	respond.OK(c, gin.H{"cleared": true, "blobsDeleted": deleted})
}

func (h *Handler) search(c *gin.Context) {
	hits, err := h.Svc.Search(c.Request.Context(), c.Query("q"), c.Query("userId"))
	if err != nil {
		writeError(c, err, "search failed")
		return
	}
	respond.OK(c, gin.H{"results": hits, "total": len(hits)})
}

func (h *Handler) stats(c *gin.Context) {
	overview, err := h.Svc.StatsOverview(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to compute stats")
		return
	}
	respond.OK(c, overview)
}

func (h *Handler) exportQuestions(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	minConfidence := 0.0
	if raw := c.Query("minConfidence"); raw != "" {
		minConfidence, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "minConfidence must be a number", nil)
			return
		}
	}

	doc, err := h.Svc.ExportQuestions(c.Request.Context(), c.Query("userId"), minConfidence, format)
	if err != nil {
		writeError(c, err, "export failed")
		return
	}
	c.Data(http.StatusOK, format.ContentType(), doc)
}

// writeError maps service errors to the response envelope.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", userMessage(err), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", userMessage(err), nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", "storage backend unavailable", nil)
	case errors.Is(err, ocr.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "not_configured", "ocr provider is not configured", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

// userMessage strips the sentinel prefix so clients see only the detail.
func userMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
