package upload

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"phonestorage/internal/domain/events"
	"phonestorage/internal/metrics"
	"phonestorage/internal/pkg/response"
	"phonestorage/internal/pkg/validator"
)

// UploadRecorder receives the metadata of every stored upload.
type UploadRecorder interface {
	RecordUpload(token, filename string, size int64)
}

// ActivityTracker is told about uploads so paired devices stay active.
// It reports false for tokens it does not know, which is not an error here.
type ActivityTracker interface {
	UpdateActivity(token string) bool
}

type Handler struct {
	store    *Store
	sessions UploadRecorder
	devices  ActivityTracker
	events   events.Publisher
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewHandler(store *Store, sessions UploadRecorder, devices ActivityTracker, pub events.Publisher, m *metrics.Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		devices:  devices,
		events:   pub,
		metrics:  m,
		log:      log.With().Str("component", "upload_handler").Logger(),
	}
}

// Upload handles POST /storage/upload/:token (multipart field "file").
func (h *Handler) Upload(c *gin.Context) {
	token := c.Param("token")
	if !ValidToken(token) {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidToken, ErrInvalidToken.Error())
		return
	}

	if limit := h.store.MaxSize(); limit > 0 {
		// allow for multipart framing on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation, ErrFileTooLarge.Error())
			return
		}
		// A part named "file" with an empty filename is parsed as a plain
		// form value: the browser sent the field but nothing was chosen.
		if form := c.Request.MultipartForm; form != nil {
			if _, ok := form.Value["file"]; ok {
				response.Error(c, http.StatusBadRequest, response.CodeEmptySelection, ErrEmptySelection.Error())
				return
			}
		}
		response.Error(c, http.StatusBadRequest, response.CodeMissingFile, ErrMissingFile.Error())
		return
	}
	if fileHeader.Filename == "" {
		response.Error(c, http.StatusBadRequest, response.CodeEmptySelection, ErrEmptySelection.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Str("token", token).Msg("open multipart file failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "upload failed")
		return
	}
	defer src.Close()

	desc, err := h.store.Save(token, fileHeader.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptySelection):
			response.Error(c, http.StatusBadRequest, response.CodeEmptySelection, err.Error())
		case errors.Is(err, ErrInvalidToken):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidToken, err.Error())
		case errors.Is(err, ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation, err.Error())
		default:
			h.log.Error().Err(err).Str("token", token).Msg("store upload failed")
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "upload failed")
		}
		return
	}

	if h.sessions != nil {
		h.sessions.RecordUpload(token, desc.Name, desc.Size)
	}
	if h.devices != nil {
		h.devices.UpdateActivity(token)
	}
	h.metrics.UploadStored(string(desc.Type), desc.Size)
	h.publish(events.Event{Type: events.FileUploaded, Payload: desc})

	c.JSON(http.StatusOK, gin.H{"ok": true, "filename": desc.Name})
}

func (h *Handler) List(c *gin.Context) {
	files, err := h.store.List(c.Param("token"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeInvalidToken, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *Handler) Structure(c *gin.Context) {
	tree, err := h.store.Structure(c.Param("token"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeInvalidToken, err.Error())
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Param("token"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeInvalidToken, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Download serves GET /storage/download/:token/:filename as an attachment.
func (h *Handler) Download(c *gin.Context) {
	full, desc, err := h.store.Open(c.Param("token"), c.Param("filename"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		return
	}
	c.FileAttachment(full, desc.Name)
}

// Serve handles GET /uploads/:token/*filepath for inline gallery display.
func (h *Handler) Serve(c *gin.Context) {
	full, _, err := h.store.Open(c.Param("token"), c.Param("filepath"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		return
	}
	c.File(full)
}

// Gallery handles GET /api/gallery/:token?type=image|video&group=month.
func (h *Handler) Gallery(c *gin.Context) {
	only, ok := ParseMediaType(c.Query("type"))
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "type must be image or video")
		return
	}
	files, err := h.store.Gallery(c.Param("token"), only)
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeInvalidToken, err.Error())
		return
	}
	if c.Query("group") == "month" {
		c.JSON(http.StatusOK, gin.H{"groups": GroupByMonth(files)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gallery": files})
}

type cleanupRequest struct {
	Days *int `json:"days" validate:"omitempty,gte=0,lte=3650"`
}

// CleanupUploads handles POST /api/admin/cleanup-uploads {days?}.
func (h *Handler) CleanupUploads(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body")
			return
		}
	}
	if errs := validator.Validate(req); errs != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "days must be between 0 and 3650")
		return
	}
	days := 30
	if req.Days != nil {
		days = *req.Days
	}

	removed := h.store.Cleanup(days)
	c.JSON(http.StatusOK, gin.H{"ok": true, "removed": removed})
}

func (h *Handler) publish(ev events.Event) {
	if h.events != nil {
		h.events.Publish(ev)
	}
}
