package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"phonestorage/internal/domain/events"
	"phonestorage/internal/domain/upload"
	"phonestorage/internal/pkg/response"
)

type Handler struct {
	registry *Registry
	files    Lister
	events   events.Publisher
	log      zerolog.Logger
}

func NewHandler(registry *Registry, files Lister, pub events.Publisher, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		files:    files,
		events:   pub,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// Grant handles POST /api/session/grant/:token.
func (h *Handler) Grant(c *gin.Context) {
	tok := c.Param("token")
	if !upload.ValidToken(tok) {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidToken, ErrInvalidToken.Error())
		return
	}
	h.registry.Grant(tok)
	if h.events != nil {
		h.events.Publish(events.Event{Type: events.SessionGranted})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Get handles GET /api/session/:token.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.registry.Get(c.Param("token"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, ErrNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      s.Token,
		"granted":    s.Granted,
		"created_at": s.CreatedAt,
		"primary":    s.Token == h.registry.Primary(),
		"files":      s.Files,
	})
}

// AdminSessions handles GET /api/admin/sessions.
func (h *Handler) AdminSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.registry.ListAll()})
}

// Poll handles GET /poll/:token. Only the primary session is polled; any
// other token gets an empty list.
func (h *Handler) Poll(c *gin.Context) {
	tok := c.Param("token")
	files := make([]PollFile, 0)
	if tok == "" || tok != h.registry.Primary() || h.files == nil {
		c.JSON(http.StatusOK, gin.H{"files": files})
		return
	}

	listed, err := h.files.List(tok)
	if err != nil {
		h.log.Warn().Err(err).Msg("poll listing failed")
	}
	for _, f := range listed {
		files = append(files, PollFile{Name: f.Name, URL: "/uploads/" + tok + "/" + f.Name})
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}
