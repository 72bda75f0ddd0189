// Package qrcode serves the general-purpose QR maker on the desktop page.
package qrcode

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"phonestorage/internal/pkg/qr"
	"phonestorage/internal/pkg/response"
)

const maxBody = 64 << 10

type Handler struct {
	renderer *qr.Renderer
	log      zerolog.Logger
}

func NewHandler(renderer *qr.Renderer, log zerolog.Logger) *Handler {
	return &Handler{renderer: renderer, log: log.With().Str("component", "qr_handler").Logger()}
}

// Generate handles POST /generate {text, size?}. A size that is not a
// number falls back to the default box size.
func (h *Handler) Generate(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil || !gjson.ValidBytes(body) {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body")
		return
	}

	text := gjson.GetBytes(body, "text").String()
	box := qr.ClampBoxSize(boxSize(gjson.GetBytes(body, "size")))

	dataURL, err := h.renderer.DataURL(text, box)
	if err != nil {
		if errors.Is(err, qr.ErrEmptyText) {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("qr render failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to generate QR")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": dataURL})
}

func boxSize(v gjson.Result) *int {
	switch v.Type {
	case gjson.Number:
		n := int(v.Int())
		return &n
	case gjson.String:
		n, err := strconv.Atoi(v.Str)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.POST("/generate", h.Generate)
}
