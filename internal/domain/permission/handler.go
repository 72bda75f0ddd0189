package permission

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phonestorage/internal/pkg/response"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) All(c *gin.Context) {
	c.JSON(http.StatusOK, All(ParsePlatform(c.Query("platform"))))
}

func (h *Handler) Dangerous(c *gin.Context) {
	c.JSON(http.StatusOK, Dangerous(ParsePlatform(c.Query("platform"))))
}

func (h *Handler) Tips(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tips": Tips()})
}

func (h *Handler) Detail(c *gin.Context) {
	perm, err := Get(ParsePlatform(c.Query("platform")), c.Param("permission"))
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, perm)
}
