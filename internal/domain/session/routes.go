package session

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.POST("/api/session/grant/:token", h.Grant)
	r.GET("/api/session/:token", h.Get)
	r.GET("/api/admin/sessions", h.AdminSessions)
	r.GET("/poll/:token", h.Poll)
}
