package events

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Hub) {
	r.GET("/ws/admin", func(c *gin.Context) {
		h.Serve(c.Writer, c.Request)
	})
}
