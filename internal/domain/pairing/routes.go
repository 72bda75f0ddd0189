package pairing

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	p := r.Group("/api/pairing")
	{
		p.POST("/generate", h.Generate)
		p.POST("/confirm", h.Confirm)
		p.GET("/devices", h.Devices)
		p.POST("/revoke/:token", h.Revoke)
		p.GET("/stats/:token", h.Stats)
	}

	r.POST("/api/sync/:token", h.Sync)

	admin := r.Group("/api/admin")
	{
		admin.POST("/cleanup-inactive", h.CleanupInactive)
		admin.GET("/paired-devices", h.PairedDevices)
	}
}
