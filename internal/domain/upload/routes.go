package upload

import "github.com/gin-gonic/gin"

// RegisterRoutes registers storage routes. They are keyed by token only:
// any well-formed token gets its own directory on first upload.
func RegisterRoutes(r gin.IRouter, h *Handler) {
	storage := r.Group("/storage")
	{
		storage.POST("/upload/:token", h.Upload)
		storage.GET("/list/:token", h.List)
		storage.GET("/structure/:token", h.Structure)
		storage.GET("/stats/:token", h.Stats)
		storage.GET("/download/:token/:filename", h.Download)
	}

	r.GET("/uploads/:token/*filepath", h.Serve)
	r.GET("/api/gallery/:token", h.Gallery)
	r.POST("/api/admin/cleanup-uploads", h.CleanupUploads)
}
