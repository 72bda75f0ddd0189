package permission

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler) {
	perms := r.Group("/api/permissions")
	{
		perms.GET("/all", h.All)
		perms.GET("/dangerous", h.Dangerous)
		perms.GET("/tips", h.Tips)
		perms.GET("/detail/:permission", h.Detail)
	}
}
