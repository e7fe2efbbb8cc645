package handler

import (
	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/service"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 下的所有路由
func RegisterRoutes(api *gin.RouterGroup, cfg *config.Config, editor *service.Editor) {
	projects := NewProjectHandler(cfg, editor)
	edit := NewEditHandler(editor)
	render := NewRenderHandler(cfg, editor)

	api.POST("/projects", projects.Upload)
	api.GET("/projects", projects.History)
	api.POST("/projects/:id/load", projects.Load)
	api.DELETE("/projects/:id", projects.Delete)

	p := api.Group("/project")
	{
		p.GET("", projects.Current)
		p.POST("/save", projects.Save)

		p.POST("/extract", edit.Extract)
		p.DELETE("/extract", edit.CancelExtraction)

		p.PATCH("/adjustments", edit.UpdateAdjustments)
		p.POST("/adjustments/reset", edit.ResetAdjustments)
		p.PUT("/settings", edit.UpdateSettings)

		p.POST("/stroke/begin", edit.BeginStroke)
		p.POST("/stroke/continue", edit.ContinueStroke)
		p.POST("/stroke/end", edit.EndStroke)
		p.DELETE("/mask", edit.ClearMask)

		p.PUT("/viewport/:pane", edit.SetViewport)
		p.POST("/viewport/:pane/zoom", edit.Zoom)

		p.GET("/preview", render.Preview)
		p.GET("/export", render.Export)
	}
}
