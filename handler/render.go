package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/TIANLI0/CutoutStudio/compositor"
	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/service"
	"github.com/TIANLI0/CutoutStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RenderHandler 预览和导出
type RenderHandler struct {
	cfg    *config.Config
	editor *service.Editor
}

func NewRenderHandler(cfg *config.Config, editor *service.Editor) *RenderHandler {
	return &RenderHandler{cfg: cfg, editor: editor}
}

// Preview 渲染当前项目并返回 PNG；view 为 standard/mask/overlay，max 限制最长边
func (h *RenderHandler) Preview(c *gin.Context) {
	maxSize := h.cfg.Preview.MaxSize
	if s := c.Query("max"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			badRequest(c, err)
			return
		}
		maxSize = v
	}

	res, err := h.editor.Render(c.Request.Context())
	if err != nil {
		respondError(c, err, "渲染失败")
		return
	}

	view := compositor.View(res.Buffer, compositor.ParseViewMode(c.Query("view")))
	enc, err := compositor.Encode(compositor.Preview(view, maxSize), model.FormatPNG, 0)
	if err != nil {
		utils.Logger.Error("failed to encode preview", zap.Error(err))
		respondError(c, err, "渲染失败")
		return
	}

	c.Header("X-Render-Version", strconv.FormatUint(res.Version, 10))
	c.Header("X-Render-Stale", strconv.FormatBool(res.Stale))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, enc.MIME, enc.Data)
}

// Export 以完整分辨率导出，导出前项目会同步保存
func (h *RenderHandler) Export(c *gin.Context) {
	res, err := h.editor.Export(c.Request.Context())
	if err != nil {
		respondError(c, err, "导出失败")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.MIME, res.Data)
}
