package handler

import (
	"net/http"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/TIANLI0/CutoutStudio/service"
	"github.com/gin-gonic/gin"
)

// EditHandler 抠图请求和所有编辑操作
type EditHandler struct {
	editor *service.Editor
}

func NewEditHandler(editor *service.Editor) *EditHandler {
	return &EditHandler{editor: editor}
}

type settingsRequest struct {
	CustomFilename *string `json:"custom_filename"`
	AdvancedMode   *bool   `json:"advanced_mode"`
}

type strokeBeginRequest struct {
	Pane string  `json:"pane" binding:"required,oneof=original processed"`
	Mode string  `json:"mode" binding:"required,oneof=erase restore"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size" binding:"required,gt=0"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type viewportRequest struct {
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
	PanX   float64 `json:"pan_x"`
	PanY   float64 `json:"pan_y"`
}

type zoomRequest struct {
	Direction string `json:"direction" binding:"required,oneof=in out reset"`
}

func (h *EditHandler) respondView(c *gin.Context, view *model.ProjectView, err error, failMsg string) {
	if err != nil {
		respondError(c, err, failMsg)
		return
	}
	c.JSON(http.StatusOK, model.ProjectResponse{Success: true, Message: "操作成功", Data: view})
}

func (h *EditHandler) respondCurrent(c *gin.Context, err error, failMsg string) {
	if err != nil {
		respondError(c, err, failMsg)
		return
	}
	view, err := h.editor.Current()
	h.respondView(c, view, err, failMsg)
}

// Extract 在后台开始抠图，客户端轮询 GET /project 获取状态
func (h *EditHandler) Extract(c *gin.Context) {
	keepMask := c.DefaultQuery("keep_mask", "false") == "true"
	if err := h.editor.StartExtraction(keepMask); err != nil {
		respondError(c, err, "无法开始抠图")
		return
	}
	view, err := h.editor.Current()
	if err != nil {
		respondError(c, err, "无法开始抠图")
		return
	}
	c.JSON(http.StatusAccepted, model.ProjectResponse{Success: true, Message: "抠图处理中", Data: view})
}

// CancelExtraction 取消进行中的抠图
func (h *EditHandler) CancelExtraction(c *gin.Context) {
	if !h.editor.CancelExtraction() {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Success: false, Message: "没有进行中的抠图"})
		return
	}
	c.JSON(http.StatusOK, model.ErrorResponse{Success: true, Message: "已取消"})
}

// UpdateAdjustments 局部更新编辑参数，越界值被截断
func (h *EditHandler) UpdateAdjustments(c *gin.Context) {
	var patch model.AdjustmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.editor.UpdateAdjustments(patch)
	h.respondView(c, view, err, "更新参数失败")
}

func (h *EditHandler) ResetAdjustments(c *gin.Context) {
	view, err := h.editor.ResetAdjustments()
	h.respondView(c, view, err, "重置参数失败")
}

func (h *EditHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.editor.UpdateSettings(req.CustomFilename, req.AdvancedMode)
	h.respondView(c, view, err, "更新设置失败")
}

// BeginStroke 坐标和笔刷大小均为显示坐标
func (h *EditHandler) BeginStroke(c *gin.Context) {
	var req strokeBeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.editor.BeginStroke(service.Pane(req.Pane), pixel.BrushMode(req.Mode), req.X, req.Y, req.Size)
	h.respondCurrent(c, err, "绘制失败")
}

func (h *EditHandler) ContinueStroke(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.editor.ContinueStroke(req.X, req.Y); err != nil {
		respondError(c, err, "绘制失败")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EditHandler) EndStroke(c *gin.Context) {
	h.respondCurrent(c, h.editor.EndStroke(), "绘制失败")
}

func (h *EditHandler) ClearMask(c *gin.Context) {
	h.respondCurrent(c, h.editor.ClearMask(), "清除蒙版失败")
}

// SetViewport 设置面板显示尺寸和平移
func (h *EditHandler) SetViewport(c *gin.Context) {
	pane, ok := parsePane(c)
	if !ok {
		return
	}
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.editor.SetViewport(pane, req.Width, req.Height, req.PanX, req.PanY); err != nil {
		respondError(c, err, "设置视口失败")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EditHandler) Zoom(c *gin.Context) {
	pane, ok := parsePane(c)
	if !ok {
		return
	}
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	zoom, err := h.editor.Zoom(pane, service.ZoomDirection(req.Direction))
	if err != nil {
		respondError(c, err, "缩放失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "zoom": zoom})
}

func parsePane(c *gin.Context) (service.Pane, bool) {
	pane := service.Pane(c.Param("pane"))
	if !pane.Valid() {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "未知的面板: " + string(pane),
		})
		return "", false
	}
	return pane, true
}
