package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/service"
	"github.com/TIANLI0/CutoutStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProjectHandler 项目的上传、历史和保存
type ProjectHandler struct {
	cfg    *config.Config
	editor *service.Editor
}

func NewProjectHandler(cfg *config.Config, editor *service.Editor) *ProjectHandler {
	return &ProjectHandler{cfg: cfg, editor: editor}
}

// Upload 处理图片上传，成功后成为当前项目
func (h *ProjectHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	// 验证文件大小
	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型",
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, err, "读取文件失败")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err, "读取文件失败")
		return
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", utils.BytesMD5(data)),
		zap.Int64("size", file.Size))

	view, err := h.editor.Upload(file.Filename, contentType, data)
	if err != nil {
		respondError(c, err, "图片解码失败")
		return
	}

	c.JSON(http.StatusOK, model.ProjectResponse{
		Success: true,
		Message: "上传成功",
		Data:    view,
	})
}

// Current 当前项目
func (h *ProjectHandler) Current(c *gin.Context) {
	view, err := h.editor.Current()
	if err != nil {
		respondError(c, err, "没有打开的项目")
		return
	}
	c.JSON(http.StatusOK, model.ProjectResponse{Success: true, Message: "查询成功", Data: view})
}

// History 历史项目列表
func (h *ProjectHandler) History(c *gin.Context) {
	entries, err := h.editor.History(c.Request.Context())
	if err != nil {
		utils.Logger.Error("failed to list history", zap.Error(err))
		respondError(c, err, "查询失败")
		return
	}
	c.JSON(http.StatusOK, model.HistoryResponse{Success: true, Message: "查询成功", Data: entries})
}

// Load 从历史载入项目，当前项目有未保存修改时需要 confirm=true
func (h *ProjectHandler) Load(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "项目ID参数缺失",
		})
		return
	}

	confirmed := c.DefaultQuery("confirm", "false") == "true"
	view, err := h.editor.Load(c.Request.Context(), id, confirmed)
	if err != nil {
		respondError(c, err, "载入项目失败")
		return
	}
	c.JSON(http.StatusOK, model.ProjectResponse{Success: true, Message: "载入成功", Data: view})
}

// Delete 从历史删除项目
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.editor.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "删除失败")
		return
	}
	c.JSON(http.StatusOK, model.ErrorResponse{Success: true, Message: "删除成功"})
}

// Save 保存当前项目到历史
func (h *ProjectHandler) Save(c *gin.Context) {
	view, err := h.editor.Save(c.Request.Context())
	if err != nil {
		respondError(c, err, "保存失败")
		return
	}
	c.JSON(http.StatusOK, model.ProjectResponse{Success: true, Message: "保存成功", Data: view})
}

func (h *ProjectHandler) isAllowedType(contentType string) bool {
	// multipart 未声明类型时交给解码器判断
	if contentType == "" || contentType == "application/octet-stream" {
		return true
	}
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
