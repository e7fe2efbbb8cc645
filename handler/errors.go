package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/gin-gonic/gin"
)

// statusFor 错误类型对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoProject), errors.Is(err, model.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrExtractionInProgress), errors.Is(err, model.ErrUnsavedChanges):
		return http.StatusConflict
	case errors.Is(err, model.ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, message string) {
	c.JSON(statusFor(err), model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Message: "请求参数错误",
		Error:   err.Error(),
	})
}
