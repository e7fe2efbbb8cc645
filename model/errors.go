package model

import "errors"

// 错误类型，调用方通过 errors.Is 判断
var (
	// ErrExtractionFailed 抠图服务失败（网络、超时、响应中没有图片）
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrDimensionMismatch 蒙版或抠图结果与原图尺寸不一致
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedFormat 上传的图片无法解码
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEncodeFailed 导出编码失败
	ErrEncodeFailed = errors.New("encode failed")

	ErrExtractionInProgress = errors.New("extraction already in progress")
	ErrNoProject            = errors.New("no current project")
	ErrProjectNotFound      = errors.New("project not found")
	ErrUnsavedChanges       = errors.New("current project has unsaved changes")
)
