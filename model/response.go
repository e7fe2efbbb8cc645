package model

// ProjectView 当前项目概要
type ProjectView struct {
	ID             string      `json:"id"`
	Filename       string      `json:"filename"`
	Status         Status      `json:"status"`
	Error          string      `json:"error,omitempty"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	HasExtraction  bool        `json:"has_extraction"`
	HasMask        bool        `json:"has_mask"`
	Adjustments    Adjustments `json:"adjustments"`
	CustomFilename string      `json:"custom_filename"`
	AdvancedMode   bool        `json:"advanced_mode"`
	Version        uint64      `json:"version"`
	Unsaved        bool        `json:"unsaved"`
	Timestamp      int64       `json:"timestamp"`
}

// HistoryEntry 历史记录中的单个项目
type HistoryEntry struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    Status `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *ProjectView `json:"data,omitempty"`
}

// HistoryResponse 历史列表响应
type HistoryResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    []HistoryEntry `json:"data"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
