package model

import "encoding/json"

// Status 项目处理状态
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// EditingState 持久化的编辑状态，与 Adjustments 字段一一对应
type EditingState struct {
	Adjustments
	BrushMaskURL   *string `json:"brushMaskUrl"`
	CustomFilename string  `json:"customFilename"`
	IsAdvancedMode bool    `json:"isAdvancedMode"`
}

// UnmarshalJSON 从中性值开始解码，旧记录缺少的字段保持中性而不是零值
func (s *EditingState) UnmarshalJSON(data []byte) error {
	type plain EditingState
	decoded := plain{Adjustments: NeutralAdjustments()}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = EditingState(decoded)
	s.Adjustments = s.Adjustments.Clamp()
	return nil
}

// NewEditingState 由当前编辑参数构造持久化状态
func NewEditingState(adj Adjustments, maskURL *string, customFilename string, advanced bool) *EditingState {
	return &EditingState{
		Adjustments:    adj.Clamp(),
		BrushMaskURL:   maskURL,
		CustomFilename: customFilename,
		IsAdvancedMode: advanced,
	}
}

// ProjectRecord 项目的持久化形式，图片以 data URL 自包含保存
type ProjectRecord struct {
	ID           string        `json:"id"`
	OriginalURL  string        `json:"originalUrl"`
	ProcessedURL *string       `json:"processedUrl"`
	Status       Status        `json:"status"`
	Timestamp    int64         `json:"timestamp"`
	Filename     string        `json:"filename,omitempty"`
	EditingState *EditingState `json:"editingState,omitempty"`
}

// EditingAdjustments 返回记录中的编辑参数，没有编辑状态时返回中性值
func (r *ProjectRecord) EditingAdjustments() Adjustments {
	if r.EditingState == nil {
		return NeutralAdjustments()
	}
	return r.EditingState.Adjustments.Clamp()
}
