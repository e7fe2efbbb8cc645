package service

import (
	"fmt"
	"time"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/TIANLI0/CutoutStudio/utils"
	"go.uber.org/zap"
)

// Project 编辑中的项目：原图和抠图结果只读，编辑参数和蒙版归项目独占
type Project struct {
	ID       string
	Filename string

	Source     *pixel.Buffer
	SourceData []byte
	SourceMIME string

	Extracted     *pixel.Buffer
	ExtractedData []byte

	Status    model.Status
	LastError string

	Adjustments    model.Adjustments
	Mask           *pixel.MaskLayer
	CustomFilename string
	AdvancedMode   bool

	Created  time.Time
	Modified time.Time
}

// NewProject 从上传的图片创建项目，解码失败时不会创建项目
func NewProject(filename, mimeType string, data []byte) (*Project, error) {
	src, format, err := pixel.Decode(data)
	if err != nil {
		return nil, err
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/" + format
	}
	now := time.Now()
	return &Project{
		ID:             utils.GenerateID(),
		Filename:       filename,
		Source:         src,
		SourceData:     data,
		SourceMIME:     mimeType,
		Status:         model.StatusIdle,
		Adjustments:    model.NeutralAdjustments(),
		Mask:           pixel.NewMaskLayer(src.Width(), src.Height()),
		CustomFilename: utils.DefaultExportName(filename),
		Created:        now,
		Modified:       now,
	}, nil
}

// ToRecord 序列化为持久化记录，图片编码为 data URL
func (p *Project) ToRecord() (*model.ProjectRecord, error) {
	rec := &model.ProjectRecord{
		ID:          p.ID,
		OriginalURL: utils.EncodeDataURL(p.SourceMIME, p.SourceData),
		Status:      p.Status,
		Timestamp:   p.Modified.UnixMilli(),
		Filename:    p.Filename,
	}
	if p.ExtractedData != nil {
		url := utils.EncodeDataURL("image/png", p.ExtractedData)
		rec.ProcessedURL = &url
	}

	var maskURL *string
	if !p.Mask.IsEmpty() {
		data, err := p.Mask.EncodePNG()
		if err != nil {
			return nil, err
		}
		url := utils.EncodeDataURL("image/png", data)
		maskURL = &url
	}
	rec.EditingState = model.NewEditingState(p.Adjustments, maskURL, p.CustomFilename, p.AdvancedMode)
	return rec, nil
}

// ProjectFromRecord 从持久化记录恢复项目
// 抠图结果尺寸不一致时丢弃抠图结果，蒙版尺寸不一致或损坏时重置蒙版，两者都只记录警告
func ProjectFromRecord(rec *model.ProjectRecord) (*Project, error) {
	mime, data, err := utils.DecodeDataURL(rec.OriginalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: original: %v", model.ErrUnsupportedFormat, err)
	}
	src, _, err := pixel.Decode(data)
	if err != nil {
		return nil, err
	}

	modified := time.UnixMilli(rec.Timestamp)
	p := &Project{
		ID:             rec.ID,
		Filename:       rec.Filename,
		Source:         src,
		SourceData:     data,
		SourceMIME:     mime,
		Status:         rec.Status,
		Adjustments:    rec.EditingAdjustments(),
		Mask:           pixel.NewMaskLayer(src.Width(), src.Height()),
		CustomFilename: utils.DefaultExportName(rec.Filename),
		Created:        modified,
		Modified:       modified,
	}
	if p.Status == model.StatusProcessing || p.Status == "" {
		// 处理中的请求不会跨会话恢复
		p.Status = model.StatusIdle
	}

	if rec.ProcessedURL != nil {
		if err := p.restoreExtracted(*rec.ProcessedURL); err != nil {
			utils.Logger.Warn("discarding stored extraction", zap.String("project_id", rec.ID), zap.Error(err))
			p.Status = model.StatusIdle
		}
	}

	if s := rec.EditingState; s != nil {
		if s.CustomFilename != "" {
			p.CustomFilename = s.CustomFilename
		}
		p.AdvancedMode = s.IsAdvancedMode
		if s.BrushMaskURL != nil {
			if err := p.restoreMask(*s.BrushMaskURL); err != nil {
				utils.Logger.Warn("resetting stored mask", zap.String("project_id", rec.ID), zap.Error(err))
			}
		}
	}
	return p, nil
}

func (p *Project) restoreExtracted(url string) error {
	_, data, err := utils.DecodeDataURL(url)
	if err != nil {
		return err
	}
	buf, _, err := pixel.Decode(data)
	if err != nil {
		return err
	}
	if buf.Size() != p.Source.Size() {
		return fmt.Errorf("%w: extracted %v, source %v", model.ErrDimensionMismatch, buf.Size(), p.Source.Size())
	}
	p.Extracted, p.ExtractedData = buf, data
	return nil
}

func (p *Project) restoreMask(url string) error {
	_, data, err := utils.DecodeDataURL(url)
	if err != nil {
		return err
	}
	mask, err := pixel.DecodeMask(data, p.Source.Width(), p.Source.Height())
	if err != nil {
		return err
	}
	p.Mask = mask
	return nil
}

// View 返回当前项目概要
func (p *Project) View() *model.ProjectView {
	return &model.ProjectView{
		ID:             p.ID,
		Filename:       p.Filename,
		Status:         p.Status,
		Error:          p.LastError,
		Width:          p.Source.Width(),
		Height:         p.Source.Height(),
		HasExtraction:  p.Extracted != nil,
		HasMask:        !p.Mask.IsEmpty(),
		Adjustments:    p.Adjustments,
		CustomFilename: p.CustomFilename,
		AdvancedMode:   p.AdvancedMode,
		Timestamp:      p.Modified.UnixMilli(),
	}
}
