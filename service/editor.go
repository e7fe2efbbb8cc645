package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TIANLI0/CutoutStudio/compositor"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/TIANLI0/CutoutStudio/utils"
	"go.uber.org/zap"
)

// Pane 图片面板，每个面板的缩放和平移独立
type Pane string

const (
	PaneOriginal  Pane = "original"
	PaneProcessed Pane = "processed"
)

// Valid 是否为已知面板
func (p Pane) Valid() bool {
	return p == PaneOriginal || p == PaneProcessed
}

// ZoomDirection 缩放方向
type ZoomDirection string

const (
	ZoomIn    ZoomDirection = "in"
	ZoomOut   ZoomDirection = "out"
	ZoomReset ZoomDirection = "reset"
)

// RenderResult 渲染结果，Version 为渲染时的输入版本
type RenderResult struct {
	Buffer  *pixel.Buffer
	Version uint64
	// Stale 渲染期间输入已经改变，结果未发布为预览
	Stale bool
}

// ExportResult 导出结果
type ExportResult struct {
	*compositor.Encoded
	Filename string
}

// extraction 进行中的抠图请求
type extraction struct {
	cancel    context.CancelFunc
	prev      model.Status
	cancelled bool
}

// Editor 单用户编辑会话：同一时间只有一个当前项目
//
// 每次修改渲染输入都会递增版本号；渲染在锁外基于输入快照进行，
// 只有版本号比已发布预览更新的结果才会覆盖预览
type Editor struct {
	mu        sync.Mutex
	store     ProjectStore
	extractor Extractor

	current   *Project
	viewports map[Pane]*pixel.Viewport
	stroke    *pixel.Stroke
	strokeVP  *pixel.Viewport

	version      uint64
	savedVersion uint64

	preview        *pixel.Buffer
	previewVersion uint64

	extracting *extraction

	// saveMu 串行化写入，较旧的快照不会覆盖已写入的新快照
	saveMu    sync.Mutex
	persisted map[string]uint64

	tasks sync.WaitGroup
}

func NewEditor(store ProjectStore, extractor Extractor) *Editor {
	return &Editor{
		store:     store,
		extractor: extractor,
		viewports: make(map[Pane]*pixel.Viewport),
		persisted: make(map[string]uint64),
	}
}

// Upload 创建新项目并设为当前项目，无法解码时返回 model.ErrUnsupportedFormat 且不改变当前状态
func (e *Editor) Upload(filename, mimeType string, data []byte) (*model.ProjectView, error) {
	p, err := NewProject(filename, mimeType, data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.setCurrentLocked(p)
	utils.Logger.Info("project created",
		zap.String("project_id", p.ID),
		zap.String("filename", filename),
		zap.Int("width", p.Source.Width()),
		zap.Int("height", p.Source.Height()))
	return e.viewLocked(), nil
}

func (e *Editor) setCurrentLocked(p *Project) {
	if e.extracting != nil {
		e.extracting.cancelled = true
		e.extracting.cancel()
		e.extracting = nil
	}
	e.current = p
	e.stroke, e.strokeVP = nil, nil
	e.viewports = map[Pane]*pixel.Viewport{
		PaneOriginal:  pixel.NewViewport(p.Source.Width(), p.Source.Height()),
		PaneProcessed: pixel.NewViewport(p.Source.Width(), p.Source.Height()),
	}
	e.preview = nil
	e.touchLocked()
}

// touchLocked 渲染输入发生变化
func (e *Editor) touchLocked() {
	e.version++
	if e.current != nil {
		e.current.Modified = time.Now()
	}
}

// Current 当前项目概要
func (e *Editor) Current() (*model.ProjectView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	return e.viewLocked(), nil
}

func (e *Editor) viewLocked() *model.ProjectView {
	v := e.current.View()
	v.Version = e.version
	v.Unsaved = e.version != e.savedVersion
	return v
}

// HasUnsavedChanges 当前项目是否有未保存的修改
func (e *Editor) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.version != e.savedVersion
}

// UpdateAdjustments 编辑参数的唯一更新入口，越界值被截断
func (e *Editor) UpdateAdjustments(patch model.AdjustmentPatch) (*model.ProjectView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	e.current.Adjustments = patch.Apply(e.current.Adjustments)
	e.touchLocked()
	return e.viewLocked(), nil
}

// ResetAdjustments 恢复中性参数，蒙版不受影响
func (e *Editor) ResetAdjustments() (*model.ProjectView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	e.current.Adjustments = model.NeutralAdjustments()
	e.touchLocked()
	return e.viewLocked(), nil
}

// UpdateSettings 修改导出文件名和高级模式，nil 表示不修改
func (e *Editor) UpdateSettings(customFilename *string, advanced *bool) (*model.ProjectView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	if customFilename != nil {
		e.current.CustomFilename = *customFilename
	}
	if advanced != nil {
		e.current.AdvancedMode = *advanced
	}
	e.touchLocked()
	return e.viewLocked(), nil
}

// SetViewport 设置面板的显示尺寸和平移
func (e *Editor) SetViewport(pane Pane, displayW, displayH, panX, panY float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	vp, err := e.viewportLocked(pane)
	if err != nil {
		return err
	}
	vp.SetDisplaySize(displayW, displayH)
	vp.SetPan(panX, panY)
	return nil
}

// Zoom 调整面板缩放，返回新的缩放倍数
func (e *Editor) Zoom(pane Pane, dir ZoomDirection) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vp, err := e.viewportLocked(pane)
	if err != nil {
		return 0, err
	}
	switch dir {
	case ZoomIn:
		vp.ZoomIn()
	case ZoomOut:
		vp.ZoomOut()
	default:
		vp.ResetZoom()
	}
	return vp.Zoom(), nil
}

func (e *Editor) viewportLocked(pane Pane) (*pixel.Viewport, error) {
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	vp, ok := e.viewports[pane]
	if !ok {
		return nil, fmt.Errorf("unknown pane %q", pane)
	}
	return vp, nil
}

// BeginStroke 在显示坐标 (x, y) 处落笔，笔刷直径按面板的显示/缓冲区比例换算
func (e *Editor) BeginStroke(pane Pane, mode pixel.BrushMode, x, y, displayBrushSize float64) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown brush mode %q", mode)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	vp, err := e.viewportLocked(pane)
	if err != nil {
		return err
	}
	e.strokeVP = vp
	e.stroke = e.current.Mask.BeginStroke(mode, vp.BrushToBuffer(displayBrushSize), vp.ToBuffer(x, y))
	e.touchLocked()
	return nil
}

// ContinueStroke 没有进行中的笔画时忽略
func (e *Editor) ContinueStroke(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return model.ErrNoProject
	}
	if e.stroke == nil {
		return nil
	}
	e.stroke.ContinueStroke(e.strokeVP.ToBuffer(x, y))
	e.touchLocked()
	return nil
}

// EndStroke 结束笔画，有像素被修改时在后台保存项目快照
func (e *Editor) EndStroke() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return model.ErrNoProject
	}
	if e.stroke == nil {
		return nil
	}
	painted := e.stroke.EndStroke()
	e.stroke, e.strokeVP = nil, nil
	if painted {
		e.snapshotAsyncLocked()
	}
	return nil
}

// ClearMask 清空蒙版
func (e *Editor) ClearMask() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return model.ErrNoProject
	}
	e.current.Mask.Reset()
	e.stroke, e.strokeVP = nil, nil
	e.touchLocked()
	return nil
}

// renderInputs 渲染输入快照
type renderInputs struct {
	project   *Project
	source    *pixel.Buffer
	extracted *pixel.Buffer
	adj       model.Adjustments
	mask      *pixel.MaskLayer
	version   uint64
}

func (e *Editor) snapshotInputsLocked() (*renderInputs, error) {
	if e.current == nil {
		return nil, model.ErrNoProject
	}
	p := e.current
	return &renderInputs{
		project:   p,
		source:    p.Source,
		extracted: p.Extracted,
		adj:       p.Adjustments.ForMode(p.AdvancedMode),
		mask:      p.Mask.Clone(),
		version:   e.version,
	}, nil
}

// Render 渲染当前项目；按版本号决定是否发布为预览，不按完成顺序
func (e *Editor) Render(ctx context.Context) (*RenderResult, error) {
	e.mu.Lock()
	in, err := e.snapshotInputsLocked()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out, err := compositor.Render(ctx, in.source, in.extracted, in.adj, in.mask)
	if err != nil {
		e.handleRenderError(in, err)
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	res := &RenderResult{Buffer: out, Version: in.version, Stale: in.version != e.version}
	if e.current == in.project && (e.preview == nil || in.version > e.previewVersion) {
		e.preview, e.previewVersion = out, in.version
	}
	return res, nil
}

// handleRenderError 尺寸不一致说明蒙版已损坏，重置蒙版后会话可以继续
func (e *Editor) handleRenderError(in *renderInputs, err error) {
	if !errors.Is(err, model.ErrDimensionMismatch) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := in.project
	if e.current != p {
		return
	}
	utils.Logger.Warn("render dimension mismatch, resetting mask",
		zap.String("project_id", p.ID), zap.Error(err))
	p.Mask = pixel.NewMaskLayer(p.Source.Width(), p.Source.Height())
	e.stroke, e.strokeVP = nil, nil
	e.touchLocked()
}

// Preview 最近发布的预览及其版本号
func (e *Editor) Preview() (*pixel.Buffer, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview, e.previewVersion
}

// StartExtraction 在后台开始抠图；已有请求进行中时返回 model.ErrExtractionInProgress
func (e *Editor) StartExtraction(keepMask bool) error {
	job, err := e.beginExtraction(context.Background(), keepMask)
	if err != nil {
		return err
	}
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		_ = job.run()
	}()
	return nil
}

// Extract 同步执行一次抠图，失败时项目状态为 error，原图和编辑参数保持不变
func (e *Editor) Extract(ctx context.Context, keepMask bool) error {
	job, err := e.beginExtraction(ctx, keepMask)
	if err != nil {
		return err
	}
	return job.run()
}

// CancelExtraction 取消进行中的抠图，项目恢复到请求前的状态
func (e *Editor) CancelExtraction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.extracting == nil {
		return false
	}
	e.extracting.cancelled = true
	e.extracting.cancel()
	return true
}

type extractJob struct {
	editor   *Editor
	ctx      context.Context
	project  *Project
	state    *extraction
	data     []byte
	mime     string
	keepMask bool
}

func (e *Editor) beginExtraction(ctx context.Context, keepMask bool) (*extractJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.current
	if p == nil {
		return nil, model.ErrNoProject
	}
	if p.Status == model.StatusProcessing {
		return nil, model.ErrExtractionInProgress
	}

	ctx, cancel := context.WithCancel(ctx)
	state := &extraction{cancel: cancel, prev: p.Status}
	e.extracting = state
	p.Status = model.StatusProcessing
	p.LastError = ""

	utils.Logger.Info("extraction started", zap.String("project_id", p.ID))
	return &extractJob{
		editor:   e,
		ctx:      ctx,
		project:  p,
		state:    state,
		data:     p.SourceData,
		mime:     p.SourceMIME,
		keepMask: keepMask,
	}, nil
}

func (j *extractJob) run() error {
	start := time.Now()
	out, err := j.editor.extractor.Extract(j.ctx, j.data, j.mime)

	var buf *pixel.Buffer
	if err == nil {
		buf, err = j.decode(out)
	}
	j.state.cancel()

	e := j.editor
	e.mu.Lock()
	if e.extracting == j.state {
		e.extracting = nil
	}
	p := j.project

	if j.state.cancelled {
		p.Status = j.state.prev
		e.mu.Unlock()
		utils.Logger.Info("extraction cancelled", zap.String("project_id", p.ID))
		return context.Canceled
	}

	if err != nil {
		if !errors.Is(err, model.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
		}
		p.Status = model.StatusError
		p.LastError = err.Error()
		e.mu.Unlock()
		utils.Logger.Error("extraction failed",
			zap.String("project_id", p.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}

	p.Extracted, p.ExtractedData = buf, out
	if !j.keepMask {
		p.Mask.Reset()
	}
	p.Status = model.StatusCompleted
	isCurrent := e.current == p
	if isCurrent {
		e.stroke, e.strokeVP = nil, nil
		e.touchLocked()
	}
	rec, version, recErr := e.recordLocked(p)
	e.mu.Unlock()

	utils.Logger.Info("extraction completed",
		zap.String("project_id", p.ID),
		zap.Duration("duration", time.Since(start)))

	if recErr != nil {
		utils.Logger.Warn("failed to snapshot project", zap.String("project_id", p.ID), zap.Error(recErr))
		return nil
	}
	e.persist(context.Background(), rec, version, isCurrent)
	return nil
}

// decode 校验抠图结果能解码且与原图尺寸一致
func (j *extractJob) decode(data []byte) (*pixel.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", model.ErrExtractionFailed)
	}
	buf, _, err := pixel.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrExtractionFailed, err)
	}
	if buf.Size() != j.project.Source.Size() {
		return nil, fmt.Errorf("%w: %w: extracted %v, source %v",
			model.ErrExtractionFailed, model.ErrDimensionMismatch, buf.Size(), j.project.Source.Size())
	}
	return buf, nil
}

// recordLocked 生成项目快照及对应的版本号
func (e *Editor) recordLocked(p *Project) (*model.ProjectRecord, uint64, error) {
	rec, err := p.ToRecord()
	if err != nil {
		return nil, 0, err
	}
	return rec, e.version, nil
}

// persist 写入存储，成功且项目仍为当前项目时更新已保存版本
func (e *Editor) persist(ctx context.Context, rec *model.ProjectRecord, version uint64, isCurrent bool) error {
	e.saveMu.Lock()
	if version < e.persisted[rec.ID] {
		e.saveMu.Unlock()
		return nil
	}
	err := e.store.Save(ctx, rec)
	if err == nil {
		e.persisted[rec.ID] = version
	}
	e.saveMu.Unlock()
	if err != nil {
		utils.Logger.Warn("failed to save project", zap.String("project_id", rec.ID), zap.Error(err))
		return err
	}
	if !isCurrent {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && e.current.ID == rec.ID && version > e.savedVersion {
		e.savedVersion = version
	}
	return nil
}

// snapshotAsyncLocked 后台保存，不阻塞调用方，也不改变用户可见的状态
func (e *Editor) snapshotAsyncLocked() {
	rec, version, err := e.recordLocked(e.current)
	if err != nil {
		utils.Logger.Warn("failed to snapshot project", zap.String("project_id", e.current.ID), zap.Error(err))
		return
	}
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		_ = e.persist(context.Background(), rec, version, true)
	}()
}

// Save 同步保存当前项目
func (e *Editor) Save(ctx context.Context) (*model.ProjectView, error) {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return nil, model.ErrNoProject
	}
	rec, version, err := e.recordLocked(e.current)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := e.persist(ctx, rec, version, true); err != nil {
		return nil, err
	}
	return e.Current()
}

// Export 先同步保存项目，再渲染并编码；保存失败只记录警告，不影响导出
func (e *Editor) Export(ctx context.Context) (*ExportResult, error) {
	e.mu.Lock()
	in, err := e.snapshotInputsLocked()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	rec, version, recErr := e.recordLocked(in.project)
	filename := in.project.CustomFilename
	e.mu.Unlock()

	if recErr == nil {
		_ = e.persist(ctx, rec, version, true)
	}

	enc, err := compositor.Export(ctx, in.source, in.extracted, in.adj, in.mask)
	if err != nil {
		e.handleRenderError(in, err)
		utils.Logger.Error("export failed", zap.String("project_id", in.project.ID), zap.Error(err))
		return nil, err
	}
	utils.Logger.Info("project exported",
		zap.String("project_id", in.project.ID),
		zap.String("format", string(enc.Format)),
		zap.Int("bytes", len(enc.Data)))

	return &ExportResult{
		Encoded:  enc,
		Filename: utils.SanitizeFilename(filename) + "." + enc.Ext,
	}, nil
}

// Load 从历史中载入项目。当前项目有未保存修改且不是同一个项目时，需要 confirmed 为 true
func (e *Editor) Load(ctx context.Context, id string, confirmed bool) (*model.ProjectView, error) {
	e.mu.Lock()
	unsaved := e.current != nil && e.current.ID != id && e.version != e.savedVersion
	e.mu.Unlock()
	if unsaved && !confirmed {
		return nil, model.ErrUnsavedChanges
	}

	rec, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := ProjectFromRecord(rec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setCurrentLocked(p)
	e.savedVersion = e.version
	utils.Logger.Info("project loaded", zap.String("project_id", p.ID))
	return e.viewLocked(), nil
}

// History 历史项目列表，最近使用的在前
func (e *Editor) History(ctx context.Context) ([]model.HistoryEntry, error) {
	recs, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.HistoryEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.HistoryEntry{
			ID:        r.ID,
			Filename:  r.Filename,
			Status:    r.Status,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}

// DeleteProject 从历史中删除项目，不影响当前正在编辑的项目
func (e *Editor) DeleteProject(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Close 取消进行中的抠图并等待后台保存完成
func (e *Editor) Close() {
	e.mu.Lock()
	if e.extracting != nil {
		e.extracting.cancelled = true
		e.extracting.cancel()
	}
	e.mu.Unlock()
	e.tasks.Wait()
}
