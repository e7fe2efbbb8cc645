package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/TIANLI0/CutoutStudio/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// grabCutWorkSize 分割在缩小后的图上进行，结果掩码再放大回原尺寸
const grabCutWorkSize = 1200

// GrabCutExtractor 基于 OpenCV GrabCut 的本地抠图，不依赖网络
type GrabCutExtractor struct {
	iterations        int
	borderSize        int
	maxForegroundOnly bool
	semaphore         chan struct{}
	queueTimeout      time.Duration
	scene             *SceneAnalyzer
	saliency          *SaliencyDetector
	portrait          *PortraitDetector
	masks             *MaskProcessor
}

func NewGrabCutExtractor(cfg *config.GrabCutConfig) *GrabCutExtractor {
	portrait := NewPortraitDetector()
	return &GrabCutExtractor{
		iterations:        cfg.Iterations,
		borderSize:        cfg.BorderSize,
		maxForegroundOnly: cfg.MaxForegroundOnly,
		semaphore:         make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout:      time.Duration(cfg.QueueTimeout) * time.Second,
		scene:             NewSceneAnalyzer(portrait),
		saliency:          NewSaliencyDetector(),
		portrait:          portrait,
		masks:             NewMaskProcessor(),
	}
}

// Extract 分割主体并返回带 alpha 的 PNG
func (s *GrabCutExtractor) Extract(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	// 并发控制
	queueCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("%w: processing queue is full", model.ErrExtractionFailed)
	}

	src, _, err := pixel.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}

	start := time.Now()
	alpha, err := s.segment(ctx, src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, alpha); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}

	utils.Logger.Info("grabcut extraction finished",
		zap.String("mime", mimeType),
		zap.Int("width", src.Width()),
		zap.Int("height", src.Height()),
		zap.Duration("duration", time.Since(start)))

	return buf.Bytes(), nil
}

// segment 返回与 src 同尺寸、alpha 为前景掩码的图片
func (s *GrabCutExtractor) segment(ctx context.Context, src *pixel.Buffer) (*image.NRGBA, error) {
	img, err := gocv.ImageToMatRGB(src.Image())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()
	scaled := s.smartResize(&img, grabCutWorkSize)
	defer scaled.Close()
	sw, sh := scaled.Cols(), scaled.Rows()

	info := s.scene.Analyze(&scaled)
	utils.Logger.Debug("scene analyzed",
		zap.String("kind", string(info.Kind)),
		zap.Float64("edge_density", info.EdgeDensity),
		zap.Float64("color_variance", info.ColorVariance))

	var rect image.Rectangle
	var labels gocv.Mat
	if info.Kind == SceneSimple {
		border := s.borderSize
		if border < 10 {
			border = int(float64(sw) * 0.05)
		}
		rect = image.Rect(border, border, sw-border, sh-border)
		labels = gocv.NewMat()
	} else {
		saliency := s.saliency.Map(&scaled)
		rect = s.saliency.SeedRect(&saliency, sw, sh)
		labels = s.saliency.SeedMask(&saliency, sw, sh)
		saliency.Close()
	}
	defer labels.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	if labels.Empty() {
		gocv.GrabCut(scaled, &labels, rect, &bgdModel, &fgdModel, info.Kind.Iterations(s.iterations), gocv.GCInitWithRect)
	} else {
		gocv.GrabCut(scaled, &labels, image.Rectangle{}, &bgdModel, &fgdModel, info.Kind.Iterations(s.iterations), gocv.GCInitWithMask)
	}
	if info.Kind != SceneSimple {
		gocv.GrabCut(scaled, &labels, image.Rectangle{}, &bgdModel, &fgdModel, 2, gocv.GCInitWithMask)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fg := s.masks.Foreground(&labels)
	replace := func(next gocv.Mat) {
		fg.Close()
		fg = next
	}
	defer func() { fg.Close() }()

	if info.Kind == ScenePortrait {
		replace(s.portrait.Enhance(&fg, &scaled))
	}
	replace(s.masks.Clean(&fg, info.Kind.KernelSize()))
	if info.Kind != SceneSimple {
		replace(s.masks.RefineEdges(&fg))
	}

	// 还原到原始尺寸
	if sw != width || sh != height {
		resized := gocv.NewMat()
		gocv.Resize(fg, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		binary := gocv.NewMat()
		gocv.Threshold(resized, &binary, 127, 255, gocv.ThresholdBinary)
		resized.Close()
		replace(binary)
	}

	if s.maxForegroundOnly {
		replace(s.masks.KeepLargest(&fg))
	}

	return s.masks.ApplyAlpha(src.Image(), &fg), nil
}

// smartResize 等比缩小到最长边不超过 maxSize
func (s *GrabCutExtractor) smartResize(img *gocv.Mat, maxSize int) gocv.Mat {
	width, height := img.Cols(), img.Rows()
	maxDim := max(width, height)
	if maxDim <= maxSize {
		return img.Clone()
	}

	scale := float64(maxSize) / float64(maxDim)
	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: int(float64(width) * scale), Y: int(float64(height) * scale)}, 0, 0, gocv.InterpolationArea)
	return resized
}
