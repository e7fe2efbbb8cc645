package compositor

import (
	"image"

	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// ViewMode 预览显示模式，只用于检查边缘，不是导出格式
type ViewMode string

const (
	ViewStandard ViewMode = "standard"
	ViewMask     ViewMode = "mask"
	ViewOverlay  ViewMode = "overlay"
)

// ParseViewMode 未知模式按 standard 处理
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewMask, ViewOverlay:
		return ViewMode(s)
	default:
		return ViewStandard
	}
}

var rubylith = colorful.Color{R: 0.85, G: 0.05, B: 0.1}

const rubylithStrength = 0.7

// View 按模式生成诊断视图
func View(buf *pixel.Buffer, mode ViewMode) *pixel.Buffer {
	switch mode {
	case ViewMask:
		return MaskView(buf)
	case ViewOverlay:
		return OverlayView(buf)
	default:
		return buf
	}
}

// MaskView alpha 通道显示为黑底白色
func MaskView(buf *pixel.Buffer) *pixel.Buffer {
	out := pixel.NewBuffer(buf.Width(), buf.Height())
	src, dst := buf.Image().Pix, out.Image().Pix
	for i := 0; i < len(src); i += 4 {
		a := src[i+3]
		dst[i], dst[i+1], dst[i+2], dst[i+3] = a, a, a, 255
	}
	return out
}

// OverlayView 透明区域覆盖红色（rubylith），不透明区域保持原色
func OverlayView(buf *pixel.Buffer) *pixel.Buffer {
	out := pixel.NewBuffer(buf.Width(), buf.Height())
	src, dst := buf.Image().Pix, out.Image().Pix
	for i := 0; i < len(src); i += 4 {
		c := colorful.Color{R: float64(src[i]) / 255, G: float64(src[i+1]) / 255, B: float64(src[i+2]) / 255}
		t := (1 - float64(src[i+3])/255) * rubylithStrength
		r, g, b := c.BlendRgb(rubylith, t).Clamped().RGB255()
		dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, 255
	}
	return out
}

// Preview 将渲染结果缩小到最长边不超过 maxSize 用于显示，像素处理仍在原始分辨率完成
func Preview(buf *pixel.Buffer, maxSize int) *pixel.Buffer {
	w, h := buf.Width(), buf.Height()
	maxDim := max(w, h)
	if maxSize <= 0 || maxDim <= maxSize {
		return buf
	}
	scale := float64(maxSize) / float64(maxDim)
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), buf.Image(), buf.Image().Bounds(), xdraw.Src, nil)
	return pixel.Wrap(dst)
}
