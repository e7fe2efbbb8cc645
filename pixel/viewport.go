package pixel

// 缩放范围 0.2 ~ 4.0，步长 0.2，内部以步数保存避免浮点累积误差
const (
	zoomStep     = 0.2
	minZoomSteps = 1
	maxZoomSteps = 20
	oneZoomSteps = 5
)

// Viewport 显示坐标与缓冲区坐标之间的映射，每个图片面板各自独立
type Viewport struct {
	bufferW, bufferH   int
	displayW, displayH float64
	panX, panY         float64
	zoomSteps          int
}

// NewViewport 创建视口，初始显示尺寸等于缓冲区尺寸，缩放 1:1
func NewViewport(bufferW, bufferH int) *Viewport {
	return &Viewport{
		bufferW:   bufferW,
		bufferH:   bufferH,
		displayW:  float64(bufferW),
		displayH:  float64(bufferH),
		zoomSteps: oneZoomSteps,
	}
}

// SetDisplaySize 设置缩放为 1 时图片在屏幕上的显示尺寸
func (v *Viewport) SetDisplaySize(w, h float64) {
	if w > 0 {
		v.displayW = w
	}
	if h > 0 {
		v.displayH = h
	}
}

// SetPan 设置图片左上角在显示坐标系中的位置
func (v *Viewport) SetPan(x, y float64) {
	v.panX, v.panY = x, y
}

// Zoom 当前缩放倍数
func (v *Viewport) Zoom() float64 {
	return float64(v.zoomSteps) * zoomStep
}

func (v *Viewport) ZoomIn() {
	v.zoomSteps = min(v.zoomSteps+1, maxZoomSteps)
}

func (v *Viewport) ZoomOut() {
	v.zoomSteps = max(v.zoomSteps-1, minZoomSteps)
}

func (v *Viewport) ResetZoom() {
	v.zoomSteps = oneZoomSteps
}

// scale 每个显示像素对应的缓冲区像素数
func (v *Viewport) scale() (sx, sy float64) {
	z := v.Zoom()
	return float64(v.bufferW) / (v.displayW * z), float64(v.bufferH) / (v.displayH * z)
}

// ToBuffer 将显示坐标映射到缓冲区坐标
func (v *Viewport) ToBuffer(x, y float64) Point {
	sx, sy := v.scale()
	return Point{X: (x - v.panX) * sx, Y: (y - v.panY) * sy}
}

// ToDisplay 将缓冲区坐标映射回显示坐标
func (v *Viewport) ToDisplay(p Point) (x, y float64) {
	sx, sy := v.scale()
	return p.X/sx + v.panX, p.Y/sy + v.panY
}

// BrushToBuffer 将屏幕上的笔刷直径换算为缓冲区像素
func (v *Viewport) BrushToBuffer(size float64) float64 {
	sx, _ := v.scale()
	return size * sx
}
