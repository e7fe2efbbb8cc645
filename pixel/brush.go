package pixel

import (
	"image"
	"math"
)

// BrushMode 笔刷模式
type BrushMode string

const (
	// BrushErase 擦除，蒙版写入 255
	BrushErase BrushMode = "erase"
	// BrushRestore 恢复，蒙版写入 0
	BrushRestore BrushMode = "restore"
)

// Valid 是否为已知模式
func (m BrushMode) Valid() bool {
	return m == BrushErase || m == BrushRestore
}

func (m BrushMode) value() uint8 {
	if m == BrushErase {
		return 255
	}
	return 0
}

// Point 缓冲区坐标系中的浮点坐标
type Point struct {
	X, Y float64
}

// Stroke 一次连续的笔画：圆头、圆角连接的折线，足迹内直接覆盖写入
type Stroke struct {
	mask    *MaskLayer
	mode    BrushMode
	radius  float64
	last    Point
	painted bool
}

// BeginStroke 在 p 处落笔并绘制一个圆点
func (m *MaskLayer) BeginStroke(mode BrushMode, size float64, p Point) *Stroke {
	s := &Stroke{mask: m, mode: mode, radius: math.Max(size, 0) / 2, last: p}
	s.segment(p, p)
	return s
}

// ContinueStroke 从上一点连线到 p
func (s *Stroke) ContinueStroke(p Point) {
	s.segment(s.last, p)
	s.last = p
}

// EndStroke 结束笔画，返回是否有像素落在蒙版内
func (s *Stroke) EndStroke() bool {
	return s.painted
}

// Mode 笔画模式
func (s *Stroke) Mode() BrushMode { return s.mode }

// segment 绘制胶囊形状：像素中心到线段 a-b 的距离不超过半径即被覆盖
func (s *Stroke) segment(a, b Point) {
	if s.radius <= 0 {
		return
	}
	r := s.radius
	bounds := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-r)),
		int(math.Floor(math.Min(a.Y, b.Y)-r)),
		int(math.Ceil(math.Max(a.X, b.X)+r))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+r))+1,
	).Intersect(image.Rect(0, 0, s.mask.width, s.mask.height))
	if bounds.Empty() {
		return
	}

	v := s.mode.value()
	r2 := r * r
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := Point{float64(x) + 0.5, float64(y) + 0.5}
			if distSqToSegment(c, a, b) <= r2 {
				s.mask.Set(x, y, v)
				s.painted = true
			}
		}
	}
}

func distSqToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	ex := p.X - (a.X + t*dx)
	ey := p.Y - (a.Y + t*dy)
	return ex*ex + ey*ey
}
