package pixel

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/TIANLI0/CutoutStudio/model"
)

// MaskLayer 用户手绘的擦除蒙版，尺寸与所覆盖的图片一致，首次落笔时才分配
// 像素值 0 表示无影响，255 表示完全擦除
type MaskLayer struct {
	width  int
	height int
	gray   *image.Gray
}

// NewMaskLayer 创建蒙版层，栅格延迟分配
func NewMaskLayer(width, height int) *MaskLayer {
	return &MaskLayer{width: width, height: height}
}

// Size 返回蒙版尺寸
func (m *MaskLayer) Size() image.Point {
	return image.Pt(m.width, m.height)
}

// Allocated 栅格是否已分配
func (m *MaskLayer) Allocated() bool {
	return m.gray != nil
}

func (m *MaskLayer) ensure() {
	if m.gray == nil {
		m.gray = image.NewGray(image.Rect(0, 0, m.width, m.height))
	}
}

// At 返回 (x, y) 处的原始值，越界返回 0
func (m *MaskLayer) At(x, y int) uint8 {
	if m.gray == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return 0
	}
	return m.gray.Pix[y*m.gray.Stride+x]
}

// Value 返回 [0,1] 范围的擦除强度
func (m *MaskLayer) Value(x, y int) float64 {
	return float64(m.At(x, y)) / 255
}

// Set 写入单个像素，越界忽略
func (m *MaskLayer) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.ensure()
	m.gray.Pix[y*m.gray.Stride+x] = v
}

// IsEmpty 未分配或全部为 0
func (m *MaskLayer) IsEmpty() bool {
	if m == nil || m.gray == nil {
		return true
	}
	for _, v := range m.gray.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Reset 清空蒙版并释放栅格
func (m *MaskLayer) Reset() {
	m.gray = nil
}

// Clone 深拷贝
func (m *MaskLayer) Clone() *MaskLayer {
	c := &MaskLayer{width: m.width, height: m.height}
	if m.gray != nil {
		c.gray = image.NewGray(m.gray.Rect)
		copy(c.gray.Pix, m.gray.Pix)
	}
	return c
}

// Pix 返回行优先的原始数据，未分配时返回 nil
func (m *MaskLayer) Pix() []uint8 {
	if m.gray == nil {
		return nil
	}
	return m.gray.Pix
}

// EncodePNG 将蒙版编码为灰度 PNG
func (m *MaskLayer) EncodePNG() ([]byte, error) {
	m.ensure()
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.gray); err != nil {
		return nil, fmt.Errorf("%w: mask: %v", model.ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// DecodeMask 从持久化的图片恢复蒙版
// 灰度图直接使用亮度；带透明度的图片（RGBA 作为蒙版）使用 alpha
func DecodeMask(data []byte, width, height int) (*MaskLayer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: mask: %v", model.ErrUnsupportedFormat, err)
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: mask %dx%d, image %dx%d",
			model.ErrDimensionMismatch, b.Dx(), b.Dy(), width, height)
	}

	m := NewMaskLayer(width, height)
	m.ensure()
	luminance := img.ColorModel() == color.GrayModel || img.ColorModel() == color.Gray16Model
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if luminance {
				m.gray.Pix[y*m.gray.Stride+x] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			_, _, _, a := c.RGBA()
			m.gray.Pix[y*m.gray.Stride+x] = uint8(a >> 8)
		}
	}
	if m.IsEmpty() {
		m.Reset()
	}
	return m, nil
}

// GrayImage 以灰度图形式返回蒙版（白色为擦除区域）
func (m *MaskLayer) GrayImage() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.width, m.height))
	if m.gray != nil {
		copy(out.Pix, m.gray.Pix)
	}
	return out
}
