// Package pixel 提供全分辨率 RGBA 缓冲区、蒙版层、笔刷和视口坐标映射
package pixel

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/TIANLI0/CutoutStudio/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Buffer 宽×高的非预乘 RGBA 栅格，原点固定在 (0,0)
type Buffer struct {
	img *image.NRGBA
}

// NewBuffer 创建全透明缓冲区
func NewBuffer(width, height int) *Buffer {
	return &Buffer{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage 将任意图片转换为缓冲区，总是复制像素
func FromImage(src image.Image) *Buffer {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			srcOff := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], n.Pix[srcOff:srcOff+b.Dx()*4])
		}
		return &Buffer{img: dst}
	}
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Buffer{img: dst}
}

// Wrap 直接持有给定图片，调用方不得再修改它
func Wrap(img *image.NRGBA) *Buffer {
	if img.Bounds().Min != (image.Point{}) {
		return FromImage(img)
	}
	return &Buffer{img: img}
}

// Decode 解码上传的图片，返回缓冲区和格式名
func Decode(data []byte) (*Buffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty image", model.ErrUnsupportedFormat)
	}
	return FromImage(img), format, nil
}

// Image 返回底层图片
func (b *Buffer) Image() *image.NRGBA { return b.img }

func (b *Buffer) Width() int  { return b.img.Rect.Dx() }
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// Size 返回 (宽, 高)
func (b *Buffer) Size() image.Point {
	return image.Pt(b.Width(), b.Height())
}

// Clone 深拷贝
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.img.Pix))
	copy(pix, b.img.Pix)
	return &Buffer{img: &image.NRGBA{Pix: pix, Stride: b.img.Stride, Rect: b.img.Rect}}
}

// Equal 尺寸和像素字节完全相同
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Size() == o.Size() && bytes.Equal(b.img.Pix, o.img.Pix)
}

// IsOpaque 所有像素 alpha 都为 255
func (b *Buffer) IsOpaque() bool {
	for i := 3; i < len(b.img.Pix); i += 4 {
		if b.img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// Opaque 返回 alpha 全部置为 255 的副本，颜色保持不变
func (b *Buffer) Opaque() *Buffer {
	c := b.Clone()
	for i := 3; i < len(c.img.Pix); i += 4 {
		c.img.Pix[i] = 0xff
	}
	return c
}
