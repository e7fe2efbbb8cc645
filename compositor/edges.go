package compositor

import (
	"image"
	"math"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/disintegration/imaging"
)

// EdgeSmooth 对整个 RGBA 缓冲区做高斯模糊（sigma = edgeSmooth 像素），同时柔化颜色和透明边缘
func EdgeSmooth(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if adj.EdgeSmooth <= 0 {
		return img
	}
	return imaging.Blur(img, adj.EdgeSmooth)
}

// Feather 只模糊 alpha 通道，RGB 保持锐利
func Feather(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if adj.EdgeFeather <= 0 {
		return img
	}
	alpha := alphaGray(img)
	blurred := imaging.Blur(alpha, float64(adj.EdgeFeather))
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x*4+3] = blurred.Pix[y*blurred.Stride+x*4]
		}
	}
	return img
}

// EdgeShift 正值按半径膨胀 alpha（扩大不透明区域），负值腐蚀
func EdgeShift(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if adj.EdgeShift == 0 {
		return img
	}
	radius := adj.EdgeShift
	erode := radius < 0
	if erode {
		radius = -radius
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	alpha := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := img.Pix[y*img.Stride+x*4+3]
			if erode {
				a = 255 - a
			}
			alpha[y*w+x] = a
		}
	}

	out := dilateDisc(alpha, w, h, radius)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := out[y*w+x]
			if erode {
				a = 255 - a
			}
			img.Pix[y*img.Stride+x*4+3] = a
		}
	}
	return img
}

// dilateDisc 圆形结构元素的灰度膨胀
// 第 k 轮的行缓冲保存宽度为 2k+1 的水平滑动最大值，由上一轮相邻三点递推得到；
// 半宽为 k 的圆盘行在这一轮累加到输出，只保留两份行缓冲
func dilateDisc(src []uint8, w, h, radius int) []uint8 {
	rowsAt := make([][]int, radius+1)
	for dy := -radius; dy <= radius; dy++ {
		k := int(math.Floor(math.Sqrt(float64(radius*radius - dy*dy))))
		rowsAt[k] = append(rowsAt[k], dy)
	}

	out := make([]uint8, len(src))
	prev := src
	var cur, spare []uint8
	for k := 0; k <= radius; k++ {
		if k > 0 {
			if cur == nil {
				cur = make([]uint8, len(src))
			}
			for y := 0; y < h; y++ {
				off := y * w
				for x := 0; x < w; x++ {
					v := prev[off+x]
					if x > 0 {
						v = max(v, prev[off+x-1])
					}
					if x < w-1 {
						v = max(v, prev[off+x+1])
					}
					cur[off+x] = v
				}
			}
			// src 不能被覆盖，第一轮之后两份缓冲交替使用
			if k == 1 {
				prev, cur = cur, spare
			} else {
				prev, cur = cur, prev
			}
		}

		for _, dy := range rowsAt[k] {
			for y := 0; y < h; y++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				dst := out[y*w : (y+1)*w]
				row := prev[yy*w : (yy+1)*w]
				for x, v := range row {
					if v > dst[x] {
						dst[x] = v
					}
				}
			}
		}
	}
	return out
}

// alphaGray 将 alpha 通道提取为灰度图
func alphaGray(img *image.NRGBA) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*g.Stride+x] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	return g
}
