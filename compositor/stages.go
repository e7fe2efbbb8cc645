package compositor

import (
	"image"
	"math"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
)

// Rec. 709 亮度权重
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Tone 亮度、对比度、饱和度，只作用于 RGB
// 亮度: v*b；对比度: (v-128)*c+128；饱和度: 向亮度灰插值。每一步之后截断到 [0,255]，最后统一取整
func Tone(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if adj.Brightness == 100 && adj.Contrast == 100 && adj.Saturation == 100 {
		return img
	}
	b := float64(adj.Brightness) / 100
	c := float64(adj.Contrast) / 100
	s := float64(adj.Saturation) / 100

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		r := clampF(float64(pix[i]) * b)
		g := clampF(float64(pix[i+1]) * b)
		bl := clampF(float64(pix[i+2]) * b)

		r = clampF((r-128)*c + 128)
		g = clampF((g-128)*c + 128)
		bl = clampF((bl-128)*c + 128)

		if s != 1 {
			l := lumR*r + lumG*g + lumB*bl
			r = clampF(l + (r-l)*s)
			g = clampF(l + (g-l)*s)
			bl = clampF(l + (bl-l)*s)
		}

		pix[i] = round8(r)
		pix[i+1] = round8(g)
		pix[i+2] = round8(bl)
	}
	return img
}

// EdgeContrast 把 alpha 当作灰度蒙版，以 50% 不透明度为中心做线性对比度
func EdgeContrast(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if adj.EdgeContrast == 100 {
		return img
	}
	k := float64(adj.EdgeContrast) / 100
	var lut [256]uint8
	for a := range lut {
		lut[a] = round8(clampF((float64(a)-128)*k + 128))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = lut[img.Pix[i]]
	}
	return img
}

// ColorBalance 各通道独立线性增益，在色调调整之后执行，超出 255 截断
func ColorBalance(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	if !adj.HasColorBalance() {
		return img
	}
	gains := [3]float64{
		float64(adj.RedBalance) / 100,
		float64(adj.GreenBalance) / 100,
		float64(adj.BlueBalance) / 100,
	}
	var luts [3][256]uint8
	for ch, g := range gains {
		for v := range luts[ch] {
			luts[ch][v] = round8(math.Min(255, float64(v)*g))
		}
	}
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = luts[0][pix[i]]
		pix[i+1] = luts[1][pix[i+1]]
		pix[i+2] = luts[2][pix[i+2]]
	}
	return img
}

// ApplyMask 最终 alpha = alpha × (1 − 蒙版值)
func ApplyMask(img *image.NRGBA, mask *pixel.MaskLayer) {
	if mask.IsEmpty() {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	m := mask.Pix()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			v := uint32(m[y*w+x])
			if v == 0 {
				continue
			}
			a := uint32(row[x*4+3])
			row[x*4+3] = uint8((a*(255-v) + 127) / 255)
		}
	}
}

func clampF(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func round8(v float64) uint8 {
	return uint8(math.Round(clampF(v)))
}
