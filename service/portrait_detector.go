package service

import (
	"image"

	"gocv.io/x/gocv"
)

// portraitSkinRatio 肤色像素占比超过该值视为人像
const portraitSkinRatio = 0.15

// PortraitDetector 基于 YCrCb 肤色范围的人像判断
type PortraitDetector struct{}

func NewPortraitDetector() *PortraitDetector {
	return &PortraitDetector{}
}

// SkinMask 返回肤色区域掩码（255 为肤色），经过闭运算和开运算去噪
func (pd *PortraitDetector) SkinMask(img *gocv.Mat) gocv.Mat {
	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	gocv.CvtColor(*img, &ycrcb, gocv.ColorBGRToYCrCb)

	lower := gocv.Scalar{Val1: 0, Val2: 133, Val3: 77, Val4: 0}
	upper := gocv.Scalar{Val1: 255, Val2: 173, Val3: 127, Val4: 255}

	skin := gocv.NewMat()
	gocv.InRangeWithScalar(ycrcb, lower, upper, &skin)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
	defer kernel.Close()
	gocv.MorphologyEx(skin, &skin, gocv.MorphClose, kernel)
	gocv.MorphologyEx(skin, &skin, gocv.MorphOpen, kernel)

	return skin
}

func (pd *PortraitDetector) IsPortrait(img *gocv.Mat) bool {
	skin := pd.SkinMask(img)
	defer skin.Close()

	total := float64(img.Rows() * img.Cols())
	if total == 0 {
		return false
	}
	return float64(gocv.CountNonZero(skin))/total > portraitSkinRatio
}

// Enhance 将膨胀后的肤色区域并入前景掩码，避免脸部和手部被误删
func (pd *PortraitDetector) Enhance(fg, img *gocv.Mat) gocv.Mat {
	skin := pd.SkinMask(img)
	defer skin.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 15, Y: 15})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(skin, &dilated, kernel)

	out := gocv.NewMat()
	gocv.BitwiseOr(*fg, dilated, &out)
	return out
}
