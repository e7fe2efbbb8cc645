package service

import (
	"image"

	"gocv.io/x/gocv"
)

// GrabCut 掩码标签
const (
	gcBackground         = 0
	gcForeground         = 1
	gcProbableBackground = 2
	gcProbableForeground = 3
)

// SaliencyDetector 基于梯度的显著性检测，为 GrabCut 提供初始矩形和种子掩码
type SaliencyDetector struct{}

func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{}
}

// Map Sobel 梯度幅值经高斯模糊后做 Otsu 二值化
func (sd *SaliencyDetector) Map(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absX := gocv.NewMat()
	absY := gocv.NewMat()
	defer absX.Close()
	defer absY.Close()
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, &gradient)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)

	saliency := gocv.NewMat()
	gocv.Threshold(blurred, &saliency, 0, 255, gocv.ThresholdOtsu)
	return saliency
}

// SeedRect 最大显著区域的外接矩形，四周留 5% 余量；找不到时退回到去掉 10% 边框的矩形
func (sd *SaliencyDetector) SeedRect(saliency *gocv.Mat, width, height int) image.Rectangle {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 21, Y: 21})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		border := int(float64(width) * 0.1)
		return image.Rect(border, border, width-border, height-border)
	}

	var best image.Rectangle
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			bestArea = area
			best = gocv.BoundingRect(contours.At(i))
		}
	}

	pad := int(float64(best.Dx()) * 0.05)
	return image.Rect(
		max(0, best.Min.X-pad),
		max(0, best.Min.Y-pad),
		min(width, best.Max.X+pad),
		min(height, best.Max.Y+pad),
	)
}

// SeedMask 生成 GrabCut 初始掩码：3% 边框为确定背景，显著区域为可能前景，其余为可能背景
func (sd *SaliencyDetector) SeedMask(saliency *gocv.Mat, width, height int) gocv.Mat {
	mask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	mask.SetTo(gocv.NewScalar(gcProbableBackground, 0, 0, 0))

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 11, Y: 11})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	border := int(float64(width) * 0.03)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			switch {
			case x < border || x >= width-border || y < border || y >= height-border:
				mask.SetUCharAt(y, x, gcBackground)
			case dilated.GetUCharAt(y, x) > 128:
				mask.SetUCharAt(y, x, gcProbableForeground)
			}
		}
	}
	return mask
}
