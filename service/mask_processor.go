package service

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MaskProcessor GrabCut 结果的后处理
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// Foreground 将 GrabCut 标签转换为二值前景掩码（确定前景和可能前景为 255）
func (mp *MaskProcessor) Foreground(labels *gocv.Mat) gocv.Mat {
	sure := gocv.NewMat()
	defer sure.Close()
	fg := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcForeground}, gocv.MatTypeCV8U)
	defer fg.Close()
	gocv.Compare(*labels, fg, &sure, gocv.CompareEQ)

	probable := gocv.NewMat()
	defer probable.Close()
	pr := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcProbableForeground}, gocv.MatTypeCV8U)
	defer pr.Close()
	gocv.Compare(*labels, pr, &probable, gocv.CompareEQ)

	out := gocv.NewMat()
	gocv.BitwiseOr(sure, probable, &out)
	return out
}

// Clean 开运算去掉孤立噪点，闭运算填补小孔
func (mp *MaskProcessor) Clean(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	return closed
}

// RefineEdges 轻微膨胀后模糊再二值化，去掉锯齿
func (mp *MaskProcessor) RefineEdges(mask *gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 2, Y: 2})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*mask, &dilated, kernel)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(dilated, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)

	out := gocv.NewMat()
	gocv.Threshold(blurred, &out, 127, 255, gocv.ThresholdBinary)
	return out
}

// KeepLargest 只保留面积最大的连通区域
func (mp *MaskProcessor) KeepLargest(mask *gocv.Mat) gocv.Mat {
	contours := gocv.FindContours(*mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return mask.Clone()
	}

	largest, largestArea := 0, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > largestArea {
			largest, largestArea = i, area
		}
	}

	out := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	out.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.DrawContours(&out, contours, largest, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return out
}

// ApplyAlpha 用二值掩码作为 alpha 通道，颜色取自原图；两者尺寸必须一致
func (mp *MaskProcessor) ApplyAlpha(src *image.NRGBA, mask *gocv.Mat) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, src.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = mask.GetUCharAt(y, x)
		}
	}
	return out
}
