package service

import (
	"gocv.io/x/gocv"
)

// SceneKind 场景复杂度等级，决定 GrabCut 的初始化方式和迭代次数
type SceneKind string

const (
	SceneSimple   SceneKind = "simple"
	SceneMedium   SceneKind = "medium"
	SceneComplex  SceneKind = "complex"
	ScenePortrait SceneKind = "portrait"
)

// SceneInfo 场景分析结果
type SceneInfo struct {
	Kind          SceneKind
	EdgeDensity   float64
	ColorVariance float64
}

// SceneAnalyzer 通过边缘密度、Lab 颜色方差和肤色比例给场景分级
type SceneAnalyzer struct {
	portrait *PortraitDetector
}

func NewSceneAnalyzer(portrait *PortraitDetector) *SceneAnalyzer {
	return &SceneAnalyzer{portrait: portrait}
}

// Analyze 分析 BGR 图像
func (a *SceneAnalyzer) Analyze(img *gocv.Mat) SceneInfo {
	info := SceneInfo{
		EdgeDensity:   a.edgeDensity(img),
		ColorVariance: a.colorVariance(img),
	}

	switch {
	case a.portrait.IsPortrait(img):
		info.Kind = ScenePortrait
	case info.EdgeDensity < 0.05 && info.ColorVariance < 30:
		info.Kind = SceneSimple
	case info.EdgeDensity > 0.15 || info.ColorVariance > 60:
		info.Kind = SceneComplex
	default:
		info.Kind = SceneMedium
	}
	return info
}

// Iterations 按场景调整 GrabCut 迭代次数
func (k SceneKind) Iterations(base int) int {
	switch k {
	case SceneSimple:
		return max(3, base-2)
	case ScenePortrait:
		return base + 1
	case SceneComplex:
		return base + 2
	default:
		return base
	}
}

// KernelSize 形态学优化的核大小
func (k SceneKind) KernelSize() int {
	if k == SceneComplex || k == ScenePortrait {
		return 5
	}
	return 3
}

// edgeDensity Canny 边缘像素占比
func (a *SceneAnalyzer) edgeDensity(img *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	total := float64(img.Rows() * img.Cols())
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(edges)) / total
}

// colorVariance Lab 三个通道标准差的平均值
func (a *SceneAnalyzer) colorVariance(img *gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*img, &lab, gocv.ColorBGRToLab)

	mean := gocv.NewMat()
	stddev := gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lab, &mean, &stddev)

	if stddev.Rows() == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < stddev.Rows(); i++ {
		sum += stddev.GetDoubleAt(i, 0)
	}
	return sum / float64(stddev.Rows())
}
