// Package compositor 合成引擎：由原图、抠图结果、编辑参数和蒙版确定性地渲染输出
//
// 渲染顺序固定，各步骤不可交换：
//
//	选择底图 -> 色调 -> 边缘平滑 -> 边缘对比度 -> 边缘收缩/扩张 -> 羽化 -> 颜色平衡 -> 蒙版
package compositor

import (
	"context"
	"fmt"
	"image"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
)

// StageFunc 单个像素变换步骤，可以原地修改并返回同一张图，也可以返回新图
type StageFunc func(img *image.NRGBA, adj model.Adjustments) *image.NRGBA

// Stage 带名字的渲染步骤
type Stage struct {
	Name  string
	Apply StageFunc
}

var stages = []Stage{
	{Name: "tone", Apply: Tone},
	{Name: "edge-smooth", Apply: EdgeSmooth},
	{Name: "edge-contrast", Apply: EdgeContrast},
	{Name: "edge-shift", Apply: EdgeShift},
	{Name: "feather", Apply: Feather},
	{Name: "color-balance", Apply: ColorBalance},
}

// Stages 返回参数驱动的步骤列表（不含蒙版步骤），按执行顺序排列
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// Render 渲染输出缓冲区。extracted 和 mask 可以为 nil
// 输入不会被修改，相同输入总是得到相同的像素
func Render(ctx context.Context, source, extracted *pixel.Buffer, adj model.Adjustments, mask *pixel.MaskLayer) (*pixel.Buffer, error) {
	base, err := selectBase(source, extracted, mask)
	if err != nil {
		return nil, err
	}
	return run(ctx, base.Clone().Image(), adj, mask)
}

// selectBase 校验尺寸并选择底图：有抠图结果用抠图结果，否则用原图
func selectBase(source, extracted *pixel.Buffer, mask *pixel.MaskLayer) (*pixel.Buffer, error) {
	if source == nil {
		return nil, fmt.Errorf("render: %w", model.ErrNoProject)
	}
	size := source.Size()
	if extracted != nil && extracted.Size() != size {
		return nil, fmt.Errorf("%w: extracted %v, source %v", model.ErrDimensionMismatch, extracted.Size(), size)
	}
	if mask != nil && mask.Size() != size {
		return nil, fmt.Errorf("%w: mask %v, source %v", model.ErrDimensionMismatch, mask.Size(), size)
	}
	if extracted != nil {
		return extracted, nil
	}
	return source, nil
}

// run 在 img 上依次执行所有步骤，img 归调用方所有且会被修改
func run(ctx context.Context, img *image.NRGBA, adj model.Adjustments, mask *pixel.MaskLayer) (*pixel.Buffer, error) {
	adj = adj.Clamp()
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img = s.Apply(img, adj)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ApplyMask(img, mask)
	return pixel.Wrap(img), nil
}
