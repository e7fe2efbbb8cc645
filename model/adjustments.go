package model

import (
	"math"
	"strings"
)

// ExportFormat 导出格式
type ExportFormat string

const (
	FormatPNG  ExportFormat = "png"
	FormatJPEG ExportFormat = "jpeg"
	FormatWebP ExportFormat = "webp"
)

// ParseExportFormat 解析导出格式，未知格式回落到 png
func ParseExportFormat(s string) ExportFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG
	case "webp":
		return FormatWebP
	default:
		return FormatPNG
	}
}

// MIME 返回格式对应的 MIME 类型
func (f ExportFormat) MIME() string {
	return "image/" + string(ParseExportFormat(string(f)))
}

// Ext 返回文件扩展名，jpeg 使用 jpg
func (f ExportFormat) Ext() string {
	if ParseExportFormat(string(f)) == FormatJPEG {
		return "jpg"
	}
	return string(ParseExportFormat(string(f)))
}

// 参数范围
const (
	ToneMin, ToneMax                 = 0, 200
	EdgeSmoothMin, EdgeSmoothMax     = 0, 10
	EdgeFeatherMin, EdgeFeatherMax   = 0, 50
	EdgeContrastMin, EdgeContrastMax = 50, 200
	EdgeShiftMin, EdgeShiftMax       = -20, 20
	BalanceMin, BalanceMax           = 0, 200
	QualityMin, QualityMax           = 1, 100

	DefaultExportQuality = 90
)

// Adjustments 非破坏性编辑参数，纯数据，不做任何像素运算
type Adjustments struct {
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
	Saturation int `json:"saturation"`

	EdgeSmooth   float64 `json:"edgeSmooth"`
	EdgeFeather  int     `json:"edgeFeather"`
	EdgeContrast int     `json:"edgeContrast"`
	EdgeShift    int     `json:"edgeShift"`

	RedBalance   int `json:"redBalance"`
	GreenBalance int `json:"greenBalance"`
	BlueBalance  int `json:"blueBalance"`

	ExportFormat  ExportFormat `json:"exportFormat"`
	ExportQuality int          `json:"exportQuality"`
}

// NeutralAdjustments 返回中性参数，渲染结果与输入完全一致
func NeutralAdjustments() Adjustments {
	return Adjustments{
		Brightness:    100,
		Contrast:      100,
		Saturation:    100,
		EdgeSmooth:    0,
		EdgeFeather:   0,
		EdgeContrast:  100,
		EdgeShift:     0,
		RedBalance:    100,
		GreenBalance:  100,
		BlueBalance:   100,
		ExportFormat:  FormatPNG,
		ExportQuality: DefaultExportQuality,
	}
}

// IsNeutral 判断像素相关参数是否全部为中性值（忽略导出设置）
func (a Adjustments) IsNeutral() bool {
	n := NeutralAdjustments()
	n.ExportFormat, n.ExportQuality = a.ExportFormat, a.ExportQuality
	return a == n
}

// HasColorBalance 是否有任意通道增益偏离 100%
func (a Adjustments) HasColorBalance() bool {
	return a.RedBalance != 100 || a.GreenBalance != 100 || a.BlueBalance != 100
}

// ForMode 返回实际参与渲染的参数：颜色平衡只在高级模式下生效，关闭后增益保留但不应用
func (a Adjustments) ForMode(advanced bool) Adjustments {
	if !advanced {
		a.RedBalance, a.GreenBalance, a.BlueBalance = 100, 100, 100
	}
	return a
}

// Clamp 返回所有字段都限制在合法范围内的副本
func (a Adjustments) Clamp() Adjustments {
	a.SetBrightness(a.Brightness)
	a.SetContrast(a.Contrast)
	a.SetSaturation(a.Saturation)
	a.SetEdgeSmooth(a.EdgeSmooth)
	a.SetEdgeFeather(a.EdgeFeather)
	a.SetEdgeContrast(a.EdgeContrast)
	a.SetEdgeShift(a.EdgeShift)
	a.SetRedBalance(a.RedBalance)
	a.SetGreenBalance(a.GreenBalance)
	a.SetBlueBalance(a.BlueBalance)
	a.SetExportFormat(string(a.ExportFormat))
	a.SetExportQuality(a.ExportQuality)
	return a
}

func (a *Adjustments) SetBrightness(v int) { a.Brightness = clampInt(v, ToneMin, ToneMax) }
func (a *Adjustments) SetContrast(v int)   { a.Contrast = clampInt(v, ToneMin, ToneMax) }
func (a *Adjustments) SetSaturation(v int) { a.Saturation = clampInt(v, ToneMin, ToneMax) }

// SetEdgeSmooth 平滑半径允许小数
func (a *Adjustments) SetEdgeSmooth(v float64) {
	a.EdgeSmooth = clampFloat(v, EdgeSmoothMin, EdgeSmoothMax)
}
func (a *Adjustments) SetEdgeFeather(v int) {
	a.EdgeFeather = clampInt(v, EdgeFeatherMin, EdgeFeatherMax)
}
func (a *Adjustments) SetEdgeContrast(v int) {
	a.EdgeContrast = clampInt(v, EdgeContrastMin, EdgeContrastMax)
}
func (a *Adjustments) SetEdgeShift(v int)    { a.EdgeShift = clampInt(v, EdgeShiftMin, EdgeShiftMax) }
func (a *Adjustments) SetRedBalance(v int)   { a.RedBalance = clampInt(v, BalanceMin, BalanceMax) }
func (a *Adjustments) SetGreenBalance(v int) { a.GreenBalance = clampInt(v, BalanceMin, BalanceMax) }
func (a *Adjustments) SetBlueBalance(v int)  { a.BlueBalance = clampInt(v, BalanceMin, BalanceMax) }
func (a *Adjustments) SetExportFormat(s string) {
	a.ExportFormat = ParseExportFormat(s)
}
func (a *Adjustments) SetExportQuality(v int) {
	a.ExportQuality = clampInt(v, QualityMin, QualityMax)
}

// AdjustmentPatch 局部更新，nil 字段保持不变
type AdjustmentPatch struct {
	Brightness    *int     `json:"brightness,omitempty"`
	Contrast      *int     `json:"contrast,omitempty"`
	Saturation    *int     `json:"saturation,omitempty"`
	EdgeSmooth    *float64 `json:"edgeSmooth,omitempty"`
	EdgeFeather   *int     `json:"edgeFeather,omitempty"`
	EdgeContrast  *int     `json:"edgeContrast,omitempty"`
	EdgeShift     *int     `json:"edgeShift,omitempty"`
	RedBalance    *int     `json:"redBalance,omitempty"`
	GreenBalance  *int     `json:"greenBalance,omitempty"`
	BlueBalance   *int     `json:"blueBalance,omitempty"`
	ExportFormat  *string  `json:"exportFormat,omitempty"`
	ExportQuality *int     `json:"exportQuality,omitempty"`
}

// Apply 将补丁应用到参数上，越界值被截断而不是拒绝
func (p AdjustmentPatch) Apply(a Adjustments) Adjustments {
	set := func(v *int, setter func(int)) {
		if v != nil {
			setter(*v)
		}
	}
	set(p.Brightness, a.SetBrightness)
	set(p.Contrast, a.SetContrast)
	set(p.Saturation, a.SetSaturation)
	set(p.EdgeFeather, a.SetEdgeFeather)
	set(p.EdgeContrast, a.SetEdgeContrast)
	set(p.EdgeShift, a.SetEdgeShift)
	set(p.RedBalance, a.SetRedBalance)
	set(p.GreenBalance, a.SetGreenBalance)
	set(p.BlueBalance, a.SetBlueBalance)
	set(p.ExportQuality, a.SetExportQuality)
	if p.EdgeSmooth != nil {
		a.SetEdgeSmooth(*p.EdgeSmooth)
	}
	if p.ExportFormat != nil {
		a.SetExportFormat(*p.ExportFormat)
	}
	return a
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
