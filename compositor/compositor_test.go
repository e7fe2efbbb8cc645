package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
)

// patterned 生成带有颜色和 alpha 变化的测试图
func patterned(w, h int) *pixel.Buffer {
	buf := pixel.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Image().SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7),
				G: uint8(y * 5),
				B: uint8((x + y) * 3),
				A: uint8((x * y) % 256),
			})
		}
	}
	return buf
}

func solid(w, h int, c color.NRGBA) *pixel.Buffer {
	buf := pixel.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Image().SetNRGBA(x, y, c)
		}
	}
	return buf
}

func TestStagesOrder(t *testing.T) {
	want := []string{"tone", "edge-smooth", "edge-contrast", "edge-shift", "feather", "color-balance"}
	got := Stages()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.Name != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], s.Name)
		}
	}
}

func TestRenderIdentityExtracted(t *testing.T) {
	source := solid(40, 30, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	extracted := patterned(40, 30)

	out, err := Render(context.Background(), source, extracted, model.NeutralAdjustments(), pixel.NewMaskLayer(40, 30))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !out.Equal(extracted) {
		t.Error("neutral render should reproduce the extracted image byte for byte")
	}
	if out.Image() == extracted.Image() {
		t.Error("render must not return the input buffer")
	}
}

func TestRenderIdentitySourceOnly(t *testing.T) {
	source := patterned(100, 100).Opaque()

	out, err := Render(context.Background(), source, nil, model.NeutralAdjustments(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !out.Equal(source) {
		t.Error("neutral render without extraction should reproduce the source")
	}
	if !out.IsOpaque() {
		t.Error("expected fully opaque output")
	}
}

func TestRenderDoesNotMutateInputs(t *testing.T) {
	extracted := patterned(20, 20)
	before := extracted.Clone()
	adj := model.NeutralAdjustments()
	adj.Brightness = 180
	adj.EdgeSmooth = 2
	adj.EdgeShift = 3

	if _, err := Render(context.Background(), extracted, extracted, adj, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !extracted.Equal(before) {
		t.Error("render modified its input")
	}
}

func TestToneFormulas(t *testing.T) {
	extracted := solid(4, 4, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	adj := model.NeutralAdjustments()
	adj.SetBrightness(150)
	adj.SetContrast(120)

	out, err := Render(context.Background(), extracted, extracted, adj, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 128*1.5 = 192；(192-128)*1.2+128 = 204.8 -> 205
	want := color.NRGBA{R: 205, G: 205, B: 205, A: 255}
	if got := out.Image().NRGBAAt(2, 2); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestToneKeepsAlpha(t *testing.T) {
	img := patterned(10, 10).Image()
	before := pixel.FromImage(img)
	adj := model.NeutralAdjustments()
	adj.Brightness = 0
	adj.Saturation = 0

	Tone(img, adj)
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != before.Image().Pix[i] {
			t.Fatalf("alpha changed at byte %d", i)
		}
	}
	if img.Pix[0] != 0 || img.Pix[4] != 0 {
		t.Error("brightness 0 should produce black")
	}
}

func TestColorBalanceAfterSaturation(t *testing.T) {
	extracted := solid(2, 2, color.NRGBA{R: 100, G: 50, B: 50, A: 255})
	adj := model.NeutralAdjustments()
	adj.Saturation = 0
	adj.RedBalance = 200

	out, err := Render(context.Background(), extracted, extracted, adj, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 先去饱和：luma = 60.63 -> 61；再红色增益 2 -> 122
	want := color.NRGBA{R: 122, G: 61, B: 61, A: 255}
	if got := out.Image().NRGBAAt(0, 0); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	// 反过来执行得到的是灰色 (82,82,82)，顺序不可交换
	reversed := extracted.Clone().Image()
	ColorBalance(reversed, adj)
	Tone(reversed, adj)
	if got := reversed.NRGBAAt(0, 0); got == want {
		t.Error("reversed order should produce a different result")
	}
}

func TestColorBalanceClamps(t *testing.T) {
	img := solid(1, 1, color.NRGBA{R: 200, G: 200, B: 200, A: 255}).Image()
	adj := model.NeutralAdjustments()
	adj.RedBalance = 200
	adj.BlueBalance = 50

	ColorBalance(img, adj)
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{R: 255, G: 200, B: 100, A: 255}) {
		t.Errorf("unexpected %v", got)
	}
}

func TestRenderDimensionMismatch(t *testing.T) {
	source := solid(100, 100, color.NRGBA{A: 255})

	_, err := Render(context.Background(), source, nil, model.NeutralAdjustments(), pixel.NewMaskLayer(50, 50))
	if !errors.Is(err, model.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for mask, got %v", err)
	}

	_, err = Render(context.Background(), source, solid(100, 99, color.NRGBA{}), model.NeutralAdjustments(), nil)
	if !errors.Is(err, model.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for extracted, got %v", err)
	}
}

func TestMaskEraseAndRestore(t *testing.T) {
	extracted := patterned(60, 60)
	mask := pixel.NewMaskLayer(60, 60)

	s := mask.BeginStroke(pixel.BrushErase, 10, pixel.Point{X: 30, Y: 30})
	s.EndStroke()

	out, err := Render(context.Background(), extracted, extracted, model.NeutralAdjustments(), mask)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if a := out.Image().NRGBAAt(30, 30).A; a != 0 {
		t.Errorf("expected erased alpha 0, got %d", a)
	}
	if out.Image().NRGBAAt(5, 50) != extracted.Image().NRGBAAt(5, 50) {
		t.Error("pixel outside the stroke changed")
	}

	r := mask.BeginStroke(pixel.BrushRestore, 10, pixel.Point{X: 30, Y: 30})
	r.EndStroke()

	out, err = Render(context.Background(), extracted, extracted, model.NeutralAdjustments(), mask)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !out.Equal(extracted) {
		t.Error("restore after erase should return to the pre-erase alpha")
	}
}

func TestMaskOnSourceWithoutExtraction(t *testing.T) {
	source := solid(20, 20, color.NRGBA{R: 50, G: 60, B: 70, A: 255})
	mask := pixel.NewMaskLayer(20, 20)
	mask.BeginStroke(pixel.BrushErase, 4, pixel.Point{X: 10, Y: 10}).EndStroke()

	out, err := Render(context.Background(), source, nil, model.NeutralAdjustments(), mask)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Image().NRGBAAt(10, 10).A != 0 {
		t.Error("erase should cut through an opaque source")
	}
	if out.Image().NRGBAAt(0, 0).A != 255 {
		t.Error("unpainted pixels should stay opaque")
	}
}

func TestApplyMaskPartial(t *testing.T) {
	img := solid(1, 1, color.NRGBA{A: 200}).Image()
	mask := pixel.NewMaskLayer(1, 1)
	mask.Set(0, 0, 128)

	ApplyMask(img, mask)
	// 200 * 127 / 255 = 99.6 -> 100
	if a := img.NRGBAAt(0, 0).A; a != 100 {
		t.Errorf("expected 100, got %d", a)
	}
}

// square 20x20 透明图，中心 7..12 为不透明方块
func square() *pixel.Buffer {
	buf := pixel.NewBuffer(20, 20)
	for y := 7; y < 13; y++ {
		for x := 7; x < 13; x++ {
			buf.Image().SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return buf
}

func TestEdgeShiftDilate(t *testing.T) {
	img := square().Image()
	adj := model.NeutralAdjustments()
	adj.EdgeShift = 2

	img = EdgeShift(img, adj)
	if img.NRGBAAt(5, 9).A != 255 {
		t.Error("expected dilation to reach 2px left of the square")
	}
	if img.NRGBAAt(4, 9).A != 0 {
		t.Error("dilation went further than the radius")
	}
	// 对角方向按圆形结构元素，(5,5) 距离角点 (7,7) 为 2.83 > 2
	if img.NRGBAAt(5, 5).A != 0 {
		t.Error("expected disc structuring element to leave the diagonal corner")
	}
}

func TestEdgeShiftErode(t *testing.T) {
	img := square().Image()
	adj := model.NeutralAdjustments()
	adj.EdgeShift = -2

	img = EdgeShift(img, adj)
	if img.NRGBAAt(9, 9).A != 255 || img.NRGBAAt(10, 10).A != 255 {
		t.Error("expected the square's core to survive erosion")
	}
	if img.NRGBAAt(8, 9).A != 0 || img.NRGBAAt(7, 7).A != 0 {
		t.Error("expected the square's border to be eroded")
	}
}

func TestEdgeContrastCurve(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Pix[3], img.Pix[7], img.Pix[11] = 200, 100, 128
	adj := model.NeutralAdjustments()
	adj.EdgeContrast = 200

	EdgeContrast(img, adj)
	if img.Pix[3] != 255 || img.Pix[7] != 72 || img.Pix[11] != 128 {
		t.Errorf("unexpected alpha %d %d %d", img.Pix[3], img.Pix[7], img.Pix[11])
	}
}

func TestFeatherOnlyAlpha(t *testing.T) {
	buf := pixel.NewBuffer(30, 30)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			a := uint8(0)
			if x < 15 {
				a = 255
			}
			buf.Image().SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: a})
		}
	}
	adj := model.NeutralAdjustments()
	adj.EdgeFeather = 2

	img := Feather(buf.Clone().Image(), adj)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			c := img.NRGBAAt(x, y)
			if c.R != 10 || c.G != 20 || c.B != 30 {
				t.Fatalf("feather changed RGB at (%d,%d): %v", x, y, c)
			}
		}
	}
	if a := img.NRGBAAt(14, 10).A; a == 0 || a == 255 {
		t.Errorf("expected soft alpha at the boundary, got %d", a)
	}
	if img.NRGBAAt(0, 10).A != 255 || img.NRGBAAt(29, 10).A != 0 {
		t.Error("pixels far from the boundary should keep their alpha")
	}
}

func TestEdgeSmoothSoftensAlpha(t *testing.T) {
	img := square().Image()
	adj := model.NeutralAdjustments()
	adj.EdgeSmooth = 2

	img = EdgeSmooth(img, adj)
	if a := img.NRGBAAt(6, 9).A; a == 0 || a == 255 {
		t.Errorf("expected blurred alpha next to the edge, got %d", a)
	}
}

func TestRenderDeterministic(t *testing.T) {
	extracted := patterned(32, 32)
	adj := model.Adjustments{
		Brightness: 120, Contrast: 90, Saturation: 140,
		EdgeSmooth: 1, EdgeFeather: 3, EdgeContrast: 150, EdgeShift: -1,
		RedBalance: 110, GreenBalance: 95, BlueBalance: 100,
		ExportFormat: model.FormatPNG, ExportQuality: 90,
	}
	mask := pixel.NewMaskLayer(32, 32)
	mask.BeginStroke(pixel.BrushErase, 6, pixel.Point{X: 3, Y: 3}).ContinueStroke(pixel.Point{X: 20, Y: 8})

	a, err := Render(context.Background(), extracted, extracted, adj, mask)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := Render(context.Background(), extracted, extracted, adj, mask)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !a.Equal(b) {
		t.Error("identical inputs should render identical pixels")
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := patterned(8, 8)
	if _, err := Render(ctx, src, nil, model.NeutralAdjustments(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExportIdempotent(t *testing.T) {
	extracted := patterned(24, 24)
	for _, format := range []model.ExportFormat{model.FormatPNG, model.FormatJPEG} {
		adj := model.NeutralAdjustments()
		adj.ExportFormat = format
		adj.Brightness = 110

		a, err := Export(context.Background(), extracted, extracted, adj, nil)
		if err != nil {
			t.Fatalf("%s export: %v", format, err)
		}
		b, err := Export(context.Background(), extracted, extracted, adj, nil)
		if err != nil {
			t.Fatalf("%s export: %v", format, err)
		}
		if !bytes.Equal(a.Data, b.Data) {
			t.Errorf("%s export not byte identical", format)
		}
		if a.MIME != "image/"+string(format) {
			t.Errorf("unexpected mime %s", a.MIME)
		}
	}
}

func TestExportPNGLossless(t *testing.T) {
	extracted := patterned(16, 16)
	enc, err := Export(context.Background(), extracted, extracted, model.NeutralAdjustments(), nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if enc.Ext != "png" {
		t.Errorf("expected png extension, got %s", enc.Ext)
	}
	img, err := png.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !pixel.FromImage(img).Equal(extracted) {
		t.Error("png export of a neutral render should decode to the extracted image")
	}
}

func TestExportJPEGOnWhite(t *testing.T) {
	extracted := pixel.NewBuffer(16, 16) // 全透明
	adj := model.NeutralAdjustments()
	adj.ExportFormat = model.FormatJPEG
	adj.ExportQuality = 95

	enc, err := Export(context.Background(), extracted, extracted, adj, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if enc.Ext != "jpg" {
		t.Errorf("expected jpg extension, got %s", enc.Ext)
	}
	img, err := jpeg.Decode(bytes.NewReader(enc.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if r>>8 < 245 || g>>8 < 245 || b>>8 < 245 {
		t.Errorf("expected white background, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestFlattenWhite(t *testing.T) {
	buf := pixel.NewBuffer(2, 1)
	buf.Image().SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	buf.Image().SetNRGBA(1, 0, color.NRGBA{R: 0, G: 100, B: 200, A: 255})

	out := FlattenWhite(buf)
	if got := out.Image().NRGBAAt(0, 0); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("transparent pixel should become white, got %v", got)
	}
	if got := out.Image().NRGBAAt(1, 0); got != (color.NRGBA{R: 0, G: 100, B: 200, A: 255}) {
		t.Errorf("opaque pixel should be unchanged, got %v", got)
	}
}

func TestMaskViewAndOverlay(t *testing.T) {
	buf := pixel.NewBuffer(2, 1)
	buf.Image().SetNRGBA(0, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	buf.Image().SetNRGBA(1, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 0})

	mv := View(buf, ParseViewMode("mask"))
	if got := mv.Image().NRGBAAt(0, 0); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("opaque pixel should be white in mask view, got %v", got)
	}
	if got := mv.Image().NRGBAAt(1, 0); got != (color.NRGBA{A: 255}) {
		t.Errorf("transparent pixel should be black in mask view, got %v", got)
	}

	ov := View(buf, ViewOverlay)
	if got := ov.Image().NRGBAAt(0, 0); got != (color.NRGBA{R: 10, G: 10, B: 10, A: 255}) {
		t.Errorf("opaque pixel should keep its color in overlay, got %v", got)
	}
	if got := ov.Image().NRGBAAt(1, 0); got.R <= got.G {
		t.Errorf("transparent pixel should be tinted red, got %v", got)
	}

	if View(buf, ParseViewMode("bogus")) != buf {
		t.Error("standard view should return the buffer itself")
	}
}

func TestPreviewDownscale(t *testing.T) {
	buf := patterned(400, 200)
	p := Preview(buf, 100)
	if p.Width() != 100 || p.Height() != 50 {
		t.Errorf("expected 100x50, got %dx%d", p.Width(), p.Height())
	}
	if Preview(buf, 1000) != buf {
		t.Error("small images should not be rescaled")
	}
}
