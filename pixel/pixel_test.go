package pixel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/TIANLI0/CutoutStudio/model"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBuffer(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	buf, format, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png, got %s", format)
	}
	if buf.Width() != 4 || buf.Height() != 3 {
		t.Errorf("expected 4x3, got %dx%d", buf.Width(), buf.Height())
	}
	if got := buf.Image().NRGBAAt(1, 1); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("unexpected pixel %v", got)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, _, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, model.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	src.SetNRGBA(11, 11, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	buf := FromImage(src)
	if buf.Image().Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("expected origin bounds, got %v", buf.Image().Bounds())
	}
	if got := buf.Image().NRGBAAt(1, 1); got != (color.NRGBA{R: 1, G: 2, B: 3, A: 4}) {
		t.Errorf("unexpected pixel %v", got)
	}
}

func TestBufferCloneAndEqual(t *testing.T) {
	a := NewBuffer(2, 2)
	a.Image().SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("clone should be equal")
	}
	b.Image().SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	if a.Equal(b) {
		t.Error("modified clone should differ")
	}
	if a.Image().NRGBAAt(0, 0).R != 255 {
		t.Error("clone shares pixels with original")
	}
}

func TestBufferOpaque(t *testing.T) {
	a := NewBuffer(3, 3)
	if a.IsOpaque() {
		t.Error("new buffer should be transparent")
	}
	if !a.Opaque().IsOpaque() {
		t.Error("Opaque() should force alpha")
	}
}

func TestMaskLazyAllocation(t *testing.T) {
	m := NewMaskLayer(10, 10)
	if m.Allocated() || !m.IsEmpty() {
		t.Error("mask should start unallocated and empty")
	}
	if m.At(5, 5) != 0 || m.Value(5, 5) != 0 {
		t.Error("unallocated mask should read 0")
	}
	m.Set(5, 5, 255)
	if !m.Allocated() || m.IsEmpty() {
		t.Error("mask should be allocated after Set")
	}
	if m.Value(5, 5) != 1 {
		t.Errorf("expected 1.0, got %f", m.Value(5, 5))
	}
	m.Set(-1, 5, 255)
	m.Set(10, 5, 255)
	if m.At(-1, 5) != 0 {
		t.Error("out of bounds read should be 0")
	}

	m.Reset()
	if m.Allocated() {
		t.Error("reset should release the raster")
	}
}

func TestMaskEncodeDecode(t *testing.T) {
	m := NewMaskLayer(8, 6)
	m.Set(2, 3, 255)
	m.Set(7, 5, 128)

	data, err := m.EncodePNG()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMask(data, 8, 6)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got.Pix(), m.Pix()) {
		t.Error("mask round trip mismatch")
	}

	_, err = DecodeMask(data, 9, 6)
	if !errors.Is(err, model.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMaskDecodeAlphaAsMask(t *testing.T) {
	// 白色笔迹画在透明画布上，alpha 即蒙版值
	canvas := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	canvas.SetNRGBA(1, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	m, err := DecodeMask(encodePNG(t, canvas), 4, 4)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.At(1, 2) != 255 || m.At(0, 0) != 0 {
		t.Errorf("unexpected mask values %d %d", m.At(1, 2), m.At(0, 0))
	}
}

func TestEraseStrokeFootprint(t *testing.T) {
	m := NewMaskLayer(100, 100)
	s := m.BeginStroke(BrushErase, 30, Point{X: 50, Y: 50})
	if !s.EndStroke() {
		t.Fatal("expected stroke to paint")
	}

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			d := math.Hypot(float64(x)+0.5-50, float64(y)+0.5-50)
			v := m.Value(x, y)
			if d <= 15 && v != 1 {
				t.Fatalf("pixel (%d,%d) at distance %.2f expected 1.0, got %f", x, y, d, v)
			}
			if d > 15 && v != 0 {
				t.Fatalf("pixel (%d,%d) at distance %.2f expected 0, got %f", x, y, d, v)
			}
		}
	}
}

func TestRestoreStrokeOverwritesErase(t *testing.T) {
	m := NewMaskLayer(50, 50)
	s := m.BeginStroke(BrushErase, 10, Point{X: 10, Y: 25})
	s.ContinueStroke(Point{X: 40, Y: 25})
	s.EndStroke()

	if m.At(25, 25) != 255 {
		t.Fatalf("expected erased pixel, got %d", m.At(25, 25))
	}

	r := m.BeginStroke(BrushRestore, 10, Point{X: 10, Y: 25})
	r.ContinueStroke(Point{X: 40, Y: 25})
	r.EndStroke()

	if !m.IsEmpty() {
		t.Error("restore over the same path should clear the mask")
	}
}

func TestStrokeRoundJoin(t *testing.T) {
	m := NewMaskLayer(60, 60)
	s := m.BeginStroke(BrushErase, 6, Point{X: 10, Y: 10})
	s.ContinueStroke(Point{X: 50, Y: 10})
	s.ContinueStroke(Point{X: 50, Y: 50})

	// 拐角外侧在半径以内的点被覆盖
	if m.At(52, 8) != 255 {
		t.Error("expected round join to cover the corner")
	}
	// 线段中间
	if m.At(30, 10) != 255 || m.At(50, 30) != 255 {
		t.Error("expected segment interiors to be covered")
	}
	if m.At(30, 30) != 0 {
		t.Error("pixel far from the path should be untouched")
	}
}

func TestStrokeOutsideMask(t *testing.T) {
	m := NewMaskLayer(10, 10)
	s := m.BeginStroke(BrushErase, 4, Point{X: -50, Y: -50})
	if s.EndStroke() {
		t.Error("stroke outside the mask should not paint")
	}
	if m.Allocated() {
		t.Error("mask should stay unallocated")
	}
}

func TestViewportZoomRange(t *testing.T) {
	v := NewViewport(100, 100)
	if v.Zoom() != 1 {
		t.Errorf("expected zoom 1, got %f", v.Zoom())
	}
	for i := 0; i < 50; i++ {
		v.ZoomIn()
	}
	if math.Abs(v.Zoom()-4) > 1e-9 {
		t.Errorf("expected max zoom 4, got %f", v.Zoom())
	}
	for i := 0; i < 50; i++ {
		v.ZoomOut()
	}
	if math.Abs(v.Zoom()-0.2) > 1e-9 {
		t.Errorf("expected min zoom 0.2, got %f", v.Zoom())
	}
	v.ResetZoom()
	if v.Zoom() != 1 {
		t.Errorf("expected reset zoom 1, got %f", v.Zoom())
	}
}

func TestViewportMapping(t *testing.T) {
	// 1000px 宽的图片显示为 500px，放大到 2 倍时显示像素与缓冲区像素一一对应
	v := NewViewport(1000, 800)
	v.SetDisplaySize(500, 400)

	p := v.ToBuffer(100, 50)
	if p.X != 200 || p.Y != 100 {
		t.Errorf("expected (200,100), got (%f,%f)", p.X, p.Y)
	}
	if v.BrushToBuffer(30) != 60 {
		t.Errorf("expected brush 60, got %f", v.BrushToBuffer(30))
	}

	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}
	p = v.ToBuffer(100, 50)
	if math.Abs(p.X-100) > 1e-9 || math.Abs(p.Y-50) > 1e-9 {
		t.Errorf("expected (100,50) at zoom 2, got (%f,%f)", p.X, p.Y)
	}

	v.SetPan(-20, 10)
	p = v.ToBuffer(80, 60)
	if math.Abs(p.X-100) > 1e-9 || math.Abs(p.Y-50) > 1e-9 {
		t.Errorf("expected (100,50) with pan, got (%f,%f)", p.X, p.Y)
	}
	x, y := v.ToDisplay(p)
	if math.Abs(x-80) > 1e-9 || math.Abs(y-60) > 1e-9 {
		t.Errorf("ToDisplay should invert ToBuffer, got (%f,%f)", x, y)
	}
}
