package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/pixel"
	"github.com/gen2brain/webp"
)

// Encoded 导出结果
type Encoded struct {
	Data   []byte
	Format model.ExportFormat
	MIME   string
	Ext    string
}

// Export 渲染并按 adj 中的格式和质量编码
//
// JPEG 没有 alpha：底图先铺到白色画布上再进入渲染流程，使白色作为真实背景参与边缘混合；
// 蒙版擦除后重新变透明的像素在编码前再次铺白
func Export(ctx context.Context, source, extracted *pixel.Buffer, adj model.Adjustments, mask *pixel.MaskLayer) (*Encoded, error) {
	adj = adj.Clamp()
	base, err := selectBase(source, extracted, mask)
	if err != nil {
		return nil, err
	}

	var work *image.NRGBA
	if adj.ExportFormat == model.FormatJPEG {
		work = FlattenWhite(base).Image()
	} else {
		work = base.Clone().Image()
	}

	out, err := run(ctx, work, adj, mask)
	if err != nil {
		return nil, err
	}
	if adj.ExportFormat == model.FormatJPEG {
		out = FlattenWhite(out)
	}
	return Encode(out, adj.ExportFormat, adj.ExportQuality)
}

// Encode 将缓冲区编码为指定格式
func Encode(buf *pixel.Buffer, format model.ExportFormat, quality int) (*Encoded, error) {
	format = model.ParseExportFormat(string(format))
	quality = max(model.QualityMin, min(model.QualityMax, quality))

	var out bytes.Buffer
	var err error
	switch format {
	case model.FormatJPEG:
		err = jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: quality})
	case model.FormatWebP:
		err = webp.Encode(&out, buf.Image(), webp.Options{Quality: quality})
	default:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = enc.Encode(&out, buf.Image())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrEncodeFailed, format, err)
	}
	return &Encoded{
		Data:   out.Bytes(),
		Format: format,
		MIME:   format.MIME(),
		Ext:    format.Ext(),
	}, nil
}

// FlattenWhite 按 alpha 合成到不透明白色背景上
func FlattenWhite(buf *pixel.Buffer) *pixel.Buffer {
	c := buf.Clone()
	pix := c.Image().Pix
	for i := 0; i < len(pix); i += 4 {
		a := uint32(pix[i+3])
		if a == 255 {
			continue
		}
		inv := 255 - a
		pix[i] = uint8((uint32(pix[i])*a + 255*inv + 127) / 255)
		pix[i+1] = uint8((uint32(pix[i+1])*a + 255*inv + 127) / 255)
		pix[i+2] = uint8((uint32(pix[i+2])*a + 255*inv + 127) / 255)
		pix[i+3] = 255
	}
	return c
}
