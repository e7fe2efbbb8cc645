package service

import (
	"context"
	"fmt"
	"time"

	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Extractor 主体提取服务：输入编码后的图片，返回带透明背景的 PNG
// 每次用户操作只调用一次，不自动重试
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) ([]byte, error)
}

const extractionPrompt = "Extract the main subject from this image with professional precision. " +
	"Remove the entire background and make it fully transparent (use the alpha channel). " +
	"Ensure that edges, especially fine details like hair, fur, or complex silhouettes, are clean and sharp. " +
	"Output only the PNG image with transparency. Do not include any background colors, text, or logos."

// contentGenerator genai.Models 中用到的方法
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor 通过 Gemini 图像模型去除背景
type GeminiExtractor struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGeminiExtractor 创建 Gemini 客户端
func NewGeminiExtractor(ctx context.Context, cfg *config.ExtractionConfig) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiExtractor(client.Models, cfg.Model, cfg.Timeout), nil
}

func newGeminiExtractor(models contentGenerator, modelName string, timeout time.Duration) *GeminiExtractor {
	return &GeminiExtractor{models: models, model: modelName, timeout: timeout}
}

// Extract 发送图片和提示词，返回响应中第一个内联图片
func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	start := time.Now()
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(extractionPrompt),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		utils.Logger.Error("gemini request failed", zap.String("model", g.model), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}

	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				utils.Logger.Info("gemini extraction finished",
					zap.String("model", g.model),
					zap.Int("bytes", len(part.InlineData.Data)),
					zap.Duration("duration", time.Since(start)))
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: response contains no image", model.ErrExtractionFailed)
}
