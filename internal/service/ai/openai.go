package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/weiwangfds/picvault/config"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/logger"
)

// analysisPrompt 分析提示词模板
// 要求模型返回固定结构的JSON，便于解析
const analysisPrompt = `Analyze this image and respond with a JSON object containing exactly two fields:
"description": a single concise sentence describing the image content.
"tags": an array of at most 10 short tags.
%s
Respond with JSON only, no extra text.`

// OpenAIAnalyzer 基于OpenAI视觉模型的图片分析器实现
type OpenAIAnalyzer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIAnalyzer 创建OpenAI图片分析器实例
// 参数:
//   - cfg: AI分析服务配置，包含API密钥、端点和模型名称
// 返回:
//   - *OpenAIAnalyzer: 分析器实例
func NewOpenAIAnalyzer(cfg config.AIConfig) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIAnalyzer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Analyze 分析指定URL的图片
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, imageURL string, style TagStyle) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(analysisPrompt, style.Instruction())

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: 500,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logger.Errorf("AI分析请求失败: %v", err)
		return nil, apperrors.WrapByCode(apperrors.ErrAnalysisUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.NewByCode(apperrors.ErrAnalysisBadResponse).WithDetails("empty choices in response")
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// parseAnalysis 解析模型返回的JSON内容
// 容忍模型在JSON外围包裹markdown代码块的情况
func parseAnalysis(content string) (*Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var analysis Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, apperrors.WrapByCode(apperrors.ErrAnalysisBadResponse, err)
	}

	if analysis.Description == "" && len(analysis.Tags) == 0 {
		return nil, apperrors.NewByCode(apperrors.ErrAnalysisBadResponse).WithDetails("response contains neither description nor tags")
	}

	analysis.Tags = NormalizeTags(analysis.Tags)
	return &analysis, nil
}
