// Package ai 提供图片AI分析服务的抽象和实现
// 将图片URL提交给视觉模型，返回结构化的描述和标签
package ai

import (
	"context"
	"strings"

	"github.com/weiwangfds/picvault/internal/database"
)

// TagStyle 标签风格
// 封闭枚举，控制AI生成标签的语气和侧重点
type TagStyle string

const (
	// StyleNeutral 中性风格，客观描述画面内容
	StyleNeutral TagStyle = "neutral"
	// StylePlayful 活泼风格，轻松口语化的标签
	StylePlayful TagStyle = "playful"
	// StyleSEO SEO风格，面向搜索优化的关键词标签
	StyleSEO TagStyle = "seo"
)

// 标签风格到提示词指令的映射
var styleInstructions = map[TagStyle]string{
	StyleNeutral: "Use neutral, objective, descriptive tags.",
	StylePlayful: "Use playful, casual, fun tags with a light tone.",
	StyleSEO:     "Use SEO-oriented keyword tags that people would search for.",
}

// ParseTagStyle 解析标签风格
// 未识别的风格回退到中性默认值而不是报错，这是有意的宽松策略
func ParseTagStyle(s string) TagStyle {
	switch TagStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StylePlayful:
		return StylePlayful
	case StyleSEO:
		return StyleSEO
	default:
		return StyleNeutral
	}
}

// Instruction 返回风格对应的提示词指令
func (s TagStyle) Instruction() string {
	if instruction, ok := styleInstructions[s]; ok {
		return instruction
	}
	return styleInstructions[StyleNeutral]
}

// Analysis AI分析结果
type Analysis struct {
	// Description 图片内容的一句话描述
	Description string `json:"description"`
	// Tags 图片标签列表，最多database.MaxTags个
	Tags []string `json:"tags"`
}

// ImageAnalyzer 图片分析器接口
type ImageAnalyzer interface {
	// Analyze 分析指定URL的图片
	// 参数:
	//   - ctx: 请求上下文
	//   - imageURL: 图片的可访问URL（通常为签名URL）
	//   - style: 标签风格
	// 返回:
	//   - *Analysis: 分析结果，包含描述和规范化后的标签
	//   - error: 分析失败时的错误信息
	Analyze(ctx context.Context, imageURL string, style TagStyle) (*Analysis, error)
}

// NormalizeTags 规范化标签列表
// 去除首尾空白，丢弃空白标签，数量截断到database.MaxTags
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
		if len(normalized) >= database.MaxTags {
			break
		}
	}
	return normalized
}
