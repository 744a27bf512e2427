// AI分析抽象层的单元测试
package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/picvault/internal/database"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
)

// TestParseTagStyle 测试标签风格解析
func TestParseTagStyle(t *testing.T) {
	t.Run("识别已知风格", func(t *testing.T) {
		assert.Equal(t, StyleNeutral, ParseTagStyle("neutral"))
		assert.Equal(t, StylePlayful, ParseTagStyle("playful"))
		assert.Equal(t, StyleSEO, ParseTagStyle("seo"))
	})

	t.Run("大小写和空白宽容", func(t *testing.T) {
		assert.Equal(t, StylePlayful, ParseTagStyle("  Playful "))
		assert.Equal(t, StyleSEO, ParseTagStyle("SEO"))
	})

	t.Run("未知风格回退到中性", func(t *testing.T) {
		assert.Equal(t, StyleNeutral, ParseTagStyle("dramatic"))
		assert.Equal(t, StyleNeutral, ParseTagStyle(""))
	})
}

// TestInstruction 测试风格指令
func TestInstruction(t *testing.T) {
	for _, style := range []TagStyle{StyleNeutral, StylePlayful, StyleSEO} {
		assert.NotEmpty(t, style.Instruction())
	}
	// 非法风格也要给出可用指令
	assert.Equal(t, StyleNeutral.Instruction(), TagStyle("bogus").Instruction())
}

// TestNormalizeTags 测试标签规范化
func TestNormalizeTags(t *testing.T) {
	t.Run("去除空白并丢弃空标签", func(t *testing.T) {
		got := NormalizeTags([]string{" 猫 ", "", "  ", "窗台"})
		assert.Equal(t, []string{"猫", "窗台"}, got)
	})

	t.Run("数量截断到上限", func(t *testing.T) {
		var many []string
		for i := 0; i < database.MaxTags+5; i++ {
			many = append(many, "tag")
		}
		assert.Len(t, NormalizeTags(many), database.MaxTags)
	})

	t.Run("空输入返回空列表", func(t *testing.T) {
		assert.Empty(t, NormalizeTags(nil))
	})
}

// TestParseAnalysis 测试模型响应解析
func TestParseAnalysis(t *testing.T) {
	t.Run("解析纯JSON", func(t *testing.T) {
		analysis, err := parseAnalysis(`{"description":"一只猫","tags":["猫","宠物"]}`)
		require.NoError(t, err)
		assert.Equal(t, "一只猫", analysis.Description)
		assert.Equal(t, []string{"猫", "宠物"}, analysis.Tags)
	})

	t.Run("容忍markdown代码块包裹", func(t *testing.T) {
		analysis, err := parseAnalysis("```json\n{\"description\":\"一只狗\",\"tags\":[\"狗\"]}\n```")
		require.NoError(t, err)
		assert.Equal(t, "一只狗", analysis.Description)
	})

	t.Run("非JSON内容报错", func(t *testing.T) {
		_, err := parseAnalysis("I cannot analyze this image.")
		require.Error(t, err)
		appErr, ok := apperrors.GetAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrAnalysisBadResponse, appErr.Code)
	})

	t.Run("空结果报错", func(t *testing.T) {
		_, err := parseAnalysis(`{"description":"","tags":[]}`)
		require.Error(t, err)
	})

	t.Run("超限标签被截断", func(t *testing.T) {
		analysis, err := parseAnalysis(`{"description":"x","tags":["1","2","3","4","5","6","7","8","9","10","11","12"]}`)
		require.NoError(t, err)
		assert.Len(t, analysis.Tags, database.MaxTags)
	})
}
