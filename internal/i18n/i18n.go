// Package i18n 提供国际化支持
// 负责管理应用程序的语言包和翻译功能
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/picvault/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"unauthorized":          "未授权",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",
			"too_many_requests":     "请求过于频繁",
			"service_unavailable":   "服务不可用",

			"file_not_found":        "文件未找到",
			"file_upload_failed":    "文件上传失败",
			"file_delete_failed":    "文件删除失败",
			"file_size_too_large":   "文件大小超限",
			"file_type_not_allowed": "文件类型不允许",
			"too_many_tags":         "标签数量超限",
			"invalid_tag":           "标签内容无效",

			"storage_config_not_found":       "存储配置未找到",
			"storage_config_invalid":         "存储配置无效",
			"storage_connection_failed":      "存储连接失败",
			"storage_upload_failed":          "存储上传失败",
			"storage_download_failed":        "存储下载失败",
			"storage_delete_failed":          "存储删除失败",
			"storage_provider_not_supported": "存储提供商不支持",

			"database_query":  "数据库查询错误",
			"database_insert": "数据库插入错误",
			"database_update": "数据库更新错误",
			"database_delete": "数据库删除错误",
			"record_not_found": "记录未找到",

			"analysis_failed":       "AI分析失败",
			"analysis_unavailable":  "AI分析服务不可用",
			"analysis_bad_response": "AI分析响应解析失败",
			"not_an_image":          "文件不是图片类型",

			"batch_too_large":    "批量条目数超过上限",
			"batch_empty":        "批量条目列表为空",
			"archive_no_files":   "没有可归档的有效文件",
			"archive_build_fail": "归档构建失败",

			"unknown_error": "未知错误",
		},
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"unauthorized":          "Unauthorized",
			"forbidden":             "Forbidden",
			"not_found":             "Resource Not Found",
			"too_many_requests":     "Too Many Requests",
			"service_unavailable":   "Service Unavailable",

			"file_not_found":        "File Not Found",
			"file_upload_failed":    "File Upload Failed",
			"file_delete_failed":    "File Delete Failed",
			"file_size_too_large":   "File Size Too Large",
			"file_type_not_allowed": "File Type Not Allowed",
			"too_many_tags":         "Too Many Tags",
			"invalid_tag":           "Invalid Tag",

			"storage_config_not_found":       "Storage Config Not Found",
			"storage_config_invalid":         "Storage Config Invalid",
			"storage_connection_failed":      "Storage Connection Failed",
			"storage_upload_failed":          "Storage Upload Failed",
			"storage_download_failed":        "Storage Download Failed",
			"storage_delete_failed":          "Storage Delete Failed",
			"storage_provider_not_supported": "Storage Provider Not Supported",

			"database_query":  "Database Query Error",
			"database_insert": "Database Insert Error",
			"database_update": "Database Update Error",
			"database_delete": "Database Delete Error",
			"record_not_found": "Record Not Found",

			"analysis_failed":       "AI Analysis Failed",
			"analysis_unavailable":  "AI Analysis Service Unavailable",
			"analysis_bad_response": "AI Analysis Response Invalid",
			"not_an_image":          "File Is Not An Image",

			"batch_too_large":    "Batch Size Exceeds Limit",
			"batch_empty":        "Batch Is Empty",
			"archive_no_files":   "No Valid Files To Archive",
			"archive_build_fail": "Archive Build Failed",

			"unknown_error": "Unknown Error",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangZhCN,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	// 创建通用翻译器
	zhCN := zh.New()
	enUS := en_US.New()
	uni := ut.New(zhCN, enUS, zhCN)

	// 注册支持的语言 - 使用locale库的标识符
	langMappings := map[string]string{
		LangZhCN: "zh",    // 中文使用 "zh"
		LangEnUS: "en_US", // 英文使用 "en_US"
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败 for language %s (locale: %s): translator not found", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}

	logger.Info("国际化翻译器初始化完成")
}

// Translate 根据键和语言获取翻译
func (i *I18n) Translate(key, lang string) string {
	// 检查语言是否支持，否则使用默认语言
	if _, exists := i.translators[lang]; !exists {
		lang = i.defaultLang
	}

	// 查找翻译
	if translation, found := translations[lang][key]; found {
		return translation
	}

	// 如果当前语言没有找到，尝试在默认语言中查找
	if lang != i.defaultLang {
		if translation, found := translations[i.defaultLang][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	i.defaultLang = lang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}
