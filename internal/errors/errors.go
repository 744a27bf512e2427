package errors

import (
	"fmt"

	"github.com/weiwangfds/picvault/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess            ErrorCode = 0    // 成功
	ErrInternalServer     ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源未找到
	ErrTooManyRequests    ErrorCode = 1006 // 请求过于频繁
	ErrServiceUnavailable ErrorCode = 1007 // 服务不可用

	// 文件相关错误码 (2000-2999)
	ErrFileNotFound       ErrorCode = 2000 // 文件未找到
	ErrFileUploadFailed   ErrorCode = 2002 // 文件上传失败
	ErrFileDeleteFailed   ErrorCode = 2003 // 文件删除失败
	ErrFileSizeTooLarge   ErrorCode = 2006 // 文件大小超限
	ErrFileTypeNotAllowed ErrorCode = 2007 // 文件类型不允许
	ErrTooManyTags        ErrorCode = 2010 // 标签数量超限
	ErrInvalidTag         ErrorCode = 2011 // 标签内容无效

	// 存储相关错误码 (3000-3999)
	ErrStorageConfigNotFound       ErrorCode = 3000 // 存储配置未找到
	ErrStorageConfigInvalid        ErrorCode = 3001 // 存储配置无效
	ErrStorageConnectionFailed     ErrorCode = 3002 // 存储连接失败
	ErrStorageUploadFailed         ErrorCode = 3003 // 存储上传失败
	ErrStorageDownloadFailed       ErrorCode = 3004 // 存储下载失败
	ErrStorageDeleteFailed         ErrorCode = 3005 // 存储删除失败
	ErrStorageProviderNotSupported ErrorCode = 3008 // 存储提供商不支持

	// 数据库相关错误码 (4000-4999)
	ErrDatabaseQuery  ErrorCode = 4001 // 数据库查询错误
	ErrDatabaseInsert ErrorCode = 4002 // 数据库插入错误
	ErrDatabaseUpdate ErrorCode = 4003 // 数据库更新错误
	ErrDatabaseDelete ErrorCode = 4004 // 数据库删除错误
	ErrRecordNotFound ErrorCode = 4006 // 记录未找到

	// AI分析相关错误码 (5000-5999)
	ErrAnalysisFailed      ErrorCode = 5000 // AI分析失败
	ErrAnalysisUnavailable ErrorCode = 5001 // AI分析服务不可用
	ErrAnalysisBadResponse ErrorCode = 5002 // AI分析响应解析失败
	ErrNotAnImage          ErrorCode = 5003 // 文件不是图片类型

	// 批量操作与归档相关错误码 (6000-6999)
	ErrBatchTooLarge    ErrorCode = 6000 // 批量条目数超过上限
	ErrBatchEmpty       ErrorCode = 6001 // 批量条目列表为空
	ErrArchiveNoFiles   ErrorCode = 6002 // 没有可归档的有效文件
	ErrArchiveBuildFail ErrorCode = 6003 // 归档构建失败
)

// AppError 应用错误结构体
// @Description 应用程序统一错误格式
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息
	Message string `json:"message"`
	// 详细错误信息
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误，支持errors.Is/As链式判断
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// WithDetails 添加详细错误信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewByCode 根据错误码创建应用错误，消息由i18n解析
func NewByCode(code ErrorCode) *AppError {
	return &AppError{
		Code:    code,
		Message: GetErrorMessage(code),
	}
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{
		Code:          code,
		Message:       message,
		OriginalError: err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// WrapByCode 根据错误码包装原始错误，消息由i18n解析
func WrapByCode(code ErrorCode, err error) *AppError {
	return Wrap(code, GetErrorMessage(code), err)
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// IsValidation 判断错误是否属于输入校验类错误
// 校验类错误在任何外部服务被调用之前产生，不会留下副作用，也不应被重试
func IsValidation(err error) bool {
	appErr, ok := GetAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrInvalidParams, ErrFileSizeTooLarge, ErrFileTypeNotAllowed,
		ErrTooManyTags, ErrInvalidTag, ErrBatchTooLarge, ErrBatchEmpty, ErrNotAnImage:
		return true
	}
	return false
}

// IsNotFound 判断错误是否属于资源未找到/无权访问类错误
func IsNotFound(err error) bool {
	appErr, ok := GetAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrNotFound, ErrFileNotFound, ErrRecordNotFound, ErrStorageConfigNotFound, ErrForbidden:
		return true
	}
	return false
}

// IsExternal 判断错误是否由外部服务（存储或AI）失败引起
// 外部服务类错误对于分析操作是可重试的
func IsExternal(err error) bool {
	appErr, ok := GetAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrStorageConnectionFailed, ErrStorageUploadFailed, ErrStorageDownloadFailed,
		ErrStorageDeleteFailed, ErrAnalysisFailed, ErrAnalysisUnavailable,
		ErrAnalysisBadResponse, ErrServiceUnavailable:
		return true
	}
	return false
}

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:            "success",
	ErrInternalServer:     "internal_server_error",
	ErrInvalidParams:      "invalid_params",
	ErrUnauthorized:       "unauthorized",
	ErrForbidden:          "forbidden",
	ErrNotFound:           "not_found",
	ErrTooManyRequests:    "too_many_requests",
	ErrServiceUnavailable: "service_unavailable",

	ErrFileNotFound:       "file_not_found",
	ErrFileUploadFailed:   "file_upload_failed",
	ErrFileDeleteFailed:   "file_delete_failed",
	ErrFileSizeTooLarge:   "file_size_too_large",
	ErrFileTypeNotAllowed: "file_type_not_allowed",
	ErrTooManyTags:        "too_many_tags",
	ErrInvalidTag:         "invalid_tag",

	ErrStorageConfigNotFound:       "storage_config_not_found",
	ErrStorageConfigInvalid:        "storage_config_invalid",
	ErrStorageConnectionFailed:     "storage_connection_failed",
	ErrStorageUploadFailed:         "storage_upload_failed",
	ErrStorageDownloadFailed:       "storage_download_failed",
	ErrStorageDeleteFailed:         "storage_delete_failed",
	ErrStorageProviderNotSupported: "storage_provider_not_supported",

	ErrDatabaseQuery:  "database_query",
	ErrDatabaseInsert: "database_insert",
	ErrDatabaseUpdate: "database_update",
	ErrDatabaseDelete: "database_delete",
	ErrRecordNotFound: "record_not_found",

	ErrAnalysisFailed:      "analysis_failed",
	ErrAnalysisUnavailable: "analysis_unavailable",
	ErrAnalysisBadResponse: "analysis_bad_response",
	ErrNotAnImage:          "not_an_image",

	ErrBatchTooLarge:    "batch_too_large",
	ErrBatchEmpty:       "batch_empty",
	ErrArchiveNoFiles:   "archive_no_files",
	ErrArchiveBuildFail: "archive_build_fail",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	// 获取错误码对应的i18n键
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}

	// 使用i18n获取翻译
	return i18n.GetInstance().Translate(key, lang)
}
