// Package handler 提供HTTP接口处理器
package handler

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/response"
	"github.com/weiwangfds/picvault/internal/service/batch"
)

// ownerHeader 承载调用方身份的请求头
// 身份认证不在本服务范围内，由前置网关完成，这里只做租户隔离
const ownerHeader = "X-Owner-ID"

// ownerID 从请求头中提取所有者ID
// 缺失时返回空串，由调用处统一拒绝
func ownerID(c *gin.Context) string {
	return c.GetHeader(ownerHeader)
}

// requireOwner 提取所有者ID，缺失时直接响应400
func requireOwner(c *gin.Context) (string, bool) {
	owner := ownerID(c)
	if owner == "" {
		response.BadRequest(c, "missing "+ownerHeader+" header")
		return "", false
	}
	return owner, true
}

// handleError 将业务错误映射到HTTP响应
// 校验类错误映射400，未找到类错误映射404，
// 外部服务（存储/AI）失败映射502并提示可重试，其余映射500
func handleError(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		response.InternalServerError(c, err.Error())
		return
	}

	message := appErr.Message
	if appErr.Details != "" {
		message = message + ": " + appErr.Details
	}

	switch {
	case apperrors.IsValidation(err):
		response.ErrorWithData(c, 400, int(appErr.Code), message, nil)
	case apperrors.IsNotFound(err):
		response.ErrorWithData(c, 404, int(appErr.Code), message, nil)
	case apperrors.IsExternal(err):
		c.Header("Retry-After", "1")
		response.ErrorWithData(c, 502, int(appErr.Code), message, nil)
	default:
		response.ErrorWithData(c, 500, int(appErr.Code), message, nil)
	}
}

// batchItem 批量操作结果中单项的序列化视图
type batchItem struct {
	Index int `json:"index"`
	// Key 原始输入项的标识，失败条目靠它定位到具体文件
	Key     string      `json:"key,omitempty"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

// batchView 批量操作结果的序列化视图
type batchView struct {
	Requested      int         `json:"requested"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	Classification string      `json:"classification"`
	DurationMs     int64       `json:"duration_ms"`
	Items          []batchItem `json:"items"`
}

// newBatchView 将批量结果转换为序列化视图，保持输入顺序
func newBatchView[T any](outcome *batch.Outcome[T]) *batchView {
	view := &batchView{
		Requested:      outcome.Requested,
		Succeeded:      outcome.Succeeded,
		Failed:         outcome.Failed,
		Classification: outcome.Classification,
		DurationMs:     outcome.Duration.Milliseconds(),
		Items:          make([]batchItem, 0, len(outcome.Results)),
	}
	for _, r := range outcome.Results {
		item := batchItem{Index: r.Index, Key: r.Key, Success: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			item.Value = r.Value
		}
		view.Items = append(view.Items, item)
	}
	return view
}

// respondBatch 按批量结果分类选择HTTP状态
// 全部成功返回200，部分成功返回207，全部失败返回500
func respondBatch(c *gin.Context, view *batchView, message string) {
	switch view.Classification {
	case batch.ClassAllSucceeded:
		response.SuccessWithMessage(c, message, view)
	case batch.ClassPartial:
		response.MultiStatus(c, message+" (partial)", view)
	default:
		response.ErrorWithData(c, 500, int(apperrors.ErrInternalServer), message+" (all items failed)", view)
	}
}
