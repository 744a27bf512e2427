package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response 统一返回值结构体
// @Description API统一响应格式
type Response struct {
	// 状态码，0表示成功，非0表示失败
	Code int `json:"code" example:"0"`
	// 响应消息
	Message string `json:"message" example:"success"`
	// 响应数据
	Data interface{} `json:"data,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty" example:"req_123456789"`
	// 时间戳
	Timestamp int64 `json:"timestamp" example:"1640995200"`
}

// PageData 分页数据结构体
// @Description 分页响应数据格式
type PageData struct {
	// 数据列表
	List interface{} `json:"list"`
	// 总数
	Total int64 `json:"total" example:"100"`
	// 当前页码
	Page int `json:"page" example:"1"`
	// 每页大小
	PageSize int `json:"page_size" example:"10"`
	// 总页数
	TotalPages int `json:"total_pages" example:"10"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// Created 资源创建成功响应
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	pageData := PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      pageData,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// MultiStatus 部分成功响应
// 批量操作中部分条目成功、部分失败时使用，返回207状态码
// 与全部成功(200)和全部失败(500)严格区分，调用方依赖这三种信号
func MultiStatus(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusMultiStatus, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// ErrorWithData 带数据的错误响应
// 批量操作全部失败时仍需返回逐条结果，供调用方定位每个条目的失败原因
func ErrorWithData(c *gin.Context, httpStatus int, code int, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// BadRequest 请求参数错误响应
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:      400,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// NotFound 资源未找到响应
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Code:      404,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// InternalServerError 服务器内部错误响应
func InternalServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:      500,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: getCurrentTimestamp(),
	})
}

// getRequestID 获取请求ID
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// getCurrentTimestamp 获取当前时间戳
func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
