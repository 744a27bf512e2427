// 处理器公共逻辑的单元测试
// 覆盖错误到HTTP状态的映射和批量结果视图的序列化
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/service/batch"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

// TestHandleError 测试业务错误到HTTP状态的映射
func TestHandleError(t *testing.T) {
	t.Run("校验类错误映射400", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, apperrors.NewByCode(apperrors.ErrFileTypeNotAllowed))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("未找到类错误映射404", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, apperrors.NewByCode(apperrors.ErrFileNotFound))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("外部服务错误映射502并提示重试", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, apperrors.WrapByCode(apperrors.ErrStorageUploadFailed, errors.New("timeout")))
		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
	})

	t.Run("其余错误映射500", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, apperrors.NewByCode(apperrors.ErrDatabaseInsert))
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})

	t.Run("非AppError映射500", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, errors.New("plain error"))
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})

	t.Run("响应体携带业务错误码", func(t *testing.T) {
		c, recorder := newTestContext(t)
		handleError(c, apperrors.NewByCode(apperrors.ErrFileNotFound))

		var body struct {
			Code int `json:"code"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, int(apperrors.ErrFileNotFound), body.Code)
	})
}

// TestNewBatchView 测试批量结果视图
func TestNewBatchView(t *testing.T) {
	outcome := &batch.Outcome[string]{
		Results: []batch.Result[string]{
			{Index: 0, Key: "ok.jpg", Value: "done"},
			{Index: 1, Key: "bad.exe", Err: errors.New("type not allowed")},
		},
		Requested:      2,
		Succeeded:      1,
		Failed:         1,
		Classification: batch.ClassPartial,
		Duration:       25 * time.Millisecond,
	}

	view := newBatchView(outcome)

	assert.Equal(t, 2, view.Requested)
	assert.Equal(t, batch.ClassPartial, view.Classification)
	assert.Equal(t, int64(25), view.DurationMs)
	require.Len(t, view.Items, 2)

	assert.True(t, view.Items[0].Success)
	assert.Equal(t, "ok.jpg", view.Items[0].Key)

	// 失败条目携带原始标识和错误信息
	assert.False(t, view.Items[1].Success)
	assert.Equal(t, "bad.exe", view.Items[1].Key)
	assert.Contains(t, view.Items[1].Error, "type not allowed")
	assert.Nil(t, view.Items[1].Value)
}

// TestRespondBatch 测试批量结果的HTTP状态映射
func TestRespondBatch(t *testing.T) {
	build := func(classification string) *batchView {
		return &batchView{Classification: classification}
	}

	t.Run("全部成功返回200", func(t *testing.T) {
		c, recorder := newTestContext(t)
		respondBatch(c, build(batch.ClassAllSucceeded), "done")
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("部分成功返回207", func(t *testing.T) {
		c, recorder := newTestContext(t)
		respondBatch(c, build(batch.ClassPartial), "done")
		assert.Equal(t, http.StatusMultiStatus, recorder.Code)
	})

	t.Run("全部失败返回500且携带逐条结果", func(t *testing.T) {
		c, recorder := newTestContext(t)
		view := build(batch.ClassNoneSucceeded)
		view.Items = []batchItem{{Index: 0, Key: "x.jpg", Error: "boom"}}
		respondBatch(c, view, "done")

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "x.jpg")
	})
}
