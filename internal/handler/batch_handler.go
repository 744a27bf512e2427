package handler

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/picvault/internal/response"
	"github.com/weiwangfds/picvault/internal/service/ai"
	"github.com/weiwangfds/picvault/internal/service/archive"
	"github.com/weiwangfds/picvault/internal/service/batch"
	"github.com/weiwangfds/picvault/internal/service/file"
)

// BatchHandler 批量操作接口处理器
type BatchHandler struct {
	batchService   batch.Service
	archiveService archive.Service
}

// NewBatchHandler 创建批量操作接口处理器
func NewBatchHandler(batchService batch.Service, archiveService archive.Service) *BatchHandler {
	return &BatchHandler{
		batchService:   batchService,
		archiveService: archiveService,
	}
}

// idsRequest 携带文件ID列表的请求体
type idsRequest struct {
	FileIDs []string `json:"file_ids" binding:"required"`
}

// BatchUpload 批量上传文件
// @Summary 批量上传文件
// @Description 以multipart形式批量上传，单个文件失败不影响其他文件
// @Tags 批量操作
// @Accept multipart/form-data
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param files formData file true "文件列表"
// @Param analyze formData bool false "是否进行AI分析"
// @Param tag_style formData string false "标签风格: neutral/playful/seo"
// @Success 200 {object} response.Response
// @Success 207 {object} response.Response
// @Router /api/v1/files/batch [post]
func (h *BatchHandler) BatchUpload(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "invalid multipart form: "+err.Error())
		return
	}

	fileHeaders := form.File["files"]
	items := make([]batch.UploadItem, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		src, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "failed to open uploaded file: "+fh.Filename)
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			response.InternalServerError(c, "failed to read uploaded file: "+fh.Filename)
			return
		}
		items = append(items, batch.UploadItem{FileName: fh.Filename, Data: data})
	}

	opts := file.UploadOptions{
		AnalyzeWithAI: c.PostForm("analyze") == "true",
		TagStyle:      ai.ParseTagStyle(c.PostForm("tag_style")),
	}

	outcome, err := h.batchService.UploadMany(c.Request.Context(), items, owner, opts)
	if err != nil {
		handleError(c, err)
		return
	}

	respondBatch(c, newBatchView(outcome), "批量上传完成")
}

// BatchRegenerate 批量重新生成AI分析
// @Summary 批量重新生成AI分析
// @Tags 批量操作
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Success 200 {object} response.Response
// @Success 207 {object} response.Response
// @Router /api/v1/files/batch/analysis [post]
func (h *BatchHandler) BatchRegenerate(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req struct {
		FileIDs  []string `json:"file_ids" binding:"required"`
		TagStyle string   `json:"tag_style"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.batchService.RegenerateMany(c.Request.Context(), req.FileIDs, owner, ai.ParseTagStyle(req.TagStyle))
	if err != nil {
		handleError(c, err)
		return
	}

	respondBatch(c, newBatchView(outcome), "批量分析完成")
}

// BatchUpdate 批量更新文件元数据
// @Summary 批量更新文件元数据
// @Tags 批量操作
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Success 200 {object} response.Response
// @Success 207 {object} response.Response
// @Router /api/v1/files/batch [put]
func (h *BatchHandler) BatchUpdate(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req struct {
		Items []batch.UpdateItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.batchService.UpdateMany(c.Request.Context(), req.Items, owner)
	if err != nil {
		handleError(c, err)
		return
	}

	respondBatch(c, newBatchView(outcome), "批量更新完成")
}

// BatchDelete 批量删除文件
// @Summary 批量删除文件
// @Tags 批量操作
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Success 200 {object} response.Response
// @Success 207 {object} response.Response
// @Router /api/v1/files/batch/delete [post]
func (h *BatchHandler) BatchDelete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.batchService.DeleteMany(c.Request.Context(), req.FileIDs, owner)
	if err != nil {
		handleError(c, err)
		return
	}

	respondBatch(c, newBatchView(outcome), "批量删除完成")
}

// BatchDownload 批量下载文件（ZIP归档）
// @Summary 批量下载文件
// @Description 将多个文件打包为ZIP下载，部分文件不可用时归档内附带manifest.txt清单
// @Tags 批量操作
// @Accept json
// @Produce application/zip
// @Param X-Owner-ID header string true "所有者ID"
// @Success 200 {file} binary
// @Router /api/v1/files/batch/download [post]
func (h *BatchHandler) BatchDownload(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if len(req.FileIDs) > batch.MaxDownloadBatch {
		response.BadRequest(c, fmt.Sprintf("requested %d files, limit is %d", len(req.FileIDs), batch.MaxDownloadBatch))
		return
	}

	// 先在内存中构建归档: 构建失败时还能返回结构化错误而不是半截ZIP
	var buf bytes.Buffer
	summary, err := h.archiveService.BuildArchive(c.Request.Context(), req.FileIDs, owner, &buf)
	if err != nil {
		handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("files-%s.zip", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("X-Archive-Requested", fmt.Sprintf("%d", summary.Requested))
	c.Header("X-Archive-Archived", fmt.Sprintf("%d", summary.Archived))
	c.Data(200, "application/zip", buf.Bytes())
}
