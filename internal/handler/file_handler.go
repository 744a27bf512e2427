package handler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/picvault/internal/response"
	"github.com/weiwangfds/picvault/internal/service/ai"
	"github.com/weiwangfds/picvault/internal/service/file"
)

// FileHandler 文件接口处理器
type FileHandler struct {
	fileService file.FileService
	storage     file.ObjectStorage
}

// NewFileHandler 创建文件接口处理器
func NewFileHandler(fileService file.FileService, storage file.ObjectStorage) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		storage:     storage,
	}
}

// UploadFile 上传单个文件
// @Summary 上传文件
// @Description 上传单个图片文件，可选择同步进行AI描述和标签生成
// @Tags 文件管理
// @Accept multipart/form-data
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param file formData file true "文件"
// @Param analyze formData bool false "是否进行AI分析"
// @Param tag_style formData string false "标签风格: neutral/playful/seo"
// @Success 201 {object} response.Response
// @Router /api/v1/files [post]
func (h *FileHandler) UploadFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.InternalServerError(c, "failed to read uploaded file")
		return
	}

	opts := file.UploadOptions{
		AnalyzeWithAI: c.PostForm("analyze") == "true",
		TagStyle:      ai.ParseTagStyle(c.PostForm("tag_style")),
	}

	record, analysis, err := h.fileService.UploadAndProcess(c.Request.Context(), fileHeader.Filename, data, owner, opts)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, "文件上传成功", gin.H{
		"record":   record,
		"analysis": analysis,
	})
}

// GetFile 获取文件详情
// @Summary 获取文件详情
// @Tags 文件管理
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response
// @Router /api/v1/files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	record, err := h.fileService.GetFileByID(c.Param("id"), owner)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, record)
}

// GetFileURL 获取文件的签名访问URL
// @Summary 获取文件访问URL
// @Description 签名URL有时效性，每次调用重新生成
// @Tags 文件管理
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response
// @Router /api/v1/files/{id}/url [get]
func (h *FileHandler) GetFileURL(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	record, err := h.fileService.GetFileByID(c.Param("id"), owner)
	if err != nil {
		handleError(c, err)
		return
	}

	url, err := h.storage.SignedURL(record.StoragePath, h.storage.SignedURLTTL())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"file_id": record.FileID,
		"url":     url,
	})
}

// DownloadFile 下载文件内容
// @Summary 下载文件
// @Tags 文件管理
// @Produce octet-stream
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Success 200 {file} binary
// @Router /api/v1/files/{id}/download [get]
func (h *FileHandler) DownloadFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	reader, record, err := h.fileService.GetFileContent(c.Param("id"), owner)
	if err != nil {
		handleError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.FileName))
	c.Header("Content-Type", record.MimeType)
	c.Header("Content-Length", strconv.FormatInt(record.FileSize, 10))
	c.DataFromReader(200, record.FileSize, record.MimeType, reader, nil)
}

// ListFiles 获取文件列表
// @Summary 获取文件列表
// @Description 分页返回当前所有者的文件，支持按文件名或描述搜索
// @Tags 文件管理
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param q query string false "搜索关键词"
// @Success 200 {object} response.Response
// @Router /api/v1/files [get]
func (h *FileHandler) ListFiles(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if query := c.Query("q"); query != "" {
		records, count, err := h.fileService.SearchFiles(owner, query, page, pageSize)
		if err != nil {
			handleError(c, err)
			return
		}
		response.SuccessWithPage(c, records, count, page, pageSize)
		return
	}

	records, count, err := h.fileService.ListFiles(owner, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithPage(c, records, count, page, pageSize)
}

// UpdateMetadata 更新文件元数据
// @Summary 更新文件元数据
// @Description 按补丁语义更新文件名、描述和标签，未提供的字段保持不变
// @Tags 文件管理
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Param patch body file.MetadataPatch true "元数据补丁"
// @Success 200 {object} response.Response
// @Router /api/v1/files/{id} [put]
func (h *FileHandler) UpdateMetadata(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var patch file.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	record, err := h.fileService.UpdateMetadata(c.Param("id"), owner, patch)
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "文件元数据更新成功", record)
}

// RegenerateAnalysis 重新生成AI分析
// @Summary 重新生成AI分析
// @Description 对已有文件重新发起AI描述和标签生成，可指定标签风格
// @Tags 文件管理
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response
// @Router /api/v1/files/{id}/analysis [post]
func (h *FileHandler) RegenerateAnalysis(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req struct {
		TagStyle string `json:"tag_style"`
	}
	// 请求体可选，解析失败按默认风格处理
	_ = c.ShouldBindJSON(&req)

	record, analysis, err := h.fileService.RegenerateAnalysis(c.Request.Context(), c.Param("id"), owner, ai.ParseTagStyle(req.TagStyle))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"record":   record,
		"analysis": analysis,
	})
}

// DeleteFile 删除文件
// @Summary 删除文件
// @Tags 文件管理
// @Produce json
// @Param X-Owner-ID header string true "所有者ID"
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response
// @Router /api/v1/files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(c.Param("id"), owner); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "文件删除成功", nil)
}
