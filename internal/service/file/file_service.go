// Package file 提供文件上传编排和文件记录管理的业务逻辑实现
// 驱动单文件流水线: 校验 -> 上传存储 -> 落库 -> AI分析 -> 状态终结
package file

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weiwangfds/picvault/config"
	"github.com/weiwangfds/picvault/internal/database"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/logger"
	"github.com/weiwangfds/picvault/internal/service/ai"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ObjectStorage 文件服务依赖的对象存储能力
// storage.Manager实现了此接口，测试中可注入假实现
type ObjectStorage interface {
	UploadFile(objectKey string, reader io.Reader, contentType string) error
	DownloadFile(objectKey string) (io.ReadCloser, error)
	DeleteFile(objectKey string) error
	DeleteFiles(objectKeys []string) error
	SignedURL(objectKey string, expires time.Duration) (string, error)
	SignedURLTTL() time.Duration
}

// UploadOptions 上传选项
type UploadOptions struct {
	// AnalyzeWithAI 上传完成后是否立即进行AI分析
	AnalyzeWithAI bool
	// TagStyle AI生成标签的风格
	TagStyle ai.TagStyle
}

// AnalysisOutcome AI分析的原始结果
// 与上传结果分开返回，调用方可以在上传成功的前提下单独报告分析失败
type AnalysisOutcome struct {
	// Attempted 是否实际发起了分析
	Attempted bool `json:"attempted"`
	// Success 分析是否成功
	Success bool `json:"success"`
	// Error 分析失败时的原因
	Error string `json:"error,omitempty"`
}

// MetadataPatch 文件元数据更新补丁
// 显式列出允许更新的字段，nil表示不修改该字段
type MetadataPatch struct {
	// FileName 新的文件名，非空且不超过255字符
	FileName *string `json:"file_name,omitempty"`
	// Description 新的描述，空字符串表示清除描述
	Description *string `json:"description,omitempty"`
	// Tags 新的标签列表，数量不超过上限且不允许空白标签
	Tags *[]string `json:"tags,omitempty"`
}

// mimeTypes 扩展名到MIME类型的映射
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// FileService 文件服务接口
type FileService interface {
	// UploadAndProcess 上传文件并按需进行AI分析
	// 流水线保证: 校验失败不产生任何副作用；存储上传失败不落库；
	// 落库失败直接报错（存储侧可能遗留孤儿对象，记录是可见性的唯一事实源）；
	// 分析失败不影响上传结果，记录状态置为failed且可重试
	UploadAndProcess(ctx context.Context, fileName string, data []byte, ownerID string, opts UploadOptions) (*database.FileRecord, *AnalysisOutcome, error)

	// RegenerateAnalysis 重新生成文件的AI分析结果
	// 状态经由processing转移到completed或failed，提交前重新获取签名URL
	RegenerateAnalysis(ctx context.Context, fileID, ownerID string, style ai.TagStyle) (*database.FileRecord, *AnalysisOutcome, error)

	// GetFileByID 根据文件ID获取文件记录，按所有者隔离
	GetFileByID(fileID, ownerID string) (*database.FileRecord, error)

	// GetFileContent 获取文件内容流，按所有者隔离
	GetFileContent(fileID, ownerID string) (io.ReadCloser, *database.FileRecord, error)

	// ListFiles 获取文件列表（分页）
	ListFiles(ownerID string, page, pageSize int) ([]database.FileRecord, int64, error)

	// SearchFiles 根据文件名或描述搜索文件
	SearchFiles(ownerID, query string, page, pageSize int) ([]database.FileRecord, int64, error)

	// UpdateMetadata 更新文件元数据
	UpdateMetadata(fileID, ownerID string, patch MetadataPatch) (*database.FileRecord, error)

	// DeleteFile 删除文件
	// 数据库删除是权威操作，存储删除尽力而为，失败只记录不阻断
	DeleteFile(fileID, ownerID string) error

	// DeleteRecord 仅删除文件记录并返回被删除的记录
	// 供批量删除使用，存储对象由调用方统一批量清理
	DeleteRecord(fileID, ownerID string) (*database.FileRecord, error)
}

// fileService 文件服务实现
type fileService struct {
	db       *gorm.DB
	cfg      config.FileConfig
	storage  ObjectStorage
	analyzer ai.ImageAnalyzer
}

// NewFileService 创建文件服务实例
// 所有依赖通过参数显式注入，不使用进程级单例
// 参数:
//   - db: GORM数据库连接实例
//   - cfg: 文件上传配置
//   - storage: 对象存储实例
//   - analyzer: AI图片分析器实例
func NewFileService(db *gorm.DB, cfg config.FileConfig, storage ObjectStorage, analyzer ai.ImageAnalyzer) FileService {
	return &fileService{
		db:       db,
		cfg:      cfg,
		storage:  storage,
		analyzer: analyzer,
	}
}

// UploadAndProcess 上传文件并按需进行AI分析
func (s *fileService) UploadAndProcess(ctx context.Context, fileName string, data []byte, ownerID string, opts UploadOptions) (*database.FileRecord, *AnalysisOutcome, error) {
	outcome := &AnalysisOutcome{}

	// 第一步: 校验，失败时快速返回，不产生任何副作用
	ext, err := s.validateUpload(fileName, data)
	if err != nil {
		return nil, outcome, err
	}

	// 第二步: 生成抗碰撞的存储路径，路径必须包含所有者ID段以实现租户隔离
	// 随机段来自加密安全的随机源，不可预测
	storagePath := fmt.Sprintf("images/%s/%d-%s%s", ownerID, time.Now().UnixMilli(), randomHex(8), ext)
	contentType := mimeTypes[ext]

	// 第三步: 上传到对象存储，失败时中止，不创建记录（不产生孤儿元数据）
	if err := s.storage.UploadFile(storagePath, bytes.NewReader(data), contentType); err != nil {
		logger.Errorf("文件上传到存储失败, 路径: %s: %v", storagePath, err)
		return nil, outcome, apperrors.WrapByCode(apperrors.ErrStorageUploadFailed, err)
	}

	// 获取签名访问URL
	fileURL, err := s.storage.SignedURL(storagePath, s.storage.SignedURLTTL())
	if err != nil {
		logger.Errorf("生成签名URL失败, 路径: %s: %v", storagePath, err)
		return nil, outcome, apperrors.WrapByCode(apperrors.ErrStorageUploadFailed, err)
	}

	// 第四步: 创建文件记录
	// 落库失败时不自动重试也不回滚存储，存储侧孤儿对象可接受，记录是可见性的唯一事实源
	status := database.StatusUploaded
	if opts.AnalyzeWithAI {
		status = database.StatusProcessing
	}

	record := &database.FileRecord{
		FileID:      uuid.New().String(),
		OwnerID:     ownerID,
		FileName:    fileName,
		StoragePath: storagePath,
		FileSize:    int64(len(data)),
		MimeType:    contentType,
		FileURL:     fileURL,
		Status:      status,
	}

	if err := s.db.Create(record).Error; err != nil {
		logger.Errorf("创建文件记录失败, 存储路径: %s: %v", storagePath, err)
		return nil, outcome, apperrors.WrapByCode(apperrors.ErrDatabaseInsert, err)
	}

	// 第五步: 按需进行AI分析
	if opts.AnalyzeWithAI && isImageMime(record.MimeType) {
		s.runAnalysis(ctx, record, fileURL, opts.TagStyle, outcome)
	}

	return record, outcome, nil
}

// RegenerateAnalysis 重新生成文件的AI分析结果
func (s *fileService) RegenerateAnalysis(ctx context.Context, fileID, ownerID string, style ai.TagStyle) (*database.FileRecord, *AnalysisOutcome, error) {
	outcome := &AnalysisOutcome{}

	record, err := s.GetFileByID(fileID, ownerID)
	if err != nil {
		return nil, outcome, err
	}

	if !isImageMime(record.MimeType) {
		return nil, outcome, apperrors.NewByCode(apperrors.ErrNotAnImage)
	}

	// 进入processing状态
	if err := s.db.Model(record).Update("status", database.StatusProcessing).Error; err != nil {
		return nil, outcome, apperrors.WrapByCode(apperrors.ErrDatabaseUpdate, err)
	}
	record.Status = database.StatusProcessing

	// 签名URL有时效性，提交分析前按需重新获取
	fileURL, err := s.storage.SignedURL(record.StoragePath, s.storage.SignedURLTTL())
	if err != nil {
		outcome.Attempted = true
		outcome.Error = err.Error()
		s.finalizeFailure(record, outcome)
		return record, outcome, nil
	}

	s.runAnalysis(ctx, record, fileURL, style, outcome)
	return record, outcome, nil
}

// runAnalysis 执行AI分析并终结记录状态
// 分析成功: 更新描述和标签，状态置为completed
// 分析失败: 状态置为failed，失败原因写入outcome，记录保持可见可重试
func (s *fileService) runAnalysis(ctx context.Context, record *database.FileRecord, fileURL string, style ai.TagStyle, outcome *AnalysisOutcome) {
	outcome.Attempted = true

	analysis, err := s.analyzer.Analyze(ctx, fileURL, style)
	if err != nil {
		logger.Warnf("AI分析失败, 文件ID: %s: %v", record.FileID, err)
		outcome.Error = err.Error()
		s.finalizeFailure(record, outcome)
		return
	}

	tags := datatypes.NewJSONSlice(ai.NormalizeTags(analysis.Tags))
	updates := map[string]interface{}{
		"description": analysis.Description,
		"tags":        tags,
		"status":      database.StatusCompleted,
	}
	if err := s.db.Model(record).Updates(updates).Error; err != nil {
		logger.Errorf("保存AI分析结果失败, 文件ID: %s: %v", record.FileID, err)
		outcome.Error = err.Error()
		s.finalizeFailure(record, outcome)
		return
	}

	record.Description = &analysis.Description
	record.Tags = tags
	record.Status = database.StatusCompleted
	outcome.Success = true
}

// finalizeFailure 将记录状态置为failed
func (s *fileService) finalizeFailure(record *database.FileRecord, outcome *AnalysisOutcome) {
	if err := s.db.Model(record).Update("status", database.StatusFailed).Error; err != nil {
		logger.Errorf("更新文件状态为failed失败, 文件ID: %s: %v", record.FileID, err)
	}
	record.Status = database.StatusFailed
}

// GetFileByID 根据文件ID获取文件记录
func (s *fileService) GetFileByID(fileID, ownerID string) (*database.FileRecord, error) {
	var record database.FileRecord
	if err := s.db.Where("file_id = ? AND owner_id = ?", fileID, ownerID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewByCode(apperrors.ErrFileNotFound).WithDetails(fileID)
		}
		return nil, apperrors.WrapByCode(apperrors.ErrDatabaseQuery, err)
	}
	return &record, nil
}

// GetFileContent 获取文件内容流
func (s *fileService) GetFileContent(fileID, ownerID string) (io.ReadCloser, *database.FileRecord, error) {
	record, err := s.GetFileByID(fileID, ownerID)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.storage.DownloadFile(record.StoragePath)
	if err != nil {
		return nil, nil, apperrors.WrapByCode(apperrors.ErrStorageDownloadFailed, err)
	}

	return reader, record, nil
}

// ListFiles 获取文件列表（分页）
func (s *fileService) ListFiles(ownerID string, page, pageSize int) ([]database.FileRecord, int64, error) {
	var files []database.FileRecord
	var total int64

	query := s.db.Model(&database.FileRecord{}).Where("owner_id = ?", ownerID)

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapByCode(apperrors.ErrDatabaseQuery, err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, 0, apperrors.WrapByCode(apperrors.ErrDatabaseQuery, err)
	}

	return files, total, nil
}

// SearchFiles 根据文件名或描述搜索文件
func (s *fileService) SearchFiles(ownerID, query string, page, pageSize int) ([]database.FileRecord, int64, error) {
	var files []database.FileRecord
	var total int64

	searchQuery := "%" + query + "%"
	dbQuery := s.db.Model(&database.FileRecord{}).
		Where("owner_id = ?", ownerID).
		Where("file_name LIKE ? OR description LIKE ?", searchQuery, searchQuery)

	// 获取总数
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapByCode(apperrors.ErrDatabaseQuery, err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := dbQuery.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, 0, apperrors.WrapByCode(apperrors.ErrDatabaseQuery, err)
	}

	return files, total, nil
}

// UpdateMetadata 更新文件元数据
func (s *fileService) UpdateMetadata(fileID, ownerID string, patch MetadataPatch) (*database.FileRecord, error) {
	record, err := s.GetFileByID(fileID, ownerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if patch.FileName != nil {
		name := strings.TrimSpace(*patch.FileName)
		if name == "" || len(name) > 255 {
			return nil, apperrors.NewByCode(apperrors.ErrInvalidParams).WithDetails("file name must be 1-255 characters")
		}
		updates["file_name"] = name
	}

	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	if patch.Tags != nil {
		tags := *patch.Tags
		if len(tags) > database.MaxTags {
			return nil, apperrors.NewByCode(apperrors.ErrTooManyTags)
		}
		for _, tag := range tags {
			if strings.TrimSpace(tag) == "" {
				return nil, apperrors.NewByCode(apperrors.ErrInvalidTag)
			}
		}
		updates["tags"] = datatypes.NewJSONSlice(tags)
	}

	if len(updates) == 0 {
		return record, nil
	}

	if err := s.db.Model(record).Updates(updates).Error; err != nil {
		return nil, apperrors.WrapByCode(apperrors.ErrDatabaseUpdate, err)
	}

	return s.GetFileByID(fileID, ownerID)
}

// DeleteFile 删除文件
func (s *fileService) DeleteFile(fileID, ownerID string) error {
	record, err := s.DeleteRecord(fileID, ownerID)
	if err != nil {
		return err
	}

	// 存储删除尽力而为，失败不阻断: 数据库是"文件是否存在"的权威视图，
	// 宁可遗留存储孤儿，也不保留用户不可访问的悬空记录
	if err := s.storage.DeleteFile(record.StoragePath); err != nil {
		logger.Warnf("删除存储对象失败, 路径: %s: %v", record.StoragePath, err)
	}

	return nil
}

// DeleteRecord 仅删除文件记录并返回被删除的记录
func (s *fileService) DeleteRecord(fileID, ownerID string) (*database.FileRecord, error) {
	record, err := s.GetFileByID(fileID, ownerID)
	if err != nil {
		return nil, err
	}

	// 删除数据库记录（软删除）
	if err := s.db.Delete(record).Error; err != nil {
		return nil, apperrors.WrapByCode(apperrors.ErrDatabaseDelete, err)
	}

	return record, nil
}

// validateUpload 校验上传文件的扩展名和大小
// 返回小写的文件扩展名
func (s *fileService) validateUpload(fileName string, data []byte) (string, error) {
	if fileName == "" || len(data) == 0 {
		return "", apperrors.NewByCode(apperrors.ErrInvalidParams).WithDetails("file name and content are required")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !s.isAllowedExtension(ext) {
		return "", apperrors.NewByCode(apperrors.ErrFileTypeNotAllowed).WithDetails(ext)
	}

	if int64(len(data)) > s.cfg.MaxFileSize {
		return "", apperrors.NewByCode(apperrors.ErrFileSizeTooLarge).
			WithDetails(fmt.Sprintf("file size %d exceeds maximum allowed size %d", len(data), s.cfg.MaxFileSize))
	}

	return ext, nil
}

// isAllowedExtension 检查文件扩展名是否在白名单中
func (s *fileService) isAllowedExtension(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// isImageMime 判断MIME类型是否为图片
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// randomHex 生成加密安全的随机十六进制字符串
func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand不可用时退化为UUID，仍然不可预测
		return strings.ReplaceAll(uuid.New().String(), "-", "")[:n*2]
	}
	return hex.EncodeToString(buf)
}
