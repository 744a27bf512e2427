package batch

import (
	"context"
	"fmt"

	"github.com/weiwangfds/picvault/internal/database"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/logger"
	"github.com/weiwangfds/picvault/internal/service/ai"
	"github.com/weiwangfds/picvault/internal/service/file"
)

// 各批量操作的规模上限，同时作为该操作的并发度上界
// 上传最重（传输+存储+AI调用），上限最小；删除最轻，上限最大
const (
	MaxUploadBatch     = 10
	MaxRegenerateBatch = 20
	MaxUpdateBatch     = 50
	MaxDeleteBatch     = 100
	MaxDownloadBatch   = 100
)

// UploadItem 批量上传的单个输入项
type UploadItem struct {
	FileName string
	Data     []byte
}

// UploadResult 批量上传的单项成功结果
type UploadResult struct {
	Record   *database.FileRecord  `json:"record"`
	Analysis *file.AnalysisOutcome `json:"analysis"`
}

// UpdateItem 批量更新元数据的单个输入项
type UpdateItem struct {
	FileID string             `json:"file_id"`
	Patch  file.MetadataPatch `json:"patch"`
}

// ObjectRemover 批量删除依赖的存储清理能力
type ObjectRemover interface {
	DeleteFiles(objectKeys []string) error
}

// Service 批量操作服务接口
// 所有方法对单项失败宽容: 返回的Outcome按输入顺序给出每一项的结果，
// 只有批量级校验失败（空批次、超过上限）才返回error
type Service interface {
	// UploadMany 批量上传文件
	UploadMany(ctx context.Context, items []UploadItem, ownerID string, opts file.UploadOptions) (*Outcome[*UploadResult], error)

	// RegenerateMany 批量重新生成AI分析，分析失败计为该项失败
	RegenerateMany(ctx context.Context, fileIDs []string, ownerID string, style ai.TagStyle) (*Outcome[*database.FileRecord], error)

	// UpdateMany 批量更新文件元数据
	UpdateMany(ctx context.Context, items []UpdateItem, ownerID string) (*Outcome[*database.FileRecord], error)

	// DeleteMany 批量删除文件
	// 各记录逐项删除，对应的存储对象在最后统一批量清理（尽力而为）
	DeleteMany(ctx context.Context, fileIDs []string, ownerID string) (*Outcome[string], error)
}

// service 批量操作服务实现
type service struct {
	fileService file.FileService
	remover     ObjectRemover
}

// NewService 创建批量操作服务实例
// 参数:
//   - fileService: 文件服务实例，承载所有单项操作
//   - remover: 对象存储的批量删除能力
func NewService(fileService file.FileService, remover ObjectRemover) Service {
	return &service{
		fileService: fileService,
		remover:     remover,
	}
}

// UploadMany 批量上传文件
func (s *service) UploadMany(ctx context.Context, items []UploadItem, ownerID string, opts file.UploadOptions) (*Outcome[*UploadResult], error) {
	if err := checkBatchSize(len(items), MaxUploadBatch); err != nil {
		return nil, err
	}

	outcome := Run(ctx, len(items), MaxUploadBatch, func(ctx context.Context, i int) (*UploadResult, error) {
		record, analysis, err := s.fileService.UploadAndProcess(ctx, items[i].FileName, items[i].Data, ownerID, opts)
		if err != nil {
			return nil, err
		}
		return &UploadResult{Record: record, Analysis: analysis}, nil
	})
	for i := range outcome.Results {
		outcome.Results[i].Key = items[i].FileName
	}

	logger.Infof("批量上传完成, 所有者: %s, 请求: %d, 成功: %d, 失败: %d, 耗时: %v",
		ownerID, outcome.Requested, outcome.Succeeded, outcome.Failed, outcome.Duration)
	return outcome, nil
}

// RegenerateMany 批量重新生成AI分析
func (s *service) RegenerateMany(ctx context.Context, fileIDs []string, ownerID string, style ai.TagStyle) (*Outcome[*database.FileRecord], error) {
	if err := checkBatchSize(len(fileIDs), MaxRegenerateBatch); err != nil {
		return nil, err
	}

	outcome := Run(ctx, len(fileIDs), MaxRegenerateBatch, func(ctx context.Context, i int) (*database.FileRecord, error) {
		record, analysis, err := s.fileService.RegenerateAnalysis(ctx, fileIDs[i], ownerID, style)
		if err != nil {
			return nil, err
		}
		// 文件存在但分析失败同样视为该项失败，调用方据此决定是否重试
		if !analysis.Success {
			return nil, apperrors.NewByCode(apperrors.ErrAnalysisFailed).WithDetails(analysis.Error)
		}
		return record, nil
	})
	for i := range outcome.Results {
		outcome.Results[i].Key = fileIDs[i]
	}

	logger.Infof("批量重新分析完成, 所有者: %s, 请求: %d, 成功: %d, 失败: %d, 耗时: %v",
		ownerID, outcome.Requested, outcome.Succeeded, outcome.Failed, outcome.Duration)
	return outcome, nil
}

// UpdateMany 批量更新文件元数据
func (s *service) UpdateMany(ctx context.Context, items []UpdateItem, ownerID string) (*Outcome[*database.FileRecord], error) {
	if err := checkBatchSize(len(items), MaxUpdateBatch); err != nil {
		return nil, err
	}

	outcome := Run(ctx, len(items), MaxUpdateBatch, func(ctx context.Context, i int) (*database.FileRecord, error) {
		return s.fileService.UpdateMetadata(items[i].FileID, ownerID, items[i].Patch)
	})
	for i := range outcome.Results {
		outcome.Results[i].Key = items[i].FileID
	}
	return outcome, nil
}

// DeleteMany 批量删除文件
func (s *service) DeleteMany(ctx context.Context, fileIDs []string, ownerID string) (*Outcome[string], error) {
	if err := checkBatchSize(len(fileIDs), MaxDeleteBatch); err != nil {
		return nil, err
	}

	paths := make([]string, len(fileIDs))
	outcome := Run(ctx, len(fileIDs), MaxDeleteBatch, func(ctx context.Context, i int) (string, error) {
		record, err := s.fileService.DeleteRecord(fileIDs[i], ownerID)
		if err != nil {
			return "", err
		}
		paths[i] = record.StoragePath
		return fileIDs[i], nil
	})
	for i := range outcome.Results {
		outcome.Results[i].Key = fileIDs[i]
	}

	// 记录删除是权威操作，存储对象末尾统一批量清理，失败只记录
	var toRemove []string
	for i := range paths {
		if paths[i] != "" {
			toRemove = append(toRemove, paths[i])
		}
	}
	if len(toRemove) > 0 {
		if err := s.remover.DeleteFiles(toRemove); err != nil {
			logger.Warnf("批量清理存储对象失败, 数量: %d: %v", len(toRemove), err)
		}
	}

	logger.Infof("批量删除完成, 所有者: %s, 请求: %d, 成功: %d, 失败: %d, 耗时: %v",
		ownerID, outcome.Requested, outcome.Succeeded, outcome.Failed, outcome.Duration)
	return outcome, nil
}

// checkBatchSize 校验批量操作规模
func checkBatchSize(n, max int) error {
	if n == 0 {
		return apperrors.NewByCode(apperrors.ErrBatchEmpty)
	}
	if n > max {
		return apperrors.NewByCode(apperrors.ErrBatchTooLarge).
			WithDetails(fmt.Sprintf("requested %d items, limit is %d", n, max))
	}
	return nil
}
