// Package archive 提供多文件打包下载能力
// 将一组文件从对象存储流式写入ZIP归档，对单文件下载失败保持宽容
package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/weiwangfds/picvault/internal/database"
	apperrors "github.com/weiwangfds/picvault/internal/errors"
	"github.com/weiwangfds/picvault/internal/logger"
	"github.com/weiwangfds/picvault/internal/service/file"
)

// manifestName 记录打包失败文件清单的归档内文件名
const manifestName = "manifest.txt"

// Summary 归档构建的汇总结果
type Summary struct {
	// Requested 请求打包的文件数
	Requested int `json:"requested"`
	// Archived 成功写入归档的文件数
	Archived int `json:"archived"`
	// Skipped 因不存在或下载失败而跳过的文件数
	Skipped int `json:"skipped"`
}

// Service 归档服务接口
type Service interface {
	// BuildArchive 将指定文件打包为ZIP并写入w
	// 不属于该所有者的文件ID被静默排除；单个文件下载失败不中止打包，
	// 失败清单以manifest.txt的形式附在归档内；所有文件都无效时返回错误
	BuildArchive(ctx context.Context, fileIDs []string, ownerID string, w io.Writer) (*Summary, error)
}

// service 归档服务实现
type service struct {
	fileService file.FileService
}

// NewService 创建归档服务实例
func NewService(fileService file.FileService) Service {
	return &service{fileService: fileService}
}

// BuildArchive 将指定文件打包为ZIP并写入w
func (s *service) BuildArchive(ctx context.Context, fileIDs []string, ownerID string, w io.Writer) (*Summary, error) {
	if len(fileIDs) == 0 {
		return nil, apperrors.NewByCode(apperrors.ErrBatchEmpty)
	}

	// 先解析所有记录: 无效ID和越权ID静默排除，不向调用方泄露存在性信息
	var records []*database.FileRecord
	var failures []string
	for _, id := range fileIDs {
		record, err := s.fileService.GetFileByID(id, ownerID)
		if err != nil {
			logger.Warnf("归档跳过不可用文件, 文件ID: %s: %v", id, err)
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, apperrors.NewByCode(apperrors.ErrArchiveNoFiles)
	}

	zw := zip.NewWriter(w)
	// 图片本身已压缩，但manifest等文本受益于最高压缩级别
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	summary := &Summary{Requested: len(fileIDs)}
	used := make(map[string]bool)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			zw.Close() //nolint:errcheck
			return nil, err
		}

		entryName := uniqueName(used, record.FileName)
		if err := s.writeEntry(zw, record, entryName); err != nil {
			logger.Warnf("归档写入文件失败, 文件ID: %s: %v", record.FileID, err)
			failures = append(failures, fmt.Sprintf("%s (%s): %v", record.FileName, record.FileID, err))
			continue
		}
		summary.Archived++
	}

	summary.Skipped = summary.Requested - summary.Archived

	// 部分失败时在归档内附上失败清单，让下载方知道缺了什么
	if len(failures) > 0 || summary.Skipped > 0 {
		if err := s.writeManifest(zw, summary, failures); err != nil {
			logger.Warnf("写入归档清单失败: %v", err)
		}
	}

	if summary.Archived == 0 {
		zw.Close() //nolint:errcheck
		return nil, apperrors.NewByCode(apperrors.ErrArchiveNoFiles)
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.WrapByCode(apperrors.ErrArchiveBuildFail, err)
	}

	return summary, nil
}

// writeEntry 从对象存储下载单个文件并写入归档
// 先完整读取到内存再创建条目: 下载中途失败时归档内不留截断的半截条目
func (s *service) writeEntry(zw *zip.Writer, record *database.FileRecord, entryName string) error {
	reader, _, err := s.fileService.GetFileContent(record.FileID, record.OwnerID)
	if err != nil {
		return err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: record.CreatedAt,
	})
	if err != nil {
		return err
	}

	_, err = entry.Write(buf.Bytes())
	return err
}

// writeManifest 写入失败清单
func (s *service) writeManifest(zw *zip.Writer, summary *Summary, failures []string) error {
	entry, err := zw.Create(manifestName)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "requested: %d\narchived: %d\nskipped: %d\n", summary.Requested, summary.Archived, summary.Requested-summary.Archived)
	if len(failures) > 0 {
		sb.WriteString("\nfailed entries:\n")
		for _, f := range failures {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}

	_, err = io.WriteString(entry, sb.String())
	return err
}

// uniqueName 解决归档内文件名冲突
// 同名文件依次追加 -1、-2 等序号后缀，保留原扩展名
func uniqueName(used map[string]bool, name string) string {
	if name == "" {
		name = "file"
	}
	if !used[name] {
		used[name] = true
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
