package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/picvault/internal/database"
)

// QiniuKodoProvider 七牛云Kodo提供商实现
type QiniuKodoProvider struct {
	mac          *qbox.Mac
	bucketName   string
	bucketDomain string
	region       *storage.Region
	config       *database.StorageConfig
}

// NewQiniuKodoProvider 创建七牛云Kodo提供商实例
func NewQiniuKodoProvider(config *database.StorageConfig) (*QiniuKodoProvider, error) {
	mac := qbox.NewMac(config.AccessKey, config.SecretKey)

	// 获取区域信息
	region, err := storage.GetRegion(config.AccessKey, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	// 构建域名
	bucketDomain := config.Endpoint
	if bucketDomain == "" {
		bucketDomain = fmt.Sprintf("%s.%s", config.Bucket, region.RsHost)
	}

	return &QiniuKodoProvider{
		mac:          mac,
		bucketName:   config.Bucket,
		bucketDomain: bucketDomain,
		region:       region,
		config:       config,
	}, nil
}

// bucketManager 创建存储桶管理器
func (p *QiniuKodoProvider) bucketManager() *storage.BucketManager {
	return storage.NewBucketManager(p.mac, &storage.Config{
		Region: p.region,
	})
}

// UploadFile 上传文件到七牛云Kodo
func (p *QiniuKodoProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	putPolicy := storage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := storage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	}

	formUploader := storage.NewFormUploader(&cfg)
	ret := storage.PutRet{}

	putExtra := storage.PutExtra{}
	if contentType != "" {
		putExtra.MimeType = contentType
	}

	err := formUploader.Put(context.Background(), &ret, upToken, objectKey, reader, -1, &putExtra)
	if err != nil {
		return fmt.Errorf("failed to upload file to qiniu kodo: %w", err)
	}

	return nil
}

// DownloadFile 从七牛云Kodo下载文件
func (p *QiniuKodoProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	// 获取私有下载链接
	privateURL, err := p.SignedURL(objectKey, time.Hour)
	if err != nil {
		return nil, err
	}

	// 使用HTTP客户端下载文件
	resp, err := http.Get(privateURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from qiniu kodo: %w", err)
	}

	// 检查响应状态
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file, status: %s", resp.Status)
	}

	return resp.Body, nil
}

// DeleteFile 删除七牛云Kodo文件
func (p *QiniuKodoProvider) DeleteFile(objectKey string) error {
	err := p.bucketManager().Delete(p.bucketName, objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete file from qiniu kodo: %w", err)
	}

	return nil
}

// DeleteFiles 批量删除七牛云Kodo文件
func (p *QiniuKodoProvider) DeleteFiles(objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	ops := make([]string, 0, len(objectKeys))
	for _, key := range objectKeys {
		ops = append(ops, storage.URIDelete(p.bucketName, key))
	}

	_, err := p.bucketManager().Batch(ops)
	if err != nil {
		return fmt.Errorf("failed to delete files from qiniu kodo: %w", err)
	}

	return nil
}

// SignedURL 生成带签名的临时访问URL
func (p *QiniuKodoProvider) SignedURL(objectKey string, expires time.Duration) (string, error) {
	deadline := time.Now().Add(expires).Unix()
	return storage.MakePrivateURL(p.mac, p.bucketDomain, objectKey, deadline), nil
}

// TestConnection 测试连接
func (p *QiniuKodoProvider) TestConnection() error {
	// 尝试列出存储桶中的文件（限制为1个）
	_, _, _, _, err := p.bucketManager().ListFiles(p.bucketName, "", "", "", 1)
	if err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}

	return nil
}
