package storage

import (
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/weiwangfds/picvault/internal/database"
)

// AliyunOSSProvider 阿里云OSS提供商实现
type AliyunOSSProvider struct {
	client *oss.Client
	bucket *oss.Bucket
	config *database.StorageConfig
}

// NewAliyunOSSProvider 创建阿里云OSS提供商实例
func NewAliyunOSSProvider(config *database.StorageConfig) (*AliyunOSSProvider, error) {
	// 构建endpoint
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", config.Region)
	}

	// 创建OSS客户端
	client, err := oss.New(endpoint, config.AccessKey, config.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}

	// 获取存储桶
	bucket, err := client.Bucket(config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", config.Bucket, err)
	}

	return &AliyunOSSProvider{
		client: client,
		bucket: bucket,
		config: config,
	}, nil
}

// UploadFile 上传文件到阿里云OSS
func (p *AliyunOSSProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	options := []oss.Option{}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}

	err := p.bucket.PutObject(objectKey, reader, options...)
	if err != nil {
		return fmt.Errorf("failed to upload file to aliyun oss: %w", err)
	}

	return nil
}

// DownloadFile 从阿里云OSS下载文件
func (p *AliyunOSSProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from aliyun oss: %w", err)
	}

	return body, nil
}

// DeleteFile 删除阿里云OSS文件
func (p *AliyunOSSProvider) DeleteFile(objectKey string) error {
	err := p.bucket.DeleteObject(objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete file from aliyun oss: %w", err)
	}

	return nil
}

// DeleteFiles 批量删除阿里云OSS文件
func (p *AliyunOSSProvider) DeleteFiles(objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	_, err := p.bucket.DeleteObjects(objectKeys)
	if err != nil {
		return fmt.Errorf("failed to delete files from aliyun oss: %w", err)
	}

	return nil
}

// SignedURL 生成带签名的临时访问URL
func (p *AliyunOSSProvider) SignedURL(objectKey string, expires time.Duration) (string, error) {
	signedURL, err := p.bucket.SignURL(objectKey, oss.HTTPGet, int64(expires.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to sign url for aliyun oss: %w", err)
	}

	return signedURL, nil
}

// TestConnection 测试连接
func (p *AliyunOSSProvider) TestConnection() error {
	// 尝试列出存储桶信息
	_, err := p.client.GetBucketInfo(p.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}

	return nil
}
