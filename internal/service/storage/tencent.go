package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/weiwangfds/picvault/internal/database"
)

// TencentCOSProvider 腾讯云COS提供商实现
type TencentCOSProvider struct {
	client *cos.Client
	config *database.StorageConfig
}

// NewTencentCOSProvider 创建腾讯云COS提供商实例
func NewTencentCOSProvider(config *database.StorageConfig) (*TencentCOSProvider, error) {
	// 构建URL
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", config.Bucket, config.Region)
	if config.Endpoint != "" {
		bucketURL = config.Endpoint
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	// 创建COS客户端
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  config.AccessKey,
			SecretKey: config.SecretKey,
		},
	})

	return &TencentCOSProvider{
		client: client,
		config: config,
	}, nil
}

// UploadFile 上传文件到腾讯云COS
func (p *TencentCOSProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	options := &cos.ObjectPutOptions{}
	if contentType != "" {
		options.ObjectPutHeaderOptions = &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		}
	}

	_, err := p.client.Object.Put(context.Background(), objectKey, reader, options)
	if err != nil {
		return fmt.Errorf("failed to upload file to tencent cos: %w", err)
	}

	return nil
}

// DownloadFile 从腾讯云COS下载文件
func (p *TencentCOSProvider) DownloadFile(objectKey string) (io.ReadCloser, error) {
	resp, err := p.client.Object.Get(context.Background(), objectKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from tencent cos: %w", err)
	}

	return resp.Body, nil
}

// DeleteFile 删除腾讯云COS文件
func (p *TencentCOSProvider) DeleteFile(objectKey string) error {
	_, err := p.client.Object.Delete(context.Background(), objectKey)
	if err != nil {
		return fmt.Errorf("failed to delete file from tencent cos: %w", err)
	}

	return nil
}

// DeleteFiles 批量删除腾讯云COS文件
func (p *TencentCOSProvider) DeleteFiles(objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	objects := make([]cos.Object, 0, len(objectKeys))
	for _, key := range objectKeys {
		objects = append(objects, cos.Object{Key: key})
	}

	opt := &cos.ObjectDeleteMultiOptions{
		Objects: objects,
		Quiet:   true,
	}

	_, _, err := p.client.Object.DeleteMulti(context.Background(), opt)
	if err != nil {
		return fmt.Errorf("failed to delete files from tencent cos: %w", err)
	}

	return nil
}

// SignedURL 生成带签名的临时访问URL
func (p *TencentCOSProvider) SignedURL(objectKey string, expires time.Duration) (string, error) {
	presignedURL, err := p.client.Object.GetPresignedURL(
		context.Background(),
		http.MethodGet,
		objectKey,
		p.config.AccessKey,
		p.config.SecretKey,
		expires,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to sign url for tencent cos: %w", err)
	}

	return presignedURL.String(), nil
}

// TestConnection 测试连接
func (p *TencentCOSProvider) TestConnection() error {
	_, err := p.client.Bucket.Head(context.Background())
	if err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}

	return nil
}
