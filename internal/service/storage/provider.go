// Package storage 提供对象存储服务的抽象和多云实现
// 支持阿里云OSS、腾讯云COS、七牛云Kodo三种提供商
package storage

import (
	"errors"
	"io"
	"time"

	"github.com/weiwangfds/picvault/internal/database"
)

// 预定义的错误类型
var (
	// ErrUnsupportedProvider 不支持的存储提供商错误
	ErrUnsupportedProvider = errors.New("unsupported storage provider")
	// ErrNoActiveConfig 没有激活的存储配置错误
	ErrNoActiveConfig = errors.New("no active storage configuration found")
)

// Provider 对象存储提供商接口
// 所有方法针对单个存储桶操作，objectKey为桶内完整路径
type Provider interface {
	// 上传文件到对象存储
	UploadFile(objectKey string, reader io.Reader, contentType string) error

	// 从对象存储下载文件
	DownloadFile(objectKey string) (io.ReadCloser, error)

	// 删除单个文件
	DeleteFile(objectKey string) error

	// 批量删除文件
	DeleteFiles(objectKeys []string) error

	// 生成带签名的临时访问URL
	// 签名URL有时效性，调用方在重新使用前（如再次提交AI分析）需重新获取
	SignedURL(objectKey string, expires time.Duration) (string, error)

	// 测试连接
	TestConnection() error
}

// ProviderFactory 存储提供商工厂
type ProviderFactory struct{}

// CreateProvider 根据配置创建存储提供商实例
func (f *ProviderFactory) CreateProvider(config *database.StorageConfig) (Provider, error) {
	switch config.Provider {
	case "aliyun":
		return NewAliyunOSSProvider(config)
	case "tencent":
		return NewTencentCOSProvider(config)
	case "qiniu":
		return NewQiniuKodoProvider(config)
	default:
		return nil, ErrUnsupportedProvider
	}
}
