package storage

import (
	"io"
	"sync"
	"time"

	"github.com/weiwangfds/picvault/internal/logger"
)

// Manager 存储提供商管理器
// 将当前激活的存储配置解析为Provider实例并缓存，配置变更后需调用Invalidate
// Manager本身实现Provider接口，业务服务只依赖接口，便于测试时注入假实现
type Manager struct {
	configService ConfigService
	factory       *ProviderFactory

	mu       sync.Mutex
	provider Provider
	configID uint
	urlTTL   time.Duration
}

// NewManager 创建存储提供商管理器
func NewManager(configService ConfigService) *Manager {
	return &Manager{
		configService: configService,
		factory:       &ProviderFactory{},
	}
}

// resolve 解析当前激活配置对应的Provider
// 配置未变化时复用缓存的实例，避免每次操作重建客户端
func (m *Manager) resolve() (Provider, error) {
	config, err := m.configService.GetActiveConfig()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.provider != nil && m.configID == config.ID {
		return m.provider, nil
	}

	provider, err := m.factory.CreateProvider(config)
	if err != nil {
		return nil, err
	}

	m.provider = provider
	m.configID = config.ID
	m.urlTTL = time.Duration(config.SignedURLTTL) * time.Second
	if m.urlTTL <= 0 {
		m.urlTTL = time.Hour
	}

	logger.Infof("存储提供商已解析: %s (配置ID: %d)", config.Provider, config.ID)
	return provider, nil
}

// Invalidate 使缓存的Provider失效
// 存储配置发生创建、更新、删除、激活等变更后调用
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = nil
	m.configID = 0
}

// SignedURLTTL 返回当前激活配置的签名URL有效期
func (m *Manager) SignedURLTTL() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.urlTTL <= 0 {
		return time.Hour
	}
	return m.urlTTL
}

// UploadFile 上传文件到当前激活的存储
func (m *Manager) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	provider, err := m.resolve()
	if err != nil {
		return err
	}
	return provider.UploadFile(objectKey, reader, contentType)
}

// DownloadFile 从当前激活的存储下载文件
func (m *Manager) DownloadFile(objectKey string) (io.ReadCloser, error) {
	provider, err := m.resolve()
	if err != nil {
		return nil, err
	}
	return provider.DownloadFile(objectKey)
}

// DeleteFile 删除当前激活存储中的文件
func (m *Manager) DeleteFile(objectKey string) error {
	provider, err := m.resolve()
	if err != nil {
		return err
	}
	return provider.DeleteFile(objectKey)
}

// DeleteFiles 批量删除当前激活存储中的文件
func (m *Manager) DeleteFiles(objectKeys []string) error {
	provider, err := m.resolve()
	if err != nil {
		return err
	}
	return provider.DeleteFiles(objectKeys)
}

// SignedURL 生成当前激活存储的签名URL
func (m *Manager) SignedURL(objectKey string, expires time.Duration) (string, error) {
	provider, err := m.resolve()
	if err != nil {
		return "", err
	}
	return provider.SignedURL(objectKey, expires)
}

// TestConnection 测试当前激活存储的连接
func (m *Manager) TestConnection() error {
	provider, err := m.resolve()
	if err != nil {
		return err
	}
	return provider.TestConnection()
}
