// Package storage 提供对象存储配置管理服务
// 本文件实现了存储配置的增删改查和激活状态管理
package storage

import (
	"errors"
	"fmt"

	"github.com/weiwangfds/picvault/internal/database"
	"github.com/weiwangfds/picvault/internal/logger"
	"gorm.io/gorm"
)

// ConfigService 存储配置服务接口
// 定义了存储配置管理的所有操作，包括配置的增删改查、激活状态管理和连接测试
type ConfigService interface {
	// CreateConfig 创建存储配置
	// 验证配置参数并保存到数据库，如果是第一个配置会自动激活
	CreateConfig(config *database.StorageConfig) error

	// GetConfigByID 根据ID获取存储配置
	GetConfigByID(id uint) (*database.StorageConfig, error)

	// ListConfigs 获取所有存储配置
	// 返回数据库中所有的存储配置列表，按创建时间倒序排列
	ListConfigs() ([]database.StorageConfig, error)

	// UpdateConfig 更新存储配置
	// 验证并更新指定的存储配置，处理激活状态变更
	UpdateConfig(config *database.StorageConfig) error

	// DeleteConfig 删除存储配置
	// 删除指定ID的存储配置，不允许删除激活状态的配置
	DeleteConfig(id uint) error

	// ActivateConfig 激活存储配置
	// 激活指定配置并取消其他配置的激活状态，确保只有一个激活配置
	ActivateConfig(id uint) error

	// TestConfig 测试存储配置连接
	// 使用指定配置创建存储提供商并测试连接是否正常
	TestConfig(id uint) error

	// GetActiveConfig 获取当前激活的存储配置
	// 返回当前激活且启用的存储配置
	GetActiveConfig() (*database.StorageConfig, error)
}

// configService 存储配置服务实现
type configService struct {
	db      *gorm.DB         // 数据库连接实例
	factory *ProviderFactory // 存储提供商工厂
}

// NewConfigService 创建存储配置服务实例
// 参数:
//   - db: GORM数据库连接实例
// 返回:
//   - ConfigService: 存储配置服务接口实现
func NewConfigService(db *gorm.DB) ConfigService {
	return &configService{
		db:      db,
		factory: &ProviderFactory{},
	}
}

// CreateConfig 创建存储配置
func (s *configService) CreateConfig(config *database.StorageConfig) error {
	logger.Infof("创建存储配置: %s (提供商: %s, 区域: %s, 存储桶: %s)",
		config.Name, config.Provider, config.Region, config.Bucket)

	// 验证配置
	if err := s.validateConfig(config); err != nil {
		return err
	}

	// 如果这是第一个配置，自动设为激活状态
	var count int64
	s.db.Model(&database.StorageConfig{}).Count(&count)
	if count == 0 {
		config.IsActive = true
	}

	// 如果设置为激活状态，需要先取消其他配置的激活状态
	if config.IsActive {
		if err := s.deactivateAllConfigs(); err != nil {
			return fmt.Errorf("failed to deactivate other configs: %w", err)
		}
	}

	if err := s.db.Create(config).Error; err != nil {
		logger.Errorf("保存存储配置失败: %s: %v", config.Name, err)
		return err
	}

	logger.Infof("存储配置创建成功: %s (ID: %d, 激活: %v)", config.Name, config.ID, config.IsActive)
	return nil
}

// GetConfigByID 根据ID获取存储配置
func (s *configService) GetConfigByID(id uint) (*database.StorageConfig, error) {
	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("storage config not found with id: %d", id)
		}
		return nil, err
	}
	return &config, nil
}

// ListConfigs 获取所有存储配置
func (s *configService) ListConfigs() ([]database.StorageConfig, error) {
	var configs []database.StorageConfig
	if err := s.db.Order("created_at DESC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// UpdateConfig 更新存储配置
func (s *configService) UpdateConfig(config *database.StorageConfig) error {
	// 验证配置
	if err := s.validateConfig(config); err != nil {
		return err
	}

	// 获取原有配置
	var existingConfig database.StorageConfig
	if err := s.db.First(&existingConfig, config.ID).Error; err != nil {
		return fmt.Errorf("storage config not found: %w", err)
	}

	// 如果要激活此配置，需要先取消其他配置的激活状态
	if config.IsActive && !existingConfig.IsActive {
		if err := s.deactivateAllConfigs(); err != nil {
			return fmt.Errorf("failed to deactivate other configs: %w", err)
		}
	}

	if err := s.db.Save(config).Error; err != nil {
		logger.Errorf("更新存储配置失败: %s (ID: %d): %v", config.Name, config.ID, err)
		return err
	}

	logger.Infof("存储配置更新成功: %s (ID: %d, 激活: %v)", config.Name, config.ID, config.IsActive)
	return nil
}

// DeleteConfig 删除存储配置
func (s *configService) DeleteConfig(id uint) error {
	// 检查是否为激活配置
	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("storage config not found with id: %d", id)
		}
		return fmt.Errorf("storage config not found: %w", err)
	}

	if config.IsActive {
		return fmt.Errorf("cannot delete active storage configuration")
	}

	if err := s.db.Delete(&database.StorageConfig{}, id).Error; err != nil {
		return err
	}

	logger.Infof("存储配置删除成功: %s (ID: %d)", config.Name, id)
	return nil
}

// ActivateConfig 激活存储配置
func (s *configService) ActivateConfig(id uint) error {
	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("storage config not found with id: %d", id)
		}
		return err
	}

	if !config.IsEnabled {
		return fmt.Errorf("cannot activate disabled storage configuration")
	}

	// 取消其他配置的激活状态
	if err := s.deactivateAllConfigs(); err != nil {
		return fmt.Errorf("failed to deactivate other configs: %w", err)
	}

	if err := s.db.Model(&config).Update("is_active", true).Error; err != nil {
		return err
	}

	logger.Infof("存储配置已激活: %s (ID: %d)", config.Name, id)
	return nil
}

// TestConfig 测试存储配置连接
func (s *configService) TestConfig(id uint) error {
	config, err := s.GetConfigByID(id)
	if err != nil {
		return err
	}

	provider, err := s.factory.CreateProvider(config)
	if err != nil {
		return err
	}

	return provider.TestConnection()
}

// GetActiveConfig 获取当前激活的存储配置
func (s *configService) GetActiveConfig() (*database.StorageConfig, error) {
	var config database.StorageConfig
	if err := s.db.Where("is_active = ? AND is_enabled = ?", true, true).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveConfig
		}
		return nil, err
	}
	return &config, nil
}

// validateConfig 验证存储配置的必填字段
func (s *configService) validateConfig(config *database.StorageConfig) error {
	if config.Name == "" {
		return fmt.Errorf("config name is required")
	}
	switch config.Provider {
	case "aliyun", "tencent", "qiniu":
	default:
		return ErrUnsupportedProvider
	}
	if config.Region == "" {
		return fmt.Errorf("region is required")
	}
	if config.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if config.AccessKey == "" || config.SecretKey == "" {
		return fmt.Errorf("access key and secret key are required")
	}
	return nil
}

// deactivateAllConfigs 取消所有配置的激活状态
func (s *configService) deactivateAllConfigs() error {
	return s.db.Model(&database.StorageConfig{}).Where("is_active = ?", true).Update("is_active", false).Error
}
