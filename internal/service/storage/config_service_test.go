// 存储配置服务的单元测试
// 覆盖配置CRUD、单一激活约束和删除保护
package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/picvault/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupConfigService 设置测试用的配置服务
func setupConfigService(t *testing.T) ConfigService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// 内存SQLite下每个连接是独立的数据库，必须限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&database.StorageConfig{}))
	return NewConfigService(db)
}

// validTestConfig 构造一个合法的测试配置
func validTestConfig(name string) *database.StorageConfig {
	return &database.StorageConfig{
		Name:      name,
		Provider:  "aliyun",
		Region:    "cn-hangzhou",
		Bucket:    "test-bucket",
		AccessKey: "ak",
		SecretKey: "sk",
		Endpoint:  "oss-cn-hangzhou.aliyuncs.com",
		IsEnabled: true,
	}
}

// TestCreateConfig 测试创建存储配置
func TestCreateConfig(t *testing.T) {
	t.Run("首个配置自动激活", func(t *testing.T) {
		svc := setupConfigService(t)

		cfg := validTestConfig("primary")
		require.NoError(t, svc.CreateConfig(cfg))
		assert.True(t, cfg.IsActive)

		active, err := svc.GetActiveConfig()
		require.NoError(t, err)
		assert.Equal(t, "primary", active.Name)
	})

	t.Run("后续配置不自动激活", func(t *testing.T) {
		svc := setupConfigService(t)

		require.NoError(t, svc.CreateConfig(validTestConfig("first")))
		second := validTestConfig("second")
		require.NoError(t, svc.CreateConfig(second))
		assert.False(t, second.IsActive)
	})

	t.Run("不支持的提供商被拒绝", func(t *testing.T) {
		svc := setupConfigService(t)

		cfg := validTestConfig("bad")
		cfg.Provider = "s3"
		err := svc.CreateConfig(cfg)
		require.Error(t, err)
	})

	t.Run("缺少必填字段被拒绝", func(t *testing.T) {
		svc := setupConfigService(t)

		cfg := validTestConfig("bad")
		cfg.Bucket = ""
		require.Error(t, svc.CreateConfig(cfg))
	})
}

// TestActivateConfig 测试激活切换
func TestActivateConfig(t *testing.T) {
	svc := setupConfigService(t)

	first := validTestConfig("first")
	second := validTestConfig("second")
	require.NoError(t, svc.CreateConfig(first))
	require.NoError(t, svc.CreateConfig(second))

	t.Run("激活后其他配置取消激活", func(t *testing.T) {
		require.NoError(t, svc.ActivateConfig(second.ID))

		active, err := svc.GetActiveConfig()
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)

		got, err := svc.GetConfigByID(first.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("激活不存在的配置报错", func(t *testing.T) {
		assert.Error(t, svc.ActivateConfig(9999))
	})
}

// TestDeleteConfig 测试删除保护
func TestDeleteConfig(t *testing.T) {
	svc := setupConfigService(t)

	first := validTestConfig("first")
	second := validTestConfig("second")
	require.NoError(t, svc.CreateConfig(first))
	require.NoError(t, svc.CreateConfig(second))

	t.Run("激活中的配置不允许删除", func(t *testing.T) {
		err := svc.DeleteConfig(first.ID)
		require.Error(t, err)

		_, err = svc.GetConfigByID(first.ID)
		assert.NoError(t, err)
	})

	t.Run("非激活配置可以删除", func(t *testing.T) {
		require.NoError(t, svc.DeleteConfig(second.ID))

		_, err := svc.GetConfigByID(second.ID)
		assert.Error(t, err)
	})
}

// TestListConfigs 测试配置列表
func TestListConfigs(t *testing.T) {
	svc := setupConfigService(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CreateConfig(validTestConfig(fmt.Sprintf("cfg-%d", i))))
	}

	configs, err := svc.ListConfigs()
	require.NoError(t, err)
	assert.Len(t, configs, 3)
}
