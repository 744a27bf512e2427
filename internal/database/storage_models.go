// Package database 定义了对象存储相关的数据库模型
// 包含对象存储服务配置等核心数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// StorageConfig 对象存储服务配置模型
// 用于管理不同云服务商的存储配置信息，支持阿里云、腾讯云、七牛云等
// 包含连接认证、状态管理等完整配置项，系统中同一时刻只有一个激活配置
type StorageConfig struct {
	ID            uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	Name          string         `gorm:"not null;size:100" json:"name"`                 // 配置名称，用于标识不同的存储配置
	Provider      string         `gorm:"not null;size:20" json:"provider"`              // 存储服务提供商：aliyun（阿里云）、tencent（腾讯云）、qiniu（七牛云）
	Region        string         `gorm:"not null;size:50" json:"region"`                // 服务区域，如：cn-hangzhou、ap-beijing等
	Bucket        string         `gorm:"not null;size:100" json:"bucket"`               // 存储桶名称
	AccessKey     string         `gorm:"not null;size:100" json:"access_key"`           // 访问密钥ID，用于API认证
	SecretKey     string         `gorm:"not null;size:200" json:"secret_key,omitempty"` // 访问密钥Secret，敏感信息，API响应时不返回
	Endpoint      string         `gorm:"size:200" json:"endpoint"`                      // 自定义服务端点URL，可选配置
	IsActive      bool           `gorm:"default:false" json:"is_active"`                // 是否为当前激活使用的配置，系统中只能有一个激活配置
	IsEnabled     bool           `gorm:"default:true" json:"is_enabled"`                // 配置是否启用，禁用后不可使用
	SignedURLTTL  int            `gorm:"default:3600" json:"signed_url_ttl"`            // 签名URL有效期（秒），私有桶访问使用
	CreatedAt     time.Time      `json:"created_at"`                                    // 配置创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                    // 配置最后修改时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除
}

// TableName 指定StorageConfig模型对应的数据库表名
// 返回值: "storage_configs" - 数据库中的表名
// 用途: GORM框架通过此方法确定模型对应的数据库表
func (StorageConfig) TableName() string {
	return "storage_configs"
}
