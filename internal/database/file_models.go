// Package database 定义了文件相关的数据库模型
// 包含文件记录等核心数据模型
package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 文件记录生命周期状态
// 状态机: uploaded -> (请求AI分析时) processing -> completed | failed
// uploaded 在未请求分析时为终态；failed 可通过重新分析回到 processing
const (
	StatusUploaded   = "uploaded"   // 已上传，未请求AI分析
	StatusProcessing = "processing" // AI分析进行中
	StatusCompleted  = "completed"  // AI分析成功完成
	StatusFailed     = "failed"     // AI分析失败，可重试
)

// MaxTags 单个文件允许的最大标签数量
const MaxTags = 10

// FileRecord 文件记录模型
// 用于存储上传图片的元数据和AI分析结果
// 文件通过不可枚举的UUID对外标识，存储路径始终包含所有者ID段以实现租户隔离
type FileRecord struct {
	ID          uint                       `gorm:"primarykey" json:"-"`                         // 主键ID，自增，不对外暴露
	FileID      string                     `gorm:"uniqueIndex;not null;size:36" json:"file_id"` // 文件唯一标识符（UUID格式）
	OwnerID     string                     `gorm:"index;not null;size:64" json:"owner_id"`      // 文件所有者ID，所有读写操作按此隔离
	FileName    string                     `gorm:"not null;size:255" json:"file_name"`          // 原始文件名称，最大255字符
	StoragePath string                     `gorm:"not null;size:500" json:"storage_path"`       // 文件在对象存储中的完整路径
	FileSize    int64                      `gorm:"not null" json:"file_size"`                   // 文件大小，单位为字节
	MimeType    string                     `gorm:"not null;size:100" json:"mime_type"`          // 文件MIME类型（如image/jpeg）
	FileURL     string                     `gorm:"size:1000" json:"file_url"`                   // 文件的访问URL，签名URL有时效性，仅作展示用途
	Description *string                    `gorm:"type:text" json:"description,omitempty"`      // AI生成的图片描述，未分析时为空
	Tags        datatypes.JSONSlice[string] `gorm:"type:text" json:"tags"`                      // AI生成的标签列表，最多MaxTags个
	Status      string                     `gorm:"not null;size:20;index" json:"status"`        // 生命周期状态，见状态常量
	CreatedAt   time.Time                  `json:"created_at"`                                  // 记录创建时间
	UpdatedAt   time.Time                  `json:"updated_at"`                                  // 记录最后更新时间
	DeletedAt   gorm.DeletedAt             `gorm:"index" json:"-"`                              // 软删除时间戳，支持逻辑删除
}

// TableName 指定FileRecord模型对应的数据库表名
// 返回值: "file_records" - 数据库中的表名
// 用途: GORM框架通过此方法确定模型对应的数据库表
func (FileRecord) TableName() string {
	return "file_records"
}

// HasAIAnalysis 判断文件是否已有AI分析结果
// 派生属性，不落库: 描述存在或标签非空即视为已分析
func (f *FileRecord) HasAIAnalysis() bool {
	return (f.Description != nil && *f.Description != "") || len(f.Tags) > 0
}
