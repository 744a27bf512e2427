// Package config 提供应用程序配置的加载和管理
// 基于viper实现，支持配置文件、环境变量和默认值三级覆盖
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序总配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // HTTP服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	File     FileConfig     `mapstructure:"file"`     // 文件上传配置
	AI       AIConfig       `mapstructure:"ai"`       // AI分析服务配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	HTTPSPort    int    `mapstructure:"https_port"`    // HTTPS监听端口
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 读超时（秒）
	WriteTimeout int    `mapstructure:"write_timeout"` // 写超时（秒）
	EnableHTTPS  bool   `mapstructure:"enable_https"`  // 是否启用HTTPS
	EnableHTTP2  bool   `mapstructure:"enable_http2"`  // 是否启用HTTP/2
	TLSCertFile  string `mapstructure:"tls_cert_file"` // TLS证书文件路径
	TLSKeyFile   string `mapstructure:"tls_key_file"`  // TLS私钥文件路径
	Language     string `mapstructure:"language"`      // 错误消息默认语言 (zh-CN, en-US)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // 数据库驱动，目前支持sqlite
	DSN             string `mapstructure:"dsn"`               // 数据源名称
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // 最大打开连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（秒）
}

// FileConfig 文件上传配置
type FileConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`      // 单文件最大字节数
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许上传的扩展名白名单
}

// AIConfig AI分析服务配置
type AIConfig struct {
	APIKey         string `mapstructure:"api_key"`         // OpenAI API密钥
	BaseURL        string `mapstructure:"base_url"`        // 自定义API端点，为空时使用官方端点
	Model          string `mapstructure:"model"`           // 使用的视觉模型名称
	RequestTimeout int    `mapstructure:"request_timeout"` // 单次分析请求超时（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别 (debug, info, warn, error)
	Format     string `mapstructure:"format"`      // 日志格式 (json, text)
	Output     string `mapstructure:"output"`      // 输出方式 (console, file, both)
	FilePath   string `mapstructure:"file_path"`   // 日志文件路径
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件最大大小(MB)
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件保留天数
	MaxBackups int    `mapstructure:"max_backups"` // 最大备份文件数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩备份文件
}

// Load 加载应用程序配置
// 查找顺序: ./config.yaml -> ./config/config.yaml，环境变量以PICVAULT_为前缀覆盖
// 返回:
//   - *Config: 配置实例
//   - error: 加载或解析失败时的错误
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PICVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.https_port", 8443)
	v.SetDefault("server.read_timeout", 60)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.enable_https", true)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.tls_cert_file", "certs/server.crt")
	v.SetDefault("server.tls_key_file", "certs/server.key")
	v.SetDefault("server.language", "zh-CN")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/picvault.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)

	// 文件上传默认配置
	v.SetDefault("file.max_file_size", 10*1024*1024)
	v.SetDefault("file.allowed_extensions", []string{".jpg", ".jpeg", ".png", ".gif", ".webp"})

	// AI分析默认配置
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.request_timeout", 60)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file_path", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
}
