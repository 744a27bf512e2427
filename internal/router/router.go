package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/picvault/config"
	"github.com/weiwangfds/picvault/internal/handler"
	"github.com/weiwangfds/picvault/internal/middleware"
	"github.com/weiwangfds/picvault/internal/response"
	"github.com/weiwangfds/picvault/internal/service/ai"
	archiveservice "github.com/weiwangfds/picvault/internal/service/archive"
	batchservice "github.com/weiwangfds/picvault/internal/service/batch"
	fileservice "github.com/weiwangfds/picvault/internal/service/file"
	storageservice "github.com/weiwangfds/picvault/internal/service/storage"
	"gorm.io/gorm"
)

// Router 路由配置
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
}

// NewRouter 创建路由实例
func NewRouter(loggerMiddleware *middleware.LoggerMiddleware, db *gorm.DB, cfg *config.Config) *Router {
	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 初始化服务
	storageConfigService := storageservice.NewConfigService(db)
	storageManager := storageservice.NewManager(storageConfigService)
	analyzer := ai.NewOpenAIAnalyzer(cfg.AI)
	fileService := fileservice.NewFileService(db, cfg.File, storageManager, analyzer)
	batchService := batchservice.NewService(fileService, storageManager)
	archiveService := archiveservice.NewService(fileService)

	// 初始化处理器
	fileHandler := handler.NewFileHandler(fileService, storageManager)
	batchHandler := handler.NewBatchHandler(batchService, archiveService)
	storageHandler := handler.NewStorageHandler(storageConfigService, storageManager)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware.RequestID())
	engine.Use(loggerMiddleware.RequestLogger())

	// 配置CORS
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Archive-Requested", "X-Archive-Archived"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 未匹配路由统一返回404响应体
	engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Service is running",
		})
	})

	// API路由组
	api := engine.Group("/api/v1")
	{
		// 数据库状态检查
		api.GET("/db/status", func(c *gin.Context) {
			sqlDB, err := db.DB()
			if err != nil {
				c.JSON(500, gin.H{
					"error": "Database connection error",
				})
				return
			}

			if err := sqlDB.Ping(); err != nil {
				c.JSON(500, gin.H{
					"error": "Database ping failed",
				})
				return
			}

			c.JSON(200, gin.H{
				"status": "Database connection OK",
			})
		})

		// 存储配置管理接口
		storage := api.Group("/storage")
		{
			// 存储配置CRUD
			storage.POST("/configs", storageHandler.CreateConfig)
			storage.GET("/configs", storageHandler.ListConfigs)
			storage.GET("/configs/:id", storageHandler.GetConfig)
			storage.PUT("/configs/:id", storageHandler.UpdateConfig)
			storage.DELETE("/configs/:id", storageHandler.DeleteConfig)

			// 存储配置管理
			storage.POST("/configs/:id/activate", storageHandler.ActivateConfig)
			storage.POST("/configs/:id/test", storageHandler.TestConfig)
		}

		// 文件管理接口
		files := api.Group("/files")
		{
			// 批量操作接口，注册在参数路由之前
			files.POST("/batch", batchHandler.BatchUpload)
			files.PUT("/batch", batchHandler.BatchUpdate)
			files.POST("/batch/analysis", batchHandler.BatchRegenerate)
			files.POST("/batch/delete", batchHandler.BatchDelete)
			files.POST("/batch/download", batchHandler.BatchDownload)

			// 文件CRUD操作
			files.POST("", fileHandler.UploadFile)
			files.GET("", fileHandler.ListFiles)
			files.GET("/:id", fileHandler.GetFile)
			files.GET("/:id/url", fileHandler.GetFileURL)
			files.GET("/:id/download", fileHandler.DownloadFile)
			files.POST("/:id/analysis", fileHandler.RegenerateAnalysis)
			files.PUT("/:id", fileHandler.UpdateMetadata)
			files.DELETE("/:id", fileHandler.DeleteFile)
		}
	}

	return &Router{
		engine: engine,
		db:     db,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetDB 获取数据库连接
func (r *Router) GetDB() *gorm.DB {
	return r.db
}
