package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/picvault/internal/database"
	"github.com/weiwangfds/picvault/internal/response"
	"github.com/weiwangfds/picvault/internal/service/storage"
)

// StorageHandler 存储配置接口处理器
type StorageHandler struct {
	configService storage.ConfigService
	manager       *storage.Manager
}

// NewStorageHandler 创建存储配置接口处理器
func NewStorageHandler(configService storage.ConfigService, manager *storage.Manager) *StorageHandler {
	return &StorageHandler{
		configService: configService,
		manager:       manager,
	}
}

// CreateConfig 创建存储配置
// @Summary 创建存储配置
// @Description 创建新的对象存储配置，首个配置自动激活
// @Tags 存储配置
// @Accept json
// @Produce json
// @Param config body database.StorageConfig true "存储配置"
// @Success 201 {object} response.Response
// @Router /api/v1/storage/configs [post]
func (h *StorageHandler) CreateConfig(c *gin.Context) {
	var config database.StorageConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.configService.CreateConfig(&config); err != nil {
		handleError(c, err)
		return
	}

	h.manager.Invalidate()
	response.Created(c, "存储配置创建成功", config)
}

// ListConfigs 获取存储配置列表
// @Summary 获取存储配置列表
// @Tags 存储配置
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs [get]
func (h *StorageHandler) ListConfigs(c *gin.Context) {
	configs, err := h.configService.ListConfigs()
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, configs)
}

// GetConfig 获取单个存储配置
// @Summary 获取存储配置详情
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs/{id} [get]
func (h *StorageHandler) GetConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, "invalid config id")
		return
	}

	config, err := h.configService.GetConfigByID(id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, config)
}

// UpdateConfig 更新存储配置
// @Summary 更新存储配置
// @Tags 存储配置
// @Accept json
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs/{id} [put]
func (h *StorageHandler) UpdateConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, "invalid config id")
		return
	}

	var config database.StorageConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	config.ID = id

	if err := h.configService.UpdateConfig(&config); err != nil {
		handleError(c, err)
		return
	}

	// 配置变化后丢弃缓存的提供商实例，下次访问时重建
	h.manager.Invalidate()
	response.SuccessWithMessage(c, "存储配置更新成功", config)
}

// DeleteConfig 删除存储配置
// @Summary 删除存储配置
// @Description 激活中的配置不允许删除
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs/{id} [delete]
func (h *StorageHandler) DeleteConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, "invalid config id")
		return
	}

	if err := h.configService.DeleteConfig(id); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "存储配置删除成功", nil)
}

// ActivateConfig 激活存储配置
// @Summary 激活存储配置
// @Description 将指定配置设为当前激活配置，同时取消其他配置的激活状态
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs/{id}/activate [post]
func (h *StorageHandler) ActivateConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, "invalid config id")
		return
	}

	if err := h.configService.ActivateConfig(id); err != nil {
		handleError(c, err)
		return
	}

	h.manager.Invalidate()
	response.SuccessWithMessage(c, "存储配置激活成功", nil)
}

// TestConfig 测试存储配置连通性
// @Summary 测试存储配置
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/v1/storage/configs/{id}/test [post]
func (h *StorageHandler) TestConfig(c *gin.Context) {
	id, err := parseConfigID(c)
	if err != nil {
		response.BadRequest(c, "invalid config id")
		return
	}

	if err := h.configService.TestConfig(id); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "存储配置连接测试成功", nil)
}

// parseConfigID 解析路径中的配置ID
func parseConfigID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
