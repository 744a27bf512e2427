// Package database 定义了数据库相关的模型和结构体
// 包含文件记录和对象存储配置等核心数据模型
package database

// 此文件保留作为数据库模型包的入口文件
// 具体的模型定义已拆分到以下文件：
// - file_models.go: 文件相关模型（FileRecord）
// - storage_models.go: 对象存储相关模型（StorageConfig）
