package repository

import (
	"time"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
)

// ========== 质量分析任务 ==========

// QualityTaskRepository 质量分析任务仓库接口
type QualityTaskRepository interface {
	// Create 创建 pending 任务
	Create(task *entity.QualityTask) error
	// Get 获取单个任务
	Get(taskID string) (*entity.QualityTask, error)
	// Latest 获取文件最近一次任务
	Latest(fileID string) (*entity.QualityTask, error)
	// MarkRunning pending -> running, 返回是否真的发生了转移
	MarkRunning(taskID string) (bool, error)
	// UpdateStage 更新 running 任务的细分阶段
	UpdateStage(taskID string, stage string) error
	// MarkTerminal 置终态, 状态守卫保证终态只发生一次
	MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error)
	// FindStaleRunning 查找在 before 之前就已 running 的任务
	FindStaleRunning(before time.Time) ([]*entity.QualityTask, error)
}

// ========== 清洗任务 ==========

// CleaningTaskRepository 清洗任务仓库接口
type CleaningTaskRepository interface {
	Create(task *entity.CleaningTask) error
	Get(taskID string) (*entity.CleaningTask, error)
	// Latest 获取会话内最近一次任务
	Latest(sessionID string) (*entity.CleaningTask, error)
	MarkRunning(taskID string) (bool, error)
	UpdateStage(taskID string, stage string) error
	MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error)
	FindStaleRunning(before time.Time) ([]*entity.CleaningTask, error)
}

// ========== 分析任务 ==========

// AnalysisTaskRepository 分析任务仓库接口
type AnalysisTaskRepository interface {
	Create(task *entity.AnalysisTask) error
	Get(taskID string) (*entity.AnalysisTask, error)
	Latest(fileID string) (*entity.AnalysisTask, error)
	MarkRunning(taskID string) (bool, error)
	UpdateStage(taskID string, stage string) error
	MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error)
	FindStaleRunning(before time.Time) ([]*entity.AnalysisTask, error)
}
