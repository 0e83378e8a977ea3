package repository

import (
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
)

// ========== 清洗会话 ==========

// CleaningSessionRepository 清洗会话仓库接口
type CleaningSessionRepository interface {
	Create(session *entity.CleaningSession) error
	Get(sessionID string) (*entity.CleaningSession, error)
	// GetActive 获取作用域内唯一的非 closed 会话
	GetActive(fileID string, qualityVersion int64) (*entity.CleaningSession, error)
	// CloseActive 关闭作用域内所有非 closed 会话
	CloseActive(fileID string, qualityVersion int64) error
	// Close 无条件关闭单个会话, 重复关闭幂等
	Close(sessionID string) error
	// TransitionStatus 状态守卫转移, 返回是否真的发生了转移
	TransitionStatus(sessionID string, from string, to string) (bool, error)
}

// ========== 用户修改 ==========

// UserModificationRepository 用户修改仓库接口
type UserModificationRepository interface {
	Create(modification *entity.UserModification) error
	// ListBySession 按创建顺序列出会话内的修改
	ListBySession(sessionID string) ([]*entity.UserModification, error)
	// ListUnconsumed 按创建顺序列出会话内未消费的修改
	ListUnconsumed(sessionID string) ([]*entity.UserModification, error)
	// MarkConsumed 批量标记已消费
	MarkConsumed(ids []string) error
}
