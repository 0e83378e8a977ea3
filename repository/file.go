package repository

import (
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// FileRepository 文件仓库接口
type FileRepository interface {
	// Create 登记文件
	Create(file *entity.File) error
	// Get 获取单个文件（含已软删的）
	Get(fileID string) (*entity.File, error)
	// GetByFingerprint 按指纹查找未删除的文件
	GetByFingerprint(fingerprint string) (*entity.File, error)
	// Update 按条件更新文件
	Update(fileID string, condition *model.FileCondition) error
	// List 列出未删除的文件
	List(pager *model.Pager) ([]*entity.File, error)
}
