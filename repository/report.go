package repository

import (
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// ========== 质量报告 ==========

// QualityReportRepository 质量报告仓库接口
// Create 命中唯一索引时返回 ErrDuplicate
type QualityReportRepository interface {
	Create(report *entity.QualityReport) error
	// MaxVersion 作用域内成功报告的最大版本号, 无报告时为 0
	MaxVersion(fileID string) (int64, error)
	GetByVersion(fileID string, version int64) (*entity.QualityReport, error)
	Latest(fileID string) (*entity.QualityReport, error)
	List(fileID string, pager *model.Pager) ([]*entity.QualityReport, error)
}

// ========== 清洗报告 ==========

// CleaningReportRepository 清洗报告仓库接口
type CleaningReportRepository interface {
	Create(report *entity.CleaningReport) error
	MaxVersion(fileID string, qualityVersion int64) (int64, error)
	GetByVersion(fileID string, qualityVersion int64, version int64) (*entity.CleaningReport, error)
	Latest(fileID string, qualityVersion int64) (*entity.CleaningReport, error)
	List(fileID string, qualityVersion int64, pager *model.Pager) ([]*entity.CleaningReport, error)
}

// ========== 分析报告 ==========

// AnalysisReportRepository 分析报告仓库接口
type AnalysisReportRepository interface {
	Create(report *entity.AnalysisReport) error
	MaxVersion(fileID string, qualityVersion int64, cleaningVersion int64) (int64, error)
	GetByVersion(fileID string, qualityVersion int64, cleaningVersion int64, version int64) (*entity.AnalysisReport, error)
	Latest(fileID string, qualityVersion int64, cleaningVersion int64) (*entity.AnalysisReport, error)
	List(fileID string, qualityVersion int64, cleaningVersion int64, pager *model.Pager) ([]*entity.AnalysisReport, error)
	// ListByFile 列出文件下所有作用域的分析报告
	ListByFile(fileID string, pager *model.Pager) ([]*entity.AnalysisReport, error)
}
