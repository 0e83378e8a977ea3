package entity

import "time"

// ========== 质量报告表 ==========

const (
	TableNameQualityReport = "quality_reports"

	QualityReportFieldID          = "id"
	QualityReportFieldFileID      = "file_id"
	QualityReportFieldVersion     = "version"
	QualityReportFieldTaskID      = "task_id"
	QualityReportFieldPayloadJSON = "payload_json"
	QualityReportFieldCreatedAt   = "created_at"
)

// QualityReport 质量报告数据库实体, (file_id, version) 唯一
type QualityReport struct {
	ID          string    `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID      string    `xorm:"varchar(64) unique(scope) 'file_id'" json:"file_id"`
	Version     int64     `xorm:"bigint unique(scope) 'version'" json:"version"`
	TaskID      string    `xorm:"varchar(64) index 'task_id'" json:"task_id"`
	PayloadJSON string    `xorm:"text 'payload_json'" json:"payload_json"`
	CreatedAt   time.Time `xorm:"created 'created_at'" json:"created_at"`
}

func (e *QualityReport) TableName() string {
	return TableNameQualityReport
}

// ========== 清洗报告表 ==========

const (
	TableNameCleaningReport = "cleaning_reports"

	CleaningReportFieldID             = "id"
	CleaningReportFieldFileID         = "file_id"
	CleaningReportFieldQualityVersion = "quality_version"
	CleaningReportFieldVersion        = "version"
	CleaningReportFieldSessionID      = "session_id"
	CleaningReportFieldTaskID         = "task_id"
	CleaningReportFieldPayloadJSON    = "payload_json"
	CleaningReportFieldCreatedAt      = "created_at"
)

// CleaningReport 清洗报告数据库实体, (file_id, quality_version, version) 唯一
type CleaningReport struct {
	ID             string    `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID         string    `xorm:"varchar(64) unique(scope) 'file_id'" json:"file_id"`
	QualityVersion int64     `xorm:"bigint unique(scope) 'quality_version'" json:"quality_version"`
	Version        int64     `xorm:"bigint unique(scope) 'version'" json:"version"`
	SessionID      string    `xorm:"varchar(64) index 'session_id'" json:"session_id"`
	TaskID         string    `xorm:"varchar(64) index 'task_id'" json:"task_id"`
	PayloadJSON    string    `xorm:"text 'payload_json'" json:"payload_json"`
	CreatedAt      time.Time `xorm:"created 'created_at'" json:"created_at"`
}

func (e *CleaningReport) TableName() string {
	return TableNameCleaningReport
}

// ========== 分析报告表 ==========

const (
	TableNameAnalysisReport = "analysis_reports"

	AnalysisReportFieldID              = "id"
	AnalysisReportFieldFileID          = "file_id"
	AnalysisReportFieldQualityVersion  = "quality_version"
	AnalysisReportFieldCleaningVersion = "cleaning_version"
	AnalysisReportFieldVersion         = "version"
	AnalysisReportFieldTaskID          = "task_id"
	AnalysisReportFieldPayloadJSON     = "payload_json"
	AnalysisReportFieldCreatedAt       = "created_at"
)

// AnalysisReport 分析报告数据库实体, (file_id, quality_version, cleaning_version, version) 唯一
type AnalysisReport struct {
	ID              string    `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID          string    `xorm:"varchar(64) unique(scope) 'file_id'" json:"file_id"`
	QualityVersion  int64     `xorm:"bigint unique(scope) 'quality_version'" json:"quality_version"`
	CleaningVersion int64     `xorm:"bigint unique(scope) 'cleaning_version'" json:"cleaning_version"`
	Version         int64     `xorm:"bigint unique(scope) 'version'" json:"version"`
	TaskID          string    `xorm:"varchar(64) index 'task_id'" json:"task_id"`
	PayloadJSON     string    `xorm:"text 'payload_json'" json:"payload_json"`
	CreatedAt       time.Time `xorm:"created 'created_at'" json:"created_at"`
}

func (e *AnalysisReport) TableName() string {
	return TableNameAnalysisReport
}
