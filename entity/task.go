package entity

import "time"

// ========== 质量分析任务表 ==========

const (
	TableNameQualityTask = "quality_tasks"

	QualityTaskFieldID         = "id"
	QualityTaskFieldFileID     = "file_id"
	QualityTaskFieldPath       = "path"
	QualityTaskFieldStatus     = "status"
	QualityTaskFieldStage      = "stage"
	QualityTaskFieldVersion    = "version"
	QualityTaskFieldErrorJSON  = "error_json"
	QualityTaskFieldCreatedAt  = "created_at"
	QualityTaskFieldUpdatedAt  = "updated_at"
	QualityTaskFieldStartedAt  = "started_at"
	QualityTaskFieldFinishedAt = "finished_at"
)

// QualityTask 质量分析任务数据库实体
// Path 在触发时从文件快照下来, 执行阶段不再回查文件
type QualityTask struct {
	ID         string     `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID     string     `xorm:"varchar(64) index 'file_id'" json:"file_id"`
	Path       string     `xorm:"varchar(512) 'path'" json:"path"`
	Status     string     `xorm:"varchar(32) index 'status'" json:"status"`
	Stage      string     `xorm:"varchar(32) 'stage'" json:"stage"`
	Version    int64      `xorm:"bigint 'version'" json:"version"`
	ErrorJSON  string     `xorm:"text 'error_json'" json:"error_json"`
	CreatedAt  time.Time  `xorm:"created 'created_at'" json:"created_at"`
	UpdatedAt  time.Time  `xorm:"updated 'updated_at'" json:"updated_at"`
	StartedAt  *time.Time `xorm:"'started_at'" json:"started_at"`
	FinishedAt *time.Time `xorm:"'finished_at'" json:"finished_at"`
}

func (e *QualityTask) TableName() string {
	return TableNameQualityTask
}

// ========== 清洗任务表 ==========

const (
	TableNameCleaningTask = "cleaning_tasks"

	CleaningTaskFieldID             = "id"
	CleaningTaskFieldFileID         = "file_id"
	CleaningTaskFieldSessionID      = "session_id"
	CleaningTaskFieldQualityVersion = "quality_version"
	CleaningTaskFieldPath           = "path"
	CleaningTaskFieldStatus         = "status"
	CleaningTaskFieldStage          = "stage"
	CleaningTaskFieldVersion        = "version"
	CleaningTaskFieldRulesJSON      = "rules_json"
	CleaningTaskFieldActionsJSON    = "actions_json"
	CleaningTaskFieldModIDsJSON     = "mod_ids_json"
	CleaningTaskFieldErrorJSON      = "error_json"
	CleaningTaskFieldCreatedAt      = "created_at"
	CleaningTaskFieldUpdatedAt      = "updated_at"
	CleaningTaskFieldStartedAt      = "started_at"
	CleaningTaskFieldFinishedAt     = "finished_at"
)

// CleaningTask 清洗任务数据库实体
// ActionsJSON/ModIDsJSON 在触发时由会话内的用户修改固化而来
type CleaningTask struct {
	ID             string     `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID         string     `xorm:"varchar(64) index 'file_id'" json:"file_id"`
	SessionID      string     `xorm:"varchar(64) index 'session_id'" json:"session_id"`
	QualityVersion int64      `xorm:"bigint 'quality_version'" json:"quality_version"`
	Path           string     `xorm:"varchar(512) 'path'" json:"path"`
	Status         string     `xorm:"varchar(32) index 'status'" json:"status"`
	Stage          string     `xorm:"varchar(32) 'stage'" json:"stage"`
	Version        int64      `xorm:"bigint 'version'" json:"version"`
	RulesJSON      string     `xorm:"text 'rules_json'" json:"rules_json"`
	ActionsJSON    string     `xorm:"text 'actions_json'" json:"actions_json"`
	ModIDsJSON     string     `xorm:"text 'mod_ids_json'" json:"mod_ids_json"`
	ErrorJSON      string     `xorm:"text 'error_json'" json:"error_json"`
	CreatedAt      time.Time  `xorm:"created 'created_at'" json:"created_at"`
	UpdatedAt      time.Time  `xorm:"updated 'updated_at'" json:"updated_at"`
	StartedAt      *time.Time `xorm:"'started_at'" json:"started_at"`
	FinishedAt     *time.Time `xorm:"'finished_at'" json:"finished_at"`
}

func (e *CleaningTask) TableName() string {
	return TableNameCleaningTask
}

// ========== 分析任务表 ==========

const (
	TableNameAnalysisTask = "analysis_tasks"

	AnalysisTaskFieldID              = "id"
	AnalysisTaskFieldFileID          = "file_id"
	AnalysisTaskFieldQualityVersion  = "quality_version"
	AnalysisTaskFieldCleaningVersion = "cleaning_version"
	AnalysisTaskFieldInputMode       = "input_mode"
	AnalysisTaskFieldStatus          = "status"
	AnalysisTaskFieldStage           = "stage"
	AnalysisTaskFieldVersion         = "version"
	AnalysisTaskFieldDataRefJSON     = "data_ref_json"
	AnalysisTaskFieldSelectionJSON   = "selection_json"
	AnalysisTaskFieldConfigJSON      = "config_json"
	AnalysisTaskFieldErrorJSON       = "error_json"
	AnalysisTaskFieldCreatedAt       = "created_at"
	AnalysisTaskFieldUpdatedAt       = "updated_at"
	AnalysisTaskFieldStartedAt       = "started_at"
	AnalysisTaskFieldFinishedAt      = "finished_at"
)

// AnalysisTask 分析任务数据库实体
// CleaningVersion 为 0 且 InputMode 为 raw 时表示直接分析原始数据
type AnalysisTask struct {
	ID              string     `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID          string     `xorm:"varchar(64) index 'file_id'" json:"file_id"`
	QualityVersion  int64      `xorm:"bigint 'quality_version'" json:"quality_version"`
	CleaningVersion int64      `xorm:"bigint 'cleaning_version'" json:"cleaning_version"`
	InputMode       string     `xorm:"varchar(16) 'input_mode'" json:"input_mode"`
	Status          string     `xorm:"varchar(32) index 'status'" json:"status"`
	Stage           string     `xorm:"varchar(32) 'stage'" json:"stage"`
	Version         int64      `xorm:"bigint 'version'" json:"version"`
	DataRefJSON     string     `xorm:"text 'data_ref_json'" json:"data_ref_json"`
	SelectionJSON   string     `xorm:"text 'selection_json'" json:"selection_json"`
	ConfigJSON      string     `xorm:"text 'config_json'" json:"config_json"`
	ErrorJSON       string     `xorm:"text 'error_json'" json:"error_json"`
	CreatedAt       time.Time  `xorm:"created 'created_at'" json:"created_at"`
	UpdatedAt       time.Time  `xorm:"updated 'updated_at'" json:"updated_at"`
	StartedAt       *time.Time `xorm:"'started_at'" json:"started_at"`
	FinishedAt      *time.Time `xorm:"'finished_at'" json:"finished_at"`
}

func (e *AnalysisTask) TableName() string {
	return TableNameAnalysisTask
}
