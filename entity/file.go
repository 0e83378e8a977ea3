package entity

import "time"

// ========== 文件表 ==========

const (
	TableNameFile = "files"

	FileFieldID                    = "id"
	FileFieldName                  = "name"
	FileFieldPath                  = "path"
	FileFieldSize                  = "size"
	FileFieldFingerprint           = "fingerprint"
	FileFieldStage                 = "stage"
	FileFieldIsDeleted             = "is_deleted"
	FileFieldSummaryJSON           = "summary_json"
	FileFieldLastErrorJSON         = "last_error_json"
	FileFieldLatestQualityVersion  = "latest_quality_version"
	FileFieldLatestCleaningVersion = "latest_cleaning_version"
	FileFieldLatestAnalysisVersion = "latest_analysis_version"
	FileFieldCreatedAt             = "created_at"
	FileFieldUpdatedAt             = "updated_at"
)

// File 文件数据库实体, stage 与 summary 只由事件订阅者写入
type File struct {
	ID                    string    `xorm:"pk varchar(64) 'id'" json:"id"`
	Name                  string    `xorm:"varchar(255) 'name'" json:"name"`
	Path                  string    `xorm:"varchar(512) 'path'" json:"path"`
	Size                  int64     `xorm:"bigint 'size'" json:"size"`
	Fingerprint           string    `xorm:"varchar(128) index 'fingerprint'" json:"fingerprint"`
	Stage                 string    `xorm:"varchar(32) index 'stage'" json:"stage"`
	IsDeleted             bool      `xorm:"bool index 'is_deleted'" json:"is_deleted"`
	SummaryJSON           string    `xorm:"text 'summary_json'" json:"summary_json"`
	LastErrorJSON         string    `xorm:"text 'last_error_json'" json:"last_error_json"`
	LatestQualityVersion  int64     `xorm:"bigint 'latest_quality_version'" json:"latest_quality_version"`
	LatestCleaningVersion int64     `xorm:"bigint 'latest_cleaning_version'" json:"latest_cleaning_version"`
	LatestAnalysisVersion int64     `xorm:"bigint 'latest_analysis_version'" json:"latest_analysis_version"`
	CreatedAt             time.Time `xorm:"created 'created_at'" json:"created_at"`
	UpdatedAt             time.Time `xorm:"updated 'updated_at'" json:"updated_at"`
}

func (e *File) TableName() string {
	return TableNameFile
}
