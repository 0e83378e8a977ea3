package entity

import "time"

// ========== 清洗会话表 ==========

const (
	TableNameCleaningSession = "cleaning_sessions"

	CleaningSessionFieldID             = "id"
	CleaningSessionFieldFileID         = "file_id"
	CleaningSessionFieldQualityVersion = "quality_version"
	CleaningSessionFieldStatus         = "status"
	CleaningSessionFieldCreatedAt      = "created_at"
	CleaningSessionFieldUpdatedAt      = "updated_at"
	CleaningSessionFieldLockedAt       = "locked_at"
	CleaningSessionFieldClosedAt       = "closed_at"
)

// CleaningSession 清洗会话数据库实体
// 同一 (file_id, quality_version) 下最多一个非 closed 会话
type CleaningSession struct {
	ID             string     `xorm:"pk varchar(64) 'id'" json:"id"`
	FileID         string     `xorm:"varchar(64) index 'file_id'" json:"file_id"`
	QualityVersion int64      `xorm:"bigint 'quality_version'" json:"quality_version"`
	Status         string     `xorm:"varchar(16) index 'status'" json:"status"`
	CreatedAt      time.Time  `xorm:"created 'created_at'" json:"created_at"`
	UpdatedAt      time.Time  `xorm:"updated 'updated_at'" json:"updated_at"`
	LockedAt       *time.Time `xorm:"'locked_at'" json:"locked_at"`
	ClosedAt       *time.Time `xorm:"'closed_at'" json:"closed_at"`
}

func (e *CleaningSession) TableName() string {
	return TableNameCleaningSession
}

// ========== 用户修改表 ==========

const (
	TableNameUserModification = "user_modifications"

	UserModificationFieldID         = "id"
	UserModificationFieldSessionID  = "session_id"
	UserModificationFieldKind       = "kind"
	UserModificationFieldTarget     = "target"
	UserModificationFieldParamsJSON = "params_json"
	UserModificationFieldConsumed   = "consumed"
	UserModificationFieldCreatedAt  = "created_at"
)

// UserModification 会话内的用户修改记录, 成功执行后标记 consumed
type UserModification struct {
	ID         string    `xorm:"pk varchar(64) 'id'" json:"id"`
	SessionID  string    `xorm:"varchar(64) index 'session_id'" json:"session_id"`
	Kind       string    `xorm:"varchar(32) 'kind'" json:"kind"`
	Target     string    `xorm:"varchar(255) 'target'" json:"target"`
	ParamsJSON string    `xorm:"text 'params_json'" json:"params_json"`
	Consumed   bool      `xorm:"bool 'consumed'" json:"consumed"`
	CreatedAt  time.Time `xorm:"created 'created_at'" json:"created_at"`
}

func (e *UserModification) TableName() string {
	return TableNameUserModification
}
