package constant

// =============================================
// 任务状态常量
// =============================================

// TaskStatus 任务状态类型
type TaskStatus string

const (
	// TaskStatusPending 已创建，等待执行
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning 执行中
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusSuccess 成功（终态）
	TaskStatusSuccess TaskStatus = "success"
	// TaskStatusFailed 失败（终态）
	TaskStatusFailed TaskStatus = "failed"
)

// String 返回状态的字符串值
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid 检查状态是否有效
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusSuccess, TaskStatusFailed:
		return true
	}
	return false
}

// IsTerminal 是否为终态，终态之后不允许任何状态迁移
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// =============================================
// 任务细粒度阶段常量
// =============================================

// TaskStage 任务内部执行到的子步骤
type TaskStage string

const (
	TaskStageReceived TaskStage = "received"
	TaskStageLoad     TaskStage = "load"
	TaskStageValidate TaskStage = "validate"
	TaskStageProcess  TaskStage = "process"
	TaskStageExport   TaskStage = "export"
	TaskStageDone     TaskStage = "done"
	TaskStageUnknown  TaskStage = "unknown"
)

// String 返回阶段的字符串值
func (s TaskStage) String() string {
	return string(s)
}

// IsValid 检查阶段是否有效
func (s TaskStage) IsValid() bool {
	switch s {
	case TaskStageReceived, TaskStageLoad, TaskStageValidate,
		TaskStageProcess, TaskStageExport, TaskStageDone, TaskStageUnknown:
		return true
	}
	return false
}

// =============================================
// 文件粗粒度阶段常量
// =============================================

// FileStage 文件聚合的粗粒度阶段，只允许事件订阅器修改
type FileStage string

const (
	FileStageUploaded  FileStage = "uploaded"
	FileStageDeleted   FileStage = "isDeleted"

	FileStageQualityPending   FileStage = "quality_pending"
	FileStageQualityAnalyzing FileStage = "quality_analyzing"
	FileStageQualityDone      FileStage = "quality_done"
	FileStageQualityFailed    FileStage = "quality_failed"

	FileStageCleaningPending    FileStage = "cleaning_pending"
	FileStageCleaningProcessing FileStage = "cleaning_processing"
	FileStageCleaningDone       FileStage = "cleaning_done"
	FileStageCleaningFailed     FileStage = "cleaning_failed"

	FileStageAnalysisPending    FileStage = "analysis_pending"
	FileStageAnalysisProcessing FileStage = "analysis_processing"
	FileStageAnalysisDone       FileStage = "analysis_done"
	FileStageAnalysisFailed     FileStage = "analysis_failed"
)

// String 返回阶段的字符串值
func (s FileStage) String() string {
	return string(s)
}

// =============================================
// 清洗会话状态常量
// =============================================

// SessionStatus 清洗会话状态
type SessionStatus string

const (
	// SessionStatusDraft 新建，可以追加修改
	SessionStatusDraft SessionStatus = "draft"
	// SessionStatusRunning 已有清洗任务在执行
	SessionStatusRunning SessionStatus = "running"
	// SessionStatusClosed 已关闭（终态）
	SessionStatusClosed SessionStatus = "closed"
)

// String 返回状态的字符串值
func (s SessionStatus) String() string {
	return string(s)
}

// IsActive 是否为活跃状态（draft/running）
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusDraft || s == SessionStatusRunning
}

// =============================================
// 分析输入模式常量
// =============================================

// InputMode 分析阶段的输入来源
type InputMode string

const (
	// InputModeCleaned 使用指定清洗版本的产物
	InputModeCleaned InputMode = "cleaned"
	// InputModeRaw 绕过清洗，直接用原始上传文件
	InputModeRaw InputMode = "raw"
)

// String 返回模式的字符串值
func (m InputMode) String() string {
	return string(m)
}

// IsValid 检查模式是否有效
func (m InputMode) IsValid() bool {
	return m == InputModeCleaned || m == InputModeRaw
}
