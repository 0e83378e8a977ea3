package model

// FileCondition 更新/过滤条件, 指针字段为空表示不参与
type FileCondition struct {
	Id            *string
	Stage         *string
	IsDeleted     *bool
	SummaryJSON   *string
	LastErrorJSON *string

	LatestQualityVersion  *int64
	LatestCleaningVersion *int64
	LatestAnalysisVersion *int64
}
