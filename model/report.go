package model

// ReportScope 报告版本账本的作用域
// 质量报告仅 FileId 有效; 清洗报告带 QualityVersion;
// 分析报告带 QualityVersion 和 CleaningVersion (0 表示 raw 直通)
type ReportScope struct {
	FileId          string
	QualityVersion  int64
	CleaningVersion int64
}

type ReportCondition struct {
	FileId          *string
	QualityVersion  *int64
	CleaningVersion *int64
	Version         *int64
}
