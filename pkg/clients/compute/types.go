package compute

import "encoding/json"

// 计算服务统一响应包裹
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const (
	DataSourceRaw     = "raw"
	DataSourceCleaned = "cleaned"
)

// DataRef 计算输入的数据引用
type DataRef struct {
	FileID          string `json:"file_id"`
	Path            string `json:"path"`
	Source          string `json:"source"`
	QualityVersion  int64  `json:"quality_version,omitempty"`
	CleaningVersion int64  `json:"cleaning_version,omitempty"`
}

// QualityRunRequest 质量分析请求
type QualityRunRequest struct {
	TaskID string  `json:"task_id"`
	File   DataRef `json:"file"`
}

// CleaningRunRequest 清洗请求, Actions 为触发时固化的用户修改
type CleaningRunRequest struct {
	TaskID  string          `json:"task_id"`
	File    DataRef         `json:"file"`
	Rules   json.RawMessage `json:"rules,omitempty"`
	Actions json.RawMessage `json:"actions,omitempty"`
}

// AnalysisRunRequest 分析请求
type AnalysisRunRequest struct {
	TaskID    string          `json:"task_id"`
	Data      DataRef         `json:"data"`
	Selection json.RawMessage `json:"selection,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// RunResult 一次计算的产物, Payload 原样入库为报告内容
type RunResult struct {
	Stage   string          `json:"stage"`
	Payload json.RawMessage `json:"payload"`
}
