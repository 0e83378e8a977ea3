package model

import (
	"encoding/json"
	"time"
)

// 任务失败时持久化在任务行上的错误快照
type ExecError struct {
	Stage      string    `json:"stage"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Retryable  bool      `json:"retryable"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	ExecErrorCodeInternal        = "INTERNAL_ERROR"
	ExecErrorCodeVersionConflict = "VERSION_CONFLICT"
	ExecErrorCodeReconcileTimeout = "RECONCILE_TIMEOUT"
)

func (e *ExecError) JSON() string {
	if e == nil {
		return ""
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(raw)
}

func ExecErrorFromJSON(raw string) *ExecError {
	if raw == "" {
		return nil
	}
	execError := &ExecError{}
	if err := json.Unmarshal([]byte(raw), execError); err != nil {
		return nil
	}
	return execError
}
