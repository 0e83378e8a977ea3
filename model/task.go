package model

import "time"

// TaskCondition 任务表的查询条件
type TaskCondition struct {
	Id     *string
	FileId *string
	Status *string

	// 查询 running 超过该时刻的任务
	RunningBefore *time.Time
}
