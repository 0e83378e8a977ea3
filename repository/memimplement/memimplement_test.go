package memimplement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

func TestReportScopeUniqueness(t *testing.T) {
	factory := NewFactory()
	reportRepo, err := factory.NewQualityReportRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, reportRepo.Create(&entity.QualityReport{
		ID: "r1", FileID: "file_1", Version: 1, TaskID: "t1", PayloadJSON: "{}",
	}))

	// 同作用域同版本第二次写入触发唯一冲突
	err = reportRepo.Create(&entity.QualityReport{
		ID: "r2", FileID: "file_1", Version: 1, TaskID: "t2", PayloadJSON: "{}",
	})
	require.Error(t, err)
	assert.True(t, repository.IsDuplicate(err))

	// 不同文件不冲突
	require.NoError(t, reportRepo.Create(&entity.QualityReport{
		ID: "r3", FileID: "file_2", Version: 1, TaskID: "t3", PayloadJSON: "{}",
	}))

	max, err := reportRepo.MaxVersion("file_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), max)

	max, err = reportRepo.MaxVersion("file_3")
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)
}

func TestMarkRunningGuard(t *testing.T) {
	factory := NewFactory()
	taskRepo, err := factory.NewQualityTaskRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, taskRepo.Create(&entity.QualityTask{
		ID: "t1", FileID: "file_1",
		Status: constant.TaskStatusPending.String(), Stage: constant.TaskStageReceived.String(),
	}))

	ok, err := taskRepo.MarkRunning("t1")
	require.NoError(t, err)
	assert.True(t, ok)

	// 二次抢占失败
	ok, err = taskRepo.MarkRunning("t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkTerminalExactlyOnce(t *testing.T) {
	factory := NewFactory()
	taskRepo, err := factory.NewQualityTaskRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, taskRepo.Create(&entity.QualityTask{
		ID: "t1", FileID: "file_1",
		Status: constant.TaskStatusRunning.String(), Stage: constant.TaskStageProcess.String(),
	}))

	ok, err := taskRepo.MarkTerminal("t1", constant.TaskStatusSuccess.String(), 1, "")
	require.NoError(t, err)
	assert.True(t, ok)

	// 终态之后不再迁移
	ok, err = taskRepo.MarkTerminal("t1", constant.TaskStatusFailed.String(), 0, `{"code":"X"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	task, err := taskRepo.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusSuccess.String(), task.Status)
	assert.Equal(t, int64(1), task.Version)
	assert.Empty(t, task.ErrorJSON)
}

func TestSessionTransition(t *testing.T) {
	factory := NewFactory()
	sessionRepo, err := factory.NewCleaningSessionRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, sessionRepo.Create(&entity.CleaningSession{
		ID: "s1", FileID: "file_1", QualityVersion: 1,
		Status: constant.SessionStatusDraft.String(),
	}))

	ok, err := sessionRepo.TransitionStatus("s1", constant.SessionStatusDraft.String(), constant.SessionStatusRunning.String())
	require.NoError(t, err)
	assert.True(t, ok)

	// 上锁时间随 running 一起落库
	session, err := sessionRepo.Get("s1")
	require.NoError(t, err)
	assert.NotNil(t, session.LockedAt)

	// from 不匹配时迁移失败
	ok, err = sessionRepo.TransitionStatus("s1", constant.SessionStatusDraft.String(), constant.SessionStatusClosed.String())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = sessionRepo.TransitionStatus("s1", constant.SessionStatusRunning.String(), constant.SessionStatusClosed.String())
	require.NoError(t, err)
	assert.True(t, ok)

	session, err = sessionRepo.Get("s1")
	require.NoError(t, err)
	assert.NotNil(t, session.ClosedAt)
}

func TestGetActivePicksLatest(t *testing.T) {
	factory := NewFactory()
	sessionRepo, err := factory.NewCleaningSessionRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, sessionRepo.Create(&entity.CleaningSession{
		ID: "s1", FileID: "file_1", QualityVersion: 1, Status: constant.SessionStatusDraft.String(),
	}))
	require.NoError(t, sessionRepo.CloseActive("file_1", 1))
	require.NoError(t, sessionRepo.Create(&entity.CleaningSession{
		ID: "s2", FileID: "file_1", QualityVersion: 1, Status: constant.SessionStatusDraft.String(),
	}))

	active, err := sessionRepo.GetActive("file_1", 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "s2", active.ID)
}

func TestMarkRunningStampsStartedAt(t *testing.T) {
	factory := NewFactory()
	taskRepo, err := factory.NewQualityTaskRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, taskRepo.Create(&entity.QualityTask{
		ID: "t1", FileID: "file_1", Status: constant.TaskStatusPending.String(),
	}))

	ok, err := taskRepo.MarkRunning("t1")
	require.NoError(t, err)
	require.True(t, ok)

	task, err := taskRepo.Get("t1")
	require.NoError(t, err)
	require.NotNil(t, task.StartedAt)
	assert.False(t, task.StartedAt.After(time.Now()))
}

func TestFindStaleRunningUsesStartedAt(t *testing.T) {
	factory := NewFactory()
	taskRepo, err := factory.NewQualityTaskRepository(factory.NewSession(context.Background()))
	require.NoError(t, err)

	require.NoError(t, taskRepo.Create(&entity.QualityTask{
		ID: "t1", FileID: "file_1", Status: constant.TaskStatusPending.String(),
	}))
	ok, err := taskRepo.MarkRunning("t1")
	require.NoError(t, err)
	require.True(t, ok)

	// 起跑很久, 中途还在刷阶段
	past := time.Now().Add(-time.Hour)
	factory.store.mu.Lock()
	factory.store.qualityTasks[0].StartedAt = &past
	factory.store.mu.Unlock()
	require.NoError(t, taskRepo.UpdateStage("t1", constant.TaskStageProcess.String()))

	stale, err := taskRepo.FindStaleRunning(time.Now().Add(-30 * time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "t1", stale[0].ID)

	// 刚起跑的不算超时
	require.NoError(t, taskRepo.Create(&entity.QualityTask{
		ID: "t2", FileID: "file_1", Status: constant.TaskStatusPending.String(),
	}))
	ok, err = taskRepo.MarkRunning("t2")
	require.NoError(t, err)
	require.True(t, ok)

	stale, err = taskRepo.FindStaleRunning(time.Now().Add(-30 * time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
}
