package xormimplement

import (
	"fmt"
	"time"

	"xorm.io/builder"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

// ========== QualityTaskRepository 实现 ==========

type QualityTaskRepository struct {
	session *Session
}

func NewQualityTaskRepository(session *Session) repository.QualityTaskRepository {
	return &QualityTaskRepository{session: session}
}

func (r *QualityTaskRepository) Create(task *entity.QualityTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	_, err := r.session.Table(entity.TableNameQualityTask).Insert(task)
	if err != nil {
		return fmt.Errorf("failed to create quality task: %w", err)
	}
	return nil
}

func (r *QualityTaskRepository) Get(taskID string) (*entity.QualityTask, error) {
	task := &entity.QualityTask{}
	has, err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{entity.QualityTaskFieldID: taskID}).
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get quality task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *QualityTaskRepository) Latest(fileID string) (*entity.QualityTask, error) {
	task := &entity.QualityTask{}
	has, err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{entity.QualityTaskFieldFileID: fileID}).
		OrderBy(entity.QualityTaskFieldCreatedAt + " desc").
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quality task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *QualityTaskRepository) MarkRunning(taskID string) (bool, error) {
	affected, err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{
			entity.QualityTaskFieldID:     taskID,
			entity.QualityTaskFieldStatus: constant.TaskStatusPending.String(),
		}).
		Update(map[string]interface{}{
			entity.QualityTaskFieldStatus:    constant.TaskStatusRunning.String(),
			entity.QualityTaskFieldStage:     constant.TaskStageReceived.String(),
			entity.QualityTaskFieldStartedAt: time.Now(),
			entity.QualityTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark quality task running: %w", err)
	}
	return affected > 0, nil
}

func (r *QualityTaskRepository) UpdateStage(taskID string, stage string) error {
	_, err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{
			entity.QualityTaskFieldID:     taskID,
			entity.QualityTaskFieldStatus: constant.TaskStatusRunning.String(),
		}).
		Update(map[string]interface{}{
			entity.QualityTaskFieldStage:     stage,
			entity.QualityTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to update quality task stage: %w", err)
	}
	return nil
}

func (r *QualityTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	now := time.Now()
	affected, err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{entity.QualityTaskFieldID: taskID}).
		And(builder.In(entity.QualityTaskFieldStatus,
			constant.TaskStatusPending.String(), constant.TaskStatusRunning.String())).
		Update(map[string]interface{}{
			entity.QualityTaskFieldStatus:     status,
			entity.QualityTaskFieldVersion:    version,
			entity.QualityTaskFieldErrorJSON:  errorJSON,
			entity.QualityTaskFieldUpdatedAt:  now,
			entity.QualityTaskFieldFinishedAt: now,
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark quality task terminal: %w", err)
	}
	return affected > 0, nil
}

func (r *QualityTaskRepository) FindStaleRunning(before time.Time) ([]*entity.QualityTask, error) {
	tasks := make([]*entity.QualityTask, 0)
	err := r.session.Table(entity.TableNameQualityTask).
		Where(builder.Eq{entity.QualityTaskFieldStatus: constant.TaskStatusRunning.String()}).
		And(builder.Lt{entity.QualityTaskFieldStartedAt: before}).
		Find(&tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale quality tasks: %w", err)
	}
	return tasks, nil
}

// ========== CleaningTaskRepository 实现 ==========

type CleaningTaskRepository struct {
	session *Session
}

func NewCleaningTaskRepository(session *Session) repository.CleaningTaskRepository {
	return &CleaningTaskRepository{session: session}
}

func (r *CleaningTaskRepository) Create(task *entity.CleaningTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	_, err := r.session.Table(entity.TableNameCleaningTask).Insert(task)
	if err != nil {
		return fmt.Errorf("failed to create cleaning task: %w", err)
	}
	return nil
}

func (r *CleaningTaskRepository) Get(taskID string) (*entity.CleaningTask, error) {
	task := &entity.CleaningTask{}
	has, err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{entity.CleaningTaskFieldID: taskID}).
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get cleaning task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *CleaningTaskRepository) Latest(sessionID string) (*entity.CleaningTask, error) {
	task := &entity.CleaningTask{}
	has, err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{entity.CleaningTaskFieldSessionID: sessionID}).
		OrderBy(entity.CleaningTaskFieldCreatedAt + " desc").
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cleaning task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *CleaningTaskRepository) MarkRunning(taskID string) (bool, error) {
	affected, err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{
			entity.CleaningTaskFieldID:     taskID,
			entity.CleaningTaskFieldStatus: constant.TaskStatusPending.String(),
		}).
		Update(map[string]interface{}{
			entity.CleaningTaskFieldStatus:    constant.TaskStatusRunning.String(),
			entity.CleaningTaskFieldStage:     constant.TaskStageReceived.String(),
			entity.CleaningTaskFieldStartedAt: time.Now(),
			entity.CleaningTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark cleaning task running: %w", err)
	}
	return affected > 0, nil
}

func (r *CleaningTaskRepository) UpdateStage(taskID string, stage string) error {
	_, err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{
			entity.CleaningTaskFieldID:     taskID,
			entity.CleaningTaskFieldStatus: constant.TaskStatusRunning.String(),
		}).
		Update(map[string]interface{}{
			entity.CleaningTaskFieldStage:     stage,
			entity.CleaningTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to update cleaning task stage: %w", err)
	}
	return nil
}

func (r *CleaningTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	now := time.Now()
	affected, err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{entity.CleaningTaskFieldID: taskID}).
		And(builder.In(entity.CleaningTaskFieldStatus,
			constant.TaskStatusPending.String(), constant.TaskStatusRunning.String())).
		Update(map[string]interface{}{
			entity.CleaningTaskFieldStatus:     status,
			entity.CleaningTaskFieldVersion:    version,
			entity.CleaningTaskFieldErrorJSON:  errorJSON,
			entity.CleaningTaskFieldUpdatedAt:  now,
			entity.CleaningTaskFieldFinishedAt: now,
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark cleaning task terminal: %w", err)
	}
	return affected > 0, nil
}

func (r *CleaningTaskRepository) FindStaleRunning(before time.Time) ([]*entity.CleaningTask, error) {
	tasks := make([]*entity.CleaningTask, 0)
	err := r.session.Table(entity.TableNameCleaningTask).
		Where(builder.Eq{entity.CleaningTaskFieldStatus: constant.TaskStatusRunning.String()}).
		And(builder.Lt{entity.CleaningTaskFieldStartedAt: before}).
		Find(&tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale cleaning tasks: %w", err)
	}
	return tasks, nil
}

// ========== AnalysisTaskRepository 实现 ==========

type AnalysisTaskRepository struct {
	session *Session
}

func NewAnalysisTaskRepository(session *Session) repository.AnalysisTaskRepository {
	return &AnalysisTaskRepository{session: session}
}

func (r *AnalysisTaskRepository) Create(task *entity.AnalysisTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	_, err := r.session.Table(entity.TableNameAnalysisTask).Insert(task)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}
	return nil
}

func (r *AnalysisTaskRepository) Get(taskID string) (*entity.AnalysisTask, error) {
	task := &entity.AnalysisTask{}
	has, err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{entity.AnalysisTaskFieldID: taskID}).
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *AnalysisTaskRepository) Latest(fileID string) (*entity.AnalysisTask, error) {
	task := &entity.AnalysisTask{}
	has, err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{entity.AnalysisTaskFieldFileID: fileID}).
		OrderBy(entity.AnalysisTaskFieldCreatedAt + " desc").
		Get(task)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis task: %w", err)
	}
	if !has {
		return nil, nil
	}
	return task, nil
}

func (r *AnalysisTaskRepository) MarkRunning(taskID string) (bool, error) {
	affected, err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{
			entity.AnalysisTaskFieldID:     taskID,
			entity.AnalysisTaskFieldStatus: constant.TaskStatusPending.String(),
		}).
		Update(map[string]interface{}{
			entity.AnalysisTaskFieldStatus:    constant.TaskStatusRunning.String(),
			entity.AnalysisTaskFieldStage:     constant.TaskStageReceived.String(),
			entity.AnalysisTaskFieldStartedAt: time.Now(),
			entity.AnalysisTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark analysis task running: %w", err)
	}
	return affected > 0, nil
}

func (r *AnalysisTaskRepository) UpdateStage(taskID string, stage string) error {
	_, err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{
			entity.AnalysisTaskFieldID:     taskID,
			entity.AnalysisTaskFieldStatus: constant.TaskStatusRunning.String(),
		}).
		Update(map[string]interface{}{
			entity.AnalysisTaskFieldStage:     stage,
			entity.AnalysisTaskFieldUpdatedAt: time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to update analysis task stage: %w", err)
	}
	return nil
}

func (r *AnalysisTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	now := time.Now()
	affected, err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{entity.AnalysisTaskFieldID: taskID}).
		And(builder.In(entity.AnalysisTaskFieldStatus,
			constant.TaskStatusPending.String(), constant.TaskStatusRunning.String())).
		Update(map[string]interface{}{
			entity.AnalysisTaskFieldStatus:     status,
			entity.AnalysisTaskFieldVersion:    version,
			entity.AnalysisTaskFieldErrorJSON:  errorJSON,
			entity.AnalysisTaskFieldUpdatedAt:  now,
			entity.AnalysisTaskFieldFinishedAt: now,
		})
	if err != nil {
		return false, fmt.Errorf("failed to mark analysis task terminal: %w", err)
	}
	return affected > 0, nil
}

func (r *AnalysisTaskRepository) FindStaleRunning(before time.Time) ([]*entity.AnalysisTask, error) {
	tasks := make([]*entity.AnalysisTask, 0)
	err := r.session.Table(entity.TableNameAnalysisTask).
		Where(builder.Eq{entity.AnalysisTaskFieldStatus: constant.TaskStatusRunning.String()}).
		And(builder.Lt{entity.AnalysisTaskFieldStartedAt: before}).
		Find(&tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale analysis tasks: %w", err)
	}
	return tasks, nil
}
