package memimplement

import (
	"fmt"
	"time"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
)

// ========== QualityTaskRepository 内存实现 ==========

type QualityTaskRepository struct {
	store *store
}

func (r *QualityTaskRepository) Create(task *entity.QualityTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	clone := *task
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.store.qualityTasks = append(r.store.qualityTasks, &clone)
	return nil
}

func (r *QualityTaskRepository) Get(taskID string) (*entity.QualityTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.qualityTasks {
		if t.ID == taskID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *QualityTaskRepository) Latest(fileID string) (*entity.QualityTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := len(r.store.qualityTasks) - 1; i >= 0; i-- {
		t := r.store.qualityTasks[i]
		if t.FileID == fileID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *QualityTaskRepository) MarkRunning(taskID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.qualityTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusPending.String() {
			now := time.Now()
			t.Status = constant.TaskStatusRunning.String()
			t.Stage = constant.TaskStageReceived.String()
			t.StartedAt = &now
			t.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *QualityTaskRepository) UpdateStage(taskID string, stage string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.qualityTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusRunning.String() {
			t.Stage = stage
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (r *QualityTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.qualityTasks {
		if t.ID != taskID {
			continue
		}
		if constant.TaskStatus(t.Status).IsTerminal() {
			return false, nil
		}
		now := time.Now()
		t.Status = status
		t.Version = version
		t.ErrorJSON = errorJSON
		t.UpdatedAt = now
		t.FinishedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *QualityTaskRepository) FindStaleRunning(before time.Time) ([]*entity.QualityTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tasks := make([]*entity.QualityTask, 0)
	for _, t := range r.store.qualityTasks {
		if t.Status == constant.TaskStatusRunning.String() &&
			(t.StartedAt == nil || t.StartedAt.Before(before)) {
			clone := *t
			tasks = append(tasks, &clone)
		}
	}
	return tasks, nil
}

// ========== CleaningTaskRepository 内存实现 ==========

type CleaningTaskRepository struct {
	store *store
}

func (r *CleaningTaskRepository) Create(task *entity.CleaningTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	clone := *task
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.store.cleaningTasks = append(r.store.cleaningTasks, &clone)
	return nil
}

func (r *CleaningTaskRepository) Get(taskID string) (*entity.CleaningTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.cleaningTasks {
		if t.ID == taskID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CleaningTaskRepository) Latest(sessionID string) (*entity.CleaningTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := len(r.store.cleaningTasks) - 1; i >= 0; i-- {
		t := r.store.cleaningTasks[i]
		if t.SessionID == sessionID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CleaningTaskRepository) MarkRunning(taskID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.cleaningTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusPending.String() {
			now := time.Now()
			t.Status = constant.TaskStatusRunning.String()
			t.Stage = constant.TaskStageReceived.String()
			t.StartedAt = &now
			t.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *CleaningTaskRepository) UpdateStage(taskID string, stage string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.cleaningTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusRunning.String() {
			t.Stage = stage
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (r *CleaningTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.cleaningTasks {
		if t.ID != taskID {
			continue
		}
		if constant.TaskStatus(t.Status).IsTerminal() {
			return false, nil
		}
		now := time.Now()
		t.Status = status
		t.Version = version
		t.ErrorJSON = errorJSON
		t.UpdatedAt = now
		t.FinishedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *CleaningTaskRepository) FindStaleRunning(before time.Time) ([]*entity.CleaningTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tasks := make([]*entity.CleaningTask, 0)
	for _, t := range r.store.cleaningTasks {
		if t.Status == constant.TaskStatusRunning.String() &&
			(t.StartedAt == nil || t.StartedAt.Before(before)) {
			clone := *t
			tasks = append(tasks, &clone)
		}
	}
	return tasks, nil
}

// ========== AnalysisTaskRepository 内存实现 ==========

type AnalysisTaskRepository struct {
	store *store
}

func (r *AnalysisTaskRepository) Create(task *entity.AnalysisTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	clone := *task
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.store.analysisTasks = append(r.store.analysisTasks, &clone)
	return nil
}

func (r *AnalysisTaskRepository) Get(taskID string) (*entity.AnalysisTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.analysisTasks {
		if t.ID == taskID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *AnalysisTaskRepository) Latest(fileID string) (*entity.AnalysisTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := len(r.store.analysisTasks) - 1; i >= 0; i-- {
		t := r.store.analysisTasks[i]
		if t.FileID == fileID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *AnalysisTaskRepository) MarkRunning(taskID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.analysisTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusPending.String() {
			now := time.Now()
			t.Status = constant.TaskStatusRunning.String()
			t.Stage = constant.TaskStageReceived.String()
			t.StartedAt = &now
			t.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *AnalysisTaskRepository) UpdateStage(taskID string, stage string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.analysisTasks {
		if t.ID == taskID && t.Status == constant.TaskStatusRunning.String() {
			t.Stage = stage
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (r *AnalysisTaskRepository) MarkTerminal(taskID string, status string, version int64, errorJSON string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.analysisTasks {
		if t.ID != taskID {
			continue
		}
		if constant.TaskStatus(t.Status).IsTerminal() {
			return false, nil
		}
		now := time.Now()
		t.Status = status
		t.Version = version
		t.ErrorJSON = errorJSON
		t.UpdatedAt = now
		t.FinishedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *AnalysisTaskRepository) FindStaleRunning(before time.Time) ([]*entity.AnalysisTask, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tasks := make([]*entity.AnalysisTask, 0)
	for _, t := range r.store.analysisTasks {
		if t.Status == constant.TaskStatusRunning.String() &&
			(t.StartedAt == nil || t.StartedAt.Before(before)) {
			clone := *t
			tasks = append(tasks, &clone)
		}
	}
	return tasks, nil
}
