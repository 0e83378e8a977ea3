package memimplement

import (
	"fmt"
	"time"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// ========== FileRepository 内存实现 ==========

type FileRepository struct {
	store *store
}

func (r *FileRepository) Create(file *entity.File) error {
	if file == nil || file.ID == "" {
		return fmt.Errorf("file id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	clone := *file
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.store.files = append(r.store.files, &clone)
	return nil
}

func (r *FileRepository) Get(fileID string) (*entity.File, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, f := range r.store.files {
		if f.ID == fileID {
			clone := *f
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *FileRepository) GetByFingerprint(fingerprint string) (*entity.File, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, f := range r.store.files {
		if f.Fingerprint == fingerprint && !f.IsDeleted {
			clone := *f
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *FileRepository) Update(fileID string, condition *model.FileCondition) error {
	if condition == nil {
		return fmt.Errorf("update condition cannot be nil")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, f := range r.store.files {
		if f.ID != fileID {
			continue
		}
		if condition.Stage != nil {
			f.Stage = *condition.Stage
		}
		if condition.IsDeleted != nil {
			f.IsDeleted = *condition.IsDeleted
		}
		if condition.SummaryJSON != nil {
			f.SummaryJSON = *condition.SummaryJSON
		}
		if condition.LastErrorJSON != nil {
			f.LastErrorJSON = *condition.LastErrorJSON
		}
		if condition.LatestQualityVersion != nil {
			f.LatestQualityVersion = *condition.LatestQualityVersion
		}
		if condition.LatestCleaningVersion != nil {
			f.LatestCleaningVersion = *condition.LatestCleaningVersion
		}
		if condition.LatestAnalysisVersion != nil {
			f.LatestAnalysisVersion = *condition.LatestAnalysisVersion
		}
		f.UpdatedAt = time.Now()
		return nil
	}
	return nil
}

func (r *FileRepository) List(pager *model.Pager) ([]*entity.File, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	files := make([]*entity.File, 0)
	for i := len(r.store.files) - 1; i >= 0; i-- {
		f := r.store.files[i]
		if f.IsDeleted {
			continue
		}
		clone := *f
		files = append(files, &clone)
	}
	return slicePage(files, pager), nil
}
