package xormimplement

import (
	"fmt"
	"time"

	"xorm.io/builder"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

// ========== FileRepository 实现 ==========

type FileRepository struct {
	session *Session
}

func NewFileRepository(session *Session) repository.FileRepository {
	return &FileRepository{session: session}
}

func (r *FileRepository) Create(file *entity.File) error {
	if file == nil || file.ID == "" {
		return fmt.Errorf("file id is required")
	}
	_, err := r.session.Table(entity.TableNameFile).Insert(file)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *FileRepository) Get(fileID string) (*entity.File, error) {
	file := &entity.File{}
	has, err := r.session.Table(entity.TableNameFile).
		Where(builder.Eq{entity.FileFieldID: fileID}).
		Get(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if !has {
		return nil, nil
	}
	return file, nil
}

func (r *FileRepository) GetByFingerprint(fingerprint string) (*entity.File, error) {
	file := &entity.File{}
	has, err := r.session.Table(entity.TableNameFile).
		Where(builder.Eq{
			entity.FileFieldFingerprint: fingerprint,
			entity.FileFieldIsDeleted:   false,
		}).
		Get(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get file by fingerprint: %w", err)
	}
	if !has {
		return nil, nil
	}
	return file, nil
}

func (r *FileRepository) Update(fileID string, condition *model.FileCondition) error {
	if condition == nil {
		return fmt.Errorf("update condition cannot be nil")
	}

	updateData := make(map[string]interface{})
	updateData[entity.FileFieldUpdatedAt] = time.Now()

	if condition.Stage != nil {
		updateData[entity.FileFieldStage] = *condition.Stage
	}
	if condition.IsDeleted != nil {
		updateData[entity.FileFieldIsDeleted] = *condition.IsDeleted
	}
	if condition.SummaryJSON != nil {
		updateData[entity.FileFieldSummaryJSON] = *condition.SummaryJSON
	}
	if condition.LastErrorJSON != nil {
		updateData[entity.FileFieldLastErrorJSON] = *condition.LastErrorJSON
	}
	if condition.LatestQualityVersion != nil {
		updateData[entity.FileFieldLatestQualityVersion] = *condition.LatestQualityVersion
	}
	if condition.LatestCleaningVersion != nil {
		updateData[entity.FileFieldLatestCleaningVersion] = *condition.LatestCleaningVersion
	}
	if condition.LatestAnalysisVersion != nil {
		updateData[entity.FileFieldLatestAnalysisVersion] = *condition.LatestAnalysisVersion
	}

	_, err := r.session.Table(entity.TableNameFile).
		Where(builder.Eq{entity.FileFieldID: fileID}).
		Update(updateData)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return nil
}

func (r *FileRepository) List(pager *model.Pager) ([]*entity.File, error) {
	session := r.session.Table(entity.TableNameFile).
		Where(builder.Eq{entity.FileFieldIsDeleted: false}).
		OrderBy(entity.FileFieldCreatedAt + " desc")
	applyPager(session, pager)

	files := make([]*entity.File, 0)
	if err := session.Find(&files); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}
