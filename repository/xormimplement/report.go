package xormimplement

import (
	"fmt"

	"xorm.io/builder"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

// ========== QualityReportRepository 实现 ==========

type QualityReportRepository struct {
	session *Session
}

func NewQualityReportRepository(session *Session) repository.QualityReportRepository {
	return &QualityReportRepository{session: session}
}

func (r *QualityReportRepository) Create(report *entity.QualityReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	_, err := r.session.Table(entity.TableNameQualityReport).Insert(report)
	if err != nil {
		// 唯一索引冲突交给调用方识别
		return fmt.Errorf("failed to create quality report: %w", err)
	}
	return nil
}

func (r *QualityReportRepository) MaxVersion(fileID string) (int64, error) {
	var max int64
	_, err := r.session.Table(entity.TableNameQualityReport).
		Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", entity.QualityReportFieldVersion)).
		Where(builder.Eq{entity.QualityReportFieldFileID: fileID}).
		Get(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max quality report version: %w", err)
	}
	return max, nil
}

func (r *QualityReportRepository) GetByVersion(fileID string, version int64) (*entity.QualityReport, error) {
	report := &entity.QualityReport{}
	has, err := r.session.Table(entity.TableNameQualityReport).
		Where(builder.Eq{
			entity.QualityReportFieldFileID:  fileID,
			entity.QualityReportFieldVersion: version,
		}).
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get quality report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *QualityReportRepository) Latest(fileID string) (*entity.QualityReport, error) {
	report := &entity.QualityReport{}
	has, err := r.session.Table(entity.TableNameQualityReport).
		Where(builder.Eq{entity.QualityReportFieldFileID: fileID}).
		OrderBy(entity.QualityReportFieldVersion + " desc").
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quality report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *QualityReportRepository) List(fileID string, pager *model.Pager) ([]*entity.QualityReport, error) {
	session := r.session.Table(entity.TableNameQualityReport).
		Where(builder.Eq{entity.QualityReportFieldFileID: fileID}).
		OrderBy(entity.QualityReportFieldVersion + " desc")
	applyPager(session, pager)

	reports := make([]*entity.QualityReport, 0)
	if err := session.Find(&reports); err != nil {
		return nil, fmt.Errorf("failed to list quality reports: %w", err)
	}
	return reports, nil
}

// ========== CleaningReportRepository 实现 ==========

type CleaningReportRepository struct {
	session *Session
}

func NewCleaningReportRepository(session *Session) repository.CleaningReportRepository {
	return &CleaningReportRepository{session: session}
}

func (r *CleaningReportRepository) Create(report *entity.CleaningReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	_, err := r.session.Table(entity.TableNameCleaningReport).Insert(report)
	if err != nil {
		return fmt.Errorf("failed to create cleaning report: %w", err)
	}
	return nil
}

func (r *CleaningReportRepository) MaxVersion(fileID string, qualityVersion int64) (int64, error) {
	var max int64
	_, err := r.session.Table(entity.TableNameCleaningReport).
		Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", entity.CleaningReportFieldVersion)).
		Where(builder.Eq{
			entity.CleaningReportFieldFileID:         fileID,
			entity.CleaningReportFieldQualityVersion: qualityVersion,
		}).
		Get(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max cleaning report version: %w", err)
	}
	return max, nil
}

func (r *CleaningReportRepository) GetByVersion(fileID string, qualityVersion int64, version int64) (*entity.CleaningReport, error) {
	report := &entity.CleaningReport{}
	has, err := r.session.Table(entity.TableNameCleaningReport).
		Where(builder.Eq{
			entity.CleaningReportFieldFileID:         fileID,
			entity.CleaningReportFieldQualityVersion: qualityVersion,
			entity.CleaningReportFieldVersion:        version,
		}).
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get cleaning report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *CleaningReportRepository) Latest(fileID string, qualityVersion int64) (*entity.CleaningReport, error) {
	report := &entity.CleaningReport{}
	has, err := r.session.Table(entity.TableNameCleaningReport).
		Where(builder.Eq{
			entity.CleaningReportFieldFileID:         fileID,
			entity.CleaningReportFieldQualityVersion: qualityVersion,
		}).
		OrderBy(entity.CleaningReportFieldVersion + " desc").
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cleaning report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *CleaningReportRepository) List(fileID string, qualityVersion int64, pager *model.Pager) ([]*entity.CleaningReport, error) {
	session := r.session.Table(entity.TableNameCleaningReport).
		Where(builder.Eq{
			entity.CleaningReportFieldFileID:         fileID,
			entity.CleaningReportFieldQualityVersion: qualityVersion,
		}).
		OrderBy(entity.CleaningReportFieldVersion + " desc")
	applyPager(session, pager)

	reports := make([]*entity.CleaningReport, 0)
	if err := session.Find(&reports); err != nil {
		return nil, fmt.Errorf("failed to list cleaning reports: %w", err)
	}
	return reports, nil
}

// ========== AnalysisReportRepository 实现 ==========

type AnalysisReportRepository struct {
	session *Session
}

func NewAnalysisReportRepository(session *Session) repository.AnalysisReportRepository {
	return &AnalysisReportRepository{session: session}
}

func (r *AnalysisReportRepository) Create(report *entity.AnalysisReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	_, err := r.session.Table(entity.TableNameAnalysisReport).Insert(report)
	if err != nil {
		return fmt.Errorf("failed to create analysis report: %w", err)
	}
	return nil
}

func (r *AnalysisReportRepository) MaxVersion(fileID string, qualityVersion int64, cleaningVersion int64) (int64, error) {
	var max int64
	_, err := r.session.Table(entity.TableNameAnalysisReport).
		Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", entity.AnalysisReportFieldVersion)).
		Where(builder.Eq{
			entity.AnalysisReportFieldFileID:          fileID,
			entity.AnalysisReportFieldQualityVersion:  qualityVersion,
			entity.AnalysisReportFieldCleaningVersion: cleaningVersion,
		}).
		Get(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max analysis report version: %w", err)
	}
	return max, nil
}

func (r *AnalysisReportRepository) GetByVersion(fileID string, qualityVersion int64, cleaningVersion int64, version int64) (*entity.AnalysisReport, error) {
	report := &entity.AnalysisReport{}
	has, err := r.session.Table(entity.TableNameAnalysisReport).
		Where(builder.Eq{
			entity.AnalysisReportFieldFileID:          fileID,
			entity.AnalysisReportFieldQualityVersion:  qualityVersion,
			entity.AnalysisReportFieldCleaningVersion: cleaningVersion,
			entity.AnalysisReportFieldVersion:         version,
		}).
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *AnalysisReportRepository) Latest(fileID string, qualityVersion int64, cleaningVersion int64) (*entity.AnalysisReport, error) {
	report := &entity.AnalysisReport{}
	has, err := r.session.Table(entity.TableNameAnalysisReport).
		Where(builder.Eq{
			entity.AnalysisReportFieldFileID:          fileID,
			entity.AnalysisReportFieldQualityVersion:  qualityVersion,
			entity.AnalysisReportFieldCleaningVersion: cleaningVersion,
		}).
		OrderBy(entity.AnalysisReportFieldVersion + " desc").
		Get(report)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis report: %w", err)
	}
	if !has {
		return nil, nil
	}
	return report, nil
}

func (r *AnalysisReportRepository) List(fileID string, qualityVersion int64, cleaningVersion int64, pager *model.Pager) ([]*entity.AnalysisReport, error) {
	session := r.session.Table(entity.TableNameAnalysisReport).
		Where(builder.Eq{
			entity.AnalysisReportFieldFileID:          fileID,
			entity.AnalysisReportFieldQualityVersion:  qualityVersion,
			entity.AnalysisReportFieldCleaningVersion: cleaningVersion,
		}).
		OrderBy(entity.AnalysisReportFieldVersion + " desc")
	applyPager(session, pager)

	reports := make([]*entity.AnalysisReport, 0)
	if err := session.Find(&reports); err != nil {
		return nil, fmt.Errorf("failed to list analysis reports: %w", err)
	}
	return reports, nil
}

func (r *AnalysisReportRepository) ListByFile(fileID string, pager *model.Pager) ([]*entity.AnalysisReport, error) {
	session := r.session.Table(entity.TableNameAnalysisReport).
		Where(builder.Eq{entity.AnalysisReportFieldFileID: fileID}).
		OrderBy(entity.AnalysisReportFieldCreatedAt + " desc")
	applyPager(session, pager)

	reports := make([]*entity.AnalysisReport, 0)
	if err := session.Find(&reports); err != nil {
		return nil, fmt.Errorf("failed to list analysis reports by file: %w", err)
	}
	return reports, nil
}
