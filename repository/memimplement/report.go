package memimplement

import (
	"fmt"
	"sort"
	"time"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

// ========== QualityReportRepository 内存实现 ==========

type QualityReportRepository struct {
	store *store
}

func (r *QualityReportRepository) Create(report *entity.QualityReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// (file_id, version) 唯一
	for _, existing := range r.store.qualityReports {
		if existing.FileID == report.FileID && existing.Version == report.Version {
			return repository.ErrDuplicate
		}
	}
	clone := *report
	clone.CreatedAt = time.Now()
	r.store.qualityReports = append(r.store.qualityReports, &clone)
	return nil
}

func (r *QualityReportRepository) MaxVersion(fileID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var max int64
	for _, report := range r.store.qualityReports {
		if report.FileID == fileID && report.Version > max {
			max = report.Version
		}
	}
	return max, nil
}

func (r *QualityReportRepository) GetByVersion(fileID string, version int64) (*entity.QualityReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, report := range r.store.qualityReports {
		if report.FileID == fileID && report.Version == version {
			clone := *report
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *QualityReportRepository) Latest(fileID string) (*entity.QualityReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var latest *entity.QualityReport
	for _, report := range r.store.qualityReports {
		if report.FileID != fileID {
			continue
		}
		if latest == nil || report.Version > latest.Version {
			latest = report
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *QualityReportRepository) List(fileID string, pager *model.Pager) ([]*entity.QualityReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reports := make([]*entity.QualityReport, 0)
	for _, report := range r.store.qualityReports {
		if report.FileID == fileID {
			clone := *report
			reports = append(reports, &clone)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Version > reports[j].Version
	})
	return slicePage(reports, pager), nil
}

// ========== CleaningReportRepository 内存实现 ==========

type CleaningReportRepository struct {
	store *store
}

func (r *CleaningReportRepository) Create(report *entity.CleaningReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// (file_id, quality_version, version) 唯一
	for _, existing := range r.store.cleaningReports {
		if existing.FileID == report.FileID &&
			existing.QualityVersion == report.QualityVersion &&
			existing.Version == report.Version {
			return repository.ErrDuplicate
		}
	}
	clone := *report
	clone.CreatedAt = time.Now()
	r.store.cleaningReports = append(r.store.cleaningReports, &clone)
	return nil
}

func (r *CleaningReportRepository) MaxVersion(fileID string, qualityVersion int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var max int64
	for _, report := range r.store.cleaningReports {
		if report.FileID == fileID && report.QualityVersion == qualityVersion && report.Version > max {
			max = report.Version
		}
	}
	return max, nil
}

func (r *CleaningReportRepository) GetByVersion(fileID string, qualityVersion int64, version int64) (*entity.CleaningReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, report := range r.store.cleaningReports {
		if report.FileID == fileID && report.QualityVersion == qualityVersion && report.Version == version {
			clone := *report
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CleaningReportRepository) Latest(fileID string, qualityVersion int64) (*entity.CleaningReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var latest *entity.CleaningReport
	for _, report := range r.store.cleaningReports {
		if report.FileID != fileID || report.QualityVersion != qualityVersion {
			continue
		}
		if latest == nil || report.Version > latest.Version {
			latest = report
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *CleaningReportRepository) List(fileID string, qualityVersion int64, pager *model.Pager) ([]*entity.CleaningReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reports := make([]*entity.CleaningReport, 0)
	for _, report := range r.store.cleaningReports {
		if report.FileID == fileID && report.QualityVersion == qualityVersion {
			clone := *report
			reports = append(reports, &clone)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Version > reports[j].Version
	})
	return slicePage(reports, pager), nil
}

// ========== AnalysisReportRepository 内存实现 ==========

type AnalysisReportRepository struct {
	store *store
}

func (r *AnalysisReportRepository) Create(report *entity.AnalysisReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// (file_id, quality_version, cleaning_version, version) 唯一
	for _, existing := range r.store.analysisReports {
		if existing.FileID == report.FileID &&
			existing.QualityVersion == report.QualityVersion &&
			existing.CleaningVersion == report.CleaningVersion &&
			existing.Version == report.Version {
			return repository.ErrDuplicate
		}
	}
	clone := *report
	clone.CreatedAt = time.Now()
	r.store.analysisReports = append(r.store.analysisReports, &clone)
	return nil
}

func (r *AnalysisReportRepository) MaxVersion(fileID string, qualityVersion int64, cleaningVersion int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var max int64
	for _, report := range r.store.analysisReports {
		if report.FileID == fileID &&
			report.QualityVersion == qualityVersion &&
			report.CleaningVersion == cleaningVersion &&
			report.Version > max {
			max = report.Version
		}
	}
	return max, nil
}

func (r *AnalysisReportRepository) GetByVersion(fileID string, qualityVersion int64, cleaningVersion int64, version int64) (*entity.AnalysisReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, report := range r.store.analysisReports {
		if report.FileID == fileID &&
			report.QualityVersion == qualityVersion &&
			report.CleaningVersion == cleaningVersion &&
			report.Version == version {
			clone := *report
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *AnalysisReportRepository) Latest(fileID string, qualityVersion int64, cleaningVersion int64) (*entity.AnalysisReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var latest *entity.AnalysisReport
	for _, report := range r.store.analysisReports {
		if report.FileID != fileID ||
			report.QualityVersion != qualityVersion ||
			report.CleaningVersion != cleaningVersion {
			continue
		}
		if latest == nil || report.Version > latest.Version {
			latest = report
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *AnalysisReportRepository) List(fileID string, qualityVersion int64, cleaningVersion int64, pager *model.Pager) ([]*entity.AnalysisReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reports := make([]*entity.AnalysisReport, 0)
	for _, report := range r.store.analysisReports {
		if report.FileID == fileID &&
			report.QualityVersion == qualityVersion &&
			report.CleaningVersion == cleaningVersion {
			clone := *report
			reports = append(reports, &clone)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Version > reports[j].Version
	})
	return slicePage(reports, pager), nil
}

func (r *AnalysisReportRepository) ListByFile(fileID string, pager *model.Pager) ([]*entity.AnalysisReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reports := make([]*entity.AnalysisReport, 0)
	for i := len(r.store.analysisReports) - 1; i >= 0; i-- {
		report := r.store.analysisReports[i]
		if report.FileID == fileID {
			clone := *report
			reports = append(reports, &clone)
		}
	}
	return slicePage(reports, pager), nil
}
