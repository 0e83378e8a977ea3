package factory

import (
	"context"

	"github.com/game-diot/Data-visualization-applications-sub000/repository"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/interfaces"
)

type Factory interface {
	NewSession(ctx context.Context) interfaces.Session
	NewFileRepository(session interfaces.Session) (repository.FileRepository, error)
	NewQualityTaskRepository(session interfaces.Session) (repository.QualityTaskRepository, error)
	NewCleaningTaskRepository(session interfaces.Session) (repository.CleaningTaskRepository, error)
	NewAnalysisTaskRepository(session interfaces.Session) (repository.AnalysisTaskRepository, error)
	NewQualityReportRepository(session interfaces.Session) (repository.QualityReportRepository, error)
	NewCleaningReportRepository(session interfaces.Session) (repository.CleaningReportRepository, error)
	NewAnalysisReportRepository(session interfaces.Session) (repository.AnalysisReportRepository, error)
	NewCleaningSessionRepository(session interfaces.Session) (repository.CleaningSessionRepository, error)
	NewUserModificationRepository(session interfaces.Session) (repository.UserModificationRepository, error)
}
