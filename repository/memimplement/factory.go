package memimplement

import (
	"context"
	"sync"

	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/interfaces"
)

var once sync.Once
var instance *Factory

// store 进程内存储, 所有仓库共享一把锁
type store struct {
	mu sync.Mutex

	files           []*entity.File
	qualityTasks    []*entity.QualityTask
	cleaningTasks   []*entity.CleaningTask
	analysisTasks   []*entity.AnalysisTask
	qualityReports  []*entity.QualityReport
	cleaningReports []*entity.CleaningReport
	analysisReports []*entity.AnalysisReport
	sessions        []*entity.CleaningSession
	modifications   []*entity.UserModification
}

type Factory struct {
	store *store
}

// NewFactory 创建一个独立的内存工厂, 测试用
func NewFactory() *Factory {
	return &Factory{store: &store{}}
}

// 获取一个factory实例
func GetRepositoryFactoryInstance() factory.Factory {
	once.Do(func() {
		instance = NewFactory()
	})
	return instance
}

// memSession 内存实现没有事务, 全部为空操作
type memSession struct{}

func (s *memSession) Begin() error    { return nil }
func (s *memSession) Close() error    { return nil }
func (s *memSession) Commit() error   { return nil }
func (s *memSession) Rollback() error { return nil }

// 创建一个会话
func (f *Factory) NewSession(ctx context.Context) interfaces.Session {
	return &memSession{}
}

func (f *Factory) NewFileRepository(session interfaces.Session) (repository.FileRepository, error) {
	return &FileRepository{store: f.store}, nil
}

func (f *Factory) NewQualityTaskRepository(session interfaces.Session) (repository.QualityTaskRepository, error) {
	return &QualityTaskRepository{store: f.store}, nil
}

func (f *Factory) NewCleaningTaskRepository(session interfaces.Session) (repository.CleaningTaskRepository, error) {
	return &CleaningTaskRepository{store: f.store}, nil
}

func (f *Factory) NewAnalysisTaskRepository(session interfaces.Session) (repository.AnalysisTaskRepository, error) {
	return &AnalysisTaskRepository{store: f.store}, nil
}

func (f *Factory) NewQualityReportRepository(session interfaces.Session) (repository.QualityReportRepository, error) {
	return &QualityReportRepository{store: f.store}, nil
}

func (f *Factory) NewCleaningReportRepository(session interfaces.Session) (repository.CleaningReportRepository, error) {
	return &CleaningReportRepository{store: f.store}, nil
}

func (f *Factory) NewAnalysisReportRepository(session interfaces.Session) (repository.AnalysisReportRepository, error) {
	return &AnalysisReportRepository{store: f.store}, nil
}

func (f *Factory) NewCleaningSessionRepository(session interfaces.Session) (repository.CleaningSessionRepository, error) {
	return &CleaningSessionRepository{store: f.store}, nil
}

func (f *Factory) NewUserModificationRepository(session interfaces.Session) (repository.UserModificationRepository, error) {
	return &UserModificationRepository{store: f.store}, nil
}
