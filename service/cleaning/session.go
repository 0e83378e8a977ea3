package cleaning

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/cache"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/compute"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/tools"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/worker"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
)

// Service 清洗服务
// 会话是清洗特有的概念, 修改在会话内积累, 触发时固化到任务上
type Service struct {
	repositoryFactory factory.Factory
	computeClient     compute.Client
	bus               *events.Bus
	pool              *worker.Pool
	resultCache       *cache.Cache
}

func NewService(repositoryFactory factory.Factory, computeClient compute.Client, bus *events.Bus, pool *worker.Pool, resultCache *cache.Cache) *Service {
	return &Service{
		repositoryFactory: repositoryFactory,
		computeClient:     computeClient,
		bus:               bus,
		pool:              pool,
		resultCache:       resultCache,
	}
}

// CreateSession 开启清洗会话
// 同一 (file, qualityVersion) 下旧的活跃会话先被关闭
func (s *Service) CreateSession(ctx context.Context, fileID string, qualityVersion int64) (*entity.CleaningSession, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if qualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	file, err := fileRepo.Get(fileID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if file == nil {
		return nil, model.NewError(model.ErrorFileNotFound, nil)
	}
	if file.IsDeleted {
		return nil, model.NewError(model.ErrorFileDeleted, nil)
	}

	qualityReportRepo, err := s.repositoryFactory.NewQualityReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	qualityReport, err := qualityReportRepo.GetByVersion(fileID, qualityVersion)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if qualityReport == nil {
		return nil, model.NewError(model.ErrorQualityReportNotFound, nil)
	}

	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	if err := sessionRepo.CloseActive(fileID, qualityVersion); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	cleaningSession := &entity.CleaningSession{
		ID:             uuid.NewString(),
		FileID:         fileID,
		QualityVersion: qualityVersion,
		Status:         constant.SessionStatusDraft.String(),
	}
	if err := sessionRepo.Create(cleaningSession); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	created, err := sessionRepo.Get(cleaningSession.ID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return created, nil
}

// GetActiveSession 获取作用域内的活跃会话
func (s *Service) GetActiveSession(ctx context.Context, fileID string, qualityVersion int64) (*entity.CleaningSession, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	active, err := sessionRepo.GetActive(fileID, qualityVersion)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if active == nil {
		return nil, model.NewError(model.ErrorSessionNotFound, nil)
	}
	return active, nil
}

// CloseSession 关闭会话, 任意状态都允许关闭
// 已关闭的会话重复关闭是幂等的; 执行中的任务照常跑完, 只是收尾解锁时落空
func (s *Service) CloseSession(ctx context.Context, sessionID string) *model.Error {
	if sessionID == "" {
		return model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return model.NewError(model.ErrorNewRepo, err)
	}
	cleaningSession, err := sessionRepo.Get(sessionID)
	if err != nil {
		return model.NewError(model.ErrorDB, err)
	}
	if cleaningSession == nil {
		return model.NewError(model.ErrorSessionNotFound, nil)
	}

	if constant.SessionStatus(cleaningSession.Status) == constant.SessionStatusClosed {
		return nil
	}

	if err := sessionRepo.Close(sessionID); err != nil {
		return model.NewError(model.ErrorDB, err)
	}
	return nil
}

// AddModification 在会话内追加一条用户修改
func (s *Service) AddModification(ctx context.Context, sessionID string, kind string, target string, paramsJSON string) (*entity.UserModification, *model.Error) {
	if sessionID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if kind == "" {
		return nil, model.NewError(model.ErrorParams, nil)
	}
	if paramsJSON != "" && !json.Valid([]byte(paramsJSON)) {
		return nil, model.NewError(model.ErrorParams, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	cleaningSession, err := sessionRepo.Get(sessionID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if cleaningSession == nil {
		return nil, model.NewError(model.ErrorSessionNotFound, nil)
	}
	switch constant.SessionStatus(cleaningSession.Status) {
	case constant.SessionStatusClosed:
		return nil, model.NewError(model.ErrorSessionClosed, nil)
	case constant.SessionStatusRunning:
		return nil, model.NewError(model.ErrorSessionBusy, nil)
	}

	modificationRepo, err := s.repositoryFactory.NewUserModificationRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	modification := &entity.UserModification{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       kind,
		Target:     target,
		ParamsJSON: paramsJSON,
	}
	if err := modificationRepo.Create(modification); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	created, err := modificationRepo.ListBySession(sessionID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	for _, m := range created {
		if m.ID == modification.ID {
			return m, nil
		}
	}
	return modification, nil
}

// ListModifications 按创建顺序列出会话内的修改
func (s *Service) ListModifications(ctx context.Context, sessionID string) ([]*entity.UserModification, *model.Error) {
	if sessionID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	cleaningSession, err := sessionRepo.Get(sessionID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if cleaningSession == nil {
		return nil, model.NewError(model.ErrorSessionNotFound, nil)
	}

	modificationRepo, err := s.repositoryFactory.NewUserModificationRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	modifications, err := modificationRepo.ListBySession(sessionID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return modifications, nil
}
