package file

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/tools"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
)

// Service 文件服务
// 文件的 stage/summary/最新版本指针只在事件订阅者里修改
type Service struct {
	repositoryFactory factory.Factory
	bus               *events.Bus
}

func NewService(repositoryFactory factory.Factory, bus *events.Bus) *Service {
	return &Service{
		repositoryFactory: repositoryFactory,
		bus:               bus,
	}
}

type RegisterRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
}

// Register 登记文件, 同指纹的未删除文件直接复用
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*entity.File, *model.Error) {
	if req == nil || req.Name == "" || req.Path == "" {
		return nil, model.NewError(model.ErrorParams, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	if req.Fingerprint != "" {
		existing, err := fileRepo.GetByFingerprint(req.Fingerprint)
		if err != nil {
			return nil, model.NewError(model.ErrorDB, err)
		}
		if existing != nil {
			log.Infof("file register hit fingerprint, reuse file:%s", existing.ID)
			return existing, nil
		}
	}

	file := &entity.File{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Path:        req.Path,
		Size:        req.Size,
		Fingerprint: req.Fingerprint,
	}
	if err := fileRepo.Create(file); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	s.bus.Emit(events.FileUploaded, &events.Payload{FileID: file.ID, Path: file.Path})

	created, err := fileRepo.Get(file.ID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, fileID string) (*entity.File, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
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
	return file, nil
}

func (s *Service) List(ctx context.Context, pager *model.Pager) ([]*entity.File, *model.Error) {
	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	files, err := fileRepo.List(pager)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return files, nil
}

// SoftDelete 软删文件, 实际落库仍在订阅者里
func (s *Service) SoftDelete(ctx context.Context, fileID string) *model.Error {
	file, modelErr := s.Get(ctx, fileID)
	if modelErr != nil {
		return modelErr
	}
	if file.IsDeleted {
		return nil
	}

	s.bus.Emit(events.FileSoftDeleted, &events.Payload{FileID: fileID})
	return nil
}

// ========== 事件订阅 ==========

// RegisterSubscribers 注册文件聚合的全部事件订阅者
func (s *Service) RegisterSubscribers() {
	s.bus.Subscribe(events.FileUploaded, s.onFileUploaded)
	s.bus.Subscribe(events.FileSoftDeleted, s.onFileSoftDeleted)

	s.bus.Subscribe(events.QualityStarted, s.stageUpdater(constant.FileStageQualityAnalyzing))
	s.bus.Subscribe(events.QualityFailed, s.failureUpdater(constant.FileStageQualityFailed))
	s.bus.Subscribe(events.QualityCompleted, s.onQualityCompleted)

	s.bus.Subscribe(events.CleaningStarted, s.stageUpdater(constant.FileStageCleaningProcessing))
	s.bus.Subscribe(events.CleaningFailed, s.failureUpdater(constant.FileStageCleaningFailed))
	s.bus.Subscribe(events.CleaningCompleted, s.onCleaningCompleted)

	s.bus.Subscribe(events.AnalysisStarted, s.stageUpdater(constant.FileStageAnalysisProcessing))
	s.bus.Subscribe(events.AnalysisFailed, s.failureUpdater(constant.FileStageAnalysisFailed))
	s.bus.Subscribe(events.AnalysisCompleted, s.onAnalysisCompleted)
}

func (s *Service) onFileUploaded(event events.EventName, payload *events.Payload) {
	stage := constant.FileStageUploaded.String()
	s.updateFile(payload.FileID, &model.FileCondition{Stage: &stage})
}

func (s *Service) onFileSoftDeleted(event events.EventName, payload *events.Payload) {
	stage := constant.FileStageDeleted.String()
	deleted := true
	s.updateFile(payload.FileID, &model.FileCondition{Stage: &stage, IsDeleted: &deleted})
}

func (s *Service) stageUpdater(stage constant.FileStage) events.Handler {
	value := stage.String()
	return func(event events.EventName, payload *events.Payload) {
		s.updateFile(payload.FileID, &model.FileCondition{Stage: &value})
	}
}

// failureUpdater 失败事件除了 stage 还落最近一次错误
func (s *Service) failureUpdater(stage constant.FileStage) events.Handler {
	value := stage.String()
	return func(event events.EventName, payload *events.Payload) {
		s.updateFile(payload.FileID, &model.FileCondition{
			Stage:         &value,
			LastErrorJSON: &payload.ErrorJSON,
		})
	}
}

func (s *Service) onQualityCompleted(event events.EventName, payload *events.Payload) {
	stage := constant.FileStageQualityDone.String()
	cleared := ""
	condition := &model.FileCondition{
		Stage:                &stage,
		LatestQualityVersion: &payload.Version,
		LastErrorJSON:        &cleared,
	}
	if payload.SummaryJSON != "" {
		condition.SummaryJSON = &payload.SummaryJSON
	}
	s.updateFile(payload.FileID, condition)
}

func (s *Service) onCleaningCompleted(event events.EventName, payload *events.Payload) {
	stage := constant.FileStageCleaningDone.String()
	cleared := ""
	s.updateFile(payload.FileID, &model.FileCondition{
		Stage:                 &stage,
		LatestCleaningVersion: &payload.Version,
		LastErrorJSON:         &cleared,
	})
}

func (s *Service) onAnalysisCompleted(event events.EventName, payload *events.Payload) {
	stage := constant.FileStageAnalysisDone.String()
	cleared := ""
	s.updateFile(payload.FileID, &model.FileCondition{
		Stage:                 &stage,
		LatestAnalysisVersion: &payload.Version,
		LastErrorJSON:         &cleared,
	})
}

func (s *Service) updateFile(fileID string, condition *model.FileCondition) {
	if fileID == "" {
		return
	}

	session := s.repositoryFactory.NewSession(context.Background())
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		log.Errorf("file subscriber new repo failed, file:%s, err:%v", fileID, err)
		return
	}
	if err := fileRepo.Update(fileID, condition); err != nil {
		log.Errorf("file subscriber update failed, file:%s, err:%v", fileID, err)
	}
}
