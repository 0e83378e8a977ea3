package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/cache"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/compute"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/tools"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/version"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/worker"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
)

const stageName = "analysis"

const versionAllocateRetries = 3

// Service 分析服务
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

// TriggerRequest 触发分析的入参
// CleaningVersion 为 0 且 InputMode 为 raw 时直接分析原始数据
type TriggerRequest struct {
	FileID          string `json:"file_id"`
	QualityVersion  int64  `json:"quality_version"`
	CleaningVersion int64  `json:"cleaning_version"`
	InputMode       string `json:"input_mode"`
	SelectionJSON   string `json:"selection"`
	ConfigJSON      string `json:"config"`
}

// TaskView 任务状态视图
type TaskView struct {
	TaskID          string           `json:"task_id"`
	FileID          string           `json:"file_id"`
	QualityVersion  int64            `json:"quality_version"`
	CleaningVersion int64            `json:"cleaning_version"`
	InputMode       string           `json:"input_mode"`
	Status          string           `json:"status"`
	Stage           string           `json:"stage"`
	Version         int64            `json:"version,omitempty"`
	Error           *model.ExecError `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
}

// Trigger 触发一次分析
// 数据引用在此刻解析并固化到任务上, 执行阶段不再回查报告
func (s *Service) Trigger(ctx context.Context, req *TriggerRequest) (*entity.AnalysisTask, *model.Error) {
	if req == nil || req.FileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if req.QualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}
	inputMode := constant.InputMode(req.InputMode)
	if req.InputMode == "" {
		inputMode = constant.InputModeCleaned
	}
	if !inputMode.IsValid() {
		return nil, model.NewError(model.ErrorParams, nil)
	}
	if req.SelectionJSON != "" && !json.Valid([]byte(req.SelectionJSON)) {
		return nil, model.NewError(model.ErrorSelectionInvalid, nil)
	}
	if req.ConfigJSON != "" && !json.Valid([]byte(req.ConfigJSON)) {
		return nil, model.NewError(model.ErrorAnalysisConfigInvalid, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	file, err := fileRepo.Get(req.FileID)
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
	qualityReport, err := qualityReportRepo.GetByVersion(req.FileID, req.QualityVersion)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if qualityReport == nil {
		return nil, model.NewError(model.ErrorQualityReportNotFound, nil)
	}

	dataRef := compute.DataRef{
		FileID:         file.ID,
		Path:           file.Path,
		QualityVersion: req.QualityVersion,
	}
	cleaningVersion := req.CleaningVersion

	if inputMode == constant.InputModeRaw {
		// raw 直通, 清洗版本固定为 0
		if cleaningVersion != 0 {
			return nil, model.NewError(model.ErrorParams, nil)
		}
		dataRef.Source = compute.DataSourceRaw
	} else {
		if cleaningVersion <= 0 {
			return nil, model.NewError(model.ErrorCleaningVersionMissing, nil)
		}
		cleaningReportRepo, err := s.repositoryFactory.NewCleaningReportRepository(session)
		if err != nil {
			return nil, model.NewError(model.ErrorNewRepo, err)
		}
		cleaningReport, err := cleaningReportRepo.GetByVersion(req.FileID, req.QualityVersion, cleaningVersion)
		if err != nil {
			return nil, model.NewError(model.ErrorDB, err)
		}
		if cleaningReport == nil {
			return nil, model.NewError(model.ErrorCleaningReportNotFound, nil)
		}
		dataRef.Source = compute.DataSourceCleaned
		dataRef.CleaningVersion = cleaningVersion
	}

	dataRefJSON, err := json.Marshal(dataRef)
	if err != nil {
		return nil, model.NewError(model.ErrorParams, err)
	}

	taskRepo, err := s.repositoryFactory.NewAnalysisTaskRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	task := &entity.AnalysisTask{
		ID:              uuid.NewString(),
		FileID:          file.ID,
		QualityVersion:  req.QualityVersion,
		CleaningVersion: cleaningVersion,
		InputMode:       inputMode.String(),
		Status:          constant.TaskStatusPending.String(),
		Stage:           constant.TaskStageReceived.String(),
		DataRefJSON:     string(dataRefJSON),
		SelectionJSON:   req.SelectionJSON,
		ConfigJSON:      req.ConfigJSON,
	}
	if err := taskRepo.Create(task); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	if err := s.pool.Submit(func(jobCtx context.Context) {
		s.execute(jobCtx, task.ID)
	}); err != nil {
		execError := &model.ExecError{
			Stage: stageName, Code: model.ExecErrorCodeInternal,
			Message: err.Error(), Retryable: true, OccurredAt: time.Now(),
		}
		if _, markErr := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); markErr != nil {
			log.Errorf("mark analysis task failed error, task:%s, err:%v", task.ID, markErr)
		}
		return nil, model.NewError(model.ErrorWorkerBusy, err)
	}

	created, err := taskRepo.Get(task.ID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return created, nil
}

// execute 执行分析任务, 只消费任务上固化的绑定
func (s *Service) execute(ctx context.Context, taskID string) {
	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewAnalysisTaskRepository(session)
	if err != nil {
		log.Errorf("analysis execute new repo failed, task:%s, err:%v", taskID, err)
		return
	}

	ok, err := taskRepo.MarkRunning(taskID)
	if err != nil {
		log.Errorf("analysis mark running failed, task:%s, err:%v", taskID, err)
		return
	}
	if !ok {
		log.Warnf("analysis task not pending, skip execute, task:%s", taskID)
		return
	}

	task, err := taskRepo.Get(taskID)
	if err != nil || task == nil {
		log.Errorf("analysis load task failed, task:%s, err:%v", taskID, err)
		return
	}

	s.bus.Emit(events.AnalysisStarted, &events.Payload{
		FileID: task.FileID, TaskID: task.ID,
		QualityVersion: task.QualityVersion, CleaningVersion: task.CleaningVersion,
	})

	dataRef := compute.DataRef{}
	if err := json.Unmarshal([]byte(task.DataRefJSON), &dataRef); err != nil {
		s.fail(taskRepo, task, &model.ExecError{
			Stage: stageName, Code: model.ExecErrorCodeInternal,
			Message: "corrupt data ref: " + err.Error(), Retryable: false, OccurredAt: time.Now(),
		})
		return
	}

	req := &compute.AnalysisRunRequest{
		TaskID: task.ID,
		Data:   dataRef,
	}
	if task.SelectionJSON != "" {
		req.Selection = json.RawMessage(task.SelectionJSON)
	}
	if task.ConfigJSON != "" {
		req.Config = json.RawMessage(task.ConfigJSON)
	}

	result, runErr := s.computeClient.RunAnalysis(ctx, req)
	if runErr != nil {
		s.fail(taskRepo, task, execErrorFrom(runErr))
		return
	}
	if err := taskRepo.UpdateStage(task.ID, constant.TaskStageExport.String()); err != nil {
		log.Warnf("analysis update stage failed, task:%s, err:%v", task.ID, err)
	}

	reportRepo, err := s.repositoryFactory.NewAnalysisReportRepository(session)
	if err != nil {
		log.Errorf("analysis execute new report repo failed, task:%s, err:%v", taskID, err)
		return
	}

	report, execError := s.persistReport(reportRepo, task, result)
	if execError != nil {
		s.fail(taskRepo, task, execError)
		return
	}

	ok, err = taskRepo.MarkTerminal(task.ID, constant.TaskStatusSuccess.String(), report.Version, "")
	if err != nil {
		log.Errorf("analysis mark success error, task:%s, err:%v", task.ID, err)
		return
	}
	if !ok {
		log.Warnf("analysis task already terminal, keep report version %d, task:%s", report.Version, task.ID)
		return
	}

	s.resultCache.Del(ctx, cache.StatusKey(stageName, task.ID))
	ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheResultTTLSeconds, 0)) * time.Second
	if ttl > 0 {
		s.resultCache.Set(ctx, cache.ReportKey(stageName, task.FileID, task.QualityVersion, task.CleaningVersion, report.Version), report, ttl)
	}

	s.bus.Emit(events.AnalysisCompleted, &events.Payload{
		FileID:          task.FileID,
		TaskID:          task.ID,
		QualityVersion:  task.QualityVersion,
		CleaningVersion: task.CleaningVersion,
		Version:         report.Version,
	})
}

func (s *Service) persistReport(reportRepo repository.AnalysisReportRepository, task *entity.AnalysisTask, result *compute.RunResult) (*entity.AnalysisReport, *model.ExecError) {
	ledger := version.NewLedger(func(scope version.Scope) (int64, error) {
		return reportRepo.MaxVersion(scope.FileID, scope.QualityVersion, scope.CleaningVersion)
	})
	scope := version.Scope{
		FileID:          task.FileID,
		QualityVersion:  task.QualityVersion,
		CleaningVersion: task.CleaningVersion,
	}

	for attempt := 0; attempt < versionAllocateRetries; attempt++ {
		next, err := ledger.Next(scope)
		if err != nil {
			return nil, &model.ExecError{
				Stage: stageName, Code: model.ExecErrorCodeInternal,
				Message: err.Error(), Retryable: true, OccurredAt: time.Now(),
			}
		}

		report := &entity.AnalysisReport{
			ID:              uuid.NewString(),
			FileID:          task.FileID,
			QualityVersion:  task.QualityVersion,
			CleaningVersion: task.CleaningVersion,
			Version:         next,
			TaskID:          task.ID,
			PayloadJSON:     string(result.Payload),
		}
		err = reportRepo.Create(report)
		if err == nil {
			return report, nil
		}
		if !repository.IsDuplicate(err) {
			return nil, &model.ExecError{
				Stage: stageName, Code: model.ExecErrorCodeInternal,
				Message: err.Error(), Retryable: true, OccurredAt: time.Now(),
			}
		}
		log.Warnf("analysis version %d conflict, task:%s, retry", next, task.ID)
	}
	return nil, &model.ExecError{
		Stage: stageName, Code: model.ExecErrorCodeVersionConflict,
		Message: "version allocation conflict", Retryable: true, OccurredAt: time.Now(),
	}
}

func (s *Service) fail(taskRepo repository.AnalysisTaskRepository, task *entity.AnalysisTask, execError *model.ExecError) {
	if ok, err := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); err != nil || !ok {
		log.Errorf("analysis mark failed error, task:%s, marked:%v, err:%v", task.ID, ok, err)
		return
	}
	s.bus.Emit(events.AnalysisFailed, &events.Payload{
		FileID: task.FileID, TaskID: task.ID,
		QualityVersion: task.QualityVersion, CleaningVersion: task.CleaningVersion,
		ErrorJSON: execError.JSON(),
	})
}

func execErrorFrom(err error) *model.ExecError {
	if computeErr, ok := compute.AsError(err); ok {
		return &model.ExecError{
			Stage:      stageName,
			Code:       computeErr.Code,
			Message:    computeErr.Message,
			Detail:     computeErr.Detail,
			Retryable:  computeErr.Retryable,
			OccurredAt: time.Now(),
		}
	}
	return &model.ExecError{
		Stage:      stageName,
		Code:       model.ExecErrorCodeInternal,
		Message:    err.Error(),
		Retryable:  false,
		OccurredAt: time.Now(),
	}
}

// Status 查询任务状态
func (s *Service) Status(ctx context.Context, taskID string) (*TaskView, *model.Error) {
	if taskID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	cached := &TaskView{}
	if s.resultCache.Get(ctx, cache.StatusKey(stageName, taskID), cached) {
		return cached, nil
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewAnalysisTaskRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	task, err := taskRepo.Get(taskID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if task == nil {
		return nil, model.NewError(model.ErrorTaskNotFound, nil)
	}

	view := &TaskView{
		TaskID:          task.ID,
		FileID:          task.FileID,
		QualityVersion:  task.QualityVersion,
		CleaningVersion: task.CleaningVersion,
		InputMode:       task.InputMode,
		Status:          task.Status,
		Stage:           task.Stage,
		Version:         task.Version,
		Error:           model.ExecErrorFromJSON(task.ErrorJSON),
		CreatedAt:       task.CreatedAt,
		StartedAt:       task.StartedAt,
		FinishedAt:      task.FinishedAt,
	}
	// 终态不再变化, 可以缓存
	if constant.TaskStatus(task.Status).IsTerminal() {
		ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheStatusTTLSeconds, 0)) * time.Second
		s.resultCache.Set(ctx, cache.StatusKey(stageName, task.ID), view, ttl)
	}
	return view, nil
}

// StatusLatest 查询文件最近一次分析任务的状态
func (s *Service) StatusLatest(ctx context.Context, fileID string) (*TaskView, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewAnalysisTaskRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	task, err := taskRepo.Latest(fileID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if task == nil {
		return nil, model.NewError(model.ErrorTaskNotFound, nil)
	}
	return s.Status(ctx, task.ID)
}

// GetReport 获取指定版本的分析报告, version 为 0 时取最新
func (s *Service) GetReport(ctx context.Context, fileID string, qualityVersion int64, cleaningVersion int64, reportVersion int64) (*entity.AnalysisReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if qualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}

	if reportVersion > 0 {
		cached := &entity.AnalysisReport{}
		if s.resultCache.Get(ctx, cache.ReportKey(stageName, fileID, qualityVersion, cleaningVersion, reportVersion), cached) {
			return cached, nil
		}
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewAnalysisReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	var report *entity.AnalysisReport
	if reportVersion > 0 {
		report, err = reportRepo.GetByVersion(fileID, qualityVersion, cleaningVersion, reportVersion)
	} else {
		report, err = reportRepo.Latest(fileID, qualityVersion, cleaningVersion)
	}
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if report == nil {
		return nil, model.NewError(model.ErrorAnalysisReportNotFound, nil)
	}
	return report, nil
}

// ListReports 列出作用域内的分析报告
func (s *Service) ListReports(ctx context.Context, fileID string, qualityVersion int64, cleaningVersion int64, pager *model.Pager) ([]*entity.AnalysisReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if qualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewAnalysisReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	reports, err := reportRepo.List(fileID, qualityVersion, cleaningVersion, pager)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return reports, nil
}

// ListReportsByFile 列出文件下全部作用域的分析报告
func (s *Service) ListReportsByFile(ctx context.Context, fileID string, pager *model.Pager) ([]*entity.AnalysisReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewAnalysisReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	reports, err := reportRepo.ListByFile(fileID, pager)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return reports, nil
}
