package quality

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

const stageName = "quality"

// 版本冲突重试次数, 并发触发时靠报告表唯一索引裁决
const versionAllocateRetries = 3

// Service 质量分析服务
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

// TaskView 任务状态视图
type TaskView struct {
	TaskID     string           `json:"task_id"`
	FileID     string           `json:"file_id"`
	Status     string           `json:"status"`
	Stage      string           `json:"stage"`
	Version    int64            `json:"version,omitempty"`
	Error      *model.ExecError `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// RegisterSubscribers 文件登记完成后自动触发首次质量分析
func (s *Service) RegisterSubscribers() {
	s.bus.Subscribe(events.FileUploaded, func(event events.EventName, payload *events.Payload) {
		if _, serviceErr := s.Trigger(context.Background(), payload.FileID); serviceErr != nil {
			log.Errorf("auto quality trigger failed, file:%s, code:%d", payload.FileID, serviceErr.Code)
		}
	})
}

// Trigger 触发一次质量分析, 任务异步执行
func (s *Service) Trigger(ctx context.Context, fileID string) (*entity.QualityTask, *model.Error) {
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
	if file.IsDeleted {
		return nil, model.NewError(model.ErrorFileDeleted, nil)
	}

	taskRepo, err := s.repositoryFactory.NewQualityTaskRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	task := &entity.QualityTask{
		ID:     uuid.NewString(),
		FileID: file.ID,
		Path:   file.Path,
		Status: constant.TaskStatusPending.String(),
		Stage:  constant.TaskStageReceived.String(),
	}
	if err := taskRepo.Create(task); err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}

	if err := s.pool.Submit(func(jobCtx context.Context) {
		s.execute(jobCtx, task.ID)
	}); err != nil {
		execError := &model.ExecError{
			Stage:      stageName,
			Code:       model.ExecErrorCodeInternal,
			Message:    err.Error(),
			Retryable:  true,
			OccurredAt: time.Now(),
		}
		if _, markErr := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); markErr != nil {
			log.Errorf("mark quality task failed error, task:%s, err:%v", task.ID, markErr)
		}
		return nil, model.NewError(model.ErrorWorkerBusy, err)
	}

	created, err := taskRepo.Get(task.ID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return created, nil
}

// execute 执行质量分析任务, 只会被工作池调用
func (s *Service) execute(ctx context.Context, taskID string) {
	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewQualityTaskRepository(session)
	if err != nil {
		log.Errorf("quality execute new repo failed, task:%s, err:%v", taskID, err)
		return
	}

	ok, err := taskRepo.MarkRunning(taskID)
	if err != nil {
		log.Errorf("quality mark running failed, task:%s, err:%v", taskID, err)
		return
	}
	if !ok {
		log.Warnf("quality task not pending, skip execute, task:%s", taskID)
		return
	}

	task, err := taskRepo.Get(taskID)
	if err != nil || task == nil {
		log.Errorf("quality load task failed, task:%s, err:%v", taskID, err)
		return
	}

	s.bus.Emit(events.QualityStarted, &events.Payload{FileID: task.FileID, TaskID: task.ID})

	result, runErr := s.computeClient.RunQuality(ctx, &compute.QualityRunRequest{
		TaskID: task.ID,
		File: compute.DataRef{
			FileID: task.FileID,
			Path:   task.Path,
			Source: compute.DataSourceRaw,
		},
	})
	if runErr != nil {
		s.fail(taskRepo, task, runErr)
		return
	}
	if err := taskRepo.UpdateStage(task.ID, constant.TaskStageExport.String()); err != nil {
		log.Warnf("quality update stage failed, task:%s, err:%v", task.ID, err)
	}

	reportRepo, err := s.repositoryFactory.NewQualityReportRepository(session)
	if err != nil {
		log.Errorf("quality execute new report repo failed, task:%s, err:%v", taskID, err)
		return
	}

	report, execError := s.persistReport(reportRepo, task, result)
	if execError != nil {
		if ok, err := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); err != nil || !ok {
			log.Errorf("quality mark failed error, task:%s, marked:%v, err:%v", task.ID, ok, err)
		}
		s.bus.Emit(events.QualityFailed, &events.Payload{FileID: task.FileID, TaskID: task.ID, ErrorJSON: execError.JSON()})
		return
	}

	ok, err = taskRepo.MarkTerminal(task.ID, constant.TaskStatusSuccess.String(), report.Version, "")
	if err != nil {
		log.Errorf("quality mark success error, task:%s, err:%v", task.ID, err)
		return
	}
	if !ok {
		log.Warnf("quality task already terminal, keep report version %d, task:%s", report.Version, task.ID)
		return
	}

	s.resultCache.Del(ctx, cache.StatusKey(stageName, task.ID))
	ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheResultTTLSeconds, 0)) * time.Second
	if ttl > 0 {
		s.resultCache.Set(ctx, cache.ReportKey(stageName, task.FileID, report.Version), report, ttl)
	}

	s.bus.Emit(events.QualityCompleted, &events.Payload{
		FileID:      task.FileID,
		TaskID:      task.ID,
		Version:     report.Version,
		SummaryJSON: summaryOf(result),
	})
}

// persistReport 分配版本号并落库, 唯一索引冲突时重读重试
func (s *Service) persistReport(reportRepo repository.QualityReportRepository, task *entity.QualityTask, result *compute.RunResult) (*entity.QualityReport, *model.ExecError) {
	ledger := version.NewLedger(func(scope version.Scope) (int64, error) {
		return reportRepo.MaxVersion(scope.FileID)
	})

	for attempt := 0; attempt < versionAllocateRetries; attempt++ {
		next, err := ledger.Next(version.Scope{FileID: task.FileID})
		if err != nil {
			return nil, &model.ExecError{
				Stage: stageName, Code: model.ExecErrorCodeInternal,
				Message: err.Error(), Retryable: true, OccurredAt: time.Now(),
			}
		}

		report := &entity.QualityReport{
			ID:          uuid.NewString(),
			FileID:      task.FileID,
			Version:     next,
			TaskID:      task.ID,
			PayloadJSON: string(result.Payload),
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
		log.Warnf("quality version %d conflict, task:%s, retry", next, task.ID)
	}
	return nil, &model.ExecError{
		Stage: stageName, Code: model.ExecErrorCodeVersionConflict,
		Message: "version allocation conflict", Retryable: true, OccurredAt: time.Now(),
	}
}

func (s *Service) fail(taskRepo repository.QualityTaskRepository, task *entity.QualityTask, runErr error) {
	execError := execErrorFrom(runErr)
	if ok, err := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); err != nil || !ok {
		log.Errorf("quality mark failed error, task:%s, marked:%v, err:%v", task.ID, ok, err)
		return
	}
	s.bus.Emit(events.QualityFailed, &events.Payload{FileID: task.FileID, TaskID: task.ID, ErrorJSON: execError.JSON()})
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

func summaryOf(result *compute.RunResult) string {
	if result == nil || len(result.Payload) == 0 {
		return ""
	}
	summary := struct {
		Summary json.RawMessage `json:"summary"`
	}{}
	if err := json.Unmarshal(result.Payload, &summary); err != nil || len(summary.Summary) == 0 {
		return ""
	}
	return string(summary.Summary)
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

	taskRepo, err := s.repositoryFactory.NewQualityTaskRepository(session)
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
		TaskID:     task.ID,
		FileID:     task.FileID,
		Status:     task.Status,
		Stage:      task.Stage,
		Version:    task.Version,
		Error:      model.ExecErrorFromJSON(task.ErrorJSON),
		CreatedAt:  task.CreatedAt,
		StartedAt:  task.StartedAt,
		FinishedAt: task.FinishedAt,
	}
	// 终态不再变化, 可以缓存
	if constant.TaskStatus(task.Status).IsTerminal() {
		ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheStatusTTLSeconds, 0)) * time.Second
		s.resultCache.Set(ctx, cache.StatusKey(stageName, taskID), view, ttl)
	}
	return view, nil
}

// StatusLatest 查询文件最近一次质量分析任务的状态
func (s *Service) StatusLatest(ctx context.Context, fileID string) (*TaskView, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewQualityTaskRepository(session)
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

// Result 获取指定版本的质量报告, version 为 0 时取最新
func (s *Service) Result(ctx context.Context, fileID string, reportVersion int64) (*entity.QualityReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	if reportVersion > 0 {
		cached := &entity.QualityReport{}
		if s.resultCache.Get(ctx, cache.ReportKey(stageName, fileID, reportVersion), cached) {
			return cached, nil
		}
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewQualityReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	var report *entity.QualityReport
	if reportVersion > 0 {
		report, err = reportRepo.GetByVersion(fileID, reportVersion)
	} else {
		report, err = reportRepo.Latest(fileID)
	}
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if report == nil {
		return nil, model.NewError(model.ErrorQualityReportNotFound, nil)
	}
	return report, nil
}

// ListReports 按版本倒序列出质量报告
func (s *Service) ListReports(ctx context.Context, fileID string, pager *model.Pager) ([]*entity.QualityReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewQualityReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	reports, err := reportRepo.List(fileID, pager)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return reports, nil
}
