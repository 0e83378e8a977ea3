package cleaning

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
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

const stageName = "cleaning"

const versionAllocateRetries = 3

// TaskView 任务状态视图
type TaskView struct {
	TaskID         string           `json:"task_id"`
	FileID         string           `json:"file_id"`
	SessionID      string           `json:"session_id"`
	QualityVersion int64            `json:"quality_version"`
	Status         string           `json:"status"`
	Stage          string           `json:"stage"`
	Version        int64            `json:"version,omitempty"`
	Error          *model.ExecError `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
}

// action 发往计算服务的一条清洗动作, 由用户修改固化而来
type action struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Target string          `json:"target,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Trigger 在会话内触发一次清洗
// 修改清单在此刻固化到任务上, 之后的修改不影响本次执行
func (s *Service) Trigger(ctx context.Context, sessionID string, rulesJSON string) (*entity.CleaningTask, *model.Error) {
	if sessionID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if rulesJSON != "" && !json.Valid([]byte(rulesJSON)) {
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
	if cleaningSession.Status == constant.SessionStatusClosed.String() {
		return nil, model.NewError(model.ErrorSessionClosed, nil)
	}

	fileRepo, err := s.repositoryFactory.NewFileRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	file, err := fileRepo.Get(cleaningSession.FileID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if file == nil {
		return nil, model.NewError(model.ErrorFileNotFound, nil)
	}
	if file.IsDeleted {
		return nil, model.NewError(model.ErrorFileDeleted, nil)
	}

	// 会话内同一时刻只允许一个任务在执行
	locked, err := sessionRepo.TransitionStatus(sessionID,
		constant.SessionStatusDraft.String(), constant.SessionStatusRunning.String())
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if !locked {
		return nil, model.NewError(model.ErrorSessionBusy, nil)
	}

	modificationRepo, err := s.repositoryFactory.NewUserModificationRepository(session)
	if err != nil {
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	modifications, err := modificationRepo.ListUnconsumed(sessionID)
	if err != nil {
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorDB, err)
	}

	actions := make([]action, 0, len(modifications))
	modIDs := make([]string, 0, len(modifications))
	for _, m := range modifications {
		a := action{ID: m.ID, Kind: m.Kind, Target: m.Target}
		if m.ParamsJSON != "" {
			a.Params = json.RawMessage(m.ParamsJSON)
		}
		actions = append(actions, a)
		modIDs = append(modIDs, m.ID)
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorParams, err)
	}
	modIDsJSON, err := json.Marshal(modIDs)
	if err != nil {
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorParams, err)
	}

	taskRepo, err := s.repositoryFactory.NewCleaningTaskRepository(session)
	if err != nil {
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	task := &entity.CleaningTask{
		ID:             uuid.NewString(),
		FileID:         file.ID,
		SessionID:      sessionID,
		QualityVersion: cleaningSession.QualityVersion,
		Path:           file.Path,
		Status:         constant.TaskStatusPending.String(),
		Stage:          constant.TaskStageReceived.String(),
		RulesJSON:      rulesJSON,
		ActionsJSON:    string(actionsJSON),
		ModIDsJSON:     string(modIDsJSON),
	}
	if err := taskRepo.Create(task); err != nil {
		s.unlock(sessionRepo, sessionID)
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
			log.Errorf("mark cleaning task failed error, task:%s, err:%v", task.ID, markErr)
		}
		s.unlock(sessionRepo, sessionID)
		return nil, model.NewError(model.ErrorWorkerBusy, err)
	}

	created, err := taskRepo.Get(task.ID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return created, nil
}

func (s *Service) unlock(sessionRepo repository.CleaningSessionRepository, sessionID string) {
	if _, err := sessionRepo.TransitionStatus(sessionID,
		constant.SessionStatusRunning.String(), constant.SessionStatusDraft.String()); err != nil {
		log.Errorf("cleaning session unlock failed, session:%s, err:%v", sessionID, err)
	}
}

// execute 执行清洗任务, 只会被工作池调用
func (s *Service) execute(ctx context.Context, taskID string) {
	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewCleaningTaskRepository(session)
	if err != nil {
		log.Errorf("cleaning execute new repo failed, task:%s, err:%v", taskID, err)
		return
	}
	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		log.Errorf("cleaning execute new session repo failed, task:%s, err:%v", taskID, err)
		return
	}

	task, err := taskRepo.Get(taskID)
	if err != nil || task == nil {
		log.Errorf("cleaning load task failed, task:%s, err:%v", taskID, err)
		return
	}

	ok, err := taskRepo.MarkRunning(taskID)
	if err != nil {
		log.Errorf("cleaning mark running failed, task:%s, err:%v", taskID, err)
		return
	}
	if !ok {
		log.Warnf("cleaning task not pending, skip execute, task:%s", taskID)
		s.unlock(sessionRepo, task.SessionID)
		return
	}

	s.bus.Emit(events.CleaningStarted, &events.Payload{
		FileID: task.FileID, TaskID: task.ID, QualityVersion: task.QualityVersion,
	})

	req := &compute.CleaningRunRequest{
		TaskID: task.ID,
		File: compute.DataRef{
			FileID:         task.FileID,
			Path:           task.Path,
			Source:         compute.DataSourceRaw,
			QualityVersion: task.QualityVersion,
		},
	}
	if task.RulesJSON != "" {
		req.Rules = json.RawMessage(task.RulesJSON)
	}
	if task.ActionsJSON != "" {
		req.Actions = json.RawMessage(task.ActionsJSON)
	}

	result, runErr := s.computeClient.RunCleaning(ctx, req)
	if runErr != nil {
		s.fail(taskRepo, sessionRepo, task, execErrorFrom(runErr))
		return
	}
	if err := taskRepo.UpdateStage(task.ID, constant.TaskStageExport.String()); err != nil {
		log.Warnf("cleaning update stage failed, task:%s, err:%v", task.ID, err)
	}

	reportRepo, err := s.repositoryFactory.NewCleaningReportRepository(session)
	if err != nil {
		log.Errorf("cleaning execute new report repo failed, task:%s, err:%v", taskID, err)
		return
	}

	report, execError := s.persistReport(reportRepo, task, result)
	if execError != nil {
		s.fail(taskRepo, sessionRepo, task, execError)
		return
	}

	ok, err = taskRepo.MarkTerminal(task.ID, constant.TaskStatusSuccess.String(), report.Version, "")
	if err != nil {
		log.Errorf("cleaning mark success error, task:%s, err:%v", task.ID, err)
		return
	}
	if !ok {
		log.Warnf("cleaning task already terminal, keep report version %d, task:%s", report.Version, task.ID)
		s.unlock(sessionRepo, task.SessionID)
		return
	}

	// 只有成功执行才消费修改清单
	modIDs := make([]string, 0)
	if task.ModIDsJSON != "" {
		if err := json.Unmarshal([]byte(task.ModIDsJSON), &modIDs); err != nil {
			log.Warnf("cleaning decode mod ids failed, task:%s, err:%v", task.ID, err)
		}
	}
	if len(modIDs) > 0 {
		modificationRepo, err := s.repositoryFactory.NewUserModificationRepository(session)
		if err != nil {
			log.Errorf("cleaning new modification repo failed, task:%s, err:%v", task.ID, err)
		} else if err := modificationRepo.MarkConsumed(modIDs); err != nil {
			log.Errorf("cleaning mark consumed failed, task:%s, err:%v", task.ID, err)
		}
	}

	s.unlock(sessionRepo, task.SessionID)

	s.resultCache.Del(ctx, cache.StatusKey(stageName, task.ID))
	ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheResultTTLSeconds, 0)) * time.Second
	if ttl > 0 {
		s.resultCache.Set(ctx, cache.ReportKey(stageName, task.FileID, task.QualityVersion, report.Version), report, ttl)
	}

	s.bus.Emit(events.CleaningCompleted, &events.Payload{
		FileID:         task.FileID,
		TaskID:         task.ID,
		QualityVersion: task.QualityVersion,
		Version:        report.Version,
	})
}

func (s *Service) persistReport(reportRepo repository.CleaningReportRepository, task *entity.CleaningTask, result *compute.RunResult) (*entity.CleaningReport, *model.ExecError) {
	ledger := version.NewLedger(func(scope version.Scope) (int64, error) {
		return reportRepo.MaxVersion(scope.FileID, scope.QualityVersion)
	})

	for attempt := 0; attempt < versionAllocateRetries; attempt++ {
		next, err := ledger.Next(version.Scope{FileID: task.FileID, QualityVersion: task.QualityVersion})
		if err != nil {
			return nil, &model.ExecError{
				Stage: stageName, Code: model.ExecErrorCodeInternal,
				Message: err.Error(), Retryable: true, OccurredAt: time.Now(),
			}
		}

		report := &entity.CleaningReport{
			ID:             uuid.NewString(),
			FileID:         task.FileID,
			QualityVersion: task.QualityVersion,
			Version:        next,
			SessionID:      task.SessionID,
			TaskID:         task.ID,
			PayloadJSON:    string(result.Payload),
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
		log.Warnf("cleaning version %d conflict, task:%s, retry", next, task.ID)
	}
	return nil, &model.ExecError{
		Stage: stageName, Code: model.ExecErrorCodeVersionConflict,
		Message: "version allocation conflict", Retryable: true, OccurredAt: time.Now(),
	}
}

func (s *Service) fail(taskRepo repository.CleaningTaskRepository, sessionRepo repository.CleaningSessionRepository, task *entity.CleaningTask, execError *model.ExecError) {
	if ok, err := taskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON()); err != nil || !ok {
		log.Errorf("cleaning mark failed error, task:%s, marked:%v, err:%v", task.ID, ok, err)
	}
	s.unlock(sessionRepo, task.SessionID)
	s.bus.Emit(events.CleaningFailed, &events.Payload{
		FileID: task.FileID, TaskID: task.ID,
		QualityVersion: task.QualityVersion, ErrorJSON: execError.JSON(),
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

	taskRepo, err := s.repositoryFactory.NewCleaningTaskRepository(session)
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
		TaskID:         task.ID,
		FileID:         task.FileID,
		SessionID:      task.SessionID,
		QualityVersion: task.QualityVersion,
		Status:         task.Status,
		Stage:          task.Stage,
		Version:        task.Version,
		Error:          model.ExecErrorFromJSON(task.ErrorJSON),
		CreatedAt:      task.CreatedAt,
		StartedAt:      task.StartedAt,
		FinishedAt:     task.FinishedAt,
	}
	// 终态不再变化, 可以缓存
	if constant.TaskStatus(task.Status).IsTerminal() {
		ttl := time.Duration(config.GetInstance().GetIntOrDefault(config.PipelineCacheStatusTTLSeconds, 0)) * time.Second
		s.resultCache.Set(ctx, cache.StatusKey(stageName, task.ID), view, ttl)
	}
	return view, nil
}

// StatusLatest 查询会话内最近一次清洗任务的状态
func (s *Service) StatusLatest(ctx context.Context, sessionID string) (*TaskView, *model.Error) {
	if sessionID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	taskRepo, err := s.repositoryFactory.NewCleaningTaskRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	task, err := taskRepo.Latest(sessionID)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if task == nil {
		return nil, model.NewError(model.ErrorTaskNotFound, nil)
	}
	return s.Status(ctx, task.ID)
}

// GetReport 获取指定版本的清洗报告, version 为 0 时取最新
func (s *Service) GetReport(ctx context.Context, fileID string, qualityVersion int64, reportVersion int64) (*entity.CleaningReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if qualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}

	if reportVersion > 0 {
		cached := &entity.CleaningReport{}
		if s.resultCache.Get(ctx, cache.ReportKey(stageName, fileID, qualityVersion, reportVersion), cached) {
			return cached, nil
		}
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewCleaningReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}

	var report *entity.CleaningReport
	if reportVersion > 0 {
		report, err = reportRepo.GetByVersion(fileID, qualityVersion, reportVersion)
	} else {
		report, err = reportRepo.Latest(fileID, qualityVersion)
	}
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	if report == nil {
		return nil, model.NewError(model.ErrorCleaningReportNotFound, nil)
	}
	return report, nil
}

// ListReports 按版本倒序列出清洗报告
func (s *Service) ListReports(ctx context.Context, fileID string, qualityVersion int64, pager *model.Pager) ([]*entity.CleaningReport, *model.Error) {
	if fileID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}
	if qualityVersion <= 0 {
		return nil, model.NewError(model.ErrorQualityVersionMissing, nil)
	}

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	reportRepo, err := s.repositoryFactory.NewCleaningReportRepository(session)
	if err != nil {
		return nil, model.NewError(model.ErrorNewRepo, err)
	}
	reports, err := reportRepo.List(fileID, qualityVersion, pager)
	if err != nil {
		return nil, model.NewError(model.ErrorDB, err)
	}
	return reports, nil
}
