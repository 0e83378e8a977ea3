package reconcile

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/tools"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
)

// Sweeper 启动对账, 清理上一个进程遗留的 running 任务
type Sweeper struct {
	repositoryFactory factory.Factory
	bus               *events.Bus
}

func NewSweeper(repositoryFactory factory.Factory, bus *events.Bus) *Sweeper {
	return &Sweeper{
		repositoryFactory: repositoryFactory,
		bus:               bus,
	}
}

// Sweep 把超过执行时限仍是 running 的任务置为 failed
// 进程重启后 worker 队列已丢失, 这些任务不可能再收到结果
func (s *Sweeper) Sweep(ctx context.Context) error {
	timeoutMinutes := config.GetInstance().GetIntOrDefault(config.PipelineRunningTimeoutMinutes, constant.DefaultRunningTimeoutMinutes)
	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute)

	session := s.repositoryFactory.NewSession(ctx)
	defer tools.ErrorWithPrintContext(session.Close, "close session")

	total := 0

	qualityTaskRepo, err := s.repositoryFactory.NewQualityTaskRepository(session)
	if err != nil {
		return err
	}
	qualityTasks, err := qualityTaskRepo.FindStaleRunning(cutoff)
	if err != nil {
		return err
	}
	for _, task := range qualityTasks {
		execError := timeoutError("quality")
		ok, err := qualityTaskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON())
		if err != nil {
			log.Errorf("reconcile quality task failed, task:%s, err:%v", task.ID, err)
			continue
		}
		if !ok {
			continue
		}
		total++
		s.bus.Emit(events.QualityFailed, &events.Payload{
			FileID: task.FileID, TaskID: task.ID, ErrorJSON: execError.JSON(),
		})
	}

	cleaningTaskRepo, err := s.repositoryFactory.NewCleaningTaskRepository(session)
	if err != nil {
		return err
	}
	sessionRepo, err := s.repositoryFactory.NewCleaningSessionRepository(session)
	if err != nil {
		return err
	}
	cleaningTasks, err := cleaningTaskRepo.FindStaleRunning(cutoff)
	if err != nil {
		return err
	}
	for _, task := range cleaningTasks {
		execError := timeoutError("cleaning")
		ok, err := cleaningTaskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON())
		if err != nil {
			log.Errorf("reconcile cleaning task failed, task:%s, err:%v", task.ID, err)
			continue
		}
		if !ok {
			continue
		}
		total++
		// 会话锁一并释放, 否则后续触发永远 busy
		if _, err := sessionRepo.TransitionStatus(task.SessionID, constant.SessionStatusRunning.String(), constant.SessionStatusDraft.String()); err != nil {
			log.Errorf("reconcile unlock session failed, session:%s, err:%v", task.SessionID, err)
		}
		s.bus.Emit(events.CleaningFailed, &events.Payload{
			FileID: task.FileID, TaskID: task.ID,
			QualityVersion: task.QualityVersion, ErrorJSON: execError.JSON(),
		})
	}

	analysisTaskRepo, err := s.repositoryFactory.NewAnalysisTaskRepository(session)
	if err != nil {
		return err
	}
	analysisTasks, err := analysisTaskRepo.FindStaleRunning(cutoff)
	if err != nil {
		return err
	}
	for _, task := range analysisTasks {
		execError := timeoutError("analysis")
		ok, err := analysisTaskRepo.MarkTerminal(task.ID, constant.TaskStatusFailed.String(), 0, execError.JSON())
		if err != nil {
			log.Errorf("reconcile analysis task failed, task:%s, err:%v", task.ID, err)
			continue
		}
		if !ok {
			continue
		}
		total++
		s.bus.Emit(events.AnalysisFailed, &events.Payload{
			FileID: task.FileID, TaskID: task.ID,
			QualityVersion: task.QualityVersion, CleaningVersion: task.CleaningVersion,
			ErrorJSON: execError.JSON(),
		})
	}

	if total > 0 {
		log.Warnf("reconcile swept %d stale running tasks, cutoff:%s", total, cutoff.Format(time.RFC3339))
	} else {
		log.Infof("reconcile found no stale running tasks")
	}
	return nil
}

func timeoutError(stage string) *model.ExecError {
	return &model.ExecError{
		Stage:      stage,
		Code:       model.ExecErrorCodeReconcileTimeout,
		Message:    "task exceeded running timeout, swept at startup",
		Retryable:  true,
		OccurredAt: time.Now(),
	}
}
