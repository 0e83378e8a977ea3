package cleaning

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/cache"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/compute"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/worker"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/memimplement"
	fileservice "github.com/game-diot/Data-visualization-applications-sub000/service/file"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cleaning_config_*")
	if err != nil {
		panic(err)
	}
	conf := []byte("pipeline:\n  cache:\n    resultTTLSeconds: 0\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), conf, 0o644); err != nil {
		panic(err)
	}
	_ = os.Setenv("CONFIG_PATH", dir)

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// fakeCompute 可编程的计算服务替身, blockCh 非空时执行会挂起等待放行
type fakeCompute struct {
	err     error
	payload string
	blockCh chan struct{}

	lastCleaning *compute.CleaningRunRequest
}

func (f *fakeCompute) RunQuality(ctx context.Context, req *compute.QualityRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) RunCleaning(ctx context.Context, req *compute.CleaningRunRequest) (*compute.RunResult, error) {
	f.lastCleaning = req
	return f.result()
}

func (f *fakeCompute) RunAnalysis(ctx context.Context, req *compute.AnalysisRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) result() (*compute.RunResult, error) {
	if f.blockCh != nil {
		<-f.blockCh
	}
	if f.err != nil {
		return nil, f.err
	}
	payload := f.payload
	if payload == "" {
		payload = "{}"
	}
	return &compute.RunResult{Stage: "done", Payload: json.RawMessage(payload)}, nil
}

type testEnv struct {
	service *Service
	factory *memimplement.Factory
	compute *fakeCompute
}

func newTestEnv(t *testing.T) *testEnv {
	repositoryFactory := memimplement.NewFactory()
	bus := events.NewBus()
	pool := worker.NewPool(2, 16)
	pool.Start()
	t.Cleanup(pool.Stop)

	fc := &fakeCompute{}
	service := NewService(repositoryFactory, fc, bus, pool, cache.NewCache(nil))
	fileservice.NewService(repositoryFactory, bus).RegisterSubscribers()

	return &testEnv{service: service, factory: repositoryFactory, compute: fc}
}

// seedFileWithQuality 准备一个带质量报告的文件
func (e *testEnv) seedFileWithQuality(t *testing.T, fileID string, qualityVersion int64) {
	session := e.factory.NewSession(context.Background())

	fileRepo, err := e.factory.NewFileRepository(session)
	require.NoError(t, err)
	file, err := fileRepo.Get(fileID)
	require.NoError(t, err)
	if file == nil {
		require.NoError(t, fileRepo.Create(&entity.File{
			ID:   fileID,
			Name: "orders.csv",
			Path: "/data/" + fileID + ".csv",
		}))
	}

	reportRepo, err := e.factory.NewQualityReportRepository(session)
	require.NoError(t, err)
	require.NoError(t, reportRepo.Create(&entity.QualityReport{
		ID:          fileID + "_q" + time.Now().Format("150405.000000"),
		FileID:      fileID,
		Version:     qualityVersion,
		TaskID:      "seed",
		PayloadJSON: "{}",
	}))
}

func (e *testEnv) waitTerminal(t *testing.T, taskID string) *TaskView {
	var view *TaskView
	require.Eventually(t, func() bool {
		v, serviceErr := e.service.Status(context.Background(), taskID)
		if serviceErr != nil {
			return false
		}
		view = v
		return constant.TaskStatus(v.Status).IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)
	return view
}

func (e *testEnv) sessionStatus(t *testing.T, sessionID string) string {
	sessionRepo, err := e.factory.NewCleaningSessionRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	session, err := sessionRepo.Get(sessionID)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session.Status
}

// ========== 会话生命周期 ==========

func TestCreateSessionRequiresQualityReport(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	_, serviceErr := env.service.CreateSession(context.Background(), "file_1", 5)
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorQualityReportNotFound, serviceErr.Code)

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	assert.Equal(t, constant.SessionStatusDraft.String(), session.Status)
	assert.Equal(t, int64(1), session.QualityVersion)
}

func TestCreateSessionClosesPriorActive(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	first, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	second, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	assert.NotEqual(t, first.ID, second.ID)

	// 旧会话被关闭, 活跃的是新会话
	assert.Equal(t, constant.SessionStatusClosed.String(), env.sessionStatus(t, first.ID))
	active, serviceErr := env.service.GetActiveSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	assert.Equal(t, second.ID, active.ID)
}

func TestCloseSessionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	require.Nil(t, env.service.CloseSession(context.Background(), session.ID))
	require.Nil(t, env.service.CloseSession(context.Background(), session.ID))
	assert.Equal(t, constant.SessionStatusClosed.String(), env.sessionStatus(t, session.ID))
}

func TestAddModification(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	modification, serviceErr := env.service.AddModification(context.Background(), session.ID, "replace_value", "col_age", `{"from":null,"to":0}`)
	require.Nil(t, serviceErr)
	assert.False(t, modification.Consumed)

	// 非法 JSON 被拒绝
	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "replace_value", "col_age", "{bad")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorParams, serviceErr.Code)

	modifications, serviceErr := env.service.ListModifications(context.Background(), session.ID)
	require.Nil(t, serviceErr)
	assert.Len(t, modifications, 1)
}

func TestAddModificationClosedSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	require.Nil(t, env.service.CloseSession(context.Background(), session.ID))

	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "drop_row", "", "")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorSessionClosed, serviceErr.Code)
}

// ========== 清洗执行 ==========

func TestTriggerSuccessConsumesModifications(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)
	env.compute.payload = `{"cleaned_rows":90}`

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "drop_row", "row_3", "")
	require.Nil(t, serviceErr)
	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "replace_value", "col_age", `{"to":0}`)
	require.Nil(t, serviceErr)

	task, serviceErr := env.service.Trigger(context.Background(), session.ID, `{"drop_nulls":true}`)
	require.Nil(t, serviceErr)

	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)
	assert.Equal(t, int64(1), view.Version)

	// 修改在触发时固化并随请求下发
	require.NotNil(t, env.compute.lastCleaning)
	assert.JSONEq(t, `{"drop_nulls":true}`, string(env.compute.lastCleaning.Rules))
	actions := []map[string]interface{}{}
	require.NoError(t, json.Unmarshal(env.compute.lastCleaning.Actions, &actions))
	assert.Len(t, actions, 2)

	// 成功后修改标记为已消费, 会话回到 draft
	modifications, serviceErr := env.service.ListModifications(context.Background(), session.ID)
	require.Nil(t, serviceErr)
	for _, m := range modifications {
		assert.True(t, m.Consumed)
	}
	assert.Equal(t, constant.SessionStatusDraft.String(), env.sessionStatus(t, session.ID))

	report, serviceErr := env.service.GetReport(context.Background(), "file_1", 1, 0)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(1), report.Version)
	assert.Equal(t, int64(1), report.QualityVersion)
}

func TestTriggerFailureKeepsModifications(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)
	env.compute.err = &compute.Error{Code: "COMPUTE_4001", Message: "schema mismatch", Retryable: false}

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "drop_row", "row_1", "")
	require.Nil(t, serviceErr)

	task, serviceErr := env.service.Trigger(context.Background(), session.ID, "")
	require.Nil(t, serviceErr)

	view := env.waitTerminal(t, task.ID)
	require.Equal(t, constant.TaskStatusFailed.String(), view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, "COMPUTE_4001", view.Error.Code)

	// 失败不消费修改, 会话解锁
	modifications, serviceErr := env.service.ListModifications(context.Background(), session.ID)
	require.Nil(t, serviceErr)
	require.Len(t, modifications, 1)
	assert.False(t, modifications[0].Consumed)
	assert.Equal(t, constant.SessionStatusDraft.String(), env.sessionStatus(t, session.ID))

	_, serviceErr = env.service.GetReport(context.Background(), "file_1", 1, 0)
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorCleaningReportNotFound, serviceErr.Code)
}

func TestTriggerWhileRunningRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)
	env.compute.blockCh = make(chan struct{})

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	task, serviceErr := env.service.Trigger(context.Background(), session.ID, "")
	require.Nil(t, serviceErr)

	// 等会话进入 running
	require.Eventually(t, func() bool {
		return env.sessionStatus(t, session.ID) == constant.SessionStatusRunning.String()
	}, 3*time.Second, 10*time.Millisecond)

	// 执行中会话不接受新触发/修改
	_, serviceErr = env.service.Trigger(context.Background(), session.ID, "")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorSessionBusy, serviceErr.Code)

	_, serviceErr = env.service.AddModification(context.Background(), session.ID, "drop_row", "", "")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorSessionBusy, serviceErr.Code)

	close(env.compute.blockCh)
	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)
	assert.Equal(t, constant.SessionStatusDraft.String(), env.sessionStatus(t, session.ID))
}

func TestCloseWhileRunning(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)
	env.compute.blockCh = make(chan struct{})

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)

	task, serviceErr := env.service.Trigger(context.Background(), session.ID, "")
	require.Nil(t, serviceErr)

	require.Eventually(t, func() bool {
		return env.sessionStatus(t, session.ID) == constant.SessionStatusRunning.String()
	}, 3*time.Second, 10*time.Millisecond)

	// 执行中也允许关闭, 在途任务照常收尾
	require.Nil(t, env.service.CloseSession(context.Background(), session.ID))
	assert.Equal(t, constant.SessionStatusClosed.String(), env.sessionStatus(t, session.ID))

	close(env.compute.blockCh)
	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)

	// 收尾解锁找不到 running 行, 会话保持 closed
	assert.Equal(t, constant.SessionStatusClosed.String(), env.sessionStatus(t, session.ID))
}

func TestTriggerClosedSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)

	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	require.Nil(t, env.service.CloseSession(context.Background(), session.ID))

	_, serviceErr = env.service.Trigger(context.Background(), session.ID, "")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorSessionClosed, serviceErr.Code)
}

func TestVersionsScopedByQualityVersion(t *testing.T) {
	env := newTestEnv(t)
	env.seedFileWithQuality(t, "file_1", 1)
	env.seedFileWithQuality(t, "file_1", 2)
	env.compute.payload = `{}`

	// 质量版本 1 下清洗两次
	session, serviceErr := env.service.CreateSession(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	for i := 0; i < 2; i++ {
		task, serviceErr := env.service.Trigger(context.Background(), session.ID, "")
		require.Nil(t, serviceErr)
		env.waitTerminal(t, task.ID)
	}

	// 质量版本 2 下的清洗从 1 重新计数
	session2, serviceErr := env.service.CreateSession(context.Background(), "file_1", 2)
	require.Nil(t, serviceErr)
	task, serviceErr := env.service.Trigger(context.Background(), session2.ID, "")
	require.Nil(t, serviceErr)
	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, int64(1), view.Version)

	reports, serviceErr := env.service.ListReports(context.Background(), "file_1", 1, &model.Pager{Limit: 10})
	require.Nil(t, serviceErr)
	assert.Len(t, reports, 2)
}
