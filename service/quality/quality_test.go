package quality

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
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
	dir, err := os.MkdirTemp("", "quality_config_*")
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

// fakeCompute 可编程的计算服务替身
type fakeCompute struct {
	err     error
	payload string
}

func (f *fakeCompute) result() (*compute.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	payload := f.payload
	if payload == "" {
		payload = "{}"
	}
	return &compute.RunResult{Stage: "done", Payload: json.RawMessage(payload)}, nil
}

func (f *fakeCompute) RunQuality(ctx context.Context, req *compute.QualityRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) RunCleaning(ctx context.Context, req *compute.CleaningRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) RunAnalysis(ctx context.Context, req *compute.AnalysisRunRequest) (*compute.RunResult, error) {
	return f.result()
}

type testEnv struct {
	service *Service
	factory *memimplement.Factory
	compute *fakeCompute
	pool    *worker.Pool
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

	return &testEnv{service: service, factory: repositoryFactory, compute: fc, pool: pool}
}

func (e *testEnv) seedFile(t *testing.T, fileID string) {
	fileRepo, err := e.factory.NewFileRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	require.NoError(t, fileRepo.Create(&entity.File{
		ID:   fileID,
		Name: "orders.csv",
		Path: "/data/" + fileID + ".csv",
		Size: 1024,
	}))
}

func (e *testEnv) getFile(t *testing.T, fileID string) *entity.File {
	fileRepo, err := e.factory.NewFileRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	file, err := fileRepo.Get(fileID)
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
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

func TestTriggerFileNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, serviceErr := env.service.Trigger(context.Background(), "missing")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorFileNotFound, serviceErr.Code)
}

func TestTriggerDeletedFile(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")

	fileRepo, err := env.factory.NewFileRepository(env.factory.NewSession(context.Background()))
	require.NoError(t, err)
	deleted := true
	require.NoError(t, fileRepo.Update("file_1", &model.FileCondition{IsDeleted: &deleted}))

	_, serviceErr := env.service.Trigger(context.Background(), "file_1")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorFileDeleted, serviceErr.Code)
}

func TestTriggerSuccessFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.compute.payload = `{"summary":{"rows":10},"issues":[]}`

	task, serviceErr := env.service.Trigger(context.Background(), "file_1")
	require.Nil(t, serviceErr)
	require.NotNil(t, task)

	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)
	assert.Equal(t, int64(1), view.Version)
	assert.Nil(t, view.Error)
	assert.NotNil(t, view.FinishedAt)

	// 报告落库且版本从 1 开始
	report, serviceErr := env.service.Result(context.Background(), "file_1", 0)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(1), report.Version)
	assert.Equal(t, task.ID, report.TaskID)
	assert.JSONEq(t, `{"summary":{"rows":10},"issues":[]}`, report.PayloadJSON)

	// 文件聚合由订阅者推进
	file := env.getFile(t, "file_1")
	assert.Equal(t, constant.FileStageQualityDone.String(), file.Stage)
	assert.Equal(t, int64(1), file.LatestQualityVersion)
	assert.JSONEq(t, `{"rows":10}`, file.SummaryJSON)
}

func TestTriggerComputeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.compute.err = &compute.Error{Code: "FASTAPI_502", Message: "bad gateway", Retryable: true}

	task, serviceErr := env.service.Trigger(context.Background(), "file_1")
	require.Nil(t, serviceErr)

	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusFailed.String(), view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, "FASTAPI_502", view.Error.Code)
	assert.True(t, view.Error.Retryable)

	// 失败不产生报告
	_, serviceErr = env.service.Result(context.Background(), "file_1", 0)
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorQualityReportNotFound, serviceErr.Code)

	file := env.getFile(t, "file_1")
	assert.Equal(t, constant.FileStageQualityFailed.String(), file.Stage)
}

func TestFailureDoesNotConsumeVersion(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")

	// 第一轮成功占用版本 1
	env.compute.payload = `{"summary":{"rows":10}}`
	task, serviceErr := env.service.Trigger(context.Background(), "file_1")
	require.Nil(t, serviceErr)
	env.waitTerminal(t, task.ID)

	// 第二轮失败, 版本不被消耗
	env.compute.err = errors.New("compute exploded")
	task, serviceErr = env.service.Trigger(context.Background(), "file_1")
	require.Nil(t, serviceErr)
	view := env.waitTerminal(t, task.ID)
	require.Equal(t, constant.TaskStatusFailed.String(), view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, model.ExecErrorCodeInternal, view.Error.Code)
	assert.False(t, view.Error.Retryable)

	// 第三轮成功拿到版本 2 而不是 3
	env.compute.err = nil
	task, serviceErr = env.service.Trigger(context.Background(), "file_1")
	require.Nil(t, serviceErr)
	view = env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)
	assert.Equal(t, int64(2), view.Version)
}

func TestUploadAutoTriggersQuality(t *testing.T) {
	repositoryFactory := memimplement.NewFactory()
	bus := events.NewBus()
	pool := worker.NewPool(1, 8)
	pool.Start()
	t.Cleanup(pool.Stop)

	fc := &fakeCompute{payload: `{"summary":{"rows":5}}`}
	qualityService := NewService(repositoryFactory, fc, bus, pool, cache.NewCache(nil))
	fs := fileservice.NewService(repositoryFactory, bus)
	fs.RegisterSubscribers()
	qualityService.RegisterSubscribers()

	file, serviceErr := fs.Register(context.Background(), &fileservice.RegisterRequest{
		Name: "orders.csv",
		Path: "/data/orders.csv",
	})
	require.Nil(t, serviceErr)

	// 登记即触发首次质量分析
	require.Eventually(t, func() bool {
		view, serviceErr := qualityService.StatusLatest(context.Background(), file.ID)
		return serviceErr == nil && view.Status == constant.TaskStatusSuccess.String()
	}, 3*time.Second, 10*time.Millisecond)

	updated, serviceErr := fs.Get(context.Background(), file.ID)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(1), updated.LatestQualityVersion)
	assert.Equal(t, constant.FileStageQualityDone.String(), updated.Stage)
}

func TestStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, serviceErr := env.service.Status(context.Background(), "missing")
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorTaskNotFound, serviceErr.Code)
}

func TestResultByVersion(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.compute.payload = `{"summary":{"rows":1}}`

	for i := 0; i < 2; i++ {
		task, serviceErr := env.service.Trigger(context.Background(), "file_1")
		require.Nil(t, serviceErr)
		env.waitTerminal(t, task.ID)
	}

	report, serviceErr := env.service.Result(context.Background(), "file_1", 1)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(1), report.Version)

	latest, serviceErr := env.service.Result(context.Background(), "file_1", 0)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(2), latest.Version)

	_, serviceErr = env.service.Result(context.Background(), "file_1", 9)
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorQualityReportNotFound, serviceErr.Code)
}

func TestListReports(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.compute.payload = `{"summary":{}}`

	for i := 0; i < 3; i++ {
		task, serviceErr := env.service.Trigger(context.Background(), "file_1")
		require.Nil(t, serviceErr)
		env.waitTerminal(t, task.ID)
	}

	reports, serviceErr := env.service.ListReports(context.Background(), "file_1", &model.Pager{Limit: 10})
	require.Nil(t, serviceErr)
	require.Len(t, reports, 3)
	// 版本倒序
	assert.Equal(t, int64(3), reports[0].Version)
	assert.Equal(t, int64(1), reports[2].Version)
}
