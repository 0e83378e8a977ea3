package analysis

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
	dir, err := os.MkdirTemp("", "analysis_config_*")
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

type fakeCompute struct {
	err     error
	payload string

	lastAnalysis *compute.AnalysisRunRequest
}

func (f *fakeCompute) RunQuality(ctx context.Context, req *compute.QualityRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) RunCleaning(ctx context.Context, req *compute.CleaningRunRequest) (*compute.RunResult, error) {
	return f.result()
}

func (f *fakeCompute) RunAnalysis(ctx context.Context, req *compute.AnalysisRunRequest) (*compute.RunResult, error) {
	f.lastAnalysis = req
	return f.result()
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

func (e *testEnv) seedFile(t *testing.T, fileID string) {
	fileRepo, err := e.factory.NewFileRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	require.NoError(t, fileRepo.Create(&entity.File{
		ID:   fileID,
		Name: "orders.csv",
		Path: "/data/" + fileID + ".csv",
	}))
}

func (e *testEnv) seedQualityReport(t *testing.T, fileID string, version int64) {
	reportRepo, err := e.factory.NewQualityReportRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	require.NoError(t, reportRepo.Create(&entity.QualityReport{
		ID: fileID + "_q" + time.Now().Format("150405.000000"), FileID: fileID,
		Version: version, TaskID: "seed", PayloadJSON: "{}",
	}))
}

func (e *testEnv) seedCleaningReport(t *testing.T, fileID string, qualityVersion int64, version int64) {
	reportRepo, err := e.factory.NewCleaningReportRepository(e.factory.NewSession(context.Background()))
	require.NoError(t, err)
	require.NoError(t, reportRepo.Create(&entity.CleaningReport{
		ID: fileID + "_c" + time.Now().Format("150405.000000"), FileID: fileID,
		QualityVersion: qualityVersion, Version: version, TaskID: "seed", PayloadJSON: "{}",
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

func TestTriggerValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.seedQualityReport(t, "file_1", 1)

	cases := []struct {
		name string
		req  *TriggerRequest
		code int
	}{
		{"missing file id", &TriggerRequest{}, model.ErrorEmptyId},
		{"missing quality version", &TriggerRequest{FileID: "file_1"}, model.ErrorQualityVersionMissing},
		{"unknown quality version", &TriggerRequest{FileID: "file_1", QualityVersion: 9, InputMode: "raw"}, model.ErrorQualityReportNotFound},
		{"invalid input mode", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "weird"}, model.ErrorParams},
		{"cleaned without cleaning version", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "cleaned"}, model.ErrorCleaningVersionMissing},
		{"cleaned with unknown cleaning version", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "cleaned", CleaningVersion: 7}, model.ErrorCleaningReportNotFound},
		{"raw with cleaning version", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "raw", CleaningVersion: 1}, model.ErrorParams},
		{"bad selection json", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "raw", SelectionJSON: "{bad"}, model.ErrorSelectionInvalid},
		{"bad config json", &TriggerRequest{FileID: "file_1", QualityVersion: 1, InputMode: "raw", ConfigJSON: "{bad"}, model.ErrorAnalysisConfigInvalid},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, serviceErr := env.service.Trigger(context.Background(), c.req)
			require.NotNil(t, serviceErr)
			assert.Equal(t, c.code, serviceErr.Code)
		})
	}
}

func TestTriggerRawMode(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.seedQualityReport(t, "file_1", 1)
	env.compute.payload = `{"charts":[]}`

	task, serviceErr := env.service.Trigger(context.Background(), &TriggerRequest{
		FileID:         "file_1",
		QualityVersion: 1,
		InputMode:      "raw",
		SelectionJSON:  `{"columns":["age"]}`,
	})
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(0), task.CleaningVersion)

	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)
	assert.Equal(t, int64(1), view.Version)

	// raw 模式直接引用原始文件
	require.NotNil(t, env.compute.lastAnalysis)
	assert.Equal(t, compute.DataSourceRaw, env.compute.lastAnalysis.Data.Source)
	assert.Equal(t, "/data/file_1.csv", env.compute.lastAnalysis.Data.Path)
	assert.JSONEq(t, `{"columns":["age"]}`, string(env.compute.lastAnalysis.Selection))

	report, serviceErr := env.service.GetReport(context.Background(), "file_1", 1, 0, 0)
	require.Nil(t, serviceErr)
	assert.Equal(t, int64(1), report.Version)
	assert.Equal(t, int64(0), report.CleaningVersion)
}

func TestTriggerCleanedMode(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.seedQualityReport(t, "file_1", 1)
	env.seedCleaningReport(t, "file_1", 1, 2)
	env.compute.payload = `{"charts":[{"kind":"bar"}]}`

	task, serviceErr := env.service.Trigger(context.Background(), &TriggerRequest{
		FileID:          "file_1",
		QualityVersion:  1,
		CleaningVersion: 2,
	})
	require.Nil(t, serviceErr)
	// 缺省输入模式是 cleaned
	assert.Equal(t, constant.InputModeCleaned.String(), task.InputMode)

	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, constant.TaskStatusSuccess.String(), view.Status)

	require.NotNil(t, env.compute.lastAnalysis)
	assert.Equal(t, compute.DataSourceCleaned, env.compute.lastAnalysis.Data.Source)
	assert.Equal(t, int64(2), env.compute.lastAnalysis.Data.CleaningVersion)
}

func TestVersionsScopedByInputVersions(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.seedQualityReport(t, "file_1", 1)
	env.seedCleaningReport(t, "file_1", 1, 1)

	// raw 作用域下两次分析
	for i := 0; i < 2; i++ {
		task, serviceErr := env.service.Trigger(context.Background(), &TriggerRequest{
			FileID: "file_1", QualityVersion: 1, InputMode: "raw",
		})
		require.Nil(t, serviceErr)
		env.waitTerminal(t, task.ID)
	}

	// cleaned 作用域从 1 重新计数
	task, serviceErr := env.service.Trigger(context.Background(), &TriggerRequest{
		FileID: "file_1", QualityVersion: 1, CleaningVersion: 1,
	})
	require.Nil(t, serviceErr)
	view := env.waitTerminal(t, task.ID)
	assert.Equal(t, int64(1), view.Version)

	rawReports, serviceErr := env.service.ListReports(context.Background(), "file_1", 1, 0, &model.Pager{Limit: 10})
	require.Nil(t, serviceErr)
	assert.Len(t, rawReports, 2)

	allReports, serviceErr := env.service.ListReportsByFile(context.Background(), "file_1", &model.Pager{Limit: 10})
	require.Nil(t, serviceErr)
	assert.Len(t, allReports, 3)
}

func TestTriggerComputeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedFile(t, "file_1")
	env.seedQualityReport(t, "file_1", 1)
	env.compute.err = &compute.Error{Code: "FASTAPI_503", Message: "unavailable", Retryable: true}

	task, serviceErr := env.service.Trigger(context.Background(), &TriggerRequest{
		FileID: "file_1", QualityVersion: 1, InputMode: "raw",
	})
	require.Nil(t, serviceErr)

	view := env.waitTerminal(t, task.ID)
	require.Equal(t, constant.TaskStatusFailed.String(), view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, "FASTAPI_503", view.Error.Code)
	assert.True(t, view.Error.Retryable)

	_, serviceErr = env.service.GetReport(context.Background(), "file_1", 1, 0, 0)
	require.NotNil(t, serviceErr)
	assert.Equal(t, model.ErrorAnalysisReportNotFound, serviceErr.Code)
}
