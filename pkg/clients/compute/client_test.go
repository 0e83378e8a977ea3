package compute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "compute_config_*")
	if err != nil {
		panic(err)
	}
	conf := []byte("app:\n  host: \":0\"\nclients:\n  http:\n    requestLog: false\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), conf, 0o644); err != nil {
		panic(err)
	}
	_ = os.Setenv("CONFIG_PATH", dir)

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestClient(serverURL string, maxRetries int) *HTTPClient {
	addr := strings.TrimPrefix(serverURL, "http://")
	return NewHTTPClient(addr, 5*time.Second, maxRetries, time.Millisecond)
}

func TestRunQualitySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quality/run", r.URL.Path)

		req := &QualityRunRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(req))
		assert.Equal(t, "task_1", req.TaskID)
		assert.Equal(t, DataSourceRaw, req.File.Source)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"msg":  "ok",
			"data": map[string]interface{}{
				"stage":   "done",
				"payload": map[string]interface{}{"rows": 100},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	result, err := client.RunQuality(context.Background(), &QualityRunRequest{
		TaskID: "task_1",
		File:   DataRef{FileID: "file_1", Path: "/data/file_1.csv", Source: DataSourceRaw},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Stage)
	assert.JSONEq(t, `{"rows":100}`, string(result.Payload))
}

func TestRunRetriesOn5xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.RunQuality(context.Background(), &QualityRunRequest{TaskID: "task_1"})
	require.Error(t, err)

	computeErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "FASTAPI_502", computeErr.Code)
	assert.True(t, computeErr.Retryable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRunNoRetryOn4xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.RunCleaning(context.Background(), &CleaningRunRequest{TaskID: "task_1"})
	require.Error(t, err)

	computeErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "FASTAPI_422", computeErr.Code)
	assert.False(t, computeErr.Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRunBusinessErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 4001,
			"msg":  "schema mismatch",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.RunAnalysis(context.Background(), &AnalysisRunRequest{TaskID: "task_1"})
	require.Error(t, err)

	computeErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "COMPUTE_4001", computeErr.Code)
	assert.Equal(t, "schema mismatch", computeErr.Message)
	assert.False(t, computeErr.Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRunRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"msg":  "ok",
			"data": map[string]interface{}{"stage": "done", "payload": map[string]interface{}{}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	result, err := client.RunQuality(context.Background(), &QualityRunRequest{TaskID: "task_1"})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Stage)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRunTransportErrorRetryable(t *testing.T) {
	// 没有监听者的端口, 传输层直接失败
	client := NewHTTPClient("127.0.0.1:1", time.Second, 1, time.Millisecond)
	_, err := client.RunQuality(context.Background(), &QualityRunRequest{TaskID: "task_1"})
	require.Error(t, err)

	computeErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "FASTAPI_UNREACHABLE", computeErr.Code)
	assert.True(t, computeErr.Retryable)
}
