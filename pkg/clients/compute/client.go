package compute

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/httptool"
)

const (
	qualityRunURL  = "/api/v1/quality/run"
	cleaningRunURL = "/api/v1/cleaning/run"
	analysisRunURL = "/api/v1/analysis/run"

	envelopeOkCode = 200
)

// Client 计算服务客户端
type Client interface {
	RunQuality(ctx context.Context, req *QualityRunRequest) (*RunResult, error)
	RunCleaning(ctx context.Context, req *CleaningRunRequest) (*RunResult, error)
	RunAnalysis(ctx context.Context, req *AnalysisRunRequest) (*RunResult, error)
}

var (
	instance *HTTPClient
	once     sync.Once
)

type HTTPClient struct {
	hc          *httptool.HTTPClient
	maxRetries  int
	backoffBase time.Duration
}

func NewHTTPClient(addr string, timeout time.Duration, maxRetries int, backoffBase time.Duration) *HTTPClient {
	hc := httptool.NewHTTPClient(addr, "compute", timeout, nil, nil)
	hc.SetHeader(httptool.HeaderContentType, httptool.HeaderContentTypeJSON)
	return &HTTPClient{
		hc:          hc,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
}

func GetInstance() *HTTPClient {
	once.Do(func() {
		conf := config.GetInstance()
		instance = NewHTTPClient(
			conf.GetString(config.ClientComputeAddr),
			cast.ToDuration(conf.GetIntOrDefault(config.ClientComputeTimeoutSeconds, constant.DefaultComputeTimeoutSeconds))*time.Second,
			conf.GetIntOrDefault(config.ClientComputeMaxRetries, constant.DefaultComputeMaxRetries),
			cast.ToDuration(conf.GetIntOrDefault(config.ClientComputeBackoffBaseMs, constant.DefaultComputeBackoffBaseMs))*time.Millisecond,
		)
	})
	return instance
}

func (c *HTTPClient) RunQuality(ctx context.Context, req *QualityRunRequest) (*RunResult, error) {
	return c.run(ctx, qualityRunURL, req)
}

func (c *HTTPClient) RunCleaning(ctx context.Context, req *CleaningRunRequest) (*RunResult, error) {
	return c.run(ctx, cleaningRunURL, req)
}

func (c *HTTPClient) RunAnalysis(ctx context.Context, req *AnalysisRunRequest) (*RunResult, error) {
	return c.run(ctx, analysisRunURL, req)
}

// run 带重试地调用一个计算端点
// 只有超时/传输失败/5xx 会重试, 业务失败一次就定论
func (c *HTTPClient) run(ctx context.Context, url string, req interface{}) (*RunResult, error) {
	var lastErr *Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.runOnce(ctx, url, req)
		if err == nil {
			return result, nil
		}

		computeErr, ok := AsError(err)
		if !ok {
			return nil, err
		}
		if !computeErr.Retryable {
			return nil, computeErr
		}
		lastErr = computeErr

		if attempt == c.maxRetries {
			break
		}
		delay := c.backoffBase * time.Duration(1<<attempt)
		log.Warnf("compute call %s attempt %d/%d failed: %v, retrying in %v", url, attempt, c.maxRetries, computeErr, delay)
		select {
		case <-ctx.Done():
			return nil, errors.WithStack(ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) runOnce(ctx context.Context, url string, req interface{}) (*RunResult, error) {
	body, err := c.hc.PostJSONWithContext(ctx, url, req)
	if err != nil {
		var statusErr *httptool.StatusError
		if errors.As(err, &statusErr) {
			return nil, newStatusError(statusErr.Code, string(statusErr.Body))
		}
		return nil, newTransportError(err)
	}

	env := &envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, newTransportError(errors.Wrap(err, "decode compute response"))
	}
	if env.Code != envelopeOkCode {
		return nil, newBusinessError(env.Code, env.Msg)
	}

	result := &RunResult{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, newTransportError(errors.Wrap(err, "decode compute result"))
		}
	}
	return result, nil
}
