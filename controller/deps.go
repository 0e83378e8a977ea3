package controller

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/cache"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/compute"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/events"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/worker"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/memimplement"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/xormimplement"
	"github.com/game-diot/Data-visualization-applications-sub000/service/analysis"
	"github.com/game-diot/Data-visualization-applications-sub000/service/cleaning"
	"github.com/game-diot/Data-visualization-applications-sub000/service/file"
	"github.com/game-diot/Data-visualization-applications-sub000/service/quality"
	"github.com/game-diot/Data-visualization-applications-sub000/service/reconcile"
)

var (
	depsOnce sync.Once

	fileService     *file.Service
	qualityService  *quality.Service
	cleaningService *cleaning.Service
	analysisService *analysis.Service

	workerPool *worker.Pool
)

// initDeps 组装服务单例并完成启动期工作
// 订阅注册先于 worker 启动, 保证不会漏掉事件
func initDeps() {
	depsOnce.Do(func() {
		var repositoryFactory factory.Factory
		if config.GetInstance().GetString(config.BaseDbType) == "memory" {
			repositoryFactory = memimplement.GetRepositoryFactoryInstance()
		} else {
			repositoryFactory = xormimplement.GetRepositoryFactoryInstance()
		}

		bus := events.GetInstance()
		resultCache := cache.GetInstance()
		computeClient := compute.GetInstance()

		poolSize := config.GetInstance().GetIntOrDefault(config.PipelineWorkerPoolSize, constant.DefaultWorkerPoolSize)
		queueSize := config.GetInstance().GetIntOrDefault(config.PipelineWorkerQueueSize, constant.DefaultWorkerQueueSize)
		workerPool = worker.NewPool(poolSize, queueSize)

		fileService = file.NewService(repositoryFactory, bus)
		qualityService = quality.NewService(repositoryFactory, computeClient, bus, workerPool, resultCache)
		cleaningService = cleaning.NewService(repositoryFactory, computeClient, bus, workerPool, resultCache)
		analysisService = analysis.NewService(repositoryFactory, computeClient, bus, workerPool, resultCache)

		fileService.RegisterSubscribers()
		qualityService.RegisterSubscribers()

		if err := reconcile.NewSweeper(repositoryFactory, bus).Sweep(context.Background()); err != nil {
			log.Errorf("startup reconcile failed: %v", err)
		}

		workerPool.Start()
	})
}

// Init 启动期装配入口, 保证清扫和订阅注册先于对外服务
func Init() {
	initDeps()
}

func getFileService() *file.Service {
	initDeps()
	return fileService
}

func getQualityService() *quality.Service {
	initDeps()
	return qualityService
}

func getCleaningService() *cleaning.Service {
	initDeps()
	return cleaningService
}

func getAnalysisService() *analysis.Service {
	initDeps()
	return analysisService
}

// GetWorkerPool 暴露给 main 做优雅退出
func GetWorkerPool() *worker.Pool {
	initDeps()
	return workerPool
}
