package xormimplement

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"xorm.io/xorm"

	_ "github.com/lib/pq"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/factory"
	"github.com/game-diot/Data-visualization-applications-sub000/repository/interfaces"
)

var once sync.Once
var instance *Factory

type Factory struct {
	// 连接 pg
	engine *xorm.Engine
}

// 获取一个factory实例
func GetRepositoryFactoryInstance() factory.Factory {
	once.Do(func() {
		instance = &Factory{
			engine: openDB(
				config.GetInstance().GetString(config.BaseDbXormType),
				config.GetInstance().GetString(config.BaseDbXormHost),
				config.GetInstance().GetString(config.BaseDbXormPort),
				config.GetInstance().GetString(config.BaseDbXormUsername),
				config.GetInstance().GetString(config.BaseDbXormName),
				config.GetInstance().GetString(config.BaseDbXormPassword),
				config.GetInstance().GetBool(config.BaseDbXormShowsql),
			),
		}
	})
	return instance
}

// 设置xorm的连接参数
func openDB(dbType string, host string, port string, userName string, name string, password string, showSql bool) *xorm.Engine {
	//拼接数据库参数
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		host,
		userName,
		password,
		name,
		port)
	//设置连接参数
	engine, err := xorm.NewEngine(dbType, dsn)
	if err != nil {
		logrus.Errorf("Database connection failed err: %v. Database name: %s", err, name)
		panic(err)
	}
	//是否展示sql文件
	engine.ShowSQL(showSql)
	return engine
}

// 创建一个会话
func (f *Factory) NewSession(ctx context.Context) interfaces.Session {
	return &Session{Session: f.engine.NewSession().Context(ctx)}
}

// NewFileRepository 创建文件仓库
func (f *Factory) NewFileRepository(session interfaces.Session) (repository.FileRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewFileRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewQualityTaskRepository 创建质量分析任务仓库
func (f *Factory) NewQualityTaskRepository(session interfaces.Session) (repository.QualityTaskRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewQualityTaskRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewCleaningTaskRepository 创建清洗任务仓库
func (f *Factory) NewCleaningTaskRepository(session interfaces.Session) (repository.CleaningTaskRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewCleaningTaskRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewAnalysisTaskRepository 创建分析任务仓库
func (f *Factory) NewAnalysisTaskRepository(session interfaces.Session) (repository.AnalysisTaskRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewAnalysisTaskRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewQualityReportRepository 创建质量报告仓库
func (f *Factory) NewQualityReportRepository(session interfaces.Session) (repository.QualityReportRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewQualityReportRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewCleaningReportRepository 创建清洗报告仓库
func (f *Factory) NewCleaningReportRepository(session interfaces.Session) (repository.CleaningReportRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewCleaningReportRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewAnalysisReportRepository 创建分析报告仓库
func (f *Factory) NewAnalysisReportRepository(session interfaces.Session) (repository.AnalysisReportRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewAnalysisReportRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewCleaningSessionRepository 创建清洗会话仓库
func (f *Factory) NewCleaningSessionRepository(session interfaces.Session) (repository.CleaningSessionRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewCleaningSessionRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// NewUserModificationRepository 创建用户修改仓库
func (f *Factory) NewUserModificationRepository(session interfaces.Session) (repository.UserModificationRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewUserModificationRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}
