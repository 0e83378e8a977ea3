package router

import (
	"github.com/gin-gonic/gin"

	"github.com/game-diot/Data-visualization-applications-sub000/controller"
)

func addApiRouter(engine *gin.Engine) {

	api := engine.Group("/api/v1")
	{
		// 文件管理
		api.POST("/file", controller.RegisterFile)
		api.GET("/file/:file_id", controller.GetFile)
		api.DELETE("/file/:file_id", controller.DeleteFile)
		api.GET("/files", controller.ListFiles)

		// 质量分析
		api.POST("/file/:file_id/quality/run", controller.RunQuality)
		api.GET("/file/:file_id/quality/status", controller.GetQualityStatus)
		api.GET("/file/:file_id/quality/result", controller.GetQualityResult)
		api.GET("/file/:file_id/quality/reports", controller.ListQualityReports)

		// 清洗会话
		api.POST("/file/:file_id/cleaning/session", controller.CreateCleaningSession)
		api.GET("/file/:file_id/cleaning/session/active", controller.GetActiveCleaningSession)
		api.POST("/file/:file_id/cleaning/session/:session_id/close", controller.CloseCleaningSession)
		api.POST("/file/:file_id/cleaning/session/:session_id/modification", controller.AddCleaningModification)
		api.GET("/file/:file_id/cleaning/session/:session_id/modifications", controller.ListCleaningModifications)

		// 清洗执行
		api.POST("/file/:file_id/cleaning/run", controller.RunCleaning)
		api.GET("/file/:file_id/cleaning/status", controller.GetCleaningStatus)
		api.GET("/file/:file_id/cleaning/report", controller.GetCleaningReport)
		api.GET("/file/:file_id/cleaning/reports", controller.ListCleaningReports)

		// 数据分析
		api.POST("/file/:file_id/analysis/run", controller.RunAnalysis)
		api.GET("/file/:file_id/analysis/status", controller.GetAnalysisStatus)
		api.GET("/file/:file_id/analysis/report", controller.GetAnalysisReport)
		api.GET("/file/:file_id/analysis/reports", controller.ListAnalysisReports)
	}
}
