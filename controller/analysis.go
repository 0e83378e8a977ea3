package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/game-diot/Data-visualization-applications-sub000/service/analysis"
)

// RunAnalysis 触发数据分析
func RunAnalysis(ctx *gin.Context) {
	var req analysis.TriggerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.FileID = ctx.Param("file_id")

	task, serviceErr := getAnalysisService().Trigger(ctx, &req)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, task)
}

// GetAnalysisStatus 查询分析任务状态
// 不带 task_id 时返回文件最近一次任务
func GetAnalysisStatus(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID != "" {
		view, serviceErr := getAnalysisService().Status(ctx, taskID)
		if serviceErr != nil {
			respondError(ctx, serviceErr)
			return
		}
		respond(ctx, view)
		return
	}

	view, serviceErr := getAnalysisService().StatusLatest(ctx, ctx.Param("file_id"))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, view)
}

// GetAnalysisReport 获取分析报告, version 缺省取最新
func GetAnalysisReport(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	qualityVersion := queryInt64(ctx, "quality_version")
	cleaningVersion := queryInt64(ctx, "cleaning_version")
	version := queryInt64(ctx, "version")

	report, serviceErr := getAnalysisService().GetReport(ctx, fileID, qualityVersion, cleaningVersion, version)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, report)
}

// ListAnalysisReports 列出分析报告
// 带 quality_version 按作用域过滤, 否则列出文件下全部
func ListAnalysisReports(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	qualityVersion := queryInt64(ctx, "quality_version")
	cleaningVersion := queryInt64(ctx, "cleaning_version")

	if qualityVersion == 0 {
		reports, serviceErr := getAnalysisService().ListReportsByFile(ctx, fileID, queryPager(ctx))
		if serviceErr != nil {
			respondError(ctx, serviceErr)
			return
		}
		respond(ctx, gin.H{"reports": reports})
		return
	}

	reports, serviceErr := getAnalysisService().ListReports(ctx, fileID, qualityVersion, cleaningVersion, queryPager(ctx))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"reports": reports})
}
