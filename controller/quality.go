package controller

import (
	"github.com/gin-gonic/gin"
)

// RunQuality 触发质量分析
func RunQuality(ctx *gin.Context) {
	fileID := ctx.Param("file_id")

	task, serviceErr := getQualityService().Trigger(ctx, fileID)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, task)
}

// GetQualityStatus 查询质量分析任务状态
// 不带 task_id 时返回文件最近一次任务
func GetQualityStatus(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID != "" {
		view, serviceErr := getQualityService().Status(ctx, taskID)
		if serviceErr != nil {
			respondError(ctx, serviceErr)
			return
		}
		respond(ctx, view)
		return
	}

	view, serviceErr := getQualityService().StatusLatest(ctx, ctx.Param("file_id"))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, view)
}

// GetQualityResult 获取质量报告, version 缺省取最新
func GetQualityResult(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	version := queryInt64(ctx, "version")

	report, serviceErr := getQualityService().Result(ctx, fileID, version)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, report)
}

// ListQualityReports 列出文件的质量报告
func ListQualityReports(ctx *gin.Context) {
	fileID := ctx.Param("file_id")

	reports, serviceErr := getQualityService().ListReports(ctx, fileID, queryPager(ctx))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"reports": reports})
}
