package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateCleaningSession 新建清洗会话, 同作用域旧会话自动关闭
func CreateCleaningSession(ctx *gin.Context) {
	fileID := ctx.Param("file_id")

	var req struct {
		QualityVersion int64 `json:"quality_version"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, serviceErr := getCleaningService().CreateSession(ctx, fileID, req.QualityVersion)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, session)
}

// GetActiveCleaningSession 查询当前活跃会话
func GetActiveCleaningSession(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	qualityVersion := queryInt64(ctx, "quality_version")

	session, serviceErr := getCleaningService().GetActiveSession(ctx, fileID, qualityVersion)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, session)
}

// CloseCleaningSession 关闭会话
func CloseCleaningSession(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	if serviceErr := getCleaningService().CloseSession(ctx, sessionID); serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"session_id": sessionID, "closed": true})
}

// AddCleaningModification 向 draft 会话追加一条用户修改
func AddCleaningModification(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	var req struct {
		Kind   string `json:"kind"`
		Target string `json:"target"`
		Params string `json:"params"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	modification, serviceErr := getCleaningService().AddModification(ctx, sessionID, req.Kind, req.Target, req.Params)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, modification)
}

// ListCleaningModifications 列出会话内的用户修改
func ListCleaningModifications(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	modifications, serviceErr := getCleaningService().ListModifications(ctx, sessionID)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"modifications": modifications})
}

// RunCleaning 在会话内触发清洗任务
func RunCleaning(ctx *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		Rules     string `json:"rules"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, serviceErr := getCleaningService().Trigger(ctx, req.SessionID, req.Rules)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, task)
}

// GetCleaningStatus 查询清洗任务状态
// 带 task_id 查具体任务, 否则按 session_id 查最近一次
func GetCleaningStatus(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID != "" {
		view, serviceErr := getCleaningService().Status(ctx, taskID)
		if serviceErr != nil {
			respondError(ctx, serviceErr)
			return
		}
		respond(ctx, view)
		return
	}

	view, serviceErr := getCleaningService().StatusLatest(ctx, ctx.Query("session_id"))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, view)
}

// GetCleaningReport 获取清洗报告, version 缺省取最新
func GetCleaningReport(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	qualityVersion := queryInt64(ctx, "quality_version")
	version := queryInt64(ctx, "version")

	report, serviceErr := getCleaningService().GetReport(ctx, fileID, qualityVersion, version)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, report)
}

// ListCleaningReports 列出作用域内的清洗报告
func ListCleaningReports(ctx *gin.Context) {
	fileID := ctx.Param("file_id")
	qualityVersion := queryInt64(ctx, "quality_version")

	reports, serviceErr := getCleaningService().ListReports(ctx, fileID, qualityVersion, queryPager(ctx))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"reports": reports})
}
