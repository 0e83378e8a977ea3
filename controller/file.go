package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/game-diot/Data-visualization-applications-sub000/service/file"
)

// RegisterFile 登记上传完成的文件
func RegisterFile(ctx *gin.Context) {
	var req file.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, serviceErr := getFileService().Register(ctx, &req)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, created)
}

// GetFile 获取文件详情
func GetFile(ctx *gin.Context) {
	fileID := ctx.Param("file_id")

	found, serviceErr := getFileService().Get(ctx, fileID)
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, found)
}

// ListFiles 列出未删除的文件
func ListFiles(ctx *gin.Context) {
	files, serviceErr := getFileService().List(ctx, queryPager(ctx))
	if serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"files": files})
}

// DeleteFile 软删除文件
func DeleteFile(ctx *gin.Context) {
	fileID := ctx.Param("file_id")

	if serviceErr := getFileService().SoftDelete(ctx, fileID); serviceErr != nil {
		respondError(ctx, serviceErr)
		return
	}
	respond(ctx, gin.H{"file_id": fileID, "deleted": true})
}
