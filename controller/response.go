package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/model"
)

// httpStatusOf 业务错误码到 HTTP 状态码
func httpStatusOf(code int) int {
	switch code {
	case model.ErrorParams, model.ErrorEmptyId,
		model.ErrorQualityVersionMissing, model.ErrorCleaningVersionMissing,
		model.ErrorSelectionInvalid, model.ErrorAnalysisConfigInvalid:
		return http.StatusBadRequest
	case model.ErrorFileNotFound, model.ErrorTaskNotFound,
		model.ErrorQualityReportNotFound, model.ErrorCleaningReportNotFound,
		model.ErrorAnalysisReportNotFound, model.ErrorSessionNotFound:
		return http.StatusNotFound
	case model.ErrorFileDeleted, model.ErrorSessionClosed,
		model.ErrorSessionMismatch, model.ErrorSessionBusy:
		return http.StatusConflict
	case model.ErrorWorkerBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err *model.Error) {
	ctx.JSON(httpStatusOf(err.Code), gin.H{"code": err.Code, "error": err.Message})
}

func respond(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, data)
}

// queryInt64 读取 int64 查询参数, 缺省返回 0
func queryInt64(ctx *gin.Context, key string) int64 {
	raw := ctx.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// queryPager 读取分页参数
func queryPager(ctx *gin.Context) *model.Pager {
	limit := int(queryInt64(ctx, "limit"))
	if limit <= 0 {
		limit = constant.DefaultPageLimit
	}
	offset := int(queryInt64(ctx, "offset"))
	if offset < 0 {
		offset = 0
	}
	return &model.Pager{Limit: limit, Offset: offset}
}
