package model

import (
	"fmt"
	"regexp"

	log "github.com/sirupsen/logrus"
)

const (
	ErrorParams                = 200001
	ErrorEmptyId               = 200002
	ErrorNewRepo               = 200003
	ErrorDB                    = 200004
	ErrorFileNotFound          = 200005
	ErrorFileDeleted           = 200006
	ErrorQualityVersionMissing = 200007
	ErrorQualityReportNotFound = 200008
	ErrorCleaningVersionMissing = 200009
	ErrorCleaningReportNotFound = 200010
	ErrorAnalysisReportNotFound = 200011
	ErrorSessionNotFound       = 200012
	ErrorSessionClosed         = 200013
	ErrorSessionMismatch       = 200014
	ErrorSessionBusy           = 200015
	ErrorSelectionInvalid      = 200016
	ErrorAnalysisConfigInvalid = 200017
	ErrorTaskNotFound          = 200018
	ErrorWorkerBusy            = 200019
)

var ErrorMessages = map[int]string{
	ErrorParams:                 "参数错误",
	ErrorEmptyId:                "id 为空",
	ErrorNewRepo:                "新建 repo 失败",
	ErrorDB:                     "db error",
	ErrorFileNotFound:           "文件不存在",
	ErrorFileDeleted:            "文件已删除",
	ErrorQualityVersionMissing:  "缺少质量分析版本号",
	ErrorQualityReportNotFound:  "指定版本的质量报告不存在",
	ErrorCleaningVersionMissing: "缺少清洗版本号",
	ErrorCleaningReportNotFound: "指定版本的清洗报告不存在",
	ErrorAnalysisReportNotFound: "指定版本的分析报告不存在",
	ErrorSessionNotFound:        "清洗会话不存在",
	ErrorSessionClosed:          "清洗会话已关闭",
	ErrorSessionMismatch:        "清洗会话与文件不匹配",
	ErrorSessionBusy:            "清洗会话已有任务在执行",
	ErrorSelectionInvalid:       "数据选择范围不合法",
	ErrorAnalysisConfigInvalid:  "分析配置不合法",
	ErrorTaskNotFound:           "任务不存在",
	ErrorWorkerBusy:             "任务队列已满, 稍后重试",
}

type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	InnerError error  `json:"inner_error"`
}

func (err Error) Error() string {
	return err.Message
}

func (err Error) String() string {
	return err.InnerError.Error()
}

func NewError(code int, innerError error) *Error {
	if innerError != nil {
		var re = regexp.MustCompile(`[\n\t]+`)
		innerErrorString := re.ReplaceAllString(fmt.Sprintf("%+v", innerError), " ")
		log.Errorf("NewError code:%d, message:%s, innerError:%+v\n", code, ErrorMessages[code], innerErrorString)
	}
	return &Error{
		Code:       code,
		Message:    ErrorMessages[code],
		InnerError: nil,
	}
}

func NewErrorWithMessage(code int, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		InnerError: nil,
	}
}
