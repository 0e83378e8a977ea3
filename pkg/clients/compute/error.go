package compute

import "fmt"

// Error 计算服务调用失败
// Retryable 为 true 表示超时/传输失败/5xx 这类可重试的错误
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Detail     string
	Retryable  bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("compute %s: %s", e.Code, e.Message)
}

func newStatusError(statusCode int, detail string) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       fmt.Sprintf("FASTAPI_%d", statusCode),
		Message:    fmt.Sprintf("compute service returned status %d", statusCode),
		Detail:     detail,
		Retryable:  statusCode >= 500,
	}
}

func newTransportError(err error) *Error {
	return &Error{
		Code:      "FASTAPI_UNREACHABLE",
		Message:   "compute service unreachable",
		Detail:    err.Error(),
		Retryable: true,
	}
}

func newBusinessError(code int, msg string) *Error {
	return &Error{
		Code:      fmt.Sprintf("COMPUTE_%d", code),
		Message:   msg,
		Retryable: false,
	}
}

// AsError 把任意错误规整成 *Error
func AsError(err error) (*Error, bool) {
	computeErr, ok := err.(*Error)
	return computeErr, ok
}
