package constant

const (
	DefaultPageLimit = 10
)

const (
	EmptyString = ""
)

// 调度相关默认值
const (
	// DefaultComputeMaxRetries 计算服务调用默认最大尝试次数
	DefaultComputeMaxRetries = 3
	// DefaultComputeBackoffBaseMs 重试退避基数（毫秒），第 n 次重试等待 2^n * base
	DefaultComputeBackoffBaseMs = 300
	// DefaultComputeTimeoutSeconds 单次计算服务调用超时
	DefaultComputeTimeoutSeconds = 30
	// DefaultWorkerPoolSize 异步任务执行协程数
	DefaultWorkerPoolSize = 8
	// DefaultWorkerQueueSize 任务队列长度
	DefaultWorkerQueueSize = 64
	// DefaultRunningTimeoutMinutes 启动对账时判定 running 任务已僵死的阈值
	DefaultRunningTimeoutMinutes = 30
)
