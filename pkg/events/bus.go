package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventName 进程内事件名, 集合固定
type EventName string

const (
	FileUploaded    EventName = "FILE_UPLOADED"
	FileSoftDeleted EventName = "FILE_SOFT_DELETED"

	QualityStarted   EventName = "QUALITY_STARTED"
	QualityCompleted EventName = "QUALITY_COMPLETED"
	QualityFailed    EventName = "QUALITY_FAILED"

	CleaningStarted   EventName = "CLEANING_STARTED"
	CleaningCompleted EventName = "CLEANING_COMPLETED"
	CleaningFailed    EventName = "CLEANING_FAILED"

	AnalysisStarted   EventName = "ANALYSIS_STARTED"
	AnalysisCompleted EventName = "ANALYSIS_COMPLETED"
	AnalysisFailed    EventName = "ANALYSIS_FAILED"
)

// Payload 事件负载
// 版本号和摘要按事件类型按需填写
type Payload struct {
	FileID          string
	Path            string
	TaskID          string
	QualityVersion  int64
	CleaningVersion int64
	Version         int64
	SummaryJSON     string
	ErrorJSON       string
}

type Handler func(event EventName, payload *Payload)

var (
	instance *Bus
	once     sync.Once
)

// Bus 进程内同步事件总线
// 订阅者按注册顺序同步执行, 单个订阅者 panic 不影响其余订阅者
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventName][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventName][]Handler)}
}

func GetInstance() *Bus {
	once.Do(func() {
		instance = NewBus()
	})
	return instance
}

func (b *Bus) Subscribe(event EventName, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) Emit(event EventName, payload *Payload) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(event, payload, handler)
	}
}

func (b *Bus) invoke(event EventName, payload *Payload, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event subscriber panic, event:%s, recover:%v", event, r)
		}
	}()
	handler(event, payload)
}
