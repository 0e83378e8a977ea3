package worker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrQueueFull = errors.New("worker queue is full")
var ErrStopped = errors.New("worker pool stopped")

type Job func(ctx context.Context)

// Pool 有界任务池
// Submit 满了直接报错, 不阻塞触发方
type Pool struct {
	size  int
	queue chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewPool(size int, queueSize int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		size:   size,
		queue:  make(chan Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

// Submit 入队持锁, 和 Stop 的 close(queue) 互斥, 避免向已关闭通道发送
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop 停止接收新任务并等待在执行的任务结束
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for job := range p.queue {
		p.invoke(job)
	}
}

func (p *Pool) invoke(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker job panic, recover:%v", r)
		}
	}()
	job(p.ctx)
}
