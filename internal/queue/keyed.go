// Package queue 提供按 key 串行、跨 key 并行的后台任务队列。
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrClosed 表示队列已关闭，不再接受任务
var ErrClosed = errors.New("queue: closed")

// Job 是提交到队列的一个任务
type Job func(ctx context.Context)

// lane 是某个 key 的待执行任务列表
type lane struct {
	pending []Job
}

// KeyedQueue 保证同一个 key 的任务按提交顺序逐个执行，
// 不同 key 的任务在各自的 goroutine 中并发执行。
// Submit 从不阻塞调用方（Hub 的事件循环依赖这一点）。
type KeyedQueue struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

// NewKeyedQueue 创建队列。传给任务的 context 会在 Close 超时后被取消。
func NewKeyedQueue(logger *logrus.Logger) *KeyedQueue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KeyedQueue{
		ctx:    ctx,
		cancel: cancel,
		log:    logger.WithField("component", "keyed_queue"),
		lanes:  make(map[string]*lane),
	}
}

// Submit 将任务追加到 key 对应的队列末尾
func (q *KeyedQueue) Submit(key string, job Job) error {
	if job == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if l, ok := q.lanes[key]; ok {
		// 该 key 已有 goroutine 在运行，排队即可
		l.pending = append(l.pending, job)
		return nil
	}
	l := &lane{pending: []Job{job}}
	q.lanes[key] = l
	q.wg.Add(1)
	go q.drain(key, l)
	return nil
}

// drain 依次执行 lane 中的任务，队列清空后退出并移除 lane
func (q *KeyedQueue) drain(key string, l *lane) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		job := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		q.mu.Unlock()

		q.run(key, job)
	}
}

func (q *KeyedQueue) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("key", key).Errorf("Job panicked: %v", r)
		}
	}()
	job(q.ctx)
}

// Pending 返回 key 上尚未开始执行的任务数
func (q *KeyedQueue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		return len(l.pending)
	}
	return 0
}

// Close 停止接受新任务并等待已提交的任务执行完毕。
// ctx 到期时取消任务 context 并返回 ctx.Err()。
func (q *KeyedQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.log.Info("All queued jobs drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		q.log.Warn("Timeout waiting for queued jobs to drain")
		return ctx.Err()
	}
}
