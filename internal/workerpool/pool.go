package workerpool

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

type Task = func()

// Pool: фиксированное число воркеров над ограниченной очередью.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{tasks: make(chan Task, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	slog.Debug("workerpool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}
}

// паника в задаче не должна ронять воркер
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workerpool task panic",
				"worker_id", id,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	task()
}

// Submit ждёт места в очереди или отмены ctx.
func (p *Pool) Submit(ctx context.Context, task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	case <-ctx.Done():
		return false
	}
}

// TrySubmit не блокируется: false, если очередь заполнена или пул закрыт.
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown закрывает очередь и ждёт, пока воркеры доработают оставшиеся задачи.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Debug("workerpool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
