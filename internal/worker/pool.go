package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is a unit of detached work. The context is cancelled when the pool stops.
type Job func(ctx context.Context)

// Dispatcher hands jobs off for asynchronous execution.
type Dispatcher interface {
	// Submit queues job and reports whether it was accepted. It never blocks.
	Submit(job Job) bool
}

type Config struct {
	Workers   int
	QueueSize int
	Logger    logrus.FieldLogger
}

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue.
type Pool struct {
	cfg   Config
	queue chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Pool{
		cfg:   cfg,
		queue: make(chan Job, cfg.QueueSize),
	}
}

// Start launches the workers. Jobs see a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.cfg.Logger.Infof("worker pool started with %d workers", p.cfg.Workers)
}

func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.queue <- job:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting jobs, lets workers drain what is already queued,
// and waits for them. If ctx expires first the job context is cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stop()
		p.cfg.Logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.stop()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.execute(id, job)
	}
}

func (p *Pool) execute(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.WithField("worker", id).Errorf("job panicked: %v", r)
		}
	}()
	job(p.ctx)
}

// Inline runs every job synchronously on the caller's goroutine.
type Inline struct{}

func (Inline) Submit(job Job) bool {
	job(context.Background())
	return true
}

var (
	_ Dispatcher = (*Pool)(nil)
	_ Dispatcher = Inline{}
)
