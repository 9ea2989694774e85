package process

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// ErrQueueFull is returned by Submit when the dispatcher cannot accept work.
var ErrQueueFull = errors.New("batch queue is full")

// ErrNotRunning is returned by Submit before Start or after Stop.
var ErrNotRunning = errors.New("dispatcher is not running")

// Handler runs one batch.
type Handler interface {
	Handle(ctx context.Context, batchID int64) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, batchID int64) error

func (f HandlerFunc) Handle(ctx context.Context, batchID int64) error { return f(ctx, batchID) }

// Dispatcher feeds batch ids to a fixed pool of workers. Two workers may
// receive the same id; the persisted claim lets only one of them run it.
type Dispatcher struct {
	handler Handler
	repo    repository.BatchRepository
	cfg     config.WorkerConfig

	mu      sync.Mutex
	queue   chan int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewDispatcher creates a stopped dispatcher. repo is only used for polling
// and may be nil.
func NewDispatcher(handler Handler, repo repository.BatchRepository, cfg config.WorkerConfig) *Dispatcher {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &Dispatcher{handler: handler, repo: repo, cfg: cfg}
}

// Start launches the workers and, when a poll interval is configured, a
// poller that resubmits batches waiting for export.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.queue = make(chan int64, d.cfg.QueueSize)
	d.running = true
	for i := 0; i < d.cfg.PoolSize; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
	if d.repo != nil && d.cfg.PollIntervalSeconds > 0 {
		d.wg.Add(1)
		go d.poll(ctx, time.Duration(d.cfg.PollIntervalSeconds)*time.Second)
	}
	logger.Infof("Dispatcher started with %d worker(s).", d.cfg.PoolSize)
}

// Submit queues a batch without blocking.
func (d *Dispatcher) Submit(batchID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- batchID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting work and waits for running batches to reach a
// terminal state. Batches still queued stay in their persisted state and are
// resumed later.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
	logger.Infof("Dispatcher stopped.")
}

func (d *Dispatcher) work(ctx context.Context, n int) {
	defer d.wg.Done()
	for id := range d.queue {
		if ctx.Err() != nil {
			continue
		}
		logger.Debugf("Worker %d picked batch %d.", n, id)
		// A started batch is never interrupted by Stop.
		if err := d.handler.Handle(context.WithoutCancel(ctx), id); err != nil {
			logger.Errorf("Worker %d: batch %d: %v", n, id, err)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context, every time.Duration) {
	defer d.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			batches, err := d.repo.FindBatchesByState(ctx, model.BatchWaitingExport)
			if err != nil {
				logger.Warnf("Polling waiting batches failed: %v", err)
				continue
			}
			for _, b := range batches {
				if err := d.Submit(b.ID); err != nil {
					logger.Debugf("Batch %d not queued: %v", b.ID, err)
					break
				}
			}
		}
	}
}
