package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scour-io/scour/internal/alert"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/metrics"
)

// ErrPoolClosed is returned when a task is submitted after Drain.
var ErrPoolClosed = errors.New("executor: pool closed")

// Pool bounds the number of shared-tier deletions running at once so a
// slow bulk recursive delete cannot stall the selection loop.
//
// Every submitted task is joined by Drain before process exit; a task
// that outlives the configured timeout is reported as stuck via the
// alert sink but still joined, because orphaning a physical deletion
// whose registry mutation never lands is the worse failure.
type Pool struct {
	slots   chan struct{}
	timeout time.Duration
	log     *logging.Logger
	alerts  alert.Sink
	metrics *metrics.CleanerMetrics

	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool running at most size tasks concurrently.
// taskTimeout of 0 disables the stuck-task watchdog.
func NewPool(size int, taskTimeout time.Duration, log *logging.Logger, alerts alert.Sink, m *metrics.CleanerMetrics) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		slots:   make(chan struct{}, size),
		timeout: taskTimeout,
		log:     log,
		alerts:  alerts,
		metrics: m,
	}
}

// Submit blocks until a worker slot is free, then runs the task in the
// background. The caller is never blocked longer than slot acquisition.
//
// ctx governs only the wait for a slot. The task itself runs under a
// context detached from ctx: an interrupt must not cancel a deletion
// already in flight, or Drain would join a task whose physical removal
// happened but whose registry mutation was aborted mid-way.
func (p *Pool) Submit(ctx context.Context, name string, run int, task func(context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	// Reserve before releasing the lock so Drain cannot close under a
	// task that has been accepted.
	p.wg.Add(1)
	p.mu.Unlock()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		p.wg.Done()
		return ctx.Err()
	}

	if p.metrics != nil {
		p.metrics.PoolDepth.Inc()
	}

	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer func() {
			<-p.slots
			if p.metrics != nil {
				p.metrics.PoolDepth.Dec()
			}
			p.wg.Done()
		}()

		var finished atomic.Bool
		var watchdog *time.Timer
		if p.timeout > 0 {
			watchdog = time.AfterFunc(p.timeout, func() {
				// Stop does not wait for a running callback, so a task
				// finishing as the timer fires could alert spuriously.
				if finished.Load() {
					return
				}
				if p.metrics != nil {
					p.metrics.PoolTimeouts.Inc()
				}
				msg := fmt.Sprintf("deletion task %q exceeded %s and is still running", name, p.timeout)
				p.log.WithRun(run).Errorf(msg, nil)
				if p.alerts != nil {
					p.alerts.Report(context.Background(), alert.PriorityError, msg, run)
				}
			})
		}

		task(taskCtx)

		finished.Store(true)
		if watchdog != nil {
			watchdog.Stop()
		}
	}()

	return nil
}

// Drain stops accepting tasks and waits for every submitted task to
// finish. It is called on every exit path, including interrupt.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
