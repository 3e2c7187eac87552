package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultRunTimeout bounds a single pipeline run.
const DefaultRunTimeout = 30 * time.Minute

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs the pipeline at a fixed interval from a single worker, so
// runs never overlap. The first run starts immediately.
type Scheduler struct {
	pipeline   PipelineRunner
	interval   time.Duration
	runTimeout time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	runQueue   chan struct{}
}

// NewScheduler builds a scheduler. An interval of 0 disables periodic runs;
// Trigger still works.
func NewScheduler(pipeline PipelineRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		pipeline:   pipeline,
		interval:   interval,
		runTimeout: DefaultRunTimeout,
		ctx:        ctx,
		cancel:     cancel,
		runQueue:   make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if s.interval <= 0 {
		slog.Info("Periodic pipeline runs disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueRun()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRun()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Trigger queues a run. At most one run waits behind the current one.
func (s *Scheduler) Trigger() error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.runQueue <- struct{}{}:
		return nil
	default:
		return fmt.Errorf("a pipeline run is already queued")
	}
}

func (s *Scheduler) enqueueRun() {
	if err := s.Trigger(); err != nil {
		slog.Debug("Skipping scheduled run", "reason", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.runQueue:
			s.executeRun()
		}
	}
}

func (s *Scheduler) executeRun() {
	runCtx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	run, err := s.pipeline.Run(runCtx)
	if err != nil {
		slog.Error("Pipeline run failed", "error", err)
		return
	}

	slog.Debug("Scheduled run finished", "run_id", run.ID, "status", string(run.Status))
}
