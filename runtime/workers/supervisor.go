package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pong-chat/contract"
	"pong-chat/errors"
)

const restartDelay = 200 * time.Millisecond

// Supervisor keeps the background workers of the relay alive (event fanout,
// stats reporter). A worker returning an error or panicking is restarted after
// restartDelay, a worker returning nil is done.
type Supervisor struct {
	log       *slog.Logger
	workers   []contract.Worker
	onRestart func(name string, cause error)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// OnRestart registers a callback invoked before each restart.
func (s *Supervisor) OnRestart(fn func(name string, cause error)) *Supervisor {
	s.onRestart = fn
	return s
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them returned.
// Canceling ctx or calling Stop ends them.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(ctx, worker)
	}
	s.wg.Wait()
}

// Start supervises one worker in its own goroutine.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	name := contract.GetWorkerName(worker)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, worker, name)
	}()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker, name string) {
	for attempt := 1; ; attempt++ {
		err := s.runRecovered(ctx, worker, name)
		switch {
		case ctx.Err() != nil:
			s.log.Info("Worker stopped", "name", name)
			return
		case err == nil:
			s.log.Info("Worker finished", "name", name)
			return
		}

		s.log.Warn("Worker crashed, restarting", "name", name, "attempt", attempt, "error", err)
		if s.onRestart != nil {
			s.onRestart(name, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func (s *Supervisor) runRecovered(ctx context.Context, worker contract.Worker, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panicked", "name", name, "panic", fmt.Sprint(r))
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every supervised worker. Run returns once they have all exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
