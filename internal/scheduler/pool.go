package scheduler

import (
	"context"
	"sync"

	"github.com/vvka-141/pgfastload/internal/logging"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// Session is a worker's Action bound to a connection it holds for its
// whole lifetime.
type Session interface {
	Action
	Close() error
}

// SessionFactory opens one Session per worker.
type SessionFactory interface {
	NewSession(ctx context.Context, id CallerID) (Session, error)
}

// Pool runs a fixed number of workers over a job queue.
type Pool struct {
	Workers     int
	Queue       *JobQueue
	Coordinator *Coordinator
	Sessions    SessionFactory
	Logger      fastload.Logger
}

// Result reports how a run ended.
type Result struct {
	Summary Summary
	// WorkerErrors holds the error that stopped each worker, if any.
	WorkerErrors map[CallerID]error
	// Remaining is the number of jobs no worker popped.
	Remaining int
}

// Run starts the workers and waits for all of them. A worker that cannot
// open its session stops; the others carry on. The returned error is the
// context's, if it ended before the queue drained.
func (p *Pool) Run(ctx context.Context) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make(map[CallerID]error)
	)
	for i := 1; i <= workers; i++ {
		id := WorkerID(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.work(ctx, id, logging.WithWorker(logger, id)); err != nil {
				mu.Lock()
				errs[id] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	res := &Result{
		Summary:      p.Coordinator.Summary(),
		WorkerErrors: errs,
		Remaining:    p.Queue.Len(),
	}
	return res, ctx.Err()
}

func (p *Pool) work(ctx context.Context, id CallerID, logger fastload.Logger) error {
	session, err := p.Sessions.NewSession(ctx, id)
	if err != nil {
		logger.Error("cannot open a connection, worker stops: %v", err)
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing connection: %v", err)
		}
	}()

	logger.Verbose("started")
	defer logger.Verbose("queue drained")
	return Drain(ctx, p.Queue, p.Coordinator, &Caller{ID: id, Action: session, Logger: logger})
}

// Drain pops jobs until the queue is empty, loading each job's table as
// caller. Script mode calls it directly with a single caller.
func Drain(ctx context.Context, queue *JobQueue, coord *Coordinator, caller *Caller) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, ok := queue.TryPop()
		if !ok {
			return nil
		}
		if err := coord.EnsureLoaded(ctx, caller, job.Table); err != nil {
			return err
		}
	}
}
