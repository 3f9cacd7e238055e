package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned for jobs submitted to, or still queued in, a closed pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrJobTimeout is wrapped in a WorkerFaultError when a job runs past the job timeout.
	ErrJobTimeout = errors.New("job timed out")

	// ErrNoWorkers is returned when every worker is gone and none can be spawned.
	ErrNoWorkers = errors.New("no workers available")

	// ErrWorkerExited is used when a unit exits while owning a job.
	ErrWorkerExited = errors.New("worker exited")
)

// WorkerFaultError is the result error synthesised when a worker unit dies
// while processing a job.
type WorkerFaultError struct {
	WorkerID string
	Err      error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("worker %s faulted: %v", e.WorkerID, e.Err)
}

func (e *WorkerFaultError) Unwrap() error {
	return e.Err
}

func NewWorkerFaultError(workerID string, err error) error {
	return &WorkerFaultError{WorkerID: workerID, Err: err}
}

func IsWorkerFault(err error) bool {
	var e *WorkerFaultError
	return errors.As(err, &e)
}
