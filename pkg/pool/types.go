package pool

import (
	"context"
	"time"
)

// Job identifies one document to extract. Locator is opaque to the pool;
// Label is echoed back in the Result for correlation.
type Job struct {
	Locator string `json:"locator"`
	Label   string `json:"label"`
}

// Result is the outcome of a Job. Err == nil means Text holds the extracted content.
type Result struct {
	Label    string
	Text     string
	Err      error
	WorkerID string
	Elapsed  time.Duration
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// Extractor turns a job into text. A returned error is a processing error,
// reported to the caller as a normal Result.
type Extractor interface {
	Extract(ctx context.Context, job Job) (string, error)
}

type ExtractorFunc func(ctx context.Context, job Job) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, job Job) (string, error) {
	return f(ctx, job)
}

// Unit is an isolated execution context processing one job at a time.
type Unit interface {
	// Process runs the job. A non-nil error means the unit faulted and must
	// not be used again; processing failures travel inside the Result.
	Process(ctx context.Context, job Job) (Result, error)
	// Done is closed when the unit dies on its own. It may be nil.
	Done() <-chan struct{}
	// Err describes why the unit died once Done is closed.
	Err() error
	Close() error
}

// Spawner creates worker units.
type Spawner interface {
	Spawn(ctx context.Context, id string) (Unit, error)
}

// Observer receives pool lifecycle notifications. Calls are made from the
// pool's event loop and must not block.
type Observer interface {
	JobQueued(job Job)
	JobStarted(workerID string, job Job)
	JobFinished(result Result)
	WorkerSpawned(workerID string)
	WorkerFaulted(workerID string, withJob bool, err error)
	WorkerExited(workerID string)
	SpawnFailed(err error)
}

type noopObserver struct{}

func (noopObserver) JobQueued(Job)                     {}
func (noopObserver) JobStarted(string, Job)            {}
func (noopObserver) JobFinished(Result)                {}
func (noopObserver) WorkerSpawned(string)              {}
func (noopObserver) WorkerFaulted(string, bool, error) {}
func (noopObserver) WorkerExited(string)               {}
func (noopObserver) SpawnFailed(error)                 {}

// Stats is a snapshot of the pool taken on its event loop. Retiring counts
// timed out workers that still hold their slot until their unit stops.
type Stats struct {
	Size     int
	Idle     int
	Busy     int
	Retiring int
	Queued   int
	Spawning int
}

// Workers returns the number of live worker handles.
func (s Stats) Workers() int {
	return s.Idle + s.Busy
}

// Future is the caller's handle for a Result that will arrive exactly once.
type Future struct {
	c chan Result
}

func newFuture(c chan Result) *Future {
	return &Future{c: c}
}

func (f *Future) C() <-chan Result {
	return f.c
}

// Wait blocks until the result arrives or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-f.c:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
