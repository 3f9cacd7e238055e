package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type request struct {
	job Job
	c   chan Result
}

// resolve must be called at most once per request.
func (r *request) resolve(res Result) {
	if res.Label == "" {
		res.Label = r.job.Label
	}
	r.c <- res
}

type workerHandle struct {
	id        string
	unit      Unit
	inbox     chan Job
	cancel    context.CancelFunc
	pending   *request
	startedAt time.Time
	seq       uint64
	timer     *time.Timer
	// retiring handles timed out and wait for their unit to stop. They
	// keep their slot so a replacement never runs next to them.
	retiring bool
}

func (h *workerHandle) busy() bool { return h.pending != nil }

// release hands the owned request back to the caller and stops its timer.
func (h *workerHandle) release() *request {
	r := h.pending
	h.pending = nil
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	return r
}

type eventKind int

const (
	eventResult eventKind = iota
	eventFault
	eventExit
	eventTimeout
	eventSpawned
)

type event struct {
	kind     eventKind
	workerID string
	result   Result
	err      error
	seq      uint64
	unit     Unit
}

type Pool struct {
	size     int
	spawner  Spawner
	observer Observer

	jobTimeout        time.Duration
	spawnMaxTries     uint
	spawnInitialDelay time.Duration
	spawnMaxDelay     time.Duration

	// owned by run()
	handles   map[string]*workerHandle
	idle      *queue[*workerHandle]
	workQueue *queue[*request]
	spawning  int
	closing   bool

	submit     chan *request
	events     chan event
	statsReq   chan chan Stats
	stop       chan any
	done       chan any
	mainCtx    context.Context
	mainCancel context.CancelFunc
	once       sync.Once
}

// New starts a fixed pool of size worker units created by spawner. Units are
// reused across jobs and replaced when they fault.
func New(size int, spawner Spawner, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:              size,
		spawner:           spawner,
		observer:          noopObserver{},
		spawnMaxTries:     5,
		spawnInitialDelay: 100 * time.Millisecond,
		spawnMaxDelay:     10 * time.Second,
		handles:           make(map[string]*workerHandle, size),
		idle:              &queue[*workerHandle]{},
		workQueue:         &queue[*request]{},
		submit:            make(chan *request),
		events:            make(chan event),
		statsReq:          make(chan chan Stats),
		stop:              make(chan any),
		done:              make(chan any),
		mainCtx:           ctx,
		mainCancel:        cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	ids := make([]string, 0, size)
	units := make([]Unit, 0, size)
	for range size {
		id := uuid.NewString()
		unit, err := spawner.Spawn(ctx, id)
		if err != nil {
			for _, u := range units {
				_ = u.Close()
			}
			cancel()
			return nil, fmt.Errorf("failed to spawn worker: %w", err)
		}
		ids = append(ids, id)
		units = append(units, unit)
	}
	for i := range units {
		p.addHandle(ids[i], units[i])
	}

	zap.S().Named("pool").Infow("worker pool started", "size", size)

	go p.run()
	return p, nil
}

// Submit queues the job and returns a future resolved exactly once. It never
// fails synchronously; a closed pool resolves the future with ErrPoolClosed.
func (p *Pool) Submit(job Job) *Future {
	r := &request{job: job, c: make(chan Result, 1)}

	select {
	case p.submit <- r:
	case <-p.done:
		r.resolve(Result{Err: ErrPoolClosed})
	}

	return newFuture(r.c)
}

// Stats returns a snapshot of the pool. A closed pool reports zero values.
func (p *Pool) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case p.statsReq <- reply:
		return <-reply
	case <-p.done:
		return Stats{}
	}
}

// Close stops the pool. In-flight jobs finish and resolve; queued jobs
// resolve with ErrPoolClosed. Close returns once every unit is closed,
// including units still stopping after a timeout. Close is idempotent.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		<-p.done
	})
}

func (p *Pool) run() {
	defer close(p.done)
	stop := p.stop
	for {
		select {
		case r := <-p.submit:
			p.enqueue(r)
		case e := <-p.events:
			p.handleEvent(e)
		case reply := <-p.statsReq:
			reply <- p.snapshot()
		case <-stop:
			stop = nil
			p.closing = true
			p.mainCancel()
			p.failQueued(ErrPoolClosed)
			zap.S().Named("pool").Infow("closing worker pool", "workers", len(p.handles))
		}

		if p.closing && len(p.handles) == 0 && p.spawning == 0 {
			zap.S().Named("pool").Info("worker pool closed")
			return
		}
	}
}

func (p *Pool) enqueue(r *request) {
	if p.closing {
		r.resolve(Result{Err: ErrPoolClosed})
		return
	}

	// degraded pools get another chance to grow back on each submission
	for len(p.handles)+p.spawning < p.size {
		p.replace()
	}

	p.workQueue.Push(r)
	p.observer.JobQueued(r.job)
	p.dispatch()
}

// dispatch drains the workQueue as much as possible
// based on idle workers
func (p *Pool) dispatch() {
	for p.idle.Len() > 0 && p.workQueue.Len() > 0 {
		r := p.workQueue.Pop()
		h := p.idle.Pop()
		p.assign(h, r)
	}
}

func (p *Pool) assign(h *workerHandle, r *request) {
	h.pending = r
	h.seq++
	h.startedAt = time.Now()
	h.inbox <- r.job

	if p.jobTimeout > 0 {
		id, seq := h.id, h.seq
		h.timer = time.AfterFunc(p.jobTimeout, func() {
			p.send(event{kind: eventTimeout, workerID: id, seq: seq})
		})
	}

	p.observer.JobStarted(h.id, r.job)
	zap.S().Named("pool").Debugw("job assigned", "worker", h.id, "label", r.job.Label)
}

func (p *Pool) handleEvent(e event) {
	if e.kind == eventSpawned {
		p.onSpawned(e)
		return
	}

	h, ok := p.handles[e.workerID]
	if !ok {
		zap.S().Named("pool").Debugw("ignoring event from retired worker", "worker", e.workerID)
		return
	}

	if h.retiring {
		if e.kind == eventFault || e.kind == eventExit {
			p.onRetired(h)
		}
		return
	}

	switch e.kind {
	case eventResult:
		p.onResult(h, e.result)
	case eventFault:
		p.onFault(h, e.err)
	case eventExit:
		p.onExit(h)
	case eventTimeout:
		if h.busy() && h.seq == e.seq {
			p.onTimeout(h)
		}
	}
}

func (p *Pool) onResult(h *workerHandle, res Result) {
	r := h.release()
	if r == nil {
		zap.S().Named("pool").Warnw("worker replied without owning a job", "worker", h.id)
		return
	}

	res.WorkerID = h.id
	res.Elapsed = time.Since(h.startedAt)
	r.resolve(res)
	p.observer.JobFinished(res)

	if res.Failed() {
		zap.S().Named("pool").Infow("job failed", "worker", h.id, "label", r.job.Label, "error", res.Err)
	} else {
		zap.S().Named("pool").Infow("job completed", "worker", h.id, "label", r.job.Label, "elapsed", res.Elapsed)
	}

	if p.closing {
		return
	}
	p.idle.Push(h)
	p.dispatch()
}

func (p *Pool) onFault(h *workerHandle, err error) {
	r := h.release()
	p.retire(h)
	p.observer.WorkerFaulted(h.id, r != nil, err)

	if r != nil {
		res := Result{
			Label:    r.job.Label,
			Err:      NewWorkerFaultError(h.id, err),
			WorkerID: h.id,
			Elapsed:  time.Since(h.startedAt),
		}
		r.resolve(res)
		p.observer.JobFinished(res)
		zap.S().Named("pool").Errorw("worker faulted while processing job", "worker", h.id, "label", r.job.Label, "error", err)
	} else {
		zap.S().Named("pool").Warnw("idle worker faulted", "worker", h.id, "error", err)
	}

	p.replace()
	p.dispatch()
}

// onTimeout resolves the job of a worker that ran past the timeout and asks
// its unit to stop. The slot is freed by onRetired once the unit is gone.
func (p *Pool) onTimeout(h *workerHandle) {
	r := h.release()
	h.retiring = true
	h.cancel()
	p.observer.WorkerFaulted(h.id, true, ErrJobTimeout)

	res := Result{
		Label:    r.job.Label,
		Err:      NewWorkerFaultError(h.id, ErrJobTimeout),
		WorkerID: h.id,
		Elapsed:  time.Since(h.startedAt),
	}
	r.resolve(res)
	p.observer.JobFinished(res)
	zap.S().Named("pool").Errorw("job timed out, stopping worker", "worker", h.id, "label", r.job.Label, "timeout", p.jobTimeout)
}

func (p *Pool) onRetired(h *workerHandle) {
	p.retire(h)
	zap.S().Named("pool").Debugw("timed out worker stopped", "worker", h.id)

	p.replace()
	p.dispatch()
}

func (p *Pool) onExit(h *workerHandle) {
	r := h.release()
	p.retire(h)

	if r != nil {
		res := Result{Label: r.job.Label, Err: ErrPoolClosed, WorkerID: h.id}
		if !p.closing {
			res.Err = NewWorkerFaultError(h.id, ErrWorkerExited)
		}
		r.resolve(res)
		p.observer.JobFinished(res)
	}

	p.observer.WorkerExited(h.id)
	zap.S().Named("pool").Debugw("worker exited", "worker", h.id)

	p.replace()
	p.dispatch()
}

func (p *Pool) onSpawned(e event) {
	p.spawning--

	if e.err != nil {
		p.observer.SpawnFailed(e.err)
		if !p.closing {
			zap.S().Named("pool").Errorw("failed to spawn replacement worker, running degraded",
				"error", e.err, "workers", len(p.handles), "size", p.size)
		}
		if len(p.handles) == 0 && p.spawning == 0 {
			p.failQueued(ErrNoWorkers)
		}
		return
	}

	if p.closing {
		_ = e.unit.Close()
		return
	}

	p.addHandle(e.workerID, e.unit)
	p.dispatch()
}

// replace spawns a new unit off the event loop.
func (p *Pool) replace() {
	if p.closing {
		return
	}
	p.spawning++

	go func() {
		id := uuid.NewString()
		unit, err := backoff.Retry(p.mainCtx, func() (Unit, error) {
			return p.spawner.Spawn(p.mainCtx, id)
		},
			backoff.WithBackOff(p.newBackOff()),
			backoff.WithMaxTries(p.spawnMaxTries),
			backoff.WithNotify(func(err error, d time.Duration) {
				zap.S().Named("pool").Warnw("spawn attempt failed", "worker", id, "error", err, "retry_in", d)
			}),
		)
		if !p.send(event{kind: eventSpawned, workerID: id, unit: unit, err: err}) && unit != nil {
			_ = unit.Close()
		}
	}()
}

func (p *Pool) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.spawnInitialDelay
	b.MaxInterval = p.spawnMaxDelay
	return b
}

func (p *Pool) addHandle(id string, unit Unit) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &workerHandle{
		id:     id,
		unit:   unit,
		inbox:  make(chan Job, 1),
		cancel: cancel,
	}
	p.handles[id] = h
	p.idle.Push(h)
	p.observer.WorkerSpawned(id)

	go p.work(ctx, id, unit, h.inbox)

	zap.S().Named("pool").Debugw("worker spawned", "worker", id)
}

// retire forgets the handle and cancels its unit's context. Events still
// sent by the unit are ignored from now on.
func (p *Pool) retire(h *workerHandle) {
	delete(p.handles, h.id)
	p.idle.Remove(func(w *workerHandle) bool { return w == h })
	h.cancel()
}

func (p *Pool) failQueued(err error) {
	for _, r := range p.workQueue.Drain() {
		res := Result{Label: r.job.Label, Err: err}
		r.resolve(res)
		p.observer.JobFinished(res)
	}
}

func (p *Pool) snapshot() Stats {
	busy, retiring := 0, 0
	for _, h := range p.handles {
		switch {
		case h.retiring:
			retiring++
		case h.busy():
			busy++
		}
	}
	return Stats{
		Size:     p.size,
		Idle:     p.idle.Len(),
		Busy:     busy,
		Retiring: retiring,
		Queued:   p.workQueue.Len(),
		Spawning: p.spawning,
	}
}

// send delivers an event to the loop. It reports false once the loop is gone.
func (p *Pool) send(e event) bool {
	select {
	case p.events <- e:
		return true
	case <-p.done:
		return false
	}
}

// work is the unit's side of the message contract: one job at a time, one
// event per job, and exactly one terminal event (exit or fault) sent after
// the unit is closed.
func (p *Pool) work(ctx context.Context, id string, unit Unit, inbox <-chan Job) {
	terminal := event{kind: eventExit, workerID: id}
	defer func() {
		if rec := recover(); rec != nil {
			terminal = event{kind: eventFault, workerID: id, err: fmt.Errorf("worker panicked: %v", rec)}
		}
		if err := unit.Close(); err != nil {
			zap.S().Named("pool").Debugw("failed to close worker unit", "worker", id, "error", err)
		}
		p.send(terminal)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-unit.Done():
			err := unit.Err()
			if err == nil {
				err = ErrWorkerExited
			}
			terminal = event{kind: eventFault, workerID: id, err: err}
			return
		case job := <-inbox:
			res, err := unit.Process(ctx, job)
			if err != nil {
				terminal = event{kind: eventFault, workerID: id, err: err}
				return
			}
			p.send(event{kind: eventResult, workerID: id, result: res})
		}
	}
}
