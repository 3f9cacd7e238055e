// Package pool implements a fixed-size pool of isolated worker units that
// extract text from documents.
//
// Jobs are submitted via Submit, which returns a Future immediately. The pool
// assigns queued jobs to idle workers in FIFO order, never runs more than
// size jobs at once, and replaces workers that fault. Every submitted job
// resolves its Future exactly once, with either extracted text or an error.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                              Pool                                   │
//	│                                                                     │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐       │
//	│  │   Handle 1   │      │   Handle 2   │      │   Handle N   │       │
//	│  │   (Unit)     │      │   (Unit)     │      │   (Unit)     │       │
//	│  └──────▲───────┘      └──────▲───────┘      └──────▲───────┘       │
//	│         │ inbox               │                     │   events      │
//	│         └─────────────────────┼─────────────────────┘               │
//	│                        ┌──────┴──────┐                              │
//	│                        │   run()     │  single event loop           │
//	│                        │ dispatch()  │                              │
//	│                        └──────┬──────┘                              │
//	│  ┌────────────────────────────┴────────────────────────────┐        │
//	│  │                      Work Queue (FIFO)                  │        │
//	│  │  [job1] [job2] [job3] ...                               │        │
//	│  └─────────────────────────────────────────────────────────┘        │
//	│                               ▲                                     │
//	│                          Submit(job)                                │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Worker Handle Lifecycle
//
//	┌───────────┐   dispatch()   ┌───────────┐   result    ┌───────────┐
//	│   Idle    │ ─────────────► │   Busy    │ ──────────► │   Idle    │
//	└───────────┘                └─────┬─────┘             └───────────┘
//	                                   │ fault / timeout / exit
//	                                   ▼
//	                             ┌───────────┐   replace()  ┌───────────┐
//	                             │  Faulted  │ ───────────► │ new Idle  │
//	                             └───────────┘              └───────────┘
//
// A timed out handle is Retiring until its unit stops. Units are closed
// before they report their terminal event, so a replacement never overlaps
// the unit it replaces.
//
// A handle is busy if and only if it owns a pending request. The pool keeps
// the queue and the handle set on the run() goroutine; units only receive
// jobs on their inbox and report on the shared events channel.
//
// # Events
//
// The event loop reacts to:
//   - submit: push to the work queue, dispatch
//   - result: resolve the owner's Future, mark the handle idle, dispatch
//   - fault: resolve the owner's Future with a *WorkerFaultError, retire the
//     handle, spawn a replacement, dispatch
//   - timeout: resolve the owner's Future with a *WorkerFaultError wrapping
//     ErrJobTimeout and cancel the unit's context. The handle keeps its slot
//     until the unit stops, then a replacement is spawned
//   - spawned: add the new handle as idle, dispatch
//   - stop: idle units exit, busy units exit after their job, queued jobs
//     fail with ErrPoolClosed
//
// A processing error returned by the Extractor is a normal Result and does
// not affect the worker. A fault is a unit that dies: a recovered panic for
// in-process units, or a crashed child process for process units.
//
// # Replacement and Degraded Mode
//
// Replacements are spawned off the event loop with exponential backoff.
// When all attempts fail the pool keeps running with fewer workers and tries
// again on the next submission. If no worker is left and none is being
// spawned, queued jobs resolve with ErrNoWorkers.
//
// # Usage Example
//
//	p, err := pool.New(4, pool.NewInProcessSpawner(extractor), pool.WithJobTimeout(time.Minute))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	future := p.Submit(pool.Job{Locator: "/tmp/upload-1", Label: "report.pdf"})
//	result := <-future.C()
//	if result.Err != nil {
//	    log.Printf("extraction failed: %v", result.Err)
//	}
package pool
