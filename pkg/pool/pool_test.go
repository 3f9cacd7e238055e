package pool_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

// fakeUnit is a unit whose death can be triggered from the test.
type fakeUnit struct {
	extractor  pool.Extractor
	done       chan struct{}
	once       sync.Once
	closeDelay time.Duration
	closed     atomic.Bool
}

func (u *fakeUnit) Process(ctx context.Context, job pool.Job) (pool.Result, error) {
	text, err := u.extractor.Extract(ctx, job)
	if err != nil {
		return pool.Result{Label: job.Label, Err: err}, nil
	}
	return pool.Result{Label: job.Label, Text: text}, nil
}

func (u *fakeUnit) Done() <-chan struct{} { return u.done }

func (u *fakeUnit) Err() error { return errors.New("unit crashed") }

func (u *fakeUnit) Close() error {
	time.Sleep(u.closeDelay)
	u.closed.Store(true)
	u.crash()
	return nil
}

func (u *fakeUnit) crash() {
	u.once.Do(func() { close(u.done) })
}

type fakeSpawner struct {
	extractor  pool.Extractor
	closeDelay time.Duration
	fail       atomic.Bool
	mu         sync.Mutex
	units      []*fakeUnit
}

func (s *fakeSpawner) Spawn(_ context.Context, _ string) (pool.Unit, error) {
	if s.fail.Load() {
		return nil, errors.New("cannot spawn")
	}
	u := &fakeUnit{extractor: s.extractor, done: make(chan struct{}), closeDelay: s.closeDelay}
	s.mu.Lock()
	s.units = append(s.units, u)
	s.mu.Unlock()
	return u, nil
}

func (s *fakeSpawner) spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

func (s *fakeSpawner) unit(i int) *fakeUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.units[i]
}

type recordingObserver struct {
	mu            sync.Mutex
	faultsWithJob int
	faultsIdle    int
	spawnFailures int
	finished      int
}

func (o *recordingObserver) JobQueued(pool.Job) {}

func (o *recordingObserver) JobStarted(string, pool.Job) {}

func (o *recordingObserver) WorkerSpawned(string) {}

func (o *recordingObserver) WorkerExited(string) {}

func (o *recordingObserver) JobFinished(pool.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
}

func (o *recordingObserver) WorkerFaulted(_ string, withJob bool, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if withJob {
		o.faultsWithJob++
	} else {
		o.faultsIdle++
	}
}

func (o *recordingObserver) SpawnFailed(error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawnFailures++
}

func (o *recordingObserver) counts() (withJob, idle, spawnFailures int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.faultsWithJob, o.faultsIdle, o.spawnFailures
}

// echo returns "text of <label>", fails on "bad-*" labels and panics on "crash-*" labels.
func echo(_ context.Context, job pool.Job) (string, error) {
	switch {
	case len(job.Label) >= 4 && job.Label[:4] == "bad-":
		return "", errors.New("malformed document")
	case len(job.Label) >= 6 && job.Label[:6] == "crash-":
		panic("boom")
	}
	return "text of " + job.Label, nil
}

func receive(f *pool.Future) pool.Result {
	var r pool.Result
	EventuallyWithOffset(1, f.C(), 2*time.Second).Should(Receive(&r))
	return r
}

var _ = Describe("Pool", func() {
	var p *pool.Pool

	AfterEach(func() {
		if p != nil {
			p.Close()
			p = nil
		}
	})

	newPool := func(size int, e pool.ExtractorFunc, opts ...pool.Option) *pool.Pool {
		np, err := pool.New(size, pool.NewInProcessSpawner(e), opts...)
		Expect(err).NotTo(HaveOccurred())
		return np
	}

	Describe("New", func() {
		It("should reject a pool without workers", func() {
			_, err := pool.New(0, pool.NewInProcessSpawner(pool.ExtractorFunc(echo)))
			Expect(err).To(HaveOccurred())
		})

		It("should fail when the initial workers cannot be spawned", func() {
			s := &fakeSpawner{extractor: pool.ExtractorFunc(echo)}
			s.fail.Store(true)

			_, err := pool.New(2, s)
			Expect(err).To(MatchError(ContainSubstring("cannot spawn")))
		})

		It("should start with every worker idle", func() {
			p = newPool(3, echo)

			Expect(p.Stats()).To(Equal(pool.Stats{Size: 3, Idle: 3}))
		})
	})

	Describe("Submit", func() {
		It("should return the extracted content", func() {
			p = newPool(1, echo)

			r := receive(p.Submit(pool.Job{Locator: "/tmp/a", Label: "a.pdf"}))

			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Text).To(Equal("text of a.pdf"))
			Expect(r.Label).To(Equal("a.pdf"))
			Expect(r.WorkerID).NotTo(BeEmpty())
		})

		It("should report a processing error and keep the pool usable", func() {
			p = newPool(1, echo)

			r := receive(p.Submit(pool.Job{Label: "bad-1.pdf"}))
			Expect(r.Err).To(MatchError("malformed document"))
			Expect(r.Text).To(BeEmpty())
			Expect(pool.IsWorkerFault(r.Err)).To(BeFalse())

			next := receive(p.Submit(pool.Job{Label: "ok.pdf"}))
			Expect(next.Err).NotTo(HaveOccurred())
			Expect(next.WorkerID).To(Equal(r.WorkerID), "a processing error must not replace the worker")
		})

		It("should resolve a job whose worker panics and replace the worker", func() {
			p = newPool(1, echo)

			r := receive(p.Submit(pool.Job{Label: "crash-1.pdf"}))
			Expect(r.Err).To(HaveOccurred())
			Expect(pool.IsWorkerFault(r.Err)).To(BeTrue())
			Expect(r.Err.Error()).To(ContainSubstring("boom"))
			Expect(r.Label).To(Equal("crash-1.pdf"))

			Eventually(func() int { return p.Stats().Workers() }, 2*time.Second).Should(Equal(1))

			next := receive(p.Submit(pool.Job{Label: "ok.pdf"}))
			Expect(next.Err).NotTo(HaveOccurred())
			Expect(next.WorkerID).NotTo(Equal(r.WorkerID))
		})

		It("should not expect results when nothing is submitted", func() {
			p = newPool(2, echo)

			Consistently(func() pool.Stats { return p.Stats() }, 100*time.Millisecond).
				Should(Equal(pool.Stats{Size: 2, Idle: 2}))
		})
	})

	Describe("Concurrency bound", func() {
		It("should never process more jobs than workers", func() {
			var running, maxRunning atomic.Int32
			p = newPool(3, func(ctx context.Context, job pool.Job) (string, error) {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return job.Label, nil
			})

			futures := make([]*pool.Future, 0, 20)
			for i := range 20 {
				futures = append(futures, p.Submit(pool.Job{Label: fmt.Sprintf("job-%d", i)}))
			}

			for i, f := range futures {
				r := receive(f)
				Expect(r.Err).NotTo(HaveOccurred())
				Expect(r.Text).To(Equal(fmt.Sprintf("job-%d", i)))
			}
			Expect(maxRunning.Load()).To(BeNumerically("<=", 3))
			Expect(maxRunning.Load()).To(BeNumerically(">", 1))
		})

		It("should queue jobs while all workers are busy", func() {
			unblock := make(chan struct{})
			p = newPool(2, func(ctx context.Context, job pool.Job) (string, error) {
				<-unblock
				return job.Label, nil
			})

			var futures []*pool.Future
			for i := range 5 {
				futures = append(futures, p.Submit(pool.Job{Label: fmt.Sprintf("job-%d", i)}))
			}

			Eventually(func() pool.Stats { return p.Stats() }, time.Second).
				Should(Equal(pool.Stats{Size: 2, Busy: 2, Queued: 3}))

			close(unblock)
			for _, f := range futures {
				Expect(receive(f).Err).NotTo(HaveOccurred())
			}
		})
	})

	Describe("Ordering", func() {
		It("should process jobs one at a time in submission order with a single worker", func() {
			var mu sync.Mutex
			var order []string
			var running, maxRunning atomic.Int32
			p = newPool(1, func(ctx context.Context, job pool.Job) (string, error) {
				if n := running.Add(1); n > maxRunning.Load() {
					maxRunning.Store(n)
				}
				mu.Lock()
				order = append(order, job.Label)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return job.Label, nil
			})

			a := p.Submit(pool.Job{Label: "a"})
			b := p.Submit(pool.Job{Label: "b"})
			c := p.Submit(pool.Job{Label: "c"})

			Expect(receive(a).Text).To(Equal("a"))
			Expect(receive(b).Text).To(Equal("b"))
			Expect(receive(c).Text).To(Equal("c"))

			mu.Lock()
			defer mu.Unlock()
			Expect(order).To(Equal([]string{"a", "b", "c"}))
			Expect(maxRunning.Load()).To(Equal(int32(1)))
		})

		It("should assign waiting jobs in FIFO order", func() {
			started := make(chan string, 10)
			release := make(chan struct{})
			p = newPool(1, func(ctx context.Context, job pool.Job) (string, error) {
				started <- job.Label
				if job.Label == "blocker" {
					<-release
				}
				return job.Label, nil
			})

			blocker := p.Submit(pool.Job{Label: "blocker"})
			Eventually(started).Should(Receive(Equal("blocker")))

			var futures []*pool.Future
			for _, l := range []string{"first", "second", "third"} {
				futures = append(futures, p.Submit(pool.Job{Label: l}))
			}
			Eventually(func() int { return p.Stats().Queued }).Should(Equal(3))

			close(release)
			receive(blocker)
			for _, f := range futures {
				receive(f)
			}

			Expect(started).To(Receive(Equal("first")))
			Expect(started).To(Receive(Equal("second")))
			Expect(started).To(Receive(Equal("third")))
		})
	})

	Describe("Faults", func() {
		It("should deliver exactly one result per job when workers fault mid-job", func() {
			p = newPool(3, echo)

			futures := make([]*pool.Future, 0, 30)
			for i := range 30 {
				label := fmt.Sprintf("ok-%d", i)
				if i%3 == 0 {
					label = fmt.Sprintf("crash-%d", i)
				}
				futures = append(futures, p.Submit(pool.Job{Label: label}))
			}

			faults := 0
			for i, f := range futures {
				r := receive(f)
				if i%3 == 0 {
					Expect(pool.IsWorkerFault(r.Err)).To(BeTrue())
					faults++
				} else {
					Expect(r.Err).NotTo(HaveOccurred())
					Expect(r.Text).To(Equal(fmt.Sprintf("text of ok-%d", i)))
				}
			}
			Expect(faults).To(Equal(10))

			for _, f := range futures {
				Consistently(f.C(), 20*time.Millisecond).ShouldNot(Receive())
			}
		})

		It("should return to full size after replacing faulted workers", func() {
			p = newPool(2, echo)

			receive(p.Submit(pool.Job{Label: "crash-a"}))
			receive(p.Submit(pool.Job{Label: "crash-b"}))

			Eventually(func() int { return p.Stats().Workers() }, 2*time.Second).Should(Equal(2))
		})

		It("should replace a worker that dies while idle", func() {
			obs := &recordingObserver{}
			s := &fakeSpawner{extractor: pool.ExtractorFunc(echo)}
			var err error
			p, err = pool.New(1, s, pool.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())

			s.unit(0).crash()

			Eventually(s.spawned, time.Second).Should(Equal(2))
			Eventually(func() int { return p.Stats().Idle }, time.Second).Should(Equal(1))
			withJob, idle, _ := obs.counts()
			Expect(withJob).To(BeZero())
			Expect(idle).To(Equal(1))

			Expect(receive(p.Submit(pool.Job{Label: "after"})).Err).NotTo(HaveOccurred())
		})

		It("should treat a job running past the timeout as a fault", func() {
			p = newPool(1, func(ctx context.Context, job pool.Job) (string, error) {
				if job.Label == "slow" {
					<-ctx.Done()
					return "", ctx.Err()
				}
				return job.Label, nil
			}, pool.WithJobTimeout(50*time.Millisecond))

			r := receive(p.Submit(pool.Job{Label: "slow"}))
			Expect(r.Err).To(MatchError(pool.ErrJobTimeout))
			Expect(pool.IsWorkerFault(r.Err)).To(BeTrue())

			next := receive(p.Submit(pool.Job{Label: "fast"}))
			Expect(next.Err).NotTo(HaveOccurred())
			Expect(next.WorkerID).NotTo(Equal(r.WorkerID))
		})

		It("should keep the slot of a timed out worker until its extraction returns", func() {
			var running, maxRunning atomic.Int32
			release := make(chan struct{})
			p = newPool(1, func(_ context.Context, job pool.Job) (string, error) {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				defer running.Add(-1)
				if job.Label == "stuck" {
					<-release
				}
				return job.Label, nil
			}, pool.WithJobTimeout(50*time.Millisecond))

			stuck := p.Submit(pool.Job{Label: "stuck"})
			next := p.Submit(pool.Job{Label: "next"})

			r := receive(stuck)
			Expect(r.Err).To(MatchError(pool.ErrJobTimeout))

			Eventually(func() pool.Stats { return p.Stats() }, time.Second).
				Should(Equal(pool.Stats{Size: 1, Retiring: 1, Queued: 1}))
			Consistently(next.C(), 100*time.Millisecond).ShouldNot(Receive())

			close(release)
			n := receive(next)
			Expect(n.Err).NotTo(HaveOccurred())
			Expect(n.WorkerID).NotTo(Equal(r.WorkerID))
			Expect(maxRunning.Load()).To(Equal(int32(1)))
		})

		It("should fail queued jobs when no worker can be spawned", func() {
			obs := &recordingObserver{}
			s := &fakeSpawner{extractor: pool.ExtractorFunc(echo)}
			var err error
			p, err = pool.New(1, s, pool.WithObserver(obs), pool.WithSpawnRetry(2, time.Millisecond))
			Expect(err).NotTo(HaveOccurred())

			s.fail.Store(true)
			r := receive(p.Submit(pool.Job{Label: "crash-1"}))
			Expect(pool.IsWorkerFault(r.Err)).To(BeTrue())

			queued := receive(p.Submit(pool.Job{Label: "waiting"}))
			Expect(queued.Err).To(MatchError(pool.ErrNoWorkers))
			Eventually(func() int { _, _, f := obs.counts(); return f }).Should(BeNumerically(">=", 1))

			s.fail.Store(false)
			healed := receive(p.Submit(pool.Job{Label: "healed"}))
			Expect(healed.Err).NotTo(HaveOccurred())
			Expect(healed.Text).To(Equal("text of healed"))
		})
	})

	Describe("Close", func() {
		It("should resolve jobs submitted after Close", func() {
			p = newPool(1, echo)
			p.Close()

			r := receive(p.Submit(pool.Job{Label: "late"}))
			Expect(r.Err).To(MatchError(pool.ErrPoolClosed))
			Expect(r.Label).To(Equal("late"))
			Expect(p.Stats()).To(Equal(pool.Stats{}))
		})

		It("should wait for in-flight work and fail queued work", func() {
			started := make(chan struct{})
			unblock := make(chan struct{})
			p = newPool(1, func(ctx context.Context, job pool.Job) (string, error) {
				close(started)
				<-unblock
				return "done", nil
			})

			inFlight := p.Submit(pool.Job{Label: "in-flight"})
			Eventually(started, time.Second).Should(BeClosed())
			queued := p.Submit(pool.Job{Label: "queued"})

			closeDone := make(chan struct{})
			go func() {
				p.Close()
				close(closeDone)
			}()

			Expect(receive(queued).Err).To(MatchError(pool.ErrPoolClosed))
			Consistently(closeDone, 200*time.Millisecond).ShouldNot(BeClosed())

			close(unblock)
			Eventually(closeDone, time.Second).Should(BeClosed())
			Expect(receive(inFlight).Text).To(Equal("done"))
		})

		It("should return only after every unit is closed", func() {
			s := &fakeSpawner{extractor: pool.ExtractorFunc(echo), closeDelay: 100 * time.Millisecond}
			np, err := pool.New(2, s)
			Expect(err).NotTo(HaveOccurred())

			Expect(receive(np.Submit(pool.Job{Label: "a"})).Err).NotTo(HaveOccurred())
			np.Close()

			for i := range s.spawned() {
				Expect(s.unit(i).closed.Load()).To(BeTrue())
			}
		})

		It("should not spawn a replacement before the faulted unit is closed", func() {
			s := &fakeSpawner{extractor: pool.ExtractorFunc(echo), closeDelay: 100 * time.Millisecond}
			var err error
			p, err = pool.New(1, s)
			Expect(err).NotTo(HaveOccurred())

			receive(p.Submit(pool.Job{Label: "crash-1"}))

			Eventually(s.spawned, time.Second).Should(Equal(2))
			Expect(s.unit(0).closed.Load()).To(BeTrue())
		})

		It("should be idempotent", func() {
			p = newPool(2, echo)
			p.Close()
			p.Close()
		})

		It("should not leak goroutines after Close under load", func() {
			base := runtime.NumGoroutine()
			p = newPool(4, func(ctx context.Context, job pool.Job) (string, error) {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(10 * time.Millisecond):
					return job.Label, nil
				}
			})

			futures := make([]*pool.Future, 0, 200)
			for i := range 200 {
				futures = append(futures, p.Submit(pool.Job{Label: fmt.Sprintf("job-%d", i)}))
			}

			time.Sleep(50 * time.Millisecond)
			p.Close()
			p = nil

			for _, f := range futures {
				receive(f)
			}
			Eventually(runtime.NumGoroutine, 5*time.Second, 100*time.Millisecond).Should(BeNumerically("<=", base+10))
		})
	})
})
