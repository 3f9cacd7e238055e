package pool

import "time"

type Option func(*Pool)

// WithJobTimeout treats a worker that holds a job longer than d as faulted.
// Zero disables the timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.jobTimeout = d
	}
}

func WithObserver(o Observer) Option {
	return func(p *Pool) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithSpawnRetry sets how many times a replacement spawn is attempted and the
// initial delay of its exponential backoff.
func WithSpawnRetry(maxTries uint, initialDelay time.Duration) Option {
	return func(p *Pool) {
		if maxTries > 0 {
			p.spawnMaxTries = maxTries
		}
		if initialDelay > 0 {
			p.spawnInitialDelay = initialDelay
		}
	}
}
