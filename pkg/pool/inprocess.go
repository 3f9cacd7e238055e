package pool

import "context"

// InProcessSpawner runs units as goroutines. A panic raised by the extractor
// kills the unit and is reported as a fault.
type InProcessSpawner struct {
	extractor Extractor
}

func NewInProcessSpawner(extractor Extractor) *InProcessSpawner {
	return &InProcessSpawner{extractor: extractor}
}

func (s *InProcessSpawner) Spawn(_ context.Context, _ string) (Unit, error) {
	return &inProcessUnit{extractor: s.extractor}, nil
}

type inProcessUnit struct {
	extractor Extractor
}

func (u *inProcessUnit) Process(ctx context.Context, job Job) (Result, error) {
	text, err := u.extractor.Extract(ctx, job)
	if err != nil {
		return Result{Label: job.Label, Err: err}, nil
	}
	return Result{Label: job.Label, Text: text}, nil
}

func (u *inProcessUnit) Done() <-chan struct{} { return nil }

func (u *inProcessUnit) Err() error { return nil }

func (u *inProcessUnit) Close() error { return nil }
