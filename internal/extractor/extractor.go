package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

var ErrSimulatedFailure = errors.New("simulated failure while processing the PDF")

// PDF extracts the plain text of the PDF file found at the job's locator.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (p *PDF) Extract(ctx context.Context, job pool.Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	zap.S().Named("extractor").Debugw("extracting text", "label", job.Label, "locator", job.Locator)

	f, r, err := pdf.Open(job.Locator)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", job.Label, err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", job.Label, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", job.Label, err)
	}

	return buf.String(), nil
}

type failing struct {
	next pool.Extractor
	rate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// WithFailureRate wraps ext so that a share of jobs equal to rate fails with
// ErrSimulatedFailure after being extracted. A nil rnd uses a random seed.
func WithFailureRate(ext pool.Extractor, rate float64, rnd *rand.Rand) pool.Extractor {
	if rate <= 0 {
		return ext
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &failing{next: ext, rate: rate, rnd: rnd}
}

func (f *failing) Extract(ctx context.Context, job pool.Job) (string, error) {
	text, err := f.next.Extract(ctx, job)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	fail := f.rnd.Float64() < f.rate
	f.mu.Unlock()

	if fail {
		return "", ErrSimulatedFailure
	}
	return text, nil
}
