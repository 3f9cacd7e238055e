package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

// maxLineSize bounds a single protocol line; extracted text travels inline.
const maxLineSize = 64 * 1024 * 1024

// ErrMalformedReply is returned for a reply that does not carry exactly one
// of content and error.
var ErrMalformedReply = errors.New("reply must carry exactly one of content and error")

// Reply is the line a worker process writes for every job it reads.
// Exactly one of Content and Error is set.
type Reply struct {
	Label   string  `json:"label"`
	Content *string `json:"content"`
	Error   *string `json:"error"`
}

func NewReply(label, content string, err error) Reply {
	if err != nil {
		msg := err.Error()
		return Reply{Label: label, Error: &msg}
	}
	return Reply{Label: label, Content: &content}
}

func (r Reply) Result() (pool.Result, error) {
	res := pool.Result{Label: r.Label}
	switch {
	case (r.Error == nil) == (r.Content == nil):
		return pool.Result{}, ErrMalformedReply
	case r.Error != nil:
		res.Err = &ProcessingError{Message: *r.Error}
	default:
		res.Text = *r.Content
	}
	return res, nil
}

// ProcessingError carries an extractor error reported by a worker process.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string {
	return e.Message
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return s
}

// Serve reads one job per line from in, extracts it and writes one Reply per
// line to out. It returns nil when in is exhausted. Panics raised by the
// extractor are not recovered: the process dies and the parent sees a fault.
func Serve(ctx context.Context, in io.Reader, out io.Writer, extractor pool.Extractor) error {
	scanner := newScanner(in)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var job pool.Job
		if err := json.Unmarshal(scanner.Bytes(), &job); err != nil {
			zap.S().Named("worker").Warnw("discarding malformed job", "error", err)
			if err := enc.Encode(NewReply("", "", fmt.Errorf("malformed job: %w", err))); err != nil {
				return fmt.Errorf("failed to write reply: %w", err)
			}
			continue
		}

		text, err := extractor.Extract(ctx, job)
		if err := enc.Encode(NewReply(job.Label, text, err)); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}

	return scanner.Err()
}
