package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const closeGracePeriod = 5 * time.Second

// ProcessSpawner starts every worker unit as a child process speaking the
// line protocol of Serve on its stdin and stdout.
type ProcessSpawner struct {
	binary string
	args   []string
	env    []string
}

func NewProcessSpawner(binary string, args []string, env ...string) *ProcessSpawner {
	return &ProcessSpawner{binary: binary, args: args, env: env}
}

func (s *ProcessSpawner) Spawn(_ context.Context, id string) (pool.Unit, error) {
	cmd := exec.Command(s.binary, s.args...)
	cmd.Env = append(os.Environ(), s.env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker process: %w", err)
	}

	u := &processUnit{
		id:      id,
		cmd:     cmd,
		stdin:   stdin,
		replies: make(chan []byte),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	stderrDone := make(chan struct{})
	go u.forwardStderr(stderr, stderrDone)
	go u.readReplies(stdout, stderrDone)

	zap.S().Named("worker").Debugw("worker process started", "worker", id, "pid", cmd.Process.Pid)

	return u, nil
}

type processUnit struct {
	id      string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan []byte
	closing chan struct{}
	done    chan struct{}

	mu         sync.Mutex
	err        error
	lastStderr string
	closeOnce  sync.Once
}

func (u *processUnit) Process(ctx context.Context, job pool.Job) (pool.Result, error) {
	line, err := json.Marshal(job)
	if err != nil {
		return pool.Result{}, err
	}
	if _, err := u.stdin.Write(append(line, '\n')); err != nil {
		return pool.Result{}, fmt.Errorf("failed to send job to worker process: %w", err)
	}

	select {
	case <-ctx.Done():
		u.kill()
		return pool.Result{}, ctx.Err()
	case data, ok := <-u.replies:
		if !ok {
			select {
			case <-u.done:
				return pool.Result{}, u.Err()
			case <-ctx.Done():
				u.kill()
				return pool.Result{}, ctx.Err()
			}
		}
		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			return pool.Result{}, fmt.Errorf("malformed reply from worker process: %w", err)
		}
		if reply.Label == "" {
			reply.Label = job.Label
		}
		res, err := reply.Result()
		if err != nil {
			return pool.Result{}, fmt.Errorf("malformed reply from worker process: %w", err)
		}
		return res, nil
	}
}

func (u *processUnit) Done() <-chan struct{} {
	return u.done
}

func (u *processUnit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Close ends the child by closing its stdin, and kills it if it is still
// running after the grace period.
func (u *processUnit) Close() error {
	u.closeOnce.Do(func() {
		close(u.closing)
		_ = u.stdin.Close()
		select {
		case <-u.done:
		case <-time.After(closeGracePeriod):
			zap.S().Named("worker").Warnw("worker process did not exit, killing it", "worker", u.id)
			u.kill()
			<-u.done
		}
	})
	return nil
}

func (u *processUnit) kill() {
	if err := u.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		zap.S().Named("worker").Debugw("failed to kill worker process", "worker", u.id, "error", err)
	}
}

func (u *processUnit) forwardStderr(r io.Reader, done chan<- struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		u.mu.Lock()
		u.lastStderr = line
		u.mu.Unlock()
		zap.S().Named("worker").Infow(line, "worker", u.id)
	}
}

// readReplies owns stdout. When the child closes it, the process is reaped and
// Done is closed. A reply that cannot be read kills the child, which would
// otherwise block writing to a pipe nobody drains.
func (u *processUnit) readReplies(r io.Reader, stderrDone <-chan struct{}) {
	scanner := newScanner(r)
	for scanner.Scan() {
		data := make([]byte, len(scanner.Bytes()))
		copy(data, scanner.Bytes())
		select {
		case u.replies <- data:
		case <-u.closing:
		}
	}
	close(u.replies)

	scanErr := scanner.Err()
	if scanErr != nil {
		u.kill()
	}

	<-stderrDone
	waitErr := u.cmd.Wait()

	u.mu.Lock()
	switch {
	case scanErr != nil:
		u.err = fmt.Errorf("failed to read reply from worker process: %w", scanErr)
	case waitErr != nil && u.lastStderr != "":
		u.err = fmt.Errorf("worker process exited: %w: %s", waitErr, u.lastStderr)
	case waitErr != nil:
		u.err = fmt.Errorf("worker process exited: %w", waitErr)
	default:
		u.err = pool.ErrWorkerExited
	}
	u.mu.Unlock()

	zap.S().Named("worker").Debugw("worker process exited", "worker", u.id, "error", u.Err())
	close(u.done)
}
