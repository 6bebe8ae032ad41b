package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Runner invokes ffmpeg with a per-invocation timeout and reports trimmed
// stderr on failure.
type Runner struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewRunner constructs an ffmpeg runner. A zero timeout disables the
// deadline.
func NewRunner(binary string, timeout time.Duration, opts ...Option) (*Runner, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	runner := &Runner{
		binary:  binary,
		timeout: timeout,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Binary returns the configured executable name or path.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes ffmpeg with the given arguments. When onProgress is non-nil
// the invocation is augmented with "-progress pipe:1" and parsed updates are
// forwarded. Failures carry the last meaningful stderr line; deadline
// expiry surfaces as context.DeadlineExceeded so callers can classify
// timeouts.
func (r *Runner) Run(ctx context.Context, args []string, onProgress func(Progress)) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	full := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	var onStdout func(string)
	if onProgress != nil {
		full = append(full, "-nostats", "-progress", "pipe:1")
		acc := newProgressAccumulator(onProgress)
		onStdout = acc.feed
	}

	tail := newStderrTail()
	err := r.exec.Run(runCtx, r.binary, full, onStdout, tail.feed)
	if err == nil {
		return nil
	}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg timed out after %s: %w", r.timeout, ctxErr)
		}
		return fmt.Errorf("ffmpeg canceled: %w", ctxErr)
	}
	if detail := tail.lastError(); detail != "" {
		return fmt.Errorf("ffmpeg: %w: %s", err, detail)
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// stderrTail keeps a bounded window of recent stderr lines so failure
// messages stay useful without buffering megabytes of filter logs.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
}

const (
	stderrTailLines   = 40
	stderrLineMaxSize = 200
)

func newStderrTail() *stderrTail {
	return &stderrTail{}
}

func (t *stderrTail) feed(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLines {
		t.lines = t.lines[len(t.lines)-stderrTailLines:]
	}
}

// lastError returns the last non-empty stderr line, truncated.
func (t *stderrTail) lastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(t.lines[i])
		if line == "" {
			continue
		}
		if len(line) > stderrLineMaxSize {
			return line[:stderrLineMaxSize] + "..."
		}
		return line
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
