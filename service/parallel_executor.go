package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/config"
)

// Executor fallbacks. NewParallelExecutor sizes concurrency by CPU count;
// NewParallelExecutorFromConfig falls back to DefaultMaxConcurrency when the
// configured value is unusable.
const (
	DefaultMaxConcurrency = 4
	DefaultTimeout        = 2 * time.Minute
)

// TaskError is one task's failure, labeled with the task name so batch
// reports can name the file that failed.
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError carries every failure of one batch. Callers unpack it into
// per-file outcomes instead of treating the batch as a single failure.
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks failed:\n", len(e.Errors))
	for i, te := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, te.Error())
	}
	return sb.String()
}

// Unwrap returns the first failure for errors.Is/As chains
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ParallelExecutorImpl runs independent per-file tasks concurrently. Batch
// apply and discard go through it: files are independent, so every task runs
// to completion and failures are collected rather than short-circuiting.
type ParallelExecutorImpl struct {
	maxConcurrency int
	timeout        time.Duration
	progress       domain.ProgressManager
	mu             sync.RWMutex
}

// NewParallelExecutor creates an executor sized to the machine
func NewParallelExecutor() *ParallelExecutorImpl {
	return &ParallelExecutorImpl{
		maxConcurrency: runtime.NumCPU(),
		timeout:        DefaultTimeout,
	}
}

// NewParallelExecutorFromConfig creates an executor from the performance
// configuration, substituting defaults for zero or negative values.
func NewParallelExecutorFromConfig(cfg *config.PerformanceConfig) *ParallelExecutorImpl {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &ParallelExecutorImpl{
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
	}
}

// NewParallelExecutorWithProgress creates a configured executor that reports
// batch progress through pm.
func NewParallelExecutorWithProgress(cfg *config.PerformanceConfig, pm domain.ProgressManager) *ParallelExecutorImpl {
	executor := NewParallelExecutorFromConfig(cfg)
	executor.progress = pm
	return executor
}

// Execute runs every enabled task under the concurrency bound and the batch
// timeout. Failures are aggregated per task; a non-nil return is always an
// *AggregatedError naming each failed task. One task failing never cancels
// the others.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tasks []domain.ExecutableTask) error {
	enabled := make([]domain.ExecutableTask, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() {
			enabled = append(enabled, t)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	e.mu.RLock()
	maxConcurrency := e.maxConcurrency
	timeout := e.timeout
	e.mu.RUnlock()

	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var progress domain.TaskProgress = &NoOpTaskProgress{}
	if e.progress != nil {
		progress = e.progress.StartTask("Processing changes", len(enabled))
	}
	defer progress.Complete()

	g, gCtx := errgroup.WithContext(batchCtx)
	g.SetLimit(maxConcurrency)

	var failMu sync.Mutex
	var failures []TaskError
	fail := func(name string, err error) {
		failMu.Lock()
		failures = append(failures, TaskError{TaskName: name, Err: err})
		failMu.Unlock()
	}

	for _, t := range enabled {
		t := t
		g.Go(func() error {
			// A timed-out or cancelled batch still accounts for every
			// remaining task, so the report names all of them.
			select {
			case <-gCtx.Done():
				fail(t.Name(), gCtx.Err())
				return nil
			default:
			}

			_, err := t.Execute(gCtx)
			progress.Increment(1)
			if err != nil {
				fail(t.Name(), err)
			}

			// Goroutines always return nil: failures must not cancel the
			// sibling tasks through the errgroup.
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return &AggregatedError{Errors: failures}
	}
	return nil
}

// SetMaxConcurrency adjusts the concurrency bound; non-positive values are
// ignored.
func (e *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// SetTimeout adjusts the whole-batch timeout; non-positive values are ignored.
func (e *ParallelExecutorImpl) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timeout > 0 {
		e.timeout = timeout
	}
}
