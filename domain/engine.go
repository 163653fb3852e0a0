package domain

import (
	"context"
	"io"
)

// StateSnapshot is an immutable view of the engine's shared state. Versions
// are monotonically increasing per value; consumers memoize derived views
// (issue tree, diagnostics) against them.
type StateSnapshot struct {
	RuleSets []RuleSet     `json:"ruleSets" yaml:"ruleSets"`
	Changes  []LocalChange `json:"changes" yaml:"changes"`

	AnalysisVersion uint64 `json:"analysisVersion" yaml:"analysisVersion"`
	ChangeVersion   uint64 `json:"changeVersion" yaml:"changeVersion"`
}

// PendingChanges returns the changes still awaiting a decision
func (s StateSnapshot) PendingChanges() []LocalChange {
	var pending []LocalChange
	for _, ch := range s.Changes {
		if ch.State == ChangeStatePending {
			pending = append(pending, ch)
		}
	}
	return pending
}

// ChangeCounts returns how many changes sit in each state
func (s StateSnapshot) ChangeCounts() (pending, applied, discarded int) {
	for _, ch := range s.Changes {
		switch ch.State {
		case ChangeStatePending:
			pending++
		case ChangeStateApplied:
			applied++
		case ChangeStateDiscarded:
			discarded++
		}
	}
	return pending, applied, discarded
}

// SolutionRequest represents a request to stage one fix-generator response
type SolutionRequest struct {
	// Path of the solution file (JSON or YAML)
	Path string
}

// SolutionResult summarizes the staging of one solution
type SolutionResult struct {
	StagedChanges   int      `json:"staged_changes" yaml:"staged_changes"`
	DroppedRenames  int      `json:"dropped_renames" yaml:"dropped_renames"`
	DroppedSections int      `json:"dropped_sections" yaml:"dropped_sections"`
	PatchFallbacks  []string `json:"patch_fallbacks,omitempty" yaml:"patch_fallbacks,omitempty"`
	GeneratorErrors []string `json:"generator_errors,omitempty" yaml:"generator_errors,omitempty"`
	Anomalies       []string `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	ChangeVersion   uint64   `json:"change_version" yaml:"change_version"`
}

// BatchFailure records one file that failed during a batch operation
type BatchFailure struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// BatchResult reports the per-file outcome of apply-all / discard-all.
// A failure never rolls back files that already succeeded.
type BatchResult struct {
	Succeeded []string       `json:"succeeded,omitempty" yaml:"succeeded,omitempty"`
	Failed    []BatchFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// StatusReport summarizes the engine state for the status command
type StatusReport struct {
	WorkspaceRoot   string `json:"workspace_root" yaml:"workspace_root"`
	AnalysisVersion uint64 `json:"analysis_version" yaml:"analysis_version"`
	ChangeVersion   uint64 `json:"change_version" yaml:"change_version"`

	RuleSets      int `json:"rule_sets" yaml:"rule_sets"`
	Violations    int `json:"violations" yaml:"violations"`
	Incidents     int `json:"incidents" yaml:"incidents"`
	AffectedFiles int `json:"affected_files" yaml:"affected_files"`

	PendingChanges   int `json:"pending_changes" yaml:"pending_changes"`
	AppliedChanges   int `json:"applied_changes" yaml:"applied_changes"`
	DiscardedChanges int `json:"discarded_changes" yaml:"discarded_changes"`
	OverlayEntries   int `json:"overlay_entries" yaml:"overlay_entries"`
}

// OutputFormatter defines the interface for rendering engine results
type OutputFormatter interface {
	// WriteTree writes the aggregated issue tree
	WriteTree(tree *IssueTree, format OutputFormat, writer io.Writer) error

	// WriteDiagnostics writes editor diagnostics grouped by file
	WriteDiagnostics(diagnostics []Diagnostic, format OutputFormat, writer io.Writer) error

	// WriteChanges writes the staged change list
	WriteChanges(changes []LocalChange, format OutputFormat, writer io.Writer) error

	// WriteIngest writes the outcome of one analysis merge
	WriteIngest(result *IngestResult, format OutputFormat, writer io.Writer) error

	// WriteSolution writes the outcome of staging one solution
	WriteSolution(result *SolutionResult, format OutputFormat, writer io.Writer) error

	// WriteBatch writes the per-file outcome of a batch apply or discard
	WriteBatch(result *BatchResult, format OutputFormat, writer io.Writer) error

	// WriteStatus writes the engine status report
	WriteStatus(report *StatusReport, format OutputFormat, writer io.Writer) error
}

// OverlayFS is the virtual filesystem holding proposed content, keyed by
// workspace-relative path. Real files are never touched through it.
type OverlayFS interface {
	// Stage records the original and proposed content for a path
	Stage(rel, original, proposed string)

	// Read resolves an overlay URI (proposed or read-only original scheme)
	Read(uri string) (string, error)

	// Proposed returns the staged proposed content for a path
	Proposed(rel string) (string, bool)

	// Original returns the content the proposal was computed from
	Original(rel string) (string, bool)

	// Remove drops the entry for a path
	Remove(rel string)

	// Reset drops all entries
	Reset()

	// List returns the staged paths in sorted order
	List() []string
}

// ProgressManager handles progress reporting for long-running operations
type ProgressManager interface {
	// StartTask creates a new progress task with a description and total count
	StartTask(description string, total int) TaskProgress

	// IsInteractive returns true if progress bars should be shown
	IsInteractive() bool

	// Close cleans up all progress tracking
	Close()
}

// TaskProgress tracks progress of a single task
type TaskProgress interface {
	// Increment adds n to the current progress
	Increment(n int)

	// Describe updates the current item description
	Describe(description string)

	// Complete marks the task as finished
	Complete()
}

// ExecutableTask is a unit of work runnable by the batch executor
type ExecutableTask interface {
	// Name identifies the task in error reports
	Name() string

	// IsEnabled reports whether the task should run
	IsEnabled() bool

	// Execute runs the task
	Execute(ctx context.Context) (any, error)
}

// ParallelExecutor runs tasks concurrently with bounded parallelism
type ParallelExecutor interface {
	// Execute runs all enabled tasks, collecting per-task failures
	Execute(ctx context.Context, tasks []ExecutableTask) error
}
