package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/remedy-kit/remedy/domain"
)

// StageStats summarizes the degraded paths hit while staging a solution
type StageStats struct {
	PatchFallbacks []string
	Anomalies      []string
}

// ChangeLifecycle owns the pending -> applied/discarded state machine. It
// stages proposed content into the overlay, writes the real file on apply,
// and leaves it untouched on discard. Batch operations run per file through
// the parallel executor; files are independent, so one failure never aborts
// the rest.
type ChangeLifecycle struct {
	store    *StateStore
	overlay  domain.OverlayFS
	applier  *DiffApplier
	executor domain.ParallelExecutor
	logger   *slog.Logger
}

// NewChangeLifecycle creates a lifecycle manager
func NewChangeLifecycle(store *StateStore, overlay domain.OverlayFS, applier *DiffApplier, executor domain.ParallelExecutor, logger *slog.Logger) *ChangeLifecycle {
	return &ChangeLifecycle{
		store:    store,
		overlay:  overlay,
		applier:  applier,
		executor: executor,
		logger:   logger.With("component", "lifecycle"),
	}
}

// Stage installs a new solution cycle: the overlay is rebuilt from scratch
// and the staged change list replaces the previous one wholesale. A change
// whose diff does not apply is still staged, carrying the raw diff text as
// its proposed content, and is reported as a patch fallback.
func (l *ChangeLifecycle) Stage(changes []domain.LocalChange) (domain.StateSnapshot, StageStats) {
	var stats StageStats
	l.overlay.Reset()

	for _, ch := range changes {
		l.stageChange(ch, &stats)
	}

	snap := l.store.ReplaceChanges(changes)
	l.logger.Info("solution staged",
		"changes", len(changes),
		"fallbacks", len(stats.PatchFallbacks))
	return snap, stats
}

// Restage rebuilds overlay entries for the pending changes of a restored
// change list. The store is left alone; terminal changes need no overlay
// entry because they can never transition again.
func (l *ChangeLifecycle) Restage(changes []domain.LocalChange) StageStats {
	var stats StageStats
	for _, ch := range changes {
		if ch.State != domain.ChangeStatePending {
			continue
		}
		l.stageChange(ch, &stats)
	}
	return stats
}

func (l *ChangeLifecycle) stageChange(ch domain.LocalChange, stats *StageStats) {
	rel, err := proposedRel(ch.ModifiedURI)
	if err != nil {
		stats.Anomalies = append(stats.Anomalies, err.Error())
		return
	}

	original, err := l.readOriginal(ch.OriginalURI)
	if err != nil {
		stats.Anomalies = append(stats.Anomalies, fmt.Sprintf("%s: %v", rel, err))
	}

	proposed, err := l.applier.Apply(ch.OriginalURI, original, ch.Diff)
	if err != nil {
		stats.PatchFallbacks = append(stats.PatchFallbacks, rel)
	}

	l.overlay.Stage(rel, original, proposed)
}

// Apply commits one pending change: the real file is written first, the state
// transition follows. A failed write leaves the change pending.
func (l *ChangeLifecycle) Apply(ref string) (domain.LocalChange, error) {
	ch, err := l.store.FindChange(ref)
	if err != nil {
		return domain.LocalChange{}, err
	}
	if !ch.State.CanTransition(domain.ChangeStateApplied) {
		return domain.LocalChange{}, domain.NewChangeStateError(ch.ID, ch.State, domain.ChangeStateApplied)
	}

	rel, err := proposedRel(ch.ModifiedURI)
	if err != nil {
		return domain.LocalChange{}, err
	}
	proposed, ok := l.overlay.Proposed(rel)
	if !ok {
		return domain.LocalChange{}, domain.NewFileNotFoundError(ch.ModifiedURI, nil)
	}

	path, err := domain.URIToPath(ch.OriginalURI)
	if err != nil {
		return domain.LocalChange{}, err
	}
	if err := writePreservingMode(path, proposed); err != nil {
		return domain.LocalChange{}, domain.NewOutputError(fmt.Sprintf("cannot write %s", path), err)
	}

	updated, _, err := l.store.TransitionChange(ch.ID, domain.ChangeStateApplied)
	if err != nil {
		return domain.LocalChange{}, err
	}
	l.logger.Info("change applied", "path", path)
	return updated, nil
}

// Discard rejects one pending change: the real file stays untouched and the
// overlay entry is dropped.
func (l *ChangeLifecycle) Discard(ref string) (domain.LocalChange, error) {
	updated, _, err := l.store.TransitionChange(ref, domain.ChangeStateDiscarded)
	if err != nil {
		return domain.LocalChange{}, err
	}

	if rel, err := proposedRel(updated.ModifiedURI); err == nil {
		l.overlay.Remove(rel)
	}
	l.logger.Info("change discarded", "uri", updated.OriginalURI)
	return updated, nil
}

// ApplyAll applies every pending change, one task per file. Already-applied
// files stay applied when later ones fail; the result names both sides.
func (l *ChangeLifecycle) ApplyAll(ctx context.Context) domain.BatchResult {
	return l.batch(ctx, func(ch domain.LocalChange) error {
		_, err := l.Apply(ch.ID)
		return err
	})
}

// DiscardAll discards every pending change
func (l *ChangeLifecycle) DiscardAll(ctx context.Context) domain.BatchResult {
	return l.batch(ctx, func(ch domain.LocalChange) error {
		_, err := l.Discard(ch.ID)
		return err
	})
}

func (l *ChangeLifecycle) batch(ctx context.Context, op func(domain.LocalChange) error) domain.BatchResult {
	var result domain.BatchResult

	pending := l.store.Snapshot().PendingChanges()
	if len(pending) == 0 {
		return result
	}

	var mu sync.Mutex
	tasks := make([]domain.ExecutableTask, 0, len(pending))
	for _, ch := range pending {
		ch := ch
		label := changeLabel(ch)
		tasks = append(tasks, &changeTask{
			name: label,
			run: func(context.Context) error {
				if err := op(ch); err != nil {
					return err
				}
				mu.Lock()
				result.Succeeded = append(result.Succeeded, label)
				mu.Unlock()
				return nil
			},
		})
	}

	if err := l.executor.Execute(ctx, tasks); err != nil {
		var agg *AggregatedError
		if errors.As(err, &agg) {
			for _, te := range agg.Errors {
				result.Failed = append(result.Failed, domain.BatchFailure{
					Path:   te.TaskName,
					Reason: te.Err.Error(),
				})
			}
		} else {
			result.Failed = append(result.Failed, domain.BatchFailure{
				Path:   "batch",
				Reason: err.Error(),
			})
		}
	}

	sort.Strings(result.Succeeded)
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Path < result.Failed[j].Path
	})
	return result
}

func (l *ChangeLifecycle) readOriginal(uri string) (string, error) {
	path, err := domain.URIToPath(uri)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NewFileNotFoundError(path, err)
		}
		return "", err
	}
	return string(data), nil
}

// changeTask adapts one lifecycle operation to the executor's task interface
type changeTask struct {
	name string
	run  func(ctx context.Context) error
}

func (t *changeTask) Name() string { return t.name }

func (t *changeTask) IsEnabled() bool { return true }

func (t *changeTask) Execute(ctx context.Context) (any, error) {
	return nil, t.run(ctx)
}

// proposedRel extracts the workspace-relative path from a proposed-scheme URI
func proposedRel(uri string) (string, error) {
	scheme, rel, err := domain.ParseOverlayURI(uri)
	if err != nil {
		return "", err
	}
	if scheme != domain.ProposedScheme {
		return "", domain.NewInvalidPayloadError(fmt.Sprintf("not a proposed-content URI: %s", uri), nil)
	}
	return rel, nil
}

// changeLabel names a change in batch reports by its workspace file path
func changeLabel(ch domain.LocalChange) string {
	if p, err := domain.URIToPath(ch.OriginalURI); err == nil {
		return p
	}
	return ch.OriginalURI
}

// writePreservingMode writes content over path, keeping the existing file
// mode when the file is already there.
func writePreservingMode(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), mode)
}
