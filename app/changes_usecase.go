package app

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/service"
)

// ChangesUseCase drives the accept/reject lifecycle over staged changes.
// Single-change operations take a reference, which may be a change ID, a
// file URI or a workspace path.
type ChangesUseCase struct {
	engine *Engine
}

// NewChangesUseCase creates a changes use case
func NewChangesUseCase(engine *Engine) *ChangesUseCase {
	return &ChangesUseCase{engine: engine}
}

// List returns the staged changes sorted by file path
func (uc *ChangesUseCase) List() []domain.LocalChange {
	snap := uc.engine.store.Snapshot()
	changes := append([]domain.LocalChange{}, snap.Changes...)
	sort.Slice(changes, func(i, j int) bool {
		return uc.engine.changePath(changes[i]) < uc.engine.changePath(changes[j])
	})
	return changes
}

// Find resolves a reference to its staged change
func (uc *ChangesUseCase) Find(ref string) (domain.LocalChange, error) {
	return uc.resolve(ref)
}

// Apply commits one pending change to the real file
func (uc *ChangesUseCase) Apply(ref string) (domain.LocalChange, error) {
	ch, err := uc.resolve(ref)
	if err != nil {
		return domain.LocalChange{}, err
	}
	applied, err := uc.engine.lifecycle.Apply(ch.ID)
	if err != nil {
		return domain.LocalChange{}, err
	}
	uc.recordEvent(applied, service.JournalEventApplied, "")
	return applied, nil
}

// Discard rejects one pending change, leaving the real file untouched. The
// reason, when given, is kept in the change history.
func (uc *ChangesUseCase) Discard(ref, reason string) (domain.LocalChange, error) {
	ch, err := uc.resolve(ref)
	if err != nil {
		return domain.LocalChange{}, err
	}
	discarded, err := uc.engine.lifecycle.Discard(ch.ID)
	if err != nil {
		return domain.LocalChange{}, err
	}
	uc.recordEvent(discarded, service.JournalEventDiscarded, reason)
	return discarded, nil
}

// resolve widens a reference lookup: IDs, URIs and absolute paths match the
// store directly, workspace-relative paths are resolved against the root.
func (uc *ChangesUseCase) resolve(ref string) (domain.LocalChange, error) {
	ch, err := uc.engine.store.FindChange(ref)
	if err == nil {
		return ch, nil
	}
	if !filepath.IsAbs(ref) && !strings.HasPrefix(ref, domain.FileURIPrefix) {
		if resolved, rerr := uc.engine.store.FindChange(uc.engine.workspace.Abs(ref)); rerr == nil {
			return resolved, nil
		}
	}
	return domain.LocalChange{}, err
}

// ApplyAll applies every pending change, independently per file
func (uc *ChangesUseCase) ApplyAll(ctx context.Context) domain.BatchResult {
	result := uc.engine.lifecycle.ApplyAll(ctx)
	uc.recordBatch(result, service.JournalEventApplied, "")
	return result
}

// DiscardAll discards every pending change
func (uc *ChangesUseCase) DiscardAll(ctx context.Context, reason string) domain.BatchResult {
	result := uc.engine.lifecycle.DiscardAll(ctx)
	uc.recordBatch(result, service.JournalEventDiscarded, reason)
	return result
}

func (uc *ChangesUseCase) recordEvent(ch domain.LocalChange, event, detail string) {
	if uc.engine.journal == nil {
		return
	}
	uc.engine.journal.RecordChangeEvent(ch.ID, uc.engine.changePath(ch), event, detail)
}

// recordBatch journals the successful side of a batch result. Batch labels
// are file paths, which FindChange resolves back to the change.
func (uc *ChangesUseCase) recordBatch(result domain.BatchResult, event, detail string) {
	if uc.engine.journal == nil {
		return
	}
	for _, path := range result.Succeeded {
		ch, err := uc.engine.store.FindChange(path)
		if err != nil {
			continue
		}
		uc.engine.journal.RecordChangeEvent(ch.ID, uc.engine.changePath(ch), event, detail)
	}
}
