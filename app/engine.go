package app

import (
	"log/slog"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/config"
	"github.com/remedy-kit/remedy/service"
)

// Engine wires the state store, overlay, lifecycle and persistence into one
// long-lived unit behind the use cases. Construction only wires; Start
// restores persisted state and begins mirroring, Close shuts the pieces down
// in dependency order.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	workspace *Workspace

	store      *service.StateStore
	overlay    domain.OverlayFS
	lifecycle  *service.ChangeLifecycle
	normalizer *service.ResultNormalizer
	merger     *service.MergeEngine
	aggregator *service.IssueAggregator
	translator *service.SolutionTranslator

	snapshots *service.SnapshotStore
	persister *service.StatePersister
	journal   *service.Journal

	started bool
}

// NewEngine builds an engine over the configured workspace. The journal is
// best-effort: when it cannot be opened the engine runs without history
// rather than failing.
func NewEngine(cfg *config.Config, logger *slog.Logger, progress domain.ProgressManager) (*Engine, error) {
	workspace, err := NewWorkspace(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}

	store := service.NewStateStore(logger)
	overlay := service.NewMemoryOverlay()
	applier := service.NewDiffApplier(logger)
	executor := service.NewParallelExecutorWithProgress(&cfg.Performance, progress)

	e := &Engine{
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
		workspace:  workspace,
		store:      store,
		overlay:    overlay,
		lifecycle:  service.NewChangeLifecycle(store, overlay, applier, executor, logger),
		normalizer: service.NewResultNormalizer(logger),
		merger:     service.NewMergeEngine(logger),
		aggregator: service.NewIssueAggregator(logger),
		translator: service.NewSolutionTranslator(workspace.Root(), logger),
	}

	e.snapshots = service.NewSnapshotStore(
		cfg.SnapshotDirPath(), cfg.Persistence.Retain, cfg.Persistence.Compress, logger)
	e.persister = service.NewStatePersister(store, e.snapshots, logger)

	if cfg.Persistence.Journal {
		journal, err := service.OpenJournal(cfg.JournalFilePath(), logger)
		if err != nil {
			logger.Warn("journal unavailable, continuing without history", "error", err)
		} else {
			e.journal = journal
		}
	}

	return e, nil
}

// Start restores the last persisted state and begins mirroring new state to
// disk. Restore runs first so the persister sees the restored versions as
// already saved.
func (e *Engine) Start() error {
	if err := e.restore(); err != nil {
		return err
	}
	e.persister.Start()
	e.started = true
	return nil
}

// restore seeds the store from the newest snapshots and rebuilds overlay
// entries for pending changes. Missing snapshots mean a fresh workspace.
func (e *Engine) restore() error {
	var ruleSets []domain.RuleSet
	name, err := e.snapshots.LoadLatest(service.SnapshotKindAnalysis, &ruleSets)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := e.store.UpdateRuleSets(func([]domain.RuleSet) ([]domain.RuleSet, error) {
			return ruleSets, nil
		}); err != nil {
			return err
		}
		e.logger.Info("analysis state restored",
			"snapshot", name,
			"rule_sets", len(ruleSets),
			"incidents", domain.TotalIncidents(ruleSets))
	}

	var changes []domain.LocalChange
	name, err = e.snapshots.LoadLatest(service.SnapshotKindSolution, &changes)
	if err != nil {
		return err
	}
	if name != "" {
		e.store.ReplaceChanges(changes)
		stats := e.lifecycle.Restage(changes)
		e.logger.Info("change state restored",
			"snapshot", name,
			"changes", len(changes),
			"fallbacks", len(stats.PatchFallbacks),
			"anomalies", len(stats.Anomalies))
	}

	return nil
}

// Close stops the persister by closing the store's event stream, then closes
// the journal. Safe to call on a never-started engine.
func (e *Engine) Close() error {
	e.store.Close()
	if e.started {
		e.persister.Wait()
	}
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

// Workspace returns the engine's workspace
func (e *Engine) Workspace() *Workspace {
	return e.workspace
}

// Snapshot returns the current state snapshot
func (e *Engine) Snapshot() domain.StateSnapshot {
	return e.store.Snapshot()
}

// Overlay exposes the virtual filesystem holding original and proposed
// content for staged changes
func (e *Engine) Overlay() domain.OverlayFS {
	return e.overlay
}

// Status summarizes the engine state for reporting
func (e *Engine) Status() domain.StatusReport {
	snap := e.store.Snapshot()
	pending, applied, discarded := snap.ChangeCounts()
	return domain.StatusReport{
		WorkspaceRoot:    e.workspace.Root(),
		AnalysisVersion:  snap.AnalysisVersion,
		ChangeVersion:    snap.ChangeVersion,
		RuleSets:         len(snap.RuleSets),
		Violations:       domain.TotalViolations(snap.RuleSets),
		Incidents:        domain.TotalIncidents(snap.RuleSets),
		AffectedFiles:    len(domain.AffectedFiles(snap.RuleSets)),
		PendingChanges:   pending,
		AppliedChanges:   applied,
		DiscardedChanges: discarded,
		OverlayEntries:   len(e.overlay.List()),
	}
}

// Reset clears the accumulated analysis state, the staged changes and every
// overlay entry. This is the only operation that removes rulesets wholesale.
func (e *Engine) Reset() domain.StateSnapshot {
	e.overlay.Reset()
	e.aggregator.Invalidate()
	snap := e.store.Reset()
	e.logger.Info("engine state reset",
		"analysis_version", snap.AnalysisVersion,
		"change_version", snap.ChangeVersion)
	return snap
}

// changePath renders a change's file as a workspace-relative path where
// possible, for journal records and reports
func (e *Engine) changePath(ch domain.LocalChange) string {
	p, err := domain.URIToPath(ch.OriginalURI)
	if err != nil {
		return ch.OriginalURI
	}
	if rel, err := e.workspace.Rel(p); err == nil {
		return rel
	}
	return p
}

// MergeHistory returns the newest merge records, empty without a journal
func (e *Engine) MergeHistory(limit int) ([]service.MergeRecord, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.MergeHistory(limit)
}

// ChangeHistory returns the newest change events, empty without a journal
func (e *Engine) ChangeHistory(limit int) ([]service.ChangeEventRecord, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.ChangeHistory(limit)
}
