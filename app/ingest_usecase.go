package app

import (
	"context"
	"os"
	"time"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/service"
)

// IngestUseCase orchestrates one analysis merge: decode the analyzer payload,
// normalize it, expand the declared scope, and reconcile it against the
// accumulated state. A payload or scope problem rejects the whole request
// before any state is touched.
type IngestUseCase struct {
	engine *Engine
}

// NewIngestUseCase creates an ingest use case
func NewIngestUseCase(engine *Engine) *IngestUseCase {
	return &IngestUseCase{engine: engine}
}

// Execute performs the complete ingest workflow
func (uc *IngestUseCase) Execute(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	start := time.Now()

	if req.Path == "" {
		return nil, domain.NewInvalidPayloadError("no analysis payload path specified", nil)
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(req.Path, err)
	}

	raw, err := service.DecodeRuleSets(data)
	if err != nil {
		return nil, err
	}
	ruleSets, anomalies := uc.engine.normalizer.Normalize(raw)

	// A payload referencing files outside the workspace is rejected wholesale;
	// letting foreign paths through would corrupt the file-scoped merge.
	payloadFiles := domain.AffectedFiles(ruleSets)
	for _, path := range payloadFiles {
		if !uc.engine.workspace.Contains(path) {
			return nil, domain.NewScopeMismatchError(path)
		}
	}

	scopeFiles := req.ScopeFiles
	switch {
	case req.Full:
		// A full run covers every workspace file plus whatever the payload
		// references, so gitignored files with findings still get evicted.
		scopeFiles = append(append([]string(nil), req.ScopeFiles...), payloadFiles...)
	case len(req.ScopeFiles) == 0 && len(req.ScopeDirs) == 0:
		// Without a declared scope the payload's own files are the best
		// approximation. Eviction then cannot reach files the run found
		// clean, so callers who know the true scope should pass it.
		scopeFiles = payloadFiles
		uc.engine.logger.Warn("no scope declared, inferring from payload",
			"files", len(payloadFiles))
	}

	scope, err := uc.engine.workspace.ExpandScope(scopeFiles, req.ScopeDirs, req.Full)
	if err != nil {
		return nil, err
	}

	var stats service.MergeStats
	snap, err := uc.engine.store.UpdateRuleSets(func(accumulated []domain.RuleSet) ([]domain.RuleSet, error) {
		merged, mergeStats := uc.engine.merger.Merge(accumulated, ruleSets, scope)
		stats = mergeStats
		return merged, nil
	})
	if err != nil {
		return nil, err
	}

	result := &domain.IngestResult{
		RuleSets:         len(snap.RuleSets),
		Violations:       domain.TotalViolations(snap.RuleSets),
		Incidents:        domain.TotalIncidents(snap.RuleSets),
		ScopeFiles:       len(scope),
		AddedIncidents:   stats.Added,
		EvictedIncidents: stats.Evicted,
		UnknownRuleSets:  stats.UnknownRuleSets,
		Anomalies:        anomalies,
		AnalysisVersion:  snap.AnalysisVersion,
		DurationMs:       time.Since(start).Milliseconds(),
		GeneratedAt:      start.UTC().Format(time.RFC3339),
	}

	if uc.engine.journal != nil {
		uc.engine.journal.RecordMerge(req.Path, *result)
	}

	return result, nil
}
