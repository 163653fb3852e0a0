package app

import (
	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/service"
)

// IssuesUseCase builds read-side views over the accumulated analysis state
type IssuesUseCase struct {
	engine *Engine
}

// NewIssuesUseCase creates an issues use case
func NewIssuesUseCase(engine *Engine) *IssuesUseCase {
	return &IssuesUseCase{engine: engine}
}

// Tree returns the aggregated issue tree for the current analysis version.
// The aggregator memoizes on the version, so repeated reads between merges
// return the same tree.
func (uc *IssuesUseCase) Tree() *domain.IssueTree {
	snap := uc.engine.store.Snapshot()
	return uc.engine.aggregator.Tree(snap.RuleSets, snap.AnalysisVersion)
}

// Diagnostics flattens the accumulated incidents into editor markers
func (uc *IssuesUseCase) Diagnostics() []domain.Diagnostic {
	snap := uc.engine.store.Snapshot()
	return service.BuildDiagnostics(snap.RuleSets)
}
