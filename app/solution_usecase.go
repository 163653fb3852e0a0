package app

import (
	"context"
	"os"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/service"
)

// SolutionUseCase turns a fix-generator response into staged pending changes.
// Staging replaces the previous change cycle wholesale; per-record problems
// degrade into stats rather than failing the request.
type SolutionUseCase struct {
	engine *Engine
}

// NewSolutionUseCase creates a solution use case
func NewSolutionUseCase(engine *Engine) *SolutionUseCase {
	return &SolutionUseCase{engine: engine}
}

// Execute performs the complete staging workflow
func (uc *SolutionUseCase) Execute(ctx context.Context, req domain.SolutionRequest) (*domain.SolutionResult, error) {
	if req.Path == "" {
		return nil, domain.NewInvalidPayloadError("no solution payload path specified", nil)
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(req.Path, err)
	}

	sol, err := service.DecodeSolution(data)
	if err != nil {
		return nil, err
	}

	changes, tstats, err := uc.engine.translator.Translate(sol)
	if err != nil {
		return nil, err
	}

	snap, sstats := uc.engine.lifecycle.Stage(changes)

	if uc.engine.journal != nil {
		for _, ch := range changes {
			uc.engine.journal.RecordChangeEvent(
				ch.ID, uc.engine.changePath(ch), service.JournalEventStaged, "")
		}
	}

	return &domain.SolutionResult{
		StagedChanges:   len(changes),
		DroppedRenames:  tstats.DroppedRenames,
		DroppedSections: tstats.DroppedSections,
		PatchFallbacks:  sstats.PatchFallbacks,
		GeneratorErrors: sol.Errors,
		Anomalies:       append(tstats.Anomalies, sstats.Anomalies...),
		ChangeVersion:   snap.ChangeVersion,
	}, nil
}
