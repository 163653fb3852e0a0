package service

import (
	"log/slog"
	"path/filepath"

	"github.com/remedy-kit/remedy/domain"
)

// MergeStats summarizes what one merge did to the accumulated state
type MergeStats struct {
	Added           int
	Evicted         int
	UnknownRuleSets []string
}

// MergeEngine reconciles a new, possibly partial, analysis result against the
// previously accumulated result set. Scope is the set of workspace paths the
// producing analysis run actually covered: a file in scope with no incoming
// incidents was re-analyzed and found clean, a file outside scope was not
// re-analyzed and keeps its prior incidents.
type MergeEngine struct {
	logger *slog.Logger
}

// NewMergeEngine creates a merge engine
func NewMergeEngine(logger *slog.Logger) *MergeEngine {
	return &MergeEngine{logger: logger.With("component", "merge")}
}

// Merge returns a fresh accumulated set. The input slices are never mutated;
// consumers key memoization off the returned value's version token, so every
// call that changes anything must produce a new representation.
func (m *MergeEngine) Merge(accumulated, incoming []domain.RuleSet, scope []string) ([]domain.RuleSet, MergeStats) {
	var stats MergeStats

	if len(accumulated) == 0 {
		stats.Added = domain.TotalIncidents(incoming)
		return incoming, stats
	}

	inScope := scopeSet(scope)

	merged := make([]domain.RuleSet, 0, len(accumulated))
	for _, rs := range accumulated {
		merged = append(merged, m.evictScoped(rs, inScope, &stats))
	}

	for _, in := range incoming {
		idx := indexByName(merged, in.Name)
		if idx < 0 {
			if hasScopedIncidents(in, inScope) {
				m.logger.Warn("incoming ruleset has no accumulated counterpart, skipping",
					"ruleset", in.Name)
				stats.UnknownRuleSets = append(stats.UnknownRuleSets, in.Name)
			}
			continue
		}
		merged[idx] = m.appendScoped(merged[idx], in, inScope, &stats)
	}

	return merged, stats
}

// evictScoped copies one accumulated ruleset, dropping every incident whose
// file is in scope. Violations left without incidents stay in the ruleset.
func (m *MergeEngine) evictScoped(rs domain.RuleSet, inScope map[string]bool, stats *MergeStats) domain.RuleSet {
	out := rs
	if len(rs.Violations) == 0 {
		return out
	}

	out.Violations = make(map[string]domain.Violation, len(rs.Violations))
	for id, v := range rs.Violations {
		kept := make([]domain.Incident, 0, len(v.Incidents))
		for _, inc := range v.Incidents {
			if incidentInScope(inc, inScope) {
				stats.Evicted++
				continue
			}
			kept = append(kept, inc)
		}
		v.Incidents = kept
		out.Violations[id] = v
	}
	return out
}

// appendScoped merges one incoming ruleset's in-scope incidents into its
// accumulated counterpart, creating violation entries as needed.
func (m *MergeEngine) appendScoped(acc, in domain.RuleSet, inScope map[string]bool, stats *MergeStats) domain.RuleSet {
	for _, id := range in.ViolationIDs() {
		inV := in.Violations[id]

		scoped := make([]domain.Incident, 0, len(inV.Incidents))
		for _, inc := range inV.Incidents {
			if incidentInScope(inc, inScope) {
				scoped = append(scoped, inc)
			}
		}
		if len(scoped) == 0 {
			continue
		}

		if acc.Violations == nil {
			acc.Violations = make(map[string]domain.Violation)
		}
		if accV, ok := acc.Violations[id]; ok {
			accV.Incidents = append(append([]domain.Incident{}, accV.Incidents...), scoped...)
			acc.Violations[id] = accV
		} else {
			inV.Incidents = scoped
			acc.Violations[id] = inV
		}
		stats.Added += len(scoped)
	}
	return acc
}

// scopeSet normalizes scope paths for lookup
func scopeSet(scope []string) map[string]bool {
	set := make(map[string]bool, len(scope))
	for _, p := range scope {
		set[filepath.Clean(p)] = true
	}
	return set
}

// incidentInScope reports whether an incident's file is covered by the scope
func incidentInScope(inc domain.Incident, inScope map[string]bool) bool {
	path, err := domain.URIToPath(inc.URI)
	if err != nil {
		return false
	}
	return inScope[filepath.Clean(path)]
}

// hasScopedIncidents reports whether any violation in the ruleset carries an
// in-scope incident
func hasScopedIncidents(rs domain.RuleSet, inScope map[string]bool) bool {
	for _, v := range rs.Violations {
		for _, inc := range v.Incidents {
			if incidentInScope(inc, inScope) {
				return true
			}
		}
	}
	return false
}

// indexByName finds a ruleset by name, -1 when absent
func indexByName(ruleSets []domain.RuleSet, name string) int {
	for i, rs := range ruleSets {
		if rs.Name == name {
			return i
		}
	}
	return -1
}
