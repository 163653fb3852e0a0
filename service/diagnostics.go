package service

import (
	"sort"

	"github.com/remedy-kit/remedy/domain"
)

// BuildDiagnostics flattens the accumulated rulesets into one editor marker
// per incident. Lines are 0-based; severity derives from the owning
// violation's category. Order is deterministic: rulesets in slice order,
// violations by sorted ID, incidents in encounter order.
func BuildDiagnostics(ruleSets []domain.RuleSet) []domain.Diagnostic {
	var diags []domain.Diagnostic

	for _, rs := range ruleSets {
		for _, id := range rs.ViolationIDs() {
			v := rs.Violations[id]
			severity := domain.SeverityForCategory(v.Category)
			for _, inc := range v.Incidents {
				line := inc.LineNumber - 1
				if line < 0 {
					line = 0
				}
				diags = append(diags, domain.Diagnostic{
					URI:      inc.URI,
					Line:     line,
					Severity: severity,
					Message:  inc.Message,
					Code:     id,
					Source:   rs.Name,
				})
			}
		}
	}

	return diags
}

// GroupDiagnosticsByURI buckets markers per file, each bucket sorted by line
func GroupDiagnosticsByURI(diags []domain.Diagnostic) map[string][]domain.Diagnostic {
	grouped := make(map[string][]domain.Diagnostic)
	for _, d := range diags {
		grouped[d.URI] = append(grouped[d.URI], d)
	}
	for uri := range grouped {
		bucket := grouped[uri]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].Line < bucket[j].Line })
		grouped[uri] = bucket
	}
	return grouped
}
