package service

import (
	"path/filepath"
	"testing"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/logging"
	"github.com/remedy-kit/remedy/internal/testutil"
)

const mergeRoot = "/work"

func mergePath(rel string) string {
	return filepath.Join(mergeRoot, rel)
}

func TestMerge_EmptyAccumulated(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	incoming := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3)),
	}

	merged, stats := m.Merge(nil, incoming, []string{mergePath("src/A.java")})

	if len(merged) != 1 || merged[0].Name != "rs" {
		t.Fatalf("expected incoming verbatim, got %+v", merged)
	}
	if merged[0].IncidentCount() != 1 {
		t.Errorf("expected 1 incident, got %d", merged[0].IncidentCount())
	}
	if stats.Added != 1 {
		t.Errorf("expected 1 added, got %d", stats.Added)
	}
	if stats.Evicted != 0 {
		t.Errorf("expected 0 evicted, got %d", stats.Evicted)
	}
}

func TestMerge_ScopedEviction(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3),
			testutil.MakeIncident(mergeRoot, "src/B.java", "msg", 7)),
	}

	merged, stats := m.Merge(accumulated, nil, []string{mergePath("src/A.java")})

	incidents := merged[0].Violations["rule-1"].Incidents
	if len(incidents) != 1 {
		t.Fatalf("expected 1 surviving incident, got %d", len(incidents))
	}
	if incidents[0].URI != domain.FileURI(mergePath("src/B.java")) {
		t.Errorf("expected B.java to survive, got %q", incidents[0].URI)
	}
	if stats.Evicted != 1 {
		t.Errorf("expected 1 evicted, got %d", stats.Evicted)
	}
}

func TestMerge_ScopedAddition(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/B.java", "msg", 7)),
	}
	incoming := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3)),
	}

	merged, stats := m.Merge(accumulated, incoming, []string{mergePath("src/A.java")})

	incidents := merged[0].Violations["rule-1"].Incidents
	if len(incidents) != 2 {
		t.Fatalf("expected both files' incidents, got %d", len(incidents))
	}
	files := domain.AffectedFiles(merged)
	if len(files) != 2 {
		t.Errorf("expected 2 affected files, got %v", files)
	}
	if stats.Added != 1 {
		t.Errorf("expected 1 added, got %d", stats.Added)
	}
}

func TestMerge_ReanalyzedFileNowClean(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3)),
	}

	// A.java was re-analyzed and came back with no incidents.
	merged, stats := m.Merge(accumulated, []domain.RuleSet{{Name: "rs"}}, []string{mergePath("src/A.java")})

	if got := merged[0].IncidentCount(); got != 0 {
		t.Errorf("expected no incidents after clean re-analysis, got %d", got)
	}
	if _, ok := merged[0].Violations["rule-1"]; !ok {
		t.Error("emptied violation should remain in the ruleset")
	}
	if stats.Evicted != 1 {
		t.Errorf("expected 1 evicted, got %d", stats.Evicted)
	}
}

func TestMerge_OutOfScopeIncomingDropped(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/B.java", "old", 7)),
	}
	incoming := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/C.java", "new", 1)),
	}

	merged, stats := m.Merge(accumulated, incoming, []string{mergePath("src/A.java")})

	incidents := merged[0].Violations["rule-1"].Incidents
	if len(incidents) != 1 || incidents[0].Message != "old" {
		t.Errorf("out-of-scope incoming incident should be dropped, got %v", incidents)
	}
	if stats.Added != 0 {
		t.Errorf("expected 0 added, got %d", stats.Added)
	}
}

func TestMerge_UnknownRuleSetSkipped(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("known", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/B.java", "msg", 7)),
	}
	incoming := []domain.RuleSet{
		testutil.MakeRuleSet("unknown", "rule-2",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3)),
	}

	merged, stats := m.Merge(accumulated, incoming, []string{mergePath("src/A.java")})

	if len(merged) != 1 || merged[0].Name != "known" {
		t.Fatalf("unknown ruleset must not be adopted, got %+v", merged)
	}
	if len(stats.UnknownRuleSets) != 1 || stats.UnknownRuleSets[0] != "unknown" {
		t.Errorf("expected unknown ruleset recorded, got %v", stats.UnknownRuleSets)
	}
}

func TestMerge_NewViolationEntryCreated(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/B.java", "msg", 7)),
	}
	incoming := []domain.RuleSet{
		{
			Name: "rs",
			Violations: map[string]domain.Violation{
				"rule-2": {
					Description: "second rule",
					Category:    domain.CategoryOptional,
					Effort:      3,
					Incidents: []domain.Incident{
						testutil.MakeIncident(mergeRoot, "src/A.java", "msg2", 1),
					},
				},
			},
		},
	}

	merged, _ := m.Merge(accumulated, incoming, []string{mergePath("src/A.java")})

	v, ok := merged[0].Violations["rule-2"]
	if !ok {
		t.Fatal("expected violation entry rule-2 to be created")
	}
	if v.Description != "second rule" || v.Category != domain.CategoryOptional || v.Effort != 3 {
		t.Errorf("violation metadata not carried over: %+v", v)
	}
}

func TestMerge_InputsNotMutated(t *testing.T) {
	m := NewMergeEngine(logging.NewDiscardLogger())

	accumulated := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "msg", 3),
			testutil.MakeIncident(mergeRoot, "src/B.java", "msg", 7)),
	}
	incoming := []domain.RuleSet{
		testutil.MakeRuleSet("rs", "rule-1",
			testutil.MakeIncident(mergeRoot, "src/A.java", "fresh", 4)),
	}

	merged, _ := m.Merge(accumulated, incoming, []string{mergePath("src/A.java")})

	if got := len(accumulated[0].Violations["rule-1"].Incidents); got != 2 {
		t.Errorf("accumulated input mutated: %d incidents", got)
	}
	if got := len(incoming[0].Violations["rule-1"].Incidents); got != 1 {
		t.Errorf("incoming input mutated: %d incidents", got)
	}
	if got := len(merged[0].Violations["rule-1"].Incidents); got != 2 {
		t.Errorf("expected evict-then-add to yield 2 incidents, got %d", got)
	}
}
