package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/config"
	"github.com/remedy-kit/remedy/internal/logging"
	"github.com/remedy-kit/remedy/internal/testutil"
)

const appSource = "import javax.inject.Inject;\nclass App {}\n"

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := testutil.TempWorkspace(t, map[string]string{
		"pom.xml":       "<project>\n  <module>legacy</module>\n</project>\n",
		"src/App.java":  appSource,
		"src/Util.java": "class Util {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Workspace.Root = root

	engine, err := NewEngine(cfg, logging.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine, root
}

// writeAnalysisPayload writes an analyzer result with one incident per given
// (rel, message) pair, all under the konveyor-java ruleset.
func writeAnalysisPayload(t *testing.T, root, name string, incidents map[string]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("- name: konveyor-java\n")
	b.WriteString("  description: Java migration rules\n")
	if len(incidents) > 0 {
		b.WriteString("  violations:\n")
		b.WriteString("    jakarta-0001:\n")
		b.WriteString("      description: Replace javax imports\n")
		b.WriteString("      category: mandatory\n")
		b.WriteString("      effort: 1\n")
		b.WriteString("      incidents:\n")
		for rel, msg := range incidents {
			fmt.Fprintf(&b, "        - uri: %s\n", domain.FileURI(filepath.Join(root, rel)))
			fmt.Fprintf(&b, "          message: %s\n", msg)
			b.WriteString("          lineNumber: 1\n")
		}
	} else {
		b.WriteString("  violations: {}\n")
	}
	return testutil.WriteWorkspaceFile(t, root, name, b.String())
}

// appDiff rewrites the javax import in src/App.java
const appDiff = `--- a/src/App.java
+++ b/src/App.java
@@ -1,2 +1,2 @@
-import javax.inject.Inject;
+import jakarta.inject.Inject;
 class App {}
`

func writeSolutionPayload(t *testing.T, root string) string {
	t.Helper()
	payload := fmt.Sprintf(
		`{"changes":[{"original":"src/App.java","modified":"src/App.java","diff":%q}]}`,
		appDiff)
	return testutil.WriteWorkspaceFile(t, root, "solution.json", payload)
}

func TestIngestUseCase_FirstMerge(t *testing.T) {
	engine, root := newTestEngine(t)
	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
		"pom.xml":      "upgrade module layout",
	})

	result, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload,
		Full: true,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.RuleSets != 1 {
		t.Errorf("Expected 1 ruleset, got %d", result.RuleSets)
	}
	if result.Incidents != 2 {
		t.Errorf("Expected 2 incidents, got %d", result.Incidents)
	}
	if result.AddedIncidents != 2 {
		t.Errorf("Expected 2 added incidents, got %d", result.AddedIncidents)
	}
	if result.EvictedIncidents != 0 {
		t.Errorf("Expected no evictions on first merge, got %d", result.EvictedIncidents)
	}
	if result.AnalysisVersion == 0 {
		t.Error("analysis version must advance on merge")
	}
	if result.GeneratedAt == "" {
		t.Error("Expected a generation timestamp")
	}
}

func TestIngestUseCase_PartialMergeEvictsInScope(t *testing.T) {
	engine, root := newTestEngine(t)
	ingest := NewIngestUseCase(engine)

	first := writeAnalysisPayload(t, root, "full.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
		"pom.xml":      "upgrade module layout",
	})
	if _, err := ingest.Execute(context.Background(), domain.IngestRequest{Path: first, Full: true}); err != nil {
		t.Fatalf("full ingest failed: %v", err)
	}

	// Re-analysis of src/App.java alone came back clean
	second := writeAnalysisPayload(t, root, "partial.yaml", nil)
	result, err := ingest.Execute(context.Background(), domain.IngestRequest{
		Path:       second,
		ScopeFiles: []string{"src/App.java"},
	})
	if err != nil {
		t.Fatalf("partial ingest failed: %v", err)
	}

	if result.EvictedIncidents != 1 {
		t.Errorf("Expected 1 evicted incident, got %d", result.EvictedIncidents)
	}
	if result.Incidents != 1 {
		t.Errorf("Expected 1 surviving incident, got %d", result.Incidents)
	}
	if result.ScopeFiles != 1 {
		t.Errorf("Expected scope of 1 file, got %d", result.ScopeFiles)
	}

	snap := engine.Snapshot()
	for _, rs := range snap.RuleSets {
		for _, v := range rs.Violations {
			for _, inc := range v.Incidents {
				if strings.Contains(inc.URI, "App.java") {
					t.Errorf("in-scope incident should have been evicted: %s", inc.URI)
				}
			}
		}
	}
}

func TestIngestUseCase_OutOfScopeIncidentsKept(t *testing.T) {
	engine, root := newTestEngine(t)
	ingest := NewIngestUseCase(engine)

	first := writeAnalysisPayload(t, root, "full.yaml", map[string]string{
		"pom.xml": "upgrade module layout",
	})
	if _, err := ingest.Execute(context.Background(), domain.IngestRequest{Path: first, Full: true}); err != nil {
		t.Fatalf("full ingest failed: %v", err)
	}

	// Partial run over src only; the pom.xml incident was not re-analyzed
	second := writeAnalysisPayload(t, root, "partial.yaml", map[string]string{
		"src/Util.java": "new finding",
	})
	result, err := ingest.Execute(context.Background(), domain.IngestRequest{
		Path:      second,
		ScopeDirs: []string{"src"},
	})
	if err != nil {
		t.Fatalf("partial ingest failed: %v", err)
	}

	if result.Incidents != 2 {
		t.Errorf("Expected pom incident kept plus new one, got %d incidents", result.Incidents)
	}
	if result.AddedIncidents != 1 {
		t.Errorf("Expected 1 added incident, got %d", result.AddedIncidents)
	}
	if result.EvictedIncidents != 0 {
		t.Errorf("Expected no evictions, got %d", result.EvictedIncidents)
	}
}

func TestIngestUseCase_UnknownRuleSetReported(t *testing.T) {
	engine, root := newTestEngine(t)
	ingest := NewIngestUseCase(engine)

	first := writeAnalysisPayload(t, root, "full.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
	})
	if _, err := ingest.Execute(context.Background(), domain.IngestRequest{Path: first, Full: true}); err != nil {
		t.Fatalf("full ingest failed: %v", err)
	}

	stranger := fmt.Sprintf(`- name: konveyor-quarkus
  violations:
    quarkus-0001:
      category: optional
      incidents:
        - uri: %s
          message: adopt quarkus config
          lineNumber: 3
`, domain.FileURI(filepath.Join(root, "src/App.java")))
	second := testutil.WriteWorkspaceFile(t, root, "stranger.yaml", stranger)

	result, err := ingest.Execute(context.Background(), domain.IngestRequest{
		Path:       second,
		ScopeFiles: []string{"src/App.java"},
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if len(result.UnknownRuleSets) != 1 || result.UnknownRuleSets[0] != "konveyor-quarkus" {
		t.Errorf("Expected konveyor-quarkus reported unknown, got %v", result.UnknownRuleSets)
	}
	if result.Incidents != 0 {
		t.Errorf("eviction still applies; expected 0 incidents, got %d", result.Incidents)
	}
}

func TestIngestUseCase_InfersScopeFromPayload(t *testing.T) {
	engine, root := newTestEngine(t)
	ingest := NewIngestUseCase(engine)

	first := writeAnalysisPayload(t, root, "full.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
		"pom.xml":      "upgrade module layout",
	})
	if _, err := ingest.Execute(context.Background(), domain.IngestRequest{Path: first, Full: true}); err != nil {
		t.Fatalf("full ingest failed: %v", err)
	}

	// No scope declared: eviction reaches only the files the payload names
	second := writeAnalysisPayload(t, root, "unscoped.yaml", map[string]string{
		"src/App.java": "use jakarta.inject instead",
	})
	result, err := ingest.Execute(context.Background(), domain.IngestRequest{Path: second})
	if err != nil {
		t.Fatalf("unscoped ingest failed: %v", err)
	}

	if result.ScopeFiles != 1 {
		t.Errorf("Expected inferred scope of 1 file, got %d", result.ScopeFiles)
	}
	if result.EvictedIncidents != 1 || result.AddedIncidents != 1 {
		t.Errorf("Expected the App.java incident replaced, got added %d evicted %d",
			result.AddedIncidents, result.EvictedIncidents)
	}
	if result.Incidents != 2 {
		t.Errorf("Expected pom incident kept, got %d incidents", result.Incidents)
	}
}

func TestIngestUseCase_RejectsForeignPaths(t *testing.T) {
	engine, root := newTestEngine(t)

	foreign := fmt.Sprintf(`- name: konveyor-java
  violations:
    jakarta-0001:
      description: Replace javax imports
      incidents:
        - uri: %s
          message: replace javax.inject
          lineNumber: 1
`, domain.FileURI("/somewhere/else/Legacy.java"))
	path := testutil.WriteWorkspaceFile(t, root, "foreign.yaml", foreign)

	_, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: path, Full: true,
	})
	testutil.AssertErrorCode(t, err, domain.ErrCodeScopeMismatch)

	if v := engine.Snapshot().AnalysisVersion; v != 0 {
		t.Errorf("foreign payload must not touch state, version moved to %d", v)
	}
}

func TestIngestUseCase_RejectsBadRequests(t *testing.T) {
	engine, root := newTestEngine(t)
	ingest := NewIngestUseCase(engine)

	tests := []struct {
		name string
		req  domain.IngestRequest
		code string
	}{
		{"empty path", domain.IngestRequest{}, domain.ErrCodeInvalidPayload},
		{"missing payload", domain.IngestRequest{Path: filepath.Join(root, "nope.yaml")}, domain.ErrCodeFileNotFound},
		{"scope outside workspace", domain.IngestRequest{
			Path:       writeAnalysisPayload(t, root, "ok.yaml", nil),
			ScopeFiles: []string{"../outside.java"},
		}, domain.ErrCodeScopeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.Execute(context.Background(), tt.req)
			testutil.AssertErrorCode(t, err, tt.code)
		})
	}

	if v := engine.Snapshot().AnalysisVersion; v != 0 {
		t.Errorf("rejected requests must not touch state, version moved to %d", v)
	}
}

func TestSolutionUseCase_StagesChanges(t *testing.T) {
	engine, root := newTestEngine(t)

	result, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.StagedChanges != 1 {
		t.Fatalf("Expected 1 staged change, got %d", result.StagedChanges)
	}
	if len(result.PatchFallbacks) != 0 {
		t.Errorf("diff applies cleanly, got fallbacks %v", result.PatchFallbacks)
	}
	if result.ChangeVersion == 0 {
		t.Error("change version must advance on staging")
	}

	proposed, err := engine.Overlay().Read(domain.ProposedURI("src/App.java"))
	if err != nil {
		t.Fatalf("overlay read failed: %v", err)
	}
	if !strings.Contains(proposed, "jakarta.inject") {
		t.Errorf("proposed content not patched: %q", proposed)
	}

	original, err := engine.Overlay().Read(domain.OriginalURI("src/App.java"))
	if err != nil {
		t.Fatalf("overlay read failed: %v", err)
	}
	if original != appSource {
		t.Errorf("original content mismatch: %q", original)
	}

	if data := testutil.ReadWorkspaceFile(t, root, "src/App.java"); data != appSource {
		t.Error("staging must not touch the real file")
	}
}

func TestSolutionUseCase_RawDiffFallback(t *testing.T) {
	engine, root := newTestEngine(t)

	badDiff := "--- a/src/App.java\n+++ b/src/App.java\n@@ -1,1 +1,1 @@\n-not the real first line\n+import jakarta.inject.Inject;\n"
	payload := fmt.Sprintf(
		`{"changes":[{"original":"src/App.java","modified":"src/App.java","diff":%q}]}`, badDiff)
	path := testutil.WriteWorkspaceFile(t, root, "bad-solution.json", payload)

	result, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{Path: path})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.PatchFallbacks) != 1 || result.PatchFallbacks[0] != "src/App.java" {
		t.Fatalf("Expected src/App.java as patch fallback, got %v", result.PatchFallbacks)
	}

	proposed, err := engine.Overlay().Read(domain.ProposedURI("src/App.java"))
	if err != nil {
		t.Fatalf("overlay read failed: %v", err)
	}
	if proposed != badDiff {
		t.Errorf("fallback must stage the raw diff, got %q", proposed)
	}
}

func TestSolutionUseCase_RejectsBadRequests(t *testing.T) {
	engine, root := newTestEngine(t)
	solution := NewSolutionUseCase(engine)

	_, err := solution.Execute(context.Background(), domain.SolutionRequest{})
	testutil.AssertErrorCode(t, err, domain.ErrCodeInvalidPayload)

	_, err = solution.Execute(context.Background(), domain.SolutionRequest{
		Path: filepath.Join(root, "nope.json"),
	})
	testutil.AssertErrorCode(t, err, domain.ErrCodeFileNotFound)
}

func TestChangesUseCase_ApplyWritesFile(t *testing.T) {
	engine, root := newTestEngine(t)
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}

	changes := NewChangesUseCase(engine)
	applied, err := changes.Apply("src/App.java")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied.State != domain.ChangeStateApplied {
		t.Errorf("Expected applied state, got %s", applied.State)
	}

	data := testutil.ReadWorkspaceFile(t, root, "src/App.java")
	if !strings.Contains(data, "jakarta.inject") {
		t.Errorf("real file not rewritten: %q", data)
	}

	// Terminal states reject further transitions
	_, err = changes.Apply(applied.ID)
	testutil.AssertErrorCode(t, err, domain.ErrCodeChangeState)
	_, err = changes.Discard(applied.ID, "")
	testutil.AssertErrorCode(t, err, domain.ErrCodeChangeState)
}

func TestChangesUseCase_DiscardLeavesFile(t *testing.T) {
	engine, root := newTestEngine(t)
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}

	changes := NewChangesUseCase(engine)
	discarded, err := changes.Discard("src/App.java", "not ready")
	if err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if discarded.State != domain.ChangeStateDiscarded {
		t.Errorf("Expected discarded state, got %s", discarded.State)
	}

	if data := testutil.ReadWorkspaceFile(t, root, "src/App.java"); data != appSource {
		t.Error("discard must leave the real file untouched")
	}
	if _, err := engine.Overlay().Read(domain.ProposedURI("src/App.java")); err == nil {
		t.Error("discard must drop the overlay entry")
	}
}

func TestChangesUseCase_UnknownReference(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := NewChangesUseCase(engine).Apply("no/such/file.java")
	testutil.AssertErrorCode(t, err, domain.ErrCodeChangeNotFound)
}

func TestChangesUseCase_ApplyAll(t *testing.T) {
	engine, root := newTestEngine(t)

	utilDiff := "--- a/src/Util.java\n+++ b/src/Util.java\n@@ -1,1 +1,1 @@\n-class Util {}\n+final class Util {}\n"
	payload := fmt.Sprintf(
		`{"changes":[{"original":"src/App.java","modified":"src/App.java","diff":%q},{"original":"src/Util.java","modified":"src/Util.java","diff":%q}]}`,
		appDiff, utilDiff)
	path := testutil.WriteWorkspaceFile(t, root, "solution.json", payload)
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{Path: path}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}

	result := NewChangesUseCase(engine).ApplyAll(context.Background())
	if len(result.Succeeded) != 2 {
		t.Fatalf("Expected 2 applied files, got %v", result.Succeeded)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("Expected no failures, got %v", result.Failed)
	}

	if data := testutil.ReadWorkspaceFile(t, root, "src/Util.java"); !strings.Contains(data, "final class Util") {
		t.Errorf("Util.java not rewritten: %q", data)
	}

	status := engine.Status()
	if status.AppliedChanges != 2 || status.PendingChanges != 0 {
		t.Errorf("Expected 2 applied and 0 pending, got %+v", status)
	}
}

func TestChangesUseCase_ListSortedByPath(t *testing.T) {
	engine, root := newTestEngine(t)

	utilDiff := "--- a/src/Util.java\n+++ b/src/Util.java\n@@ -1,1 +1,1 @@\n-class Util {}\n+final class Util {}\n"
	payload := fmt.Sprintf(
		`{"changes":[{"original":"src/Util.java","modified":"src/Util.java","diff":%q},{"original":"src/App.java","modified":"src/App.java","diff":%q}]}`,
		utilDiff, appDiff)
	path := testutil.WriteWorkspaceFile(t, root, "solution.json", payload)
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{Path: path}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}

	list := NewChangesUseCase(engine).List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 changes, got %d", len(list))
	}
	if !strings.Contains(list[0].OriginalURI, "App.java") {
		t.Errorf("Expected App.java first, got %s", list[0].OriginalURI)
	}
}

func TestIssuesUseCase_TreeAndDiagnostics(t *testing.T) {
	engine, root := newTestEngine(t)
	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
		"pom.xml":      "replace javax.inject",
	})
	if _, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload, Full: true,
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	issues := NewIssuesUseCase(engine)
	tree := issues.Tree()
	if tree.TotalIncidents != 2 {
		t.Errorf("Expected 2 incidents in tree, got %d", tree.TotalIncidents)
	}
	if tree.TotalFiles != 2 {
		t.Errorf("Expected 2 files in tree, got %d", tree.TotalFiles)
	}
	if again := issues.Tree(); again != tree {
		t.Error("tree must be memoized per analysis version")
	}

	diags := issues.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(diags))
	}
	for _, d := range diags {
		if d.Severity != domain.MarkerSeverityError {
			t.Errorf("mandatory category maps to Error, got %s", d.Severity)
		}
		if d.Line != 0 {
			t.Errorf("lineNumber 1 maps to line 0, got %d", d.Line)
		}
	}
}

func TestEngine_StartRestoresState(t *testing.T) {
	engine, root := newTestEngine(t)
	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
	})
	if _, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload, Full: true,
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Workspace.Root = root
	restored, err := NewEngine(cfg, logging.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer restored.Close()
	if err := restored.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := restored.Snapshot()
	if got := domain.TotalIncidents(snap.RuleSets); got != 1 {
		t.Errorf("Expected 1 restored incident, got %d", got)
	}
	if len(snap.Changes) != 1 {
		t.Fatalf("Expected 1 restored change, got %d", len(snap.Changes))
	}
	if snap.Changes[0].State != domain.ChangeStatePending {
		t.Errorf("Expected pending change, got %s", snap.Changes[0].State)
	}

	// Pending changes are re-staged into the overlay
	proposed, err := restored.Overlay().Read(domain.ProposedURI("src/App.java"))
	if err != nil {
		t.Fatalf("overlay read after restore failed: %v", err)
	}
	if !strings.Contains(proposed, "jakarta.inject") {
		t.Errorf("restored proposed content not patched: %q", proposed)
	}

	// Applying the restored change still works end to end
	if _, err := NewChangesUseCase(restored).Apply(snap.Changes[0].ID); err != nil {
		t.Fatalf("Apply after restore failed: %v", err)
	}
	if data := testutil.ReadWorkspaceFile(t, root, "src/App.java"); !strings.Contains(data, "jakarta.inject") {
		t.Error("real file not rewritten after restore")
	}
}

func TestEngine_RestoreSkipsTerminalOverlayEntries(t *testing.T) {
	engine, root := newTestEngine(t)
	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}
	if _, err := NewChangesUseCase(engine).Discard("src/App.java", ""); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Workspace.Root = root
	restored, err := NewEngine(cfg, logging.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer restored.Close()
	if err := restored.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(restored.Snapshot().Changes) != 1 {
		t.Fatalf("Expected the discarded change restored, got %d", len(restored.Snapshot().Changes))
	}
	if entries := restored.Overlay().List(); len(entries) != 0 {
		t.Errorf("terminal changes must not be re-staged, got %v", entries)
	}
}

func TestEngine_ResetClearsEverything(t *testing.T) {
	engine, root := newTestEngine(t)
	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
	})
	if _, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload, Full: true,
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}

	snap := engine.Reset()
	if len(snap.RuleSets) != 0 || len(snap.Changes) != 0 {
		t.Errorf("Expected empty state after reset, got %d rulesets %d changes",
			len(snap.RuleSets), len(snap.Changes))
	}
	if entries := engine.Overlay().List(); len(entries) != 0 {
		t.Errorf("Expected empty overlay after reset, got %v", entries)
	}

	status := engine.Status()
	if status.Incidents != 0 || status.PendingChanges != 0 || status.OverlayEntries != 0 {
		t.Errorf("Expected zeroed status, got %+v", status)
	}
}

func TestEngine_JournalHistory(t *testing.T) {
	engine, root := newTestEngine(t)

	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
	})
	if _, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload, Full: true,
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := NewSolutionUseCase(engine).Execute(context.Background(), domain.SolutionRequest{
		Path: writeSolutionPayload(t, root),
	}); err != nil {
		t.Fatalf("staging failed: %v", err)
	}
	if _, err := NewChangesUseCase(engine).Apply("src/App.java"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	merges, err := engine.MergeHistory(10)
	if err != nil {
		t.Fatalf("MergeHistory failed: %v", err)
	}
	if len(merges) != 1 {
		t.Fatalf("Expected 1 merge record, got %d", len(merges))
	}
	if merges[0].Added != 1 {
		t.Errorf("Expected 1 added incident recorded, got %d", merges[0].Added)
	}

	events, err := engine.ChangeHistory(10)
	if err != nil {
		t.Fatalf("ChangeHistory failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected staged and applied events, got %d", len(events))
	}
	seen := map[string]bool{}
	for _, ev := range events {
		seen[ev.Event] = true
		if ev.Path != "src/App.java" {
			t.Errorf("Expected workspace-relative path, got %s", ev.Path)
		}
	}
	if !seen["staged"] || !seen["applied"] {
		t.Errorf("Expected staged and applied events, got %v", seen)
	}
}

func TestEngine_JournalDisabled(t *testing.T) {
	root := testutil.TempWorkspace(t, map[string]string{"pom.xml": "<project/>"})
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = root
	cfg.Persistence.Journal = false

	engine, err := NewEngine(cfg, logging.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer engine.Close()

	merges, err := engine.MergeHistory(10)
	if err != nil || merges != nil {
		t.Errorf("Expected empty history without journal, got %v, %v", merges, err)
	}
	if _, err := os.Stat(cfg.JournalFilePath()); !os.IsNotExist(err) {
		t.Error("journal file must not be created when disabled")
	}
}

func TestEngine_SnapshotFilesWritten(t *testing.T) {
	engine, root := newTestEngine(t)
	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	payload := writeAnalysisPayload(t, root, "analysis.yaml", map[string]string{
		"src/App.java": "replace javax.inject",
	})
	if _, err := NewIngestUseCase(engine).Execute(context.Background(), domain.IngestRequest{
		Path: payload, Full: true,
	}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, ".remedy", "state"))
	if err != nil {
		t.Fatalf("snapshot dir missing: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "analysis-") && strings.HasSuffix(e.Name(), ".json") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an analysis snapshot, got %v", entries)
	}
}
