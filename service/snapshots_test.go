package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/logging"
)

func newSnapshotStore(t *testing.T, retain int, compress bool) (*SnapshotStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "state")
	return NewSnapshotStore(dir, retain, compress, logging.NewDiscardLogger()), dir
}

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	s, dir := newSnapshotStore(t, 5, false)

	ruleSets := []domain.RuleSet{{Name: "rs", Description: "d"}}
	path, err := s.Save(SnapshotKindAnalysis, ruleSets)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != "analysis-000001.json" {
		t.Errorf("unexpected snapshot name: %s", filepath.Base(path))
	}
	if filepath.Dir(path) != dir {
		t.Errorf("snapshot written outside the store dir: %s", path)
	}

	var loaded []domain.RuleSet
	loadedPath, err := s.LoadLatest(SnapshotKindAnalysis, &loaded)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loadedPath != path {
		t.Errorf("expected to load %s, got %s", path, loadedPath)
	}
	if len(loaded) != 1 || loaded[0].Name != "rs" {
		t.Errorf("unexpected loaded state: %+v", loaded)
	}
}

func TestSnapshotStore_SequenceNumbers(t *testing.T) {
	s, _ := newSnapshotStore(t, 10, false)

	for i := 0; i < 3; i++ {
		if _, err := s.Save(SnapshotKindAnalysis, []domain.RuleSet{}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	names := s.List(SnapshotKindAnalysis)
	want := []string{"analysis-000001.json", "analysis-000002.json", "analysis-000003.json"}
	if len(names) != len(want) {
		t.Fatalf("expected %d snapshots, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %s, got %s", want[i], names[i])
		}
	}
}

func TestSnapshotStore_LoadLatestPicksLast(t *testing.T) {
	s, _ := newSnapshotStore(t, 10, false)

	for _, name := range []string{"first", "second", "third"} {
		if _, err := s.Save(SnapshotKindAnalysis, []domain.RuleSet{{Name: name}}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	var loaded []domain.RuleSet
	if _, err := s.LoadLatest(SnapshotKindAnalysis, &loaded); err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "third" {
		t.Errorf("expected the newest snapshot, got %+v", loaded)
	}
}

func TestSnapshotStore_Prune(t *testing.T) {
	s, dir := newSnapshotStore(t, 2, false)

	for i := 0; i < 5; i++ {
		if _, err := s.Save(SnapshotKindSolution, []domain.LocalChange{}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	names := s.List(SnapshotKindSolution)
	if len(names) != 2 {
		t.Fatalf("expected 2 surviving snapshots, got %v", names)
	}
	if names[0] != "solution-000004.json" || names[1] != "solution-000005.json" {
		t.Errorf("expected the newest two to survive, got %v", names)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("pruned files should be deleted, found %d entries", len(entries))
	}
}

func TestSnapshotStore_KindsAreIndependent(t *testing.T) {
	s, _ := newSnapshotStore(t, 5, false)

	if _, err := s.Save(SnapshotKindAnalysis, []domain.RuleSet{{Name: "rs"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Save(SnapshotKindSolution, []domain.LocalChange{{ID: "c1"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := s.List(SnapshotKindAnalysis); len(got) != 1 || !strings.HasPrefix(got[0], "analysis-") {
		t.Errorf("unexpected analysis snapshots: %v", got)
	}
	if got := s.List(SnapshotKindSolution); len(got) != 1 || !strings.HasPrefix(got[0], "solution-") {
		t.Errorf("unexpected solution snapshots: %v", got)
	}
}

func TestSnapshotStore_Compressed(t *testing.T) {
	s, _ := newSnapshotStore(t, 5, true)

	ruleSets := []domain.RuleSet{{Name: "rs"}}
	path, err := s.Save(SnapshotKindAnalysis, ruleSets)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(path, ".json.zst") {
		t.Errorf("expected compressed extension, got %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// Small payloads may survive as literal blocks inside the frame, so
	// check the zstd magic number rather than the absence of plaintext.
	if len(raw) < 4 || raw[0] != 0x28 || raw[1] != 0xB5 || raw[2] != 0x2F || raw[3] != 0xFD {
		t.Errorf("expected a zstd frame, got leading bytes % x", raw[:min(len(raw), 4)])
	}

	var loaded []domain.RuleSet
	if _, err := s.LoadLatest(SnapshotKindAnalysis, &loaded); err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "rs" {
		t.Errorf("unexpected loaded state: %+v", loaded)
	}
}

func TestSnapshotStore_MixedCompression(t *testing.T) {
	plain, dir := newSnapshotStore(t, 5, false)
	if _, err := plain.Save(SnapshotKindAnalysis, []domain.RuleSet{{Name: "old"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	compressed := NewSnapshotStore(dir, 5, true, logging.NewDiscardLogger())
	if _, err := compressed.Save(SnapshotKindAnalysis, []domain.RuleSet{{Name: "new"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded []domain.RuleSet
	if _, err := compressed.LoadLatest(SnapshotKindAnalysis, &loaded); err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "new" {
		t.Errorf("expected the compressed newer snapshot, got %+v", loaded)
	}
}

func TestSnapshotStore_LoadLatestEmpty(t *testing.T) {
	s, _ := newSnapshotStore(t, 5, false)

	var loaded []domain.RuleSet
	path, err := s.LoadLatest(SnapshotKindAnalysis, &loaded)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path when nothing persisted, got %s", path)
	}
	if loaded != nil {
		t.Errorf("target must stay untouched, got %+v", loaded)
	}
}

func TestSnapshotStore_IgnoresForeignFiles(t *testing.T) {
	s, dir := newSnapshotStore(t, 5, false)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, name := range []string{"analysis-notanumber.json", "readme.txt", "analysis-"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	if got := s.List(SnapshotKindAnalysis); len(got) != 0 {
		t.Errorf("foreign files must be ignored, got %v", got)
	}

	path, err := s.Save(SnapshotKindAnalysis, []domain.RuleSet{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != "analysis-000001.json" {
		t.Errorf("numbering should ignore foreign files, got %s", filepath.Base(path))
	}
}

func TestStatePersister_MirrorsStoreEvents(t *testing.T) {
	snaps, _ := newSnapshotStore(t, 5, false)
	store := newStore()

	p := NewStatePersister(store, snaps, logging.NewDiscardLogger())
	p.Start()

	if _, err := store.UpdateRuleSets(func([]domain.RuleSet) ([]domain.RuleSet, error) {
		return []domain.RuleSet{{Name: "rs"}}, nil
	}); err != nil {
		t.Fatalf("UpdateRuleSets failed: %v", err)
	}
	store.ReplaceChanges([]domain.LocalChange{pendingChange("c1", "/work/a.go")})

	store.Close()
	p.Wait()

	var ruleSets []domain.RuleSet
	if _, err := snaps.LoadLatest(SnapshotKindAnalysis, &ruleSets); err != nil {
		t.Fatalf("LoadLatest analysis failed: %v", err)
	}
	if len(ruleSets) != 1 || ruleSets[0].Name != "rs" {
		t.Errorf("unexpected persisted rulesets: %+v", ruleSets)
	}

	var changes []domain.LocalChange
	if _, err := snaps.LoadLatest(SnapshotKindSolution, &changes); err != nil {
		t.Fatalf("LoadLatest solution failed: %v", err)
	}
	if len(changes) != 1 || changes[0].ID != "c1" {
		t.Errorf("unexpected persisted changes: %+v", changes)
	}
}

func TestStatePersister_SkipsAlreadyPersistedVersions(t *testing.T) {
	snaps, _ := newSnapshotStore(t, 10, false)
	store := newStore()

	// State loaded before the persister starts counts as already persisted.
	if _, err := store.UpdateRuleSets(func([]domain.RuleSet) ([]domain.RuleSet, error) {
		return []domain.RuleSet{{Name: "restored"}}, nil
	}); err != nil {
		t.Fatalf("UpdateRuleSets failed: %v", err)
	}

	p := NewStatePersister(store, snaps, logging.NewDiscardLogger())
	p.Start()

	store.ReplaceChanges([]domain.LocalChange{pendingChange("c1", "/work/a.go")})
	store.Close()
	p.Wait()

	if got := snaps.List(SnapshotKindAnalysis); len(got) != 0 {
		t.Errorf("restored analysis state must not be re-persisted, got %v", got)
	}
	if got := snaps.List(SnapshotKindSolution); len(got) != 1 {
		t.Errorf("expected 1 solution snapshot, got %v", got)
	}
}
