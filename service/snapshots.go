package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/constants"
)

// SnapshotKind distinguishes the two persisted state values
type SnapshotKind string

const (
	SnapshotKindAnalysis SnapshotKind = constants.AnalysisSnapshotPrefix
	SnapshotKindSolution SnapshotKind = constants.SolutionSnapshotPrefix
)

// SnapshotStore persists state values as numbered JSON files, optionally
// zstd-compressed, keeping the newest N of each kind. File names are
// zero-padded so the lexicographically last one is the most recent.
type SnapshotStore struct {
	mu       sync.Mutex
	dir      string
	retain   int
	compress bool
	logger   *slog.Logger
}

// NewSnapshotStore creates a snapshot store writing into dir
func NewSnapshotStore(dir string, retain int, compress bool, logger *slog.Logger) *SnapshotStore {
	if retain < 1 {
		retain = constants.DefaultSnapshotRetain
	}
	return &SnapshotStore{
		dir:      dir,
		retain:   retain,
		compress: compress,
		logger:   logger.With("component", "snapshots"),
	}
}

// Save writes payload as the next numbered snapshot of its kind and prunes
// older ones past the retention limit. Returns the written path.
func (s *SnapshotStore) Save(kind SnapshotKind, payload any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", domain.NewPersistenceError(fmt.Sprintf("cannot create snapshot directory %s", s.dir), err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", domain.NewPersistenceError("cannot encode snapshot", err)
	}

	ext := constants.SnapshotExt
	if s.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return "", domain.NewPersistenceError("cannot create zstd writer", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
		ext = constants.SnapshotCompressedExt
	}

	index := s.nextIndexLocked(kind)
	name := fmt.Sprintf("%s-%0*d%s", kind, constants.SnapshotIndexDigits, index, ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", domain.NewPersistenceError(fmt.Sprintf("cannot write snapshot %s", name), err)
	}

	s.pruneLocked(kind)
	return path, nil
}

// LoadLatest reads the most recent surviving snapshot of a kind into target.
// Returns the loaded path, or "" when no snapshot exists.
func (s *SnapshotStore) LoadLatest(kind SnapshotKind, target any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.listLocked(kind)
	if len(names) == 0 {
		return "", nil
	}

	name := names[len(names)-1]
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewPersistenceError(fmt.Sprintf("cannot read snapshot %s", name), err)
	}

	if strings.HasSuffix(name, constants.SnapshotCompressedExt) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return "", domain.NewPersistenceError("cannot create zstd reader", err)
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return "", domain.NewPersistenceError(fmt.Sprintf("cannot decompress snapshot %s", name), err)
		}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return "", domain.NewPersistenceError(fmt.Sprintf("cannot decode snapshot %s", name), err)
	}
	return path, nil
}

// List returns the surviving snapshot file names of a kind, oldest first
func (s *SnapshotStore) List(kind SnapshotKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(kind)
}

func (s *SnapshotStore) listLocked(kind SnapshotKind) []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	prefix := string(kind) + "-"
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if _, ok := snapshotIndex(e.Name(), prefix); !ok {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func (s *SnapshotStore) nextIndexLocked(kind SnapshotKind) int {
	prefix := string(kind) + "-"
	last := 0
	for _, name := range s.listLocked(kind) {
		if idx, ok := snapshotIndex(name, prefix); ok && idx > last {
			last = idx
		}
	}
	return last + 1
}

func (s *SnapshotStore) pruneLocked(kind SnapshotKind) {
	names := s.listLocked(kind)
	if len(names) <= s.retain {
		return
	}
	for _, name := range names[:len(names)-s.retain] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("cannot prune snapshot", "name", name, "error", err)
		}
	}
}

// snapshotIndex parses the sequence number out of a snapshot file name
func snapshotIndex(name, prefix string) (int, bool) {
	rest := strings.TrimPrefix(name, prefix)
	dot := strings.IndexByte(rest, '.')
	if dot < 1 {
		return 0, false
	}
	idx, err := strconv.Atoi(rest[:dot])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// StatePersister mirrors published state snapshots to disk. It tracks the
// last persisted version of each value, so one store event writes at most
// one snapshot per kind. Persistence failures are logged, never fatal.
type StatePersister struct {
	store  *StateStore
	snaps  *SnapshotStore
	logger *slog.Logger
	done   chan struct{}

	lastAnalysis uint64
	lastChange   uint64
}

// NewStatePersister creates a persister
func NewStatePersister(store *StateStore, snaps *SnapshotStore, logger *slog.Logger) *StatePersister {
	return &StatePersister{
		store:  store,
		snaps:  snaps,
		logger: logger.With("component", "persister"),
		done:   make(chan struct{}),
	}
}

// Start begins mirroring. The current versions are taken as already
// persisted, so a restore does not immediately rewrite what it just loaded.
// The goroutine exits when the store closes.
func (p *StatePersister) Start() {
	current := p.store.Snapshot()
	p.lastAnalysis = current.AnalysisVersion
	p.lastChange = current.ChangeVersion

	sub := p.store.Subscribe()
	go func() {
		defer close(p.done)
		for snap := range sub {
			p.persist(snap)
		}
	}()
}

// Wait blocks until the mirroring goroutine has exited
func (p *StatePersister) Wait() {
	<-p.done
}

func (p *StatePersister) persist(snap domain.StateSnapshot) {
	if snap.AnalysisVersion != p.lastAnalysis {
		if _, err := p.snaps.Save(SnapshotKindAnalysis, snap.RuleSets); err != nil {
			p.logger.Warn("analysis snapshot failed", "error", err)
		} else {
			p.lastAnalysis = snap.AnalysisVersion
		}
	}
	if snap.ChangeVersion != p.lastChange {
		if _, err := p.snaps.Save(SnapshotKindSolution, snap.Changes); err != nil {
			p.logger.Warn("solution snapshot failed", "error", err)
		} else {
			p.lastChange = snap.ChangeVersion
		}
	}
}
