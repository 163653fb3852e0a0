package service

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/remedy-kit/remedy/domain"
)

// StateStore owns the two shared engine values: the accumulated rulesets and
// the staged change list. All mutation funnels through its methods under one
// writer lock, so merges never overlap and readers only ever see fully
// published state. Every mutation bumps the affected version and broadcasts a
// snapshot to subscribers.
type StateStore struct {
	mu          sync.RWMutex
	ruleSets    []domain.RuleSet
	changes     []domain.LocalChange
	analysisVer uint64
	changeVer   uint64
	subscribers []chan domain.StateSnapshot
	closed      bool
	logger      *slog.Logger
}

// NewStateStore creates an empty store
func NewStateStore(logger *slog.Logger) *StateStore {
	return &StateStore{logger: logger.With("component", "store")}
}

// Snapshot returns the current published state. The contained slices are
// never mutated after publication; callers may read them freely.
func (s *StateStore) Snapshot() domain.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *StateStore) snapshotLocked() domain.StateSnapshot {
	return domain.StateSnapshot{
		RuleSets:        s.ruleSets,
		Changes:         s.changes,
		AnalysisVersion: s.analysisVer,
		ChangeVersion:   s.changeVer,
	}
}

// UpdateRuleSets runs mutate against the current rulesets under the writer
// lock and publishes its result. Holding the lock for the whole mutation
// serializes merges; mutate must return a fresh representation and leave its
// input untouched. On error nothing is published.
func (s *StateStore) UpdateRuleSets(mutate func([]domain.RuleSet) ([]domain.RuleSet, error)) (domain.StateSnapshot, error) {
	s.mu.Lock()
	next, err := mutate(s.ruleSets)
	if err != nil {
		s.mu.Unlock()
		return domain.StateSnapshot{}, err
	}
	s.ruleSets = next
	s.analysisVer++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return snap, nil
}

// ReplaceChanges swaps in a new staged change list, superseding the previous
// solution cycle wholesale.
func (s *StateStore) ReplaceChanges(changes []domain.LocalChange) domain.StateSnapshot {
	s.mu.Lock()
	s.changes = changes
	s.changeVer++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return snap
}

// TransitionChange moves one change to the next lifecycle state. The change
// may be referenced by ID, by its original URI, or by the file path behind
// that URI. Illegal transitions and unknown references fail without mutating.
func (s *StateStore) TransitionChange(ref string, next domain.ChangeState) (domain.LocalChange, domain.StateSnapshot, error) {
	s.mu.Lock()

	idx := s.findChangeLocked(ref)
	if idx < 0 {
		s.mu.Unlock()
		return domain.LocalChange{}, domain.StateSnapshot{}, domain.NewChangeNotFoundError(ref)
	}
	current := s.changes[idx]
	if !current.State.CanTransition(next) {
		s.mu.Unlock()
		return domain.LocalChange{}, domain.StateSnapshot{}, domain.NewChangeStateError(current.ID, current.State, next)
	}

	updated := make([]domain.LocalChange, len(s.changes))
	copy(updated, s.changes)
	updated[idx].State = next
	s.changes = updated
	s.changeVer++

	change := updated[idx]
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return change, snap, nil
}

// FindChange resolves a change reference without mutating anything
func (s *StateStore) FindChange(ref string) (domain.LocalChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.findChangeLocked(ref)
	if idx < 0 {
		return domain.LocalChange{}, domain.NewChangeNotFoundError(ref)
	}
	return s.changes[idx], nil
}

func (s *StateStore) findChangeLocked(ref string) int {
	cleaned := filepath.Clean(ref)
	for i, ch := range s.changes {
		if ch.ID == ref || ch.OriginalURI == ref {
			return i
		}
		if p, err := domain.URIToPath(ch.OriginalURI); err == nil && filepath.Clean(p) == cleaned {
			return i
		}
	}
	return -1
}

// Reset clears both shared values
func (s *StateStore) Reset() domain.StateSnapshot {
	s.mu.Lock()
	s.ruleSets = nil
	s.changes = nil
	s.analysisVer++
	s.changeVer++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return snap
}

// Subscribe registers a snapshot listener. The channel is buffered; a
// subscriber that falls behind loses intermediate snapshots, never the lock.
func (s *StateStore) Subscribe() <-chan domain.StateSnapshot {
	ch := make(chan domain.StateSnapshot, 16)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Close shuts down all subscriber channels
func (s *StateStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subscribers
	s.subscribers = nil
	s.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// broadcast sends under the read lock so Close cannot close a channel
// between the subscriber snapshot and the send. Sends never block, so
// holding the lock across the loop is safe.
func (s *StateStore) broadcast(snap domain.StateSnapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			s.logger.Debug("subscriber lagging, snapshot dropped")
		}
	}
}
