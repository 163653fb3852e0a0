package domain

import "strings"

// ChangeState represents the lifecycle stage of a proposed change
type ChangeState string

const (
	ChangeStatePending   ChangeState = "pending"
	ChangeStateApplied   ChangeState = "applied"
	ChangeStateDiscarded ChangeState = "discarded"
)

// CanTransition reports whether a change may move from s to next.
// Applied and discarded are terminal.
func (s ChangeState) CanTransition(next ChangeState) bool {
	return s == ChangeStatePending &&
		(next == ChangeStateApplied || next == ChangeStateDiscarded)
}

// IsTerminal reports whether the state admits no further transitions
func (s ChangeState) IsTerminal() bool {
	return s == ChangeStateApplied || s == ChangeStateDiscarded
}

// LocalChange represents one staged file modification
type LocalChange struct {
	// ID uniquely identifies the change for lifecycle operations
	ID string `json:"id" yaml:"id"`

	// OriginalURI locates the real workspace file (file:// scheme)
	OriginalURI string `json:"originalUri" yaml:"originalUri"`

	// ModifiedURI locates the proposed content in the overlay
	ModifiedURI string `json:"modifiedUri" yaml:"modifiedUri"`

	// Diff is the unified diff from original to proposed content
	Diff string `json:"diff" yaml:"diff"`

	State ChangeState `json:"state" yaml:"state"`
}

// SolutionChange is one original/modified/diff triple from a fix generator
type SolutionChange struct {
	Original string `json:"original" yaml:"original"`
	Modified string `json:"modified" yaml:"modified"`
	Diff     string `json:"diff" yaml:"diff"`
}

// Solution is a fix-generator response. Exactly one of Changes or Diff
// carries the payload; Errors reports generator-side failures either way.
type Solution struct {
	Errors  []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
	Changes []SolutionChange `json:"changes,omitempty" yaml:"changes,omitempty"`
	Diff    string           `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// HasChanges reports whether the solution carries per-file triples
func (s Solution) HasChanges() bool {
	return len(s.Changes) > 0
}

// HasDiff reports whether the solution carries a single diff blob
func (s Solution) HasDiff() bool {
	return strings.TrimSpace(s.Diff) != ""
}
