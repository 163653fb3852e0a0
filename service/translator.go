package service

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	godiff "github.com/sourcegraph/go-diff/diff"
	"gopkg.in/yaml.v3"

	"github.com/remedy-kit/remedy/domain"
)

// TranslateStats summarizes what the translator dropped on the way
type TranslateStats struct {
	DroppedRenames  int
	DroppedSections int
	Anomalies       []string
}

// DecodeSolution parses a fix-generator payload. Structured YAML/JSON
// responses and bare unified-diff blobs are both accepted; a bare blob
// becomes a diff-only solution.
func DecodeSolution(data []byte) (domain.Solution, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return domain.Solution{}, domain.NewInvalidPayloadError("empty solution payload", nil)
	}

	if looksLikeUnifiedDiff(text) {
		return domain.Solution{Diff: string(data)}, nil
	}

	var sol domain.Solution
	if err := yaml.Unmarshal(data, &sol); err != nil {
		return domain.Solution{}, domain.NewInvalidPayloadError("solution payload is neither a generator response nor a unified diff", err)
	}
	if !sol.HasChanges() && !sol.HasDiff() && len(sol.Errors) == 0 {
		return domain.Solution{}, domain.NewInvalidPayloadError("solution payload carries no changes, diff or errors", nil)
	}
	return sol, nil
}

// looksLikeUnifiedDiff reports whether text opens like a raw diff rather than
// a structured generator response. A diff header line always has a space
// after the marker, so YAML document separators do not match.
func looksLikeUnifiedDiff(text string) bool {
	return strings.HasPrefix(text, "diff ") ||
		strings.HasPrefix(text, "--- ") ||
		strings.HasPrefix(text, "Index: ")
}

// SolutionTranslator converts a fix-generator response into pending local
// changes. Two payload shapes are accepted: explicit original/modified/diff
// triples, or a single unified-diff blob with a/ and b/ path prefixes. Only
// in-place modifications survive; renames, adds and deletes are filtered out.
type SolutionTranslator struct {
	workspace string
	logger    *slog.Logger
}

// NewSolutionTranslator creates a translator rooted at the workspace
func NewSolutionTranslator(workspace string, logger *slog.Logger) *SolutionTranslator {
	return &SolutionTranslator{
		workspace: filepath.Clean(workspace),
		logger:    logger.With("component", "translator"),
	}
}

// Translate produces at most one pending change per workspace file. Per-record
// problems are dropped and reported in the stats; only an unparseable diff
// blob fails the call.
func (t *SolutionTranslator) Translate(sol domain.Solution) ([]domain.LocalChange, TranslateStats, error) {
	var stats TranslateStats
	var changes []domain.LocalChange
	seen := map[string]bool{}

	add := func(abs, rel, diffText string) {
		if seen[abs] {
			stats.Anomalies = append(stats.Anomalies,
				fmt.Sprintf("duplicate change for %s dropped", rel))
			return
		}
		seen[abs] = true
		changes = append(changes, domain.LocalChange{
			ID:          uuid.NewString(),
			OriginalURI: domain.FileURI(abs),
			ModifiedURI: domain.ProposedURI(rel),
			Diff:        diffText,
			State:       domain.ChangeStatePending,
		})
	}

	switch {
	case sol.HasChanges():
		for _, ch := range sol.Changes {
			if ch.Original != ch.Modified {
				t.logger.Debug("dropping rename change",
					"original", ch.Original, "modified", ch.Modified)
				stats.DroppedRenames++
				continue
			}
			abs, rel, err := t.workspacePath(ch.Original)
			if err != nil {
				stats.Anomalies = append(stats.Anomalies, err.Error())
				continue
			}
			add(abs, rel, ch.Diff)
		}

	case sol.HasDiff():
		fileDiffs, err := godiff.ParseMultiFileDiff([]byte(sol.Diff))
		if err != nil {
			return nil, stats, domain.NewInvalidPayloadError("solution diff does not parse as a unified diff", err)
		}
		if len(fileDiffs) == 0 {
			return nil, stats, domain.NewInvalidPayloadError("solution diff contains no file sections", nil)
		}
		for _, fd := range fileDiffs {
			rel, ok := inPlacePath(fd)
			if !ok {
				t.logger.Debug("dropping diff section",
					"orig", fd.OrigName, "new", fd.NewName)
				stats.DroppedSections++
				continue
			}
			text, err := godiff.PrintFileDiff(fd)
			if err != nil {
				stats.Anomalies = append(stats.Anomalies,
					fmt.Sprintf("cannot reserialize diff section for %s: %v", rel, err))
				continue
			}
			abs, rel, err := t.workspacePath(rel)
			if err != nil {
				stats.Anomalies = append(stats.Anomalies, err.Error())
				continue
			}
			add(abs, rel, string(text))
		}
	}

	if len(changes) > 0 {
		t.logger.Info("solution translated",
			"changes", len(changes),
			"dropped_renames", stats.DroppedRenames,
			"dropped_sections", stats.DroppedSections)
	}
	return changes, stats, nil
}

// workspacePath resolves a file URI, absolute path or workspace-relative path
// to (absolute path, slash-separated workspace-relative path). Paths escaping
// the workspace are rejected.
func (t *SolutionTranslator) workspacePath(raw string) (string, string, error) {
	var abs string
	switch {
	case domain.IsFileURI(raw):
		p, err := domain.URIToPath(raw)
		if err != nil {
			return "", "", err
		}
		abs = p
	case filepath.IsAbs(raw):
		abs = raw
	default:
		abs = filepath.Join(t.workspace, filepath.FromSlash(raw))
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(t.workspace, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", domain.NewScopeMismatchError(raw)
	}
	return abs, filepath.ToSlash(rel), nil
}

// inPlacePath accepts a diff section only when it modifies one file in place:
// old name a/<p>, new name b/<p>, same p. Adds, deletes and renames (including
// /dev/null sides) fail the prefix or equality check.
func inPlacePath(fd *godiff.FileDiff) (string, bool) {
	if !strings.HasPrefix(fd.OrigName, "a/") || !strings.HasPrefix(fd.NewName, "b/") {
		return "", false
	}
	orig := fd.OrigName[2:]
	modified := fd.NewName[2:]
	if orig == "" || orig != modified {
		return "", false
	}
	return orig, true
}
