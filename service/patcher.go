package service

import (
	"fmt"
	"log/slog"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/remedy-kit/remedy/domain"
)

// DiffApplier applies one file's unified diff to its current content
type DiffApplier struct {
	logger *slog.Logger
}

// NewDiffApplier creates a diff applier
func NewDiffApplier(logger *slog.Logger) *DiffApplier {
	return &DiffApplier{logger: logger.With("component", "patcher")}
}

// Apply patches original with diffText and returns the proposed content.
// When the patch does not fit the content, the raw diff text itself is
// returned as the content together with a PATCH_APPLY_FAILED error; callers
// surface the failure per file and keep going. The call never panics and
// never returns an empty result for a non-empty input.
func (d *DiffApplier) Apply(uri, original, diffText string) (string, error) {
	if strings.TrimSpace(diffText) == "" {
		return original, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		d.logger.Warn("diff does not parse, falling back to raw diff",
			"uri", uri, "error", err)
		return diffText, domain.NewPatchApplyError(uri, err)
	}
	if len(fileDiffs) != 1 {
		err := fmt.Errorf("diff carries %d file sections, expected 1", len(fileDiffs))
		d.logger.Warn("unexpected diff shape, falling back to raw diff",
			"uri", uri, "error", err)
		return diffText, domain.NewPatchApplyError(uri, err)
	}

	patched, err := applyFileDiff(original, fileDiffs[0])
	if err != nil {
		d.logger.Warn("patch does not apply, falling back to raw diff",
			"uri", uri, "error", err)
		return diffText, domain.NewPatchApplyError(uri, err)
	}
	return patched, nil
}

// applyFileDiff replays the hunks over the original line by line. Context and
// deletion lines must match the original exactly; any mismatch aborts.
func applyFileDiff(content string, fd *godiff.FileDiff) (string, error) {
	lines, hadTrailingNewline := splitLines(content)

	var out []string
	cursor := 0
	tailFromHunk := false
	newNoEOF := false

	for hi, h := range fd.Hunks {
		start := int(h.OrigStartLine) - 1
		if h.OrigLines == 0 {
			// Pure insertion: OrigStartLine names the line after which to
			// insert, so the 0-based insertion index equals it.
			start = int(h.OrigStartLine)
		}
		if start < cursor || start > len(lines) {
			return "", fmt.Errorf("hunk %d starts at line %d outside the remaining content", hi+1, h.OrigStartLine)
		}

		out = append(out, lines[cursor:start]...)
		cursor = start

		// ParseMultiFileDiff strips "\ No newline at end of file" markers
		// from the body: the old side's marker becomes OrigNoNewlineAt, the
		// new side's leaves the body without a final '\n'.
		if h.OrigNoNewlineAt > 0 && hadTrailingNewline {
			return "", fmt.Errorf("hunk %d expects the content to end without a newline", hi+1)
		}
		if len(h.Body) > 0 && h.Body[len(h.Body)-1] != '\n' {
			newNoEOF = true
		}

		for _, body := range splitHunkBody(h.Body) {
			marker, text := splitBodyLine(body)
			switch marker {
			case ' ':
				if cursor >= len(lines) || lines[cursor] != text {
					return "", contextMismatch(hi, cursor, lines, text)
				}
				out = append(out, lines[cursor])
				cursor++
			case '-':
				if cursor >= len(lines) || lines[cursor] != text {
					return "", contextMismatch(hi, cursor, lines, text)
				}
				cursor++
			case '+':
				out = append(out, text)
			}
		}

		tailFromHunk = cursor >= len(lines)
	}

	out = append(out, lines[cursor:]...)
	if len(out) == 0 {
		return "", nil
	}

	trailing := hadTrailingNewline
	if tailFromHunk {
		trailing = !newNoEOF
	}

	result := strings.Join(out, "\n")
	if trailing {
		result += "\n"
	}
	return result, nil
}

// splitLines splits content into lines without a phantom final element,
// remembering whether the content ended in a newline.
func splitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1], true
	}
	return lines, false
}

// splitHunkBody splits the raw hunk body into its marker-prefixed lines
func splitHunkBody(body []byte) []string {
	return strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
}

// splitBodyLine separates the diff marker from the line text. A fully empty
// body line counts as an empty context line; some producers emit those
// instead of a lone space.
func splitBodyLine(line string) (byte, string) {
	if line == "" {
		return ' ', ""
	}
	return line[0], line[1:]
}

func contextMismatch(hunk, cursor int, lines []string, want string) error {
	got := "<end of file>"
	if cursor < len(lines) {
		got = lines[cursor]
	}
	return fmt.Errorf("hunk %d context mismatch at line %d: expected %q, found %q",
		hunk+1, cursor+1, want, got)
}
