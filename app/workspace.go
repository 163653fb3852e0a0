package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/constants"
)

// Workspace resolves and scopes paths against the project root. The state
// directory, .git, and anything matched by the root .gitignore are invisible
// to scope expansion.
type Workspace struct {
	root    string
	ignorer *ignore.GitIgnore
}

// NewWorkspace opens a workspace rooted at root, which must be an existing
// directory. A .gitignore at the root is honored when present.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("cannot resolve workspace root %s", root), err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, domain.NewFileNotFoundError(abs, err)
	}
	if !info.IsDir() {
		return nil, domain.NewConfigError(fmt.Sprintf("workspace root is not a directory: %s", abs), nil)
	}

	ws := &Workspace{root: abs}
	if ign, err := ignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore")); err == nil {
		ws.ignorer = ign
	}
	return ws, nil
}

// Root returns the absolute workspace root
func (w *Workspace) Root() string {
	return w.root
}

// Abs resolves a path against the root. Absolute paths pass through cleaned.
func (w *Workspace) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, filepath.FromSlash(path))
}

// Rel converts a path inside the workspace to its slash-separated
// root-relative form. Paths escaping the root are rejected.
func (w *Workspace) Rel(path string) (string, error) {
	rel, err := filepath.Rel(w.root, w.Abs(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.NewScopeMismatchError(path)
	}
	return filepath.ToSlash(rel), nil
}

// Contains reports whether path resolves to somewhere under the root
func (w *Workspace) Contains(path string) bool {
	_, err := w.Rel(path)
	return err == nil
}

// ExpandScope resolves an analysis request's coverage declaration into the
// set of absolute file paths the merge engine evicts on. Files are taken as
// given, directories are walked, and full expands to every visible workspace
// file. Paths outside the root fail the whole expansion: a wrong scope would
// silently evict the wrong incidents.
func (w *Workspace) ExpandScope(files, dirs []string, full bool) ([]string, error) {
	set := map[string]bool{}

	if full {
		collected, err := w.collectFiles(w.root)
		if err != nil {
			return nil, err
		}
		for _, f := range collected {
			set[f] = true
		}
	}

	for _, f := range files {
		abs := w.Abs(f)
		if !w.Contains(abs) {
			return nil, domain.NewScopeMismatchError(f)
		}
		set[abs] = true
	}

	for _, d := range dirs {
		abs := w.Abs(d)
		if !w.Contains(abs) {
			return nil, domain.NewScopeMismatchError(d)
		}
		collected, err := w.collectFiles(abs)
		if err != nil {
			return nil, err
		}
		for _, f := range collected {
			set[f] = true
		}
	}

	scope := make([]string, 0, len(set))
	for f := range set {
		scope = append(scope, f)
	}
	sort.Strings(scope)
	return scope, nil
}

// collectFiles walks dir, skipping .git, the state directory and ignored
// entries. Walk errors on individual entries abort the collection.
func (w *Workspace) collectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == dir {
				return nil
			}
			name := filepath.Base(path)
			if name == ".git" || name == constants.StateDirName {
				return filepath.SkipDir
			}
			if w.ignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.ignored(path, false) {
			return nil
		}
		files = append(files, filepath.Clean(path))
		return nil
	})
	if err != nil {
		return nil, domain.NewFileNotFoundError(dir, err)
	}
	return files, nil
}

// ignored checks the root .gitignore, matching on the root-relative path.
// Directories match with a trailing slash so dir-only patterns apply.
func (w *Workspace) ignored(path string, dir bool) bool {
	if w.ignorer == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return w.ignorer.MatchesPath(rel)
}
