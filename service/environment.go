package service

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsInteractiveEnvironment reports whether stderr is attached to a terminal.
// Progress bars and prompts are suppressed for pipes, redirects and CI logs.
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
