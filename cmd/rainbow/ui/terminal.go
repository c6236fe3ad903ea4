package ui

import (
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether the given file descriptor is attached to a
// terminal. The RAINBOW_FORCE_TTY environment variable overrides detection
// in either direction.
func IsTerminal(fd uintptr) bool {
	if force, err := strconv.ParseBool(os.Getenv("RAINBOW_FORCE_TTY")); err == nil {
		return force
	}
	return isatty.IsTerminal(fd)
}
