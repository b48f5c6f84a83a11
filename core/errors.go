package core

import (
	"errors"
	"strings"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// ErrUnknownCommand signals an invocation of a command that was never registered.
// Platforms with a fixed command surface report this back to the caller; free-text
// platforms degrade the message to a text interaction instead.
var ErrUnknownCommand = errors.New("unknown command")

// ErrDuplicateCommand signals a second registration under an already-taken
// command name. The first registration always wins.
var ErrDuplicateCommand = errors.New("command already registered")

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	// some platform SDKs only report "not found" in the message text
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
