// Package syncerr defines the three error kinds the session controller and
// CLI shell distinguish: configuration errors, walk errors, and usage
// errors. Each carries the exit code its kind maps to so cmd/git-sync-world
// never has to pattern-match on error strings.
package syncerr

import (
	"errors"
	"fmt"
)

// Config reports a fatal problem discovered while deriving the
// configuration: a dirty working tree, a missing hook directory, or a
// failing get-change-id hook. No state is mutated when this error is
// returned.
type Config struct {
	Msg string
	Err error
}

func (e *Config) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Config) Unwrap() error { return e.Err }

// NewConfig builds a Config error.
func NewConfig(msg string, cause error) *Config {
	return &Config{Msg: msg, Err: cause}
}

// ExitCode is always 1 for configuration errors.
func (e *Config) ExitCode() int { return 1 }

// Walk reports a hook or checkout failure encountered while draining the
// rollback or commit queue. The failing revision is left at the front of
// its queue by the caller before this error is returned.
type Walk struct {
	Phase    string // "commit" or "rollback"
	Revision string
	Msg      string
	Err      error
}

func (e *Walk) Error() string {
	base := fmt.Sprintf("%s failed at %s: %s", e.Phase, e.Revision, e.Msg)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return base
}

func (e *Walk) Unwrap() error { return e.Err }

// NewWalk builds a Walk error.
func NewWalk(phase, revision, msg string, cause error) *Walk {
	return &Walk{Phase: phase, Revision: revision, Msg: msg, Err: cause}
}

// ExitCode is always 1 for walk errors.
func (e *Walk) ExitCode() int { return 1 }

// Usage reports a malformed invocation: conflicting flags, or a
// mid-session command issued with no session in progress (and vice
// versa). Flag-parsing failures exit 2; everything else handled here
// exits 1, per §7.
type Usage struct {
	Msg      string
	ExitCode2 bool
}

func (e *Usage) Error() string { return e.Msg }

// NewUsage builds a Usage error that exits 1.
func NewUsage(msg string) *Usage {
	return &Usage{Msg: msg}
}

// NewFlagUsage builds a Usage error that exits 2, for conflicting/invalid
// flag combinations caught during argument parsing.
func NewFlagUsage(msg string) *Usage {
	return &Usage{Msg: msg, ExitCode2: true}
}

// ExitCode returns 2 for flag-parsing usage errors, 1 otherwise.
func (e *Usage) ExitCode() int {
	if e.ExitCode2 {
		return 2
	}
	return 1
}

// Coder is implemented by all three error kinds above.
type Coder interface {
	error
	ExitCode() int
}

// ExitCodeOf extracts the process exit code for any error: Coder-typed
// errors report their own code, anything else defaults to 1, and nil
// reports 0.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return 1
}
