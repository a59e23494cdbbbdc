package vcsadapter

import "errors"

// Common errors returned by VCS backends. Checked with errors.Is.
var (
	// ErrNotInVCS is returned when an operation requires being inside a
	// VCS working tree but none was found.
	ErrNotInVCS = errors.New("not in a VCS working tree")

	// ErrNotFound is returned by Resolve when ref does not name a known
	// revision, branch, or tag.
	ErrNotFound = errors.New("revision not found")

	// ErrVCSNotAvailable is returned when the required VCS binary is not
	// installed or not on PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrDirty is returned when an operation requires a clean working
	// tree but uncommitted modifications are present.
	ErrDirty = errors.New("working tree has uncommitted changes")
)
