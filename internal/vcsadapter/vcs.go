// Package vcsadapter provides a unified interface for version control
// operations, abstracting the differences between git and jj (Jujutsu) so
// that the sync engine never has to know which one it is driving.
//
// The VCS is otherwise entirely opaque: sync-world never interprets commit
// content or hook semantics, only ancestry and checkout state.
//
// See internal/vcsadapter/git and internal/vcsadapter/jj for the two
// concrete backends, and internal/vcsadapter/vcsadaptertest for an
// in-memory fake used by planner and walker tests.
package vcsadapter

import "context"

// Type identifies which VCS backend is in use.
type Type string

const (
	TypeGit      Type = "git"
	TypeJJ       Type = "jj"
	TypeColocate Type = "colocate"
)

func (t Type) String() string { return string(t) }

// Revision is an opaque immutable string identifying a revision. Two
// values are well known: the empty string (the pre-tracking sentinel,
// meaning the world has never been synced) and "HEAD" (reserved; a hook
// must never return it as a change id).
type Revision string

// IsPreTracking reports whether r is the pre-tracking sentinel.
func (r Revision) IsPreTracking() bool { return r == "" }

// VCS is the small surface the sync engine needs from a version control
// tool: revision resolution, checkout, and ancestry enumeration. It is
// implemented by internal/vcsadapter/git and internal/vcsadapter/jj.
type VCS interface {
	// Name identifies the backend.
	Name() Type

	// RootDir returns the repository working-tree root.
	RootDir() (string, error)

	// MetadataDir returns the VCS's internal metadata directory (".git"
	// for the git backend, ".jj" for the jj backend, including in a
	// colocated tree driven by jj).
	MetadataDir() (string, error)

	// Resolve resolves ref (a revision id, tag, or branch name) to a
	// canonical revision id. Returns ErrNotFound if ref does not resolve.
	Resolve(ref string) (Revision, error)

	// HeadRevision returns the revision id currently checked out.
	HeadRevision() (Revision, error)

	// SymbolicHead returns the branch name HEAD points to, or the raw
	// revision id if the checkout is detached.
	SymbolicHead() (string, error)

	// Checkout performs a detached checkout of a revision id, or a branch
	// checkout when ref names a branch. A non-zero exit from the
	// underlying tool is returned as a plain error; the caller decides
	// whether that aborts the walk.
	Checkout(ctx context.Context, ref string) error

	// IsClean reports whether the working tree has no uncommitted
	// modifications.
	IsClean() (bool, error)

	// IsRootCommit reports whether the current HEAD has no parent.
	IsRootCommit() (bool, error)

	// ParentOfHead resolves the revision immediately preceding the
	// current HEAD (git's "HEAD^", jj's "@-"). Callers must not assume
	// this succeeds at the root commit; check IsRootCommit first.
	ParentOfHead() (Revision, error)

	// AncestorsExcluding returns revisions reachable from "from" but not
	// from "to", newest first. Used to build the rollback list.
	AncestorsExcluding(from, to Revision) ([]Revision, error)

	// AncestorsExcludingReverse is the same set as AncestorsExcluding but
	// oldest first. Used to build the commit list.
	AncestorsExcludingReverse(from, to Revision) ([]Revision, error)

	// FullHistoryOldestFirst returns the entire history reachable from
	// HEAD, oldest first. Used when world_id is the pre-tracking
	// sentinel, so the plan commits every revision in the tree.
	FullHistoryOldestFirst() ([]Revision, error)

	// Exec runs a raw VCS command as an escape hatch; prefer the typed
	// methods above.
	Exec(ctx context.Context, args ...string) ([]byte, error)
}
