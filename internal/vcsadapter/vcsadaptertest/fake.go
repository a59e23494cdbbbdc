// Package vcsadaptertest provides an in-memory fake implementing
// vcsadapter.VCS, letting planner and walker tests exercise ancestry and
// checkout logic without a real git or jj binary on PATH.
package vcsadaptertest

import (
	"context"
	"fmt"

	"github.com/syncworld/sync-world/internal/vcsadapter"
)

// Fake is a linear or branching commit graph kept entirely in memory.
// Revisions are added with AddCommit in parent order; Checkout moves the
// simulated HEAD without touching the filesystem.
type Fake struct {
	parents map[vcsadapter.Revision]vcsadapter.Revision // "" for root commits
	order   []vcsadapter.Revision                       // insertion order, oldest first
	head    vcsadapter.Revision
	dirty   bool

	rootDir string
	metaDir string

	// FailCheckout, when set, names a revision whose Checkout call returns
	// an error instead of moving HEAD.
	FailCheckout map[vcsadapter.Revision]bool
}

// New returns an empty Fake with no commits and no HEAD.
func New() *Fake {
	return &Fake{
		parents:      make(map[vcsadapter.Revision]vcsadapter.Revision),
		FailCheckout: make(map[vcsadapter.Revision]bool),
		rootDir:      "/fake/repo",
		metaDir:      "/fake/repo/.git",
	}
}

// SetDirs overrides the root and metadata directories reported by
// RootDir/MetadataDir, letting controller tests point the fake at a
// real temp directory so the session store and hook runner have
// somewhere to write.
func (f *Fake) SetDirs(rootDir, metaDir string) {
	f.rootDir = rootDir
	f.metaDir = metaDir
}

// AddCommit appends rev as a child of parent ("" for a root commit) and
// moves HEAD to it.
func (f *Fake) AddCommit(rev, parent vcsadapter.Revision) {
	f.parents[rev] = parent
	f.order = append(f.order, rev)
	f.head = rev
}

// SetDirty marks the working tree as having uncommitted modifications.
func (f *Fake) SetDirty(dirty bool) { f.dirty = dirty }

func (f *Fake) Name() vcsadapter.Type { return vcsadapter.TypeGit }

func (f *Fake) RootDir() (string, error) { return f.rootDir, nil }

func (f *Fake) MetadataDir() (string, error) { return f.metaDir, nil }

func (f *Fake) Resolve(ref string) (vcsadapter.Revision, error) {
	rev := vcsadapter.Revision(ref)
	if ref == "HEAD" {
		return f.head, nil
	}
	if _, ok := f.parents[rev]; ok {
		return rev, nil
	}
	return "", vcsadapter.ErrNotFound
}

func (f *Fake) HeadRevision() (vcsadapter.Revision, error) { return f.head, nil }

func (f *Fake) SymbolicHead() (string, error) { return string(f.head), nil }

func (f *Fake) Checkout(ctx context.Context, ref string) error {
	rev := vcsadapter.Revision(ref)
	if f.FailCheckout[rev] {
		return fmt.Errorf("simulated checkout failure at %s", rev)
	}
	if _, ok := f.parents[rev]; !ok && rev != "" {
		return fmt.Errorf("%w: %s", vcsadapter.ErrNotFound, rev)
	}
	f.head = rev
	return nil
}

func (f *Fake) IsClean() (bool, error) { return !f.dirty, nil }

func (f *Fake) IsRootCommit() (bool, error) {
	parent, ok := f.parents[f.head]
	if !ok {
		return true, nil
	}
	return parent == "", nil
}

// ParentOfHead returns the parent of the simulated HEAD, matching the
// real backends' "no parent at the root commit" error behavior.
func (f *Fake) ParentOfHead() (vcsadapter.Revision, error) {
	parent, ok := f.parents[f.head]
	if !ok || parent == "" {
		return "", fmt.Errorf("no parent for %s", f.head)
	}
	return parent, nil
}

// AncestorsExcluding returns commits reachable from "from" but not from
// "to", newest first.
func (f *Fake) AncestorsExcluding(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	var result []vcsadapter.Revision
	seenTo := f.ancestorSet(to)

	cur := from
	for cur != "" {
		if seenTo[cur] {
			break
		}
		result = append(result, cur)
		cur = f.parents[cur]
	}
	return result, nil
}

// AncestorsExcludingReverse is the same set, oldest first.
func (f *Fake) AncestorsExcludingReverse(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	revs, err := f.AncestorsExcluding(from, to)
	if err != nil {
		return nil, err
	}
	reversed := make([]vcsadapter.Revision, len(revs))
	for i, r := range revs {
		reversed[len(revs)-1-i] = r
	}
	return reversed, nil
}

func (f *Fake) FullHistoryOldestFirst() ([]vcsadapter.Revision, error) {
	revs, err := f.AncestorsExcludingReverse(f.head, "")
	if err != nil {
		return nil, err
	}
	return revs, nil
}

func (f *Fake) Exec(ctx context.Context, args ...string) ([]byte, error) {
	return nil, fmt.Errorf("vcsadaptertest: Exec not supported: %v", args)
}

func (f *Fake) ancestorSet(rev vcsadapter.Revision) map[vcsadapter.Revision]bool {
	set := make(map[vcsadapter.Revision]bool)
	if rev == "" {
		return set
	}
	cur := rev
	for cur != "" {
		set[cur] = true
		cur = f.parents[cur]
	}
	return set
}
