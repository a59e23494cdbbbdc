// Package planner derives the rollback and commit revision lists from a
// world id, a local id, and the repository's ancestry graph. It never
// touches the working tree; it only computes lists for the walker to
// drain.
package planner

import "github.com/syncworld/sync-world/internal/vcsadapter"

// Plan is the pair of ordered revision lists the walker drains: rollback
// first (newest to the common ancestor, exclusive), then commit
// (exclusive of the ancestor, oldest to local_id).
type Plan struct {
	Rollback []vcsadapter.Revision
	Commit   []vcsadapter.Revision
}

// AlreadySynced reports whether this plan has nothing to do.
func (p Plan) AlreadySynced() bool {
	return len(p.Rollback) == 0 && len(p.Commit) == 0
}

// Compute derives the two revision lists for a sync from worldID to
// localID, using vcs to enumerate ancestry.
//
// Three cases, per §4.4:
//  1. worldID == localID: both lists empty.
//  2. worldID is the pre-tracking sentinel (""): rollback is empty,
//     commit is the full history oldest-first.
//  3. otherwise: rollback is the ancestors of worldID excluding those of
//     localID (newest first); commit is the ancestors of localID
//     excluding those of worldID (oldest first).
func Compute(vcs vcsadapter.VCS, worldID, localID vcsadapter.Revision) (Plan, error) {
	if worldID == localID {
		return Plan{}, nil
	}

	if worldID.IsPreTracking() {
		commit, err := vcs.FullHistoryOldestFirst()
		if err != nil {
			return Plan{}, err
		}
		return Plan{Commit: commit}, nil
	}

	rollback, err := vcs.AncestorsExcluding(worldID, localID)
	if err != nil {
		return Plan{}, err
	}

	commit, err := vcs.AncestorsExcludingReverse(localID, worldID)
	if err != nil {
		return Plan{}, err
	}

	return Plan{Rollback: rollback, Commit: commit}, nil
}
