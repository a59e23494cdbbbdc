// Package walker drives the hook quintet across a single revision: the
// per-revision state machine of §4.5. It is invoked once per revision
// popped from the front of either the rollback or commit queue, and its
// return value tells the controller whether to keep draining or to
// report a walk error with the revision already restored to its queue.
package walker

import (
	"context"
	"fmt"

	"github.com/syncworld/sync-world/internal/hooks"
	"github.com/syncworld/sync-world/internal/syncerr"
	"github.com/syncworld/sync-world/internal/vcsadapter"
)

// Phase identifies which half of the walk a revision is being processed
// in.
type Phase string

const (
	PhaseRollback Phase = "rollback"
	PhaseCommit   Phase = "commit"
)

// Reporter receives human-readable progress lines from the walker, the
// same "git-sync-world: " prefixed messages the CLI prints.
type Reporter interface {
	Report(msg string)
}

// Step processes one revision in the given phase: checkout, no-op check,
// hook-completeness check, and the phase-specific hook sequence.
//
// A nil error means the revision is fully applied (or was a no-op) and
// its queue entry should stay consumed. A non-nil error means the caller
// must push rev back to the front of its queue before propagating the
// error; Step never does this itself since the caller owns the queue.
func Step(ctx context.Context, vcs vcsadapter.VCS, hk *hooks.Runner, rep Reporter, phase Phase, rev vcsadapter.Revision) error {
	// 1. Checkout.
	if err := vcs.Checkout(ctx, string(rev)); err != nil {
		return syncerr.NewWalk(string(phase), string(rev), "checkout failed", err)
	}

	// 2. Noop check.
	if !hk.AnyChangeSpecificPresent() {
		rep.Report(fmt.Sprintf("nothing to do at %s", rev))
		return nil
	}

	// 3. Hook validation (completeness rule).
	if !hk.AllPerRevisionExecutable() {
		return syncerr.NewWalk(string(phase), string(rev), "incomplete hook set: all five per-revision hooks must exist and be executable", nil)
	}

	var err error
	switch phase {
	case PhaseCommit:
		err = stepCommit(ctx, vcs, hk, rev)
	case PhaseRollback:
		err = stepRollback(ctx, vcs, hk, rev)
	default:
		return fmt.Errorf("walker: unknown phase %q", phase)
	}
	if err != nil {
		return err
	}

	rep.Report(fmt.Sprintf("Applied %s at %s", phase, rev))
	return nil
}

func stepCommit(ctx context.Context, vcs vcsadapter.VCS, hk *hooks.Runner, rev vcsadapter.Revision) error {
	if err := hk.Run(ctx, hooks.Commit); err != nil {
		return syncerr.NewWalk(string(PhaseCommit), string(rev), "commit failed; the system may be dirty", err)
	}

	if err := hk.Run(ctx, hooks.SetChangeID, string(rev)); err != nil {
		return syncerr.NewWalk(string(PhaseCommit), string(rev), "set-change-id failed; the system may be dirty: commit succeeded but id update did not", err)
	}

	if err := hk.Run(ctx, hooks.VerifyCommit); err != nil {
		msg := "verify-commit failed"
		if worldID, gerr := hk.Capture(ctx, hooks.GetChangeID); gerr == nil && worldID != "" {
			msg = fmt.Sprintf("verify-commit failed; world is now at %s, consider rolling back to that id rather than %s", worldID, rev)
		}
		return syncerr.NewWalk(string(PhaseCommit), string(rev), msg, err)
	}

	return nil
}

func stepRollback(ctx context.Context, vcs vcsadapter.VCS, hk *hooks.Runner, rev vcsadapter.Revision) error {
	if err := hk.Run(ctx, hooks.Rollback); err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "rollback failed", err)
	}

	if err := hk.Run(ctx, hooks.VerifyRollback); err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "verify-rollback failed", err)
	}

	isRoot, err := vcs.IsRootCommit()
	if err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "failed to determine root commit status", err)
	}

	if isRoot {
		if err := hk.Run(ctx, hooks.SetChangeID, ""); err != nil {
			return syncerr.NewWalk(string(PhaseRollback), string(rev), "system may be dirty, rollback succeeded but set-change-id to pre-tracking sentinel failed", err)
		}
		return nil
	}

	// Checkout the revision immediately preceding R, resolved through
	// the backend (git's HEAD^, jj's @-) rather than hardcoded here, so
	// this step behaves identically on either VCS. A checkout failure
	// is treated as success for this step: the revision is considered
	// complete and the walk proceeds to observe whatever HEAD now is.
	// This reproduces an edge case in the tool this was derived from
	// rather than papering over it; see the design notes on rollback
	// checkout failure.
	parent, err := vcs.ParentOfHead()
	if err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "failed to resolve parent of current HEAD", err)
	}
	if err := vcs.Checkout(ctx, string(parent)); err != nil {
		return nil
	}

	newHead, err := vcs.HeadRevision()
	if err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "failed to read new HEAD after rollback checkout", err)
	}

	if err := hk.Run(ctx, hooks.SetChangeID, string(newHead)); err != nil {
		return syncerr.NewWalk(string(PhaseRollback), string(rev), "set-change-id failed after rollback", err)
	}

	return nil
}
