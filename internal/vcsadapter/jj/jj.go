// Package jj implements vcsadapter.VCS for Jujutsu (jj).
//
// Jujutsu has no separate "clean working tree" concept the way git does:
// the working copy is itself always a commit. IsClean here means the
// working copy commit has no content diff against its parent, which is
// the closest jj analogue and is enough for the clean-tree check made
// while building configuration.
package jj

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/syncworld/sync-world/internal/vcsadapter"
)

// JJ implements vcsadapter.VCS for Jujutsu repositories.
type JJ struct {
	repoRoot string
	jjDir    string
}

// New constructs a JJ backend rooted at repoRoot.
func New(repoRoot string) (vcsadapter.VCS, error) {
	j := &JJ{repoRoot: repoRoot, jjDir: repoRoot + "/.jj"}
	if _, err := j.run(context.Background(), "root"); err != nil {
		return nil, fmt.Errorf("%w: %v", vcsadapter.ErrNotInVCS, err)
	}
	return j, nil
}

func (j *JJ) Name() vcsadapter.Type { return vcsadapter.TypeJJ }

func (j *JJ) RootDir() (string, error) {
	if j.repoRoot == "" {
		return "", vcsadapter.ErrNotInVCS
	}
	return j.repoRoot, nil
}

func (j *JJ) MetadataDir() (string, error) {
	if j.jjDir == "" {
		return "", vcsadapter.ErrNotInVCS
	}
	return j.jjDir, nil
}

func (j *JJ) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "jj", args...)
	cmd.Dir = j.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := stderr.String()
		if strings.Contains(stderrStr, "no such revision") || strings.Contains(stderrStr, "doesn't exist") {
			return nil, fmt.Errorf("%w: %v", vcsadapter.ErrNotFound, err)
		}
		return stdout.Bytes(), fmt.Errorf("jj %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderrStr))
	}
	return stdout.Bytes(), nil
}

func (j *JJ) Exec(ctx context.Context, args ...string) ([]byte, error) {
	return j.run(ctx, args...)
}

func (j *JJ) Resolve(ref string) (vcsadapter.Revision, error) {
	out, err := j.run(context.Background(), "log", "-r", ref, "--no-graph", "--no-pager", "-T", "change_id")
	if err != nil {
		return "", fmt.Errorf("%w: %s", vcsadapter.ErrNotFound, ref)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("%w: %s", vcsadapter.ErrNotFound, ref)
	}
	return vcsadapter.Revision(id), nil
}

func (j *JJ) HeadRevision() (vcsadapter.Revision, error) {
	return j.Resolve("@")
}

func (j *JJ) SymbolicHead() (string, error) {
	rev, err := j.HeadRevision()
	if err != nil {
		return "", err
	}
	return string(rev), nil
}

// Checkout sets the working copy to ref via `jj edit`, jj's equivalent of
// a detached checkout: the working copy commit becomes ref itself rather
// than a new descendant of it.
func (j *JJ) Checkout(ctx context.Context, ref string) error {
	_, err := j.run(ctx, "edit", "--ignore-immutable", ref)
	return err
}

func (j *JJ) IsClean() (bool, error) {
	out, err := j.run(context.Background(), "diff", "-r", "@", "--summary", "--no-pager")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) == 0, nil
}

func (j *JJ) IsRootCommit() (bool, error) {
	out, err := j.run(context.Background(), "log", "-r", "@-", "--no-graph", "--no-pager", "-T", "change_id")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) == 0, nil
}

// ParentOfHead resolves "@-", jj's parent-of-working-copy revset.
// Callers must check IsRootCommit first; this returns an error at the
// root commit, where there is no parent.
func (j *JJ) ParentOfHead() (vcsadapter.Revision, error) {
	return j.Resolve("@-")
}

func (j *JJ) AncestorsExcluding(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	revset := fmt.Sprintf("::%s", from)
	if to != "" {
		revset = fmt.Sprintf("(::%s) ~ (::%s)", from, to)
	}
	return j.changeIDs(revset, false)
}

func (j *JJ) AncestorsExcludingReverse(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	revset := fmt.Sprintf("::%s", from)
	if to != "" {
		revset = fmt.Sprintf("(::%s) ~ (::%s)", from, to)
	}
	return j.changeIDs(revset, true)
}

func (j *JJ) FullHistoryOldestFirst() ([]vcsadapter.Revision, error) {
	return j.changeIDs("::@", true)
}

func (j *JJ) changeIDs(revset string, reversed bool) ([]vcsadapter.Revision, error) {
	if reversed {
		revset = fmt.Sprintf("reverse(%s)", revset)
	}

	out, err := j.run(context.Background(), "log", "-r", revset, "--no-graph", "--no-pager", "-T", `change_id ++ "\n"`)
	if err != nil {
		return nil, err
	}

	var revs []vcsadapter.Revision
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		revs = append(revs, vcsadapter.Revision(line))
	}
	return revs, nil
}
