// Package git provides a Git implementation of vcsadapter.VCS.
//
// It shells out to the git binary for every operation; there is no
// library dependency because the teacher repo's own git backend does the
// same, using plumbing commands (rev-parse, rev-list, status --porcelain)
// that are stable across git versions.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/syncworld/sync-world/internal/vcsadapter"
)

// Git implements vcsadapter.VCS for git repositories.
type Git struct {
	repoRoot string
	gitDir   string
}

// New constructs a Git backend rooted at repoRoot, the working-tree root
// already resolved by vcsadapter.Detect.
func New(repoRoot string) (vcsadapter.VCS, error) {
	g := &Git{repoRoot: repoRoot}

	out, err := g.run(context.Background(), "rev-parse", "--git-dir")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vcsadapter.ErrNotInVCS, err)
	}
	g.gitDir = strings.TrimSpace(string(out))

	return g, nil
}

func (g *Git) Name() vcsadapter.Type { return vcsadapter.TypeGit }

func (g *Git) RootDir() (string, error) {
	if g.repoRoot == "" {
		return "", vcsadapter.ErrNotInVCS
	}
	return g.repoRoot, nil
}

func (g *Git) MetadataDir() (string, error) {
	if g.gitDir == "" {
		return "", vcsadapter.ErrNotInVCS
	}
	return g.gitDir, nil
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (g *Git) Exec(ctx context.Context, args ...string) ([]byte, error) {
	return g.run(ctx, args...)
}

func (g *Git) Resolve(ref string) (vcsadapter.Revision, error) {
	out, err := g.run(context.Background(), "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %s", vcsadapter.ErrNotFound, ref)
	}
	return vcsadapter.Revision(strings.TrimSpace(string(out))), nil
}

func (g *Git) HeadRevision() (vcsadapter.Revision, error) {
	return g.Resolve("HEAD")
}

func (g *Git) SymbolicHead() (string, error) {
	out, err := g.run(context.Background(), "symbolic-ref", "--short", "-q", "HEAD")
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}
	rev, rerr := g.HeadRevision()
	if rerr != nil {
		return "", rerr
	}
	return string(rev), nil
}

// Checkout attaches HEAD to ref when it names a local branch, and
// performs a detached checkout otherwise (a bare revision id, tag, or
// the pre-tracking root). Branch refs must stay attached: restoring
// ORIG_HEAD to a branch the session began on (§3, §6) needs `git
// checkout <branch>`, not `--detach <branch>`, or the repo is left
// pointing at the branch's tip with nothing tracking it.
func (g *Git) Checkout(ctx context.Context, ref string) error {
	args := []string{"checkout", "--quiet"}
	if !g.isBranch(ctx, ref) {
		args = append(args, "--detach")
	}
	args = append(args, ref)
	_, err := g.run(ctx, args...)
	return err
}

func (g *Git) isBranch(ctx context.Context, ref string) bool {
	_, err := g.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+ref)
	return err == nil
}

func (g *Git) IsClean() (bool, error) {
	out, err := g.run(context.Background(), "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) == 0, nil
}

func (g *Git) IsRootCommit() (bool, error) {
	_, err := g.run(context.Background(), "rev-parse", "--verify", "-q", "HEAD^")
	if err != nil {
		return true, nil
	}
	return false, nil
}

// ParentOfHead resolves "HEAD^". Callers must check IsRootCommit first;
// this returns an error at the root commit, where there is no parent.
func (g *Git) ParentOfHead() (vcsadapter.Revision, error) {
	return g.Resolve("HEAD^")
}

// AncestorsExcluding returns commits reachable from "from" but not "to",
// newest first: the natural order of `git rev-list from ^to`.
func (g *Git) AncestorsExcluding(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	args := []string{"rev-list", string(from)}
	if to != "" {
		args = append(args, "^"+string(to))
	}
	return g.revList(args)
}

// AncestorsExcludingReverse is the same set, oldest first.
func (g *Git) AncestorsExcludingReverse(from, to vcsadapter.Revision) ([]vcsadapter.Revision, error) {
	args := []string{"rev-list", "--reverse", string(from)}
	if to != "" {
		args = append(args, "^"+string(to))
	}
	return g.revList(args)
}

func (g *Git) FullHistoryOldestFirst() ([]vcsadapter.Revision, error) {
	head, err := g.HeadRevision()
	if err != nil {
		return nil, err
	}
	return g.revList([]string{"rev-list", "--reverse", string(head)})
}

func (g *Git) revList(args []string) ([]vcsadapter.Revision, error) {
	out, err := g.run(context.Background(), args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, err
		}
		return nil, err
	}

	var revs []vcsadapter.Revision
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		revs = append(revs, vcsadapter.Revision(line))
	}
	return revs, scanner.Err()
}
