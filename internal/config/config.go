// Package config derives the per-invocation configuration the sync
// engine needs: the repository root, the session directory, the user
// hooks directory, and the world and local revision ids. Nothing here is
// persisted; every invocation rebuilds it fresh from the working tree.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/syncworld/sync-world/internal/hooks"
	"github.com/syncworld/sync-world/internal/syncerr"
	"github.com/syncworld/sync-world/internal/vcsadapter"
)

// HooksDirName is the fixed directory name holding user hooks, resolved
// relative to the repository root.
const HooksDirName = "git-sync-world"

// Config is the frozen view of the world this invocation operates
// against.
type Config struct {
	RootDir      string
	SessionDir   string
	UserHooksDir string
	WorldID      vcsadapter.Revision
	LocalID      vcsadapter.Revision
}

// Build derives Config for vcs, running get-change-id to learn WorldID
// and reading HEAD to learn LocalID.
//
// Fails with a *syncerr.Config error if the working tree is dirty,
// user_hooks_dir does not exist, or get-change-id is missing,
// non-executable, fails, returns literally "HEAD", or returns a
// non-empty string that does not resolve to a known revision.
func Build(ctx context.Context, vcs vcsadapter.VCS) (*Config, error) {
	clean, err := vcs.IsClean()
	if err != nil {
		return nil, syncerr.NewConfig("failed to check working tree cleanliness", err)
	}
	if !clean {
		return nil, syncerr.NewConfig("working tree has uncommitted changes", nil)
	}

	rootDir, err := vcs.RootDir()
	if err != nil {
		return nil, syncerr.NewConfig("failed to resolve repository root", err)
	}

	metaDir, err := vcs.MetadataDir()
	if err != nil {
		return nil, syncerr.NewConfig("failed to resolve VCS metadata directory", err)
	}

	userHooksDir := filepath.Join(rootDir, HooksDirName)
	if !dirExists(userHooksDir) {
		return nil, syncerr.NewConfig("hooks directory does not exist: "+userHooksDir, nil)
	}

	sessionDir := filepath.Join(metaDir, HooksDirName)

	hk := hooks.NewRunner(userHooksDir, rootDir)
	worldIDStr, err := hk.Capture(ctx, hooks.GetChangeID)
	if err != nil {
		return nil, syncerr.NewConfig("get-change-id failed", err)
	}
	if worldIDStr == "HEAD" {
		return nil, syncerr.NewConfig("get-change-id returned the reserved value \"HEAD\"", nil)
	}

	worldID := vcsadapter.Revision(worldIDStr)
	if !worldID.IsPreTracking() {
		if _, err := vcs.Resolve(worldIDStr); err != nil {
			return nil, syncerr.NewConfig("get-change-id returned an unresolvable revision: "+worldIDStr, err)
		}
	}

	localID, err := vcs.HeadRevision()
	if err != nil {
		return nil, syncerr.NewConfig("failed to read HEAD", err)
	}

	return &Config{
		RootDir:      rootDir,
		SessionDir:   sessionDir,
		UserHooksDir: userHooksDir,
		WorldID:      worldID,
		LocalID:      localID,
	}, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
