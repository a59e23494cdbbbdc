package vcsadapter

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectionResult describes what Detect found at a given path.
type DetectionResult struct {
	Type         Type
	RepoRoot     string
	VCSDir       string
	HasGit       bool
	HasJJ        bool
	Colocated    bool
	IsWorktree   bool
	MainRepoRoot string
}

// Detect walks up from path looking for a .jj or .git marker. Colocated
// trees (both present) report TypeColocate; PreferredVCS decides which
// backend actually drives a colocated tree.
func Detect(path string) (*DetectionResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	result := &DetectionResult{}

	current := absPath
	for {
		jjDir := filepath.Join(current, ".jj")
		gitPath := filepath.Join(current, ".git")

		if info, err := os.Stat(jjDir); err == nil && info.IsDir() {
			result.HasJJ = true
			if result.RepoRoot == "" {
				result.RepoRoot = current
				result.VCSDir = jjDir
			}
		}

		if info, err := os.Stat(gitPath); err == nil {
			result.HasGit = true
			if info.Mode().IsRegular() {
				result.IsWorktree = true
				mainRoot, vcsDir := resolveGitWorktreeRoot(current, gitPath)
				if result.RepoRoot == "" {
					result.RepoRoot = current
					result.VCSDir = vcsDir
				}
				result.MainRepoRoot = mainRoot
			} else if info.IsDir() {
				if result.RepoRoot == "" {
					result.RepoRoot = current
					result.VCSDir = gitPath
				}
				result.MainRepoRoot = current
			}
		}

		if result.HasJJ || result.HasGit {
			result.Colocated = result.HasJJ && result.HasGit
			switch {
			case result.HasJJ && result.HasGit:
				result.Type = TypeColocate
			case result.HasJJ:
				result.Type = TypeJJ
			default:
				result.Type = TypeGit
			}
			if result.MainRepoRoot == "" {
				result.MainRepoRoot = result.RepoRoot
			}
			return result, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNotInVCS
		}
		current = parent
	}
}

// resolveGitWorktreeRoot resolves the main repository root from a
// worktree's .git file, which contains "gitdir: /path/to/main/.git/worktrees/name".
func resolveGitWorktreeRoot(worktreePath, gitFile string) (string, string) {
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return worktreePath, gitFile
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return worktreePath, gitFile
	}

	gitDir := strings.TrimPrefix(line, "gitdir: ")
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktreePath, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	if idx := strings.Index(gitDir, string(filepath.Separator)+"worktrees"+string(filepath.Separator)); idx > 0 {
		mainGitDir := gitDir[:idx]
		return filepath.Dir(mainGitDir), gitDir
	}

	return worktreePath, gitDir
}

// PreferredVCS returns which backend should drive a colocated repository.
// SYNC_WORLD_VCS=git|jj overrides the default, which is jj.
func PreferredVCS() Type {
	if pref := os.Getenv("SYNC_WORLD_VCS"); pref != "" {
		switch strings.ToLower(pref) {
		case "jj", "jujutsu":
			return TypeJJ
		case "git":
			return TypeGit
		}
	}
	return TypeJJ
}

// IsGitAvailable reports whether the git binary is on PATH.
func IsGitAvailable() bool { return binaryOnPath("git") }

// IsJJAvailable reports whether the jj binary is on PATH.
func IsJJAvailable() bool { return binaryOnPath("jj") }

func binaryOnPath(name string) bool {
	pathEnv := os.Getenv("PATH")
	for _, dir := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// DetectWithAvailability detects the VCS type at path and verifies the
// required binary is actually installed, adjusting a colocated result
// down to whichever single backend is available.
func DetectWithAvailability(path string) (*DetectionResult, error) {
	result, err := Detect(path)
	if err != nil {
		return nil, err
	}

	switch result.Type {
	case TypeGit:
		if !IsGitAvailable() {
			return nil, ErrVCSNotAvailable
		}
	case TypeJJ:
		if !IsJJAvailable() {
			return nil, ErrVCSNotAvailable
		}
	case TypeColocate:
		hasGit, hasJJ := IsGitAvailable(), IsJJAvailable()
		if !hasGit && !hasJJ {
			return nil, ErrVCSNotAvailable
		}
		if hasJJ && !hasGit {
			result.HasGit = false
		} else if hasGit && !hasJJ {
			result.HasJJ = false
			result.Type = TypeGit
			result.Colocated = false
		}
	}

	return result, nil
}
