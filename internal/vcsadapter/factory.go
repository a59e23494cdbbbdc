package vcsadapter

import (
	"fmt"
)

// Backend constructs a VCS for a detected repository root. git.New and
// jj.New both satisfy this signature.
type Backend func(rootDir string) (VCS, error)

// Factory builds a VCS for a given path, auto-detecting git vs jj unless
// overridden. It is constructed once per process and holds the two
// registered backend constructors.
type Factory struct {
	git Backend
	jj  Backend
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithGitBackend registers the constructor used for TypeGit.
func WithGitBackend(b Backend) FactoryOption {
	return func(f *Factory) { f.git = b }
}

// WithJJBackend registers the constructor used for TypeJJ and
// TypeColocate (when jj is preferred).
func WithJJBackend(b Backend) FactoryOption {
	return func(f *Factory) { f.jj = b }
}

// NewFactory builds a Factory. Callers normally pass both WithGitBackend
// and WithJJBackend; a factory missing a backend simply cannot serve that
// type and returns an error when asked to.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create detects the VCS at path and constructs the matching backend. A
// colocated repository is handed to whichever backend PreferredVCS names,
// falling back to whichever of the two is actually available.
func (f *Factory) Create(path string) (VCS, error) {
	det, err := DetectWithAvailability(path)
	if err != nil {
		return nil, err
	}

	implType := f.determineImplementationType(det)

	switch implType {
	case TypeGit:
		if f.git == nil {
			return nil, fmt.Errorf("%w: no git backend registered", ErrVCSNotAvailable)
		}
		return f.git(det.RepoRoot)
	case TypeJJ:
		if f.jj == nil {
			return nil, fmt.Errorf("%w: no jj backend registered", ErrVCSNotAvailable)
		}
		return f.jj(det.RepoRoot)
	default:
		return nil, fmt.Errorf("%w: unrecognized VCS type %q", ErrVCSNotAvailable, implType)
	}
}

func (f *Factory) determineImplementationType(det *DetectionResult) Type {
	if det.Type != TypeColocate {
		return det.Type
	}

	pref := PreferredVCS()
	if pref == TypeJJ && det.HasJJ {
		return TypeJJ
	}
	if pref == TypeGit && det.HasGit {
		return TypeGit
	}

	// Preference unavailable in this tree; fall back to whichever marker
	// is actually present.
	if det.HasJJ {
		return TypeJJ
	}
	return TypeGit
}
