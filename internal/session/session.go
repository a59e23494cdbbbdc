// Package session manages the on-disk representation of an in-progress
// sync: the saved original head and the two ordered revision queues,
// rollback and commit. Every mutation rewrites its target file through a
// temp-file-then-rename so a crash mid-write leaves the previous
// contents intact rather than a half-written file.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind names one of the two revision queues.
type Kind string

const (
	Rollback Kind = "rollback"
	Commit   Kind = "commit"
)

const (
	origHeadFile = "ORIG_HEAD"
	auditIDFile  = "audit_session_id"
)

// Store is the file-backed session journal rooted at dir, which is
// <vcs_metadata_dir>/git-sync-world.
type Store struct {
	dir string
}

// New builds a Store rooted at dir. dir need not exist yet; Begin
// creates it.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the session directory path.
func (s *Store) Dir() string { return s.dir }

// Exists reports whether a session is in progress: dir exists as a
// directory.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Begin creates the session directory. The caller must check Exists
// first; Begin does not itself enforce exclusivity (mutual exclusion
// across invocations is advisory, per the concurrency model).
func (s *Store) Begin() error {
	return os.MkdirAll(s.dir, 0755)
}

// SaveOriginalHead writes sym as the single line of ORIG_HEAD.
func (s *Store) SaveOriginalHead(sym string) error {
	return s.atomicWriteLines(origHeadFile, []string{sym})
}

// LoadOriginalHead reads the symbolic name saved by SaveOriginalHead.
func (s *Store) LoadOriginalHead() (string, error) {
	lines, err := s.readLines(origHeadFile)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("session: %s is empty", origHeadFile)
	}
	return lines[0], nil
}

// SaveAuditSessionID records the audit package's row id for this
// session, so that --continue and --skip can append to the same
// history row a later invocation's drain resumes.
func (s *Store) SaveAuditSessionID(id int64) error {
	return s.atomicWriteLines(auditIDFile, []string{fmt.Sprintf("%d", id)})
}

// LoadAuditSessionID reads the id saved by SaveAuditSessionID. ok is
// false if no id was ever recorded, which callers treat as "audit
// logging unavailable for this session" rather than an error.
func (s *Store) LoadAuditSessionID() (id int64, ok bool, err error) {
	lines, err := s.readLines(auditIDFile)
	if err != nil {
		return 0, false, err
	}
	if len(lines) == 0 {
		return 0, false, nil
	}
	if _, err := fmt.Sscanf(lines[0], "%d", &id); err != nil {
		return 0, false, fmt.Errorf("session: malformed %s: %w", auditIDFile, err)
	}
	return id, true, nil
}

// WriteQueue overwrites the rollback or commit file with revs, one per
// line, in the given order.
func (s *Store) WriteQueue(kind Kind, revs []string) error {
	return s.atomicWriteLines(string(kind), revs)
}

// ReadQueue returns the full contents of a queue file, in file order.
// A missing file reads as an empty queue.
func (s *Store) ReadQueue(kind Kind) ([]string, error) {
	return s.readLines(string(kind))
}

// PopFront atomically removes and returns the first revision in kind's
// queue. Returns ("", false, nil) if the queue is empty or absent.
func (s *Store) PopFront(kind Kind) (string, bool, error) {
	lines, err := s.readLines(string(kind))
	if err != nil {
		return "", false, err
	}
	if len(lines) == 0 {
		return "", false, nil
	}

	front := lines[0]
	rest := lines[1:]
	if err := s.atomicWriteLines(string(kind), rest); err != nil {
		return "", false, err
	}
	return front, true, nil
}

// PushFront re-prepends rev to kind's queue — used to restore a failing
// revision to the head of its queue after a walk error.
func (s *Store) PushFront(kind Kind, rev string) error {
	lines, err := s.readLines(string(kind))
	if err != nil {
		return err
	}
	return s.atomicWriteLines(string(kind), append([]string{rev}, lines...))
}

// Destroy removes ORIG_HEAD, rollback, commit, and finally the now-empty
// session directory.
func (s *Store) Destroy() error {
	for _, name := range []string{origHeadFile, auditIDFile, string(Rollback), string(Commit)} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) readLines(name string) ([]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// atomicWriteLines writes lines (one per line, trailing newline) to name
// under s.dir via a temp file in the same directory followed by a
// rename, so a crash mid-write never corrupts the previous contents.
func (s *Store) atomicWriteLines(name string, lines []string) error {
	var content strings.Builder
	for _, line := range lines {
		content.WriteString(line)
		content.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content.String()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, filepath.Join(s.dir, name))
}
