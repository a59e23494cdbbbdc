// Package controller implements the top-level dispatch for the five
// commands (sync, status, continue, skip, abort), the start/resume/
// finish session lifecycle, and restoration of ORIG_HEAD.
package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/syncworld/sync-world/internal/audit"
	"github.com/syncworld/sync-world/internal/config"
	"github.com/syncworld/sync-world/internal/dashboard"
	"github.com/syncworld/sync-world/internal/hooks"
	"github.com/syncworld/sync-world/internal/livewatch"
	"github.com/syncworld/sync-world/internal/planner"
	"github.com/syncworld/sync-world/internal/session"
	"github.com/syncworld/sync-world/internal/syncerr"
	"github.com/syncworld/sync-world/internal/uiout"
	"github.com/syncworld/sync-world/internal/vcsadapter"
	"github.com/syncworld/sync-world/internal/walker"
)

// Controller wires the VCS, the hook runner, the session store, and a
// reporter together to drive one invocation of the tool.
type Controller struct {
	vcs     vcsadapter.VCS
	printer *uiout.Printer

	// ServeAddr, when non-empty, starts a dashboard.Server for the
	// duration of a drain (Sync, Continue, Skip) so websocket clients can
	// watch live. Status does not start it.
	ServeAddr string
	// Watch, when true, makes Status print its snapshot and then tail
	// the session directory with fsnotify.
	Watch bool
	// HistoryN, when non-zero, makes Status print the last N audit
	// sessions after the current status.
	HistoryN int
	// ExportYAMLPath, when non-empty, makes Status additionally write
	// its view of the world as YAML to this path.
	ExportYAMLPath string
}

// New builds a Controller for vcs, reporting through printer.
func New(vcs vcsadapter.VCS, printer *uiout.Printer) *Controller {
	return &Controller{vcs: vcs, printer: printer}
}

// Status computes configuration and prints World ID / Git ID, noting any
// in-progress session or pending sync. It never mutates state.
func (c *Controller) Status(ctx context.Context) error {
	cfg, err := config.Build(ctx, c.vcs)
	if err != nil {
		return err
	}

	c.printer.Status(fmt.Sprintf("World ID: %s", displayID(cfg.WorldID)))
	c.printer.Status(fmt.Sprintf("Git ID: %s", cfg.LocalID))

	store := session.New(cfg.SessionDir)
	switch {
	case store.Exists():
		c.printer.Status("A sync session is in progress.")
		c.printer.Status("Use --continue, --skip, or --abort.")
	case cfg.WorldID == cfg.LocalID:
		c.printer.Status("Already synced.")
	default:
		c.printer.Status("A sync is pending. Run with no flags to start it.")
	}

	if c.HistoryN > 0 {
		if err := c.printHistory(ctx, cfg); err != nil {
			return err
		}
	}

	if c.ExportYAMLPath != "" {
		if err := c.exportYAML(cfg, store); err != nil {
			return err
		}
	}

	if c.Watch {
		return c.watchSession(ctx, store)
	}

	return nil
}

func (c *Controller) printHistory(ctx context.Context, cfg *config.Config) error {
	settings, err := config.LoadSettings(cfg.RootDir)
	if err != nil {
		return syncerr.NewConfig("failed to load settings", err)
	}

	db, err := audit.Open(c.auditPath(cfg, settings))
	if err != nil {
		return syncerr.NewConfig("failed to open audit database", err)
	}
	defer db.Close()

	sessions, err := db.RecentSessions(ctx, c.HistoryN)
	if err != nil {
		return syncerr.NewConfig("failed to read sync history", err)
	}

	if len(sessions) == 0 {
		c.printer.Status("No recorded sync history.")
		return nil
	}

	c.printer.Status(fmt.Sprintf("Last %d sync session(s):", len(sessions)))
	for _, s := range sessions {
		line := fmt.Sprintf("  #%d %s -> %s [%s] started %s",
			s.ID, s.FromWorldID, s.ToWorldID, s.Outcome, s.StartedAt.Format(time.RFC3339))
		c.printer.Status(line)
	}
	return nil
}

// statusExport is the shape written by --status --export-yaml.
type statusExport struct {
	WorldID   string `yaml:"world_id"`
	LocalID   string `yaml:"local_id"`
	InSession bool   `yaml:"in_session"`
}

func (c *Controller) exportYAML(cfg *config.Config, store *session.Store) error {
	export := statusExport{
		WorldID:   displayID(cfg.WorldID),
		LocalID:   string(cfg.LocalID),
		InSession: store.Exists(),
	}
	data, err := yaml.Marshal(export)
	if err != nil {
		return syncerr.NewConfig("failed to marshal status as YAML", err)
	}
	if err := writeFileAtomic(c.ExportYAMLPath, data); err != nil {
		return syncerr.NewConfig("failed to write "+c.ExportYAMLPath, err)
	}
	return nil
}

func (c *Controller) watchSession(ctx context.Context, store *session.Store) error {
	w, err := livewatch.New(store.Dir())
	if err != nil {
		return syncerr.NewConfig("failed to start session watcher", err)
	}
	if err := w.Start(); err != nil {
		return syncerr.NewConfig("failed to watch session directory", err)
	}
	defer w.Stop()

	c.printer.Status("Watching session directory for changes (Ctrl-C to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			c.printer.Status(fmt.Sprintf("queue file changed: %s (%s)", ev.Kind, ev.Path))
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			c.printer.Status(fmt.Sprintf("watch error: %v", err))
		}
	}
}

// Sync starts a new session: refuses if already synced or a session
// exists, otherwise plans and drains.
func (c *Controller) Sync(ctx context.Context) error {
	cfg, err := config.Build(ctx, c.vcs)
	if err != nil {
		return err
	}

	store := session.New(cfg.SessionDir)
	if store.Exists() {
		return syncerr.NewUsage("a sync session is already in progress; use --continue, --skip, or --abort")
	}

	if cfg.WorldID == cfg.LocalID {
		c.printer.Status("Already synced.")
		return nil
	}

	plan, err := planner.Compute(c.vcs, cfg.WorldID, cfg.LocalID)
	if err != nil {
		return syncerr.NewConfig("failed to compute sync plan", err)
	}

	symHead, err := c.vcs.SymbolicHead()
	if err != nil {
		return syncerr.NewConfig("failed to read symbolic head", err)
	}

	if err := store.Begin(); err != nil {
		return syncerr.NewConfig("failed to create session directory", err)
	}
	if err := store.SaveOriginalHead(symHead); err != nil {
		return syncerr.NewConfig("failed to save original head", err)
	}

	rollback := make([]string, len(plan.Rollback))
	for i, r := range plan.Rollback {
		rollback[i] = string(r)
	}
	commitList := make([]string, len(plan.Commit))
	for i, r := range plan.Commit {
		commitList[i] = string(r)
	}

	if err := store.WriteQueue(session.Rollback, rollback); err != nil {
		return syncerr.NewConfig("failed to write rollback queue", err)
	}
	if err := store.WriteQueue(session.Commit, commitList); err != nil {
		return syncerr.NewConfig("failed to write commit queue", err)
	}

	c.beginAudit(ctx, cfg, store)

	return c.drain(ctx, cfg, store)
}

// Continue resumes an in-progress session.
func (c *Controller) Continue(ctx context.Context) error {
	cfg, err := config.Build(ctx, c.vcs)
	if err != nil {
		return err
	}

	store := session.New(cfg.SessionDir)
	if !store.Exists() {
		return syncerr.NewUsage("no sync session in progress")
	}

	return c.drain(ctx, cfg, store)
}

// Skip drops the current front revision (rollback first, else commit)
// and resumes draining. If both queues become empty, finishes.
func (c *Controller) Skip(ctx context.Context) error {
	cfg, err := config.Build(ctx, c.vcs)
	if err != nil {
		return err
	}

	store := session.New(cfg.SessionDir)
	if !store.Exists() {
		return syncerr.NewUsage("no sync session in progress")
	}

	if _, ok, err := store.PopFront(session.Rollback); err != nil {
		return syncerr.NewConfig("failed to pop rollback queue", err)
	} else if !ok {
		if _, ok, err := store.PopFront(session.Commit); err != nil {
			return syncerr.NewConfig("failed to pop commit queue", err)
		} else if !ok {
			return c.finish(ctx, cfg, store, "completed")
		}
	}

	rb, err := store.ReadQueue(session.Rollback)
	if err != nil {
		return syncerr.NewConfig("failed to read rollback queue", err)
	}
	cm, err := store.ReadQueue(session.Commit)
	if err != nil {
		return syncerr.NewConfig("failed to read commit queue", err)
	}
	if len(rb) == 0 && len(cm) == 0 {
		return c.finish(ctx, cfg, store, "completed")
	}

	return c.drain(ctx, cfg, store)
}

// Abort ends the session immediately without applying anything more.
// The caller (the CLI layer) is responsible for any interactive
// confirmation before invoking Abort.
func (c *Controller) Abort(ctx context.Context) error {
	cfg, err := config.Build(ctx, c.vcs)
	if err != nil {
		return err
	}

	store := session.New(cfg.SessionDir)
	if !store.Exists() {
		return syncerr.NewUsage("no sync session in progress")
	}

	return c.finish(ctx, cfg, store, "aborted")
}

// drain pops a revision — rollback first, then commit — and runs the
// per-revision state machine until both queues are exhausted or a walk
// error occurs. A walk error leaves the failing revision pushed back to
// its queue's front.
func (c *Controller) drain(ctx context.Context, cfg *config.Config, store *session.Store) error {
	hk := hooks.NewRunner(cfg.UserHooksDir, cfg.RootDir)
	if settings, err := config.LoadSettings(cfg.RootDir); err == nil {
		if metaDir, err := c.vcs.MetadataDir(); err == nil {
			hk.SetDebugLog(&lumberjack.Logger{
				Filename:   filepath.Join(metaDir, "git-sync-world.log"),
				MaxSize:    settings.DebugLogMaxSizeMB,
				MaxBackups: settings.DebugLogMaxBackups,
			})
		}
	}

	var dash *dashboard.Server
	if c.ServeAddr != "" {
		dash = dashboard.NewServer(dashboard.Config{Addr: c.ServeAddr})
		if err := dash.Start(); err != nil {
			return syncerr.NewConfig("failed to start dashboard server", err)
		}
		defer dash.Stop()
	}

	auditDB, sessionID, haveAudit := c.openAuditForDrain(ctx, cfg, store)
	if haveAudit {
		defer auditDB.Close()
	}

	for {
		rev, phase, ok, err := popNext(store)
		if err != nil {
			return syncerr.NewConfig("failed to read session queues", err)
		}
		if !ok {
			return c.finish(ctx, cfg, store, "completed")
		}

		remaining, err := queueLength(store, phase)
		if err != nil {
			return syncerr.NewConfig("failed to read session queues", err)
		}

		rep := &broadcastReporter{printer: c.printer, dash: dash, phase: phase, rev: vcsadapter.Revision(rev), remaining: remaining}
		start := time.Now()
		stepErr := walker.Step(ctx, c.vcs, hk, rep, phase, vcsadapter.Revision(rev))
		elapsed := time.Since(start)

		if stepErr != nil {
			var kind session.Kind
			if phase == walker.PhaseRollback {
				kind = session.Rollback
			} else {
				kind = session.Commit
			}
			if pushErr := store.PushFront(kind, rev); pushErr != nil {
				return syncerr.NewConfig("failed to restore revision to queue after walk error", pushErr)
			}
			return stepErr
		}

		if haveAudit {
			_ = auditDB.RecordHookRun(ctx, sessionID, audit.HookRun{
				Phase:      string(phase),
				Revision:   rev,
				Hook:       string(phase),
				ExitCode:   0,
				DurationMS: elapsed.Milliseconds(),
			})
		}
	}
}

func queueLength(store *session.Store, phase walker.Phase) (int, error) {
	kind := session.Commit
	if phase == walker.PhaseRollback {
		kind = session.Rollback
	}
	q, err := store.ReadQueue(kind)
	if err != nil {
		return 0, err
	}
	return len(q), nil
}

// broadcastReporter forwards walker progress to both the printer and,
// if present, the dashboard's connected clients.
type broadcastReporter struct {
	printer   *uiout.Printer
	dash      *dashboard.Server
	phase     walker.Phase
	rev       vcsadapter.Revision
	remaining int
}

func (r *broadcastReporter) Report(msg string) {
	r.printer.Report(msg)
	if r.dash != nil {
		r.dash.Broadcast(dashboard.Event{
			Type:      dashboard.EventStep,
			Phase:     string(r.phase),
			Revision:  string(r.rev),
			Remaining: r.remaining,
		})
	}
}

func popNext(store *session.Store) (string, walker.Phase, bool, error) {
	if rev, ok, err := store.PopFront(session.Rollback); err != nil {
		return "", "", false, err
	} else if ok {
		return rev, walker.PhaseRollback, true, nil
	}

	if rev, ok, err := store.PopFront(session.Commit); err != nil {
		return "", "", false, err
	} else if ok {
		return rev, walker.PhaseCommit, true, nil
	}

	return "", "", false, nil
}

// finish checks out the original symbolic head and destroys the session
// directory. If checkout fails, the session directory is left intact so
// the operator can retry.
func (c *Controller) finish(ctx context.Context, cfg *config.Config, store *session.Store, outcome string) error {
	symHead, err := store.LoadOriginalHead()
	if err != nil {
		return syncerr.NewConfig("failed to read saved original head", err)
	}

	if err := c.vcs.Checkout(ctx, symHead); err != nil {
		return syncerr.NewConfig("failed to restore original head "+symHead, err)
	}

	c.finishAudit(ctx, cfg, store, outcome)

	if err := store.Destroy(); err != nil {
		return syncerr.NewConfig("failed to remove session directory", err)
	}

	c.printer.Status("Done.")
	return nil
}

// beginAudit records the start of a new sync session in the audit
// database. Failure to do so is logged but never fails the sync itself
// — audit history is bookkeeping, not sync semantics.
func (c *Controller) beginAudit(ctx context.Context, cfg *config.Config, store *session.Store) {
	settings, err := config.LoadSettings(cfg.RootDir)
	if err != nil {
		return
	}
	db, err := audit.Open(c.auditPath(cfg, settings))
	if err != nil {
		return
	}
	defer db.Close()

	id, err := db.BeginSession(ctx, displayID(cfg.WorldID), string(cfg.LocalID))
	if err != nil {
		return
	}
	_ = store.SaveAuditSessionID(id)
}

// openAuditForDrain reopens the audit database and the session id saved
// by beginAudit, if any. Absence of either is not an error: older
// sessions resumed via --continue may predate audit support, or the
// operator may have deleted the audit database.
func (c *Controller) openAuditForDrain(ctx context.Context, cfg *config.Config, store *session.Store) (*audit.DB, int64, bool) {
	id, ok, err := store.LoadAuditSessionID()
	if err != nil || !ok {
		return nil, 0, false
	}
	settings, err := config.LoadSettings(cfg.RootDir)
	if err != nil {
		return nil, 0, false
	}
	db, err := audit.Open(c.auditPath(cfg, settings))
	if err != nil {
		return nil, 0, false
	}
	return db, id, true
}

func (c *Controller) finishAudit(ctx context.Context, cfg *config.Config, store *session.Store, outcome string) {
	id, ok, err := store.LoadAuditSessionID()
	if err != nil || !ok {
		return
	}
	settings, err := config.LoadSettings(cfg.RootDir)
	if err != nil {
		return
	}
	db, err := audit.Open(c.auditPath(cfg, settings))
	if err != nil {
		return
	}
	defer db.Close()
	_ = db.FinishSession(ctx, id, outcome)
}

func (c *Controller) auditPath(cfg *config.Config, settings config.Settings) string {
	if settings.AuditDBPath != "" {
		return settings.AuditDBPath
	}
	metaDir, err := c.vcs.MetadataDir()
	if err != nil {
		metaDir = filepath.Dir(cfg.SessionDir)
	}
	return filepath.Join(metaDir, "git-sync-world-audit.db")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func displayID(rev vcsadapter.Revision) string {
	if rev.IsPreTracking() {
		return "(pre-tracking)"
	}
	return string(rev)
}
