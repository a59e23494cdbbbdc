// Command git-sync-world synchronizes an external world with the
// revision checked out in a git or jj working tree, driving a
// user-supplied hook quintet at each step along the shortest path
// between the world's current change id and the checked-out revision.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/syncworld/sync-world/internal/controller"
	"github.com/syncworld/sync-world/internal/syncerr"
	"github.com/syncworld/sync-world/internal/uiout"
	"github.com/syncworld/sync-world/internal/vcsadapter"
	"github.com/syncworld/sync-world/internal/vcsadapter/git"
	"github.com/syncworld/sync-world/internal/vcsadapter/jj"
)

var (
	statusFlag   bool
	continueFlag bool
	skipFlag     bool
	abortFlag    bool
	colorFlag    string
	yesFlag      bool
	watchFlag    bool
	serveFlag    string
	historyFlag  int
	exportYAML   string
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(syncerr.ExitCodeOf(err))
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "git-sync-world",
		Short:         "Synchronize an external world with the checked-out revision",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runE,
	}

	cmd.Flags().BoolVar(&statusFlag, "status", false, "print status; never mutates state")
	cmd.Flags().BoolVar(&continueFlag, "continue", false, "resume a mid-session sync")
	cmd.Flags().BoolVar(&skipFlag, "skip", false, "drop the current front revision and resume")
	cmd.Flags().BoolVar(&abortFlag, "abort", false, "end the session without further hook execution")
	cmd.Flags().StringVar(&colorFlag, "color", "auto", `"auto", "always", or "never"`)
	cmd.Flags().BoolVar(&yesFlag, "yes", false, "skip the interactive confirmation before --abort")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "with --status, tail session directory changes live")
	cmd.Flags().StringVar(&serveFlag, "serve", "", "while a sync runs (no flag, --continue, or --skip), broadcast progress over websocket at ADDR")
	cmd.Flags().IntVar(&historyFlag, "history", 0, "with --status, print the last N recorded sync sessions")
	cmd.Flags().StringVar(&exportYAML, "export-yaml", "", "with --status, additionally write status as YAML to PATH")
	cmd.Flags().BoolP("help", "?", false, "print usage")

	return cmd
}

func runE(cmd *cobra.Command, args []string) error {
	mode, err := selectMode()
	if err != nil {
		return reportAndReturn(cmd, err)
	}

	vcs, err := detectVCS()
	if err != nil {
		return reportAndReturn(cmd, syncerr.NewConfig("failed to detect VCS", err))
	}

	printer := uiout.New(colorFlag)
	c := controller.New(vcs, printer)
	c.Watch = watchFlag
	c.HistoryN = historyFlag
	c.ExportYAMLPath = exportYAML
	c.ServeAddr = serveFlag

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch mode {
	case "status":
		err = c.Status(ctx)
	case "continue":
		err = c.Continue(ctx)
	case "skip":
		err = c.Skip(ctx)
	case "abort":
		if aerr := confirmAbort(); aerr != nil {
			return reportAndReturn(cmd, syncerr.NewUsage(aerr.Error()))
		}
		err = c.Abort(ctx)
	default:
		err = c.Sync(ctx)
	}

	if err != nil {
		printer.Error(err.Error())
		return err
	}
	return nil
}

func selectMode() (string, error) {
	set := 0
	mode := "sync"
	if statusFlag {
		set++
		mode = "status"
	}
	if continueFlag {
		set++
		mode = "continue"
	}
	if skipFlag {
		set++
		mode = "skip"
	}
	if abortFlag {
		set++
		mode = "abort"
	}
	if set > 1 {
		return "", syncerr.NewFlagUsage("at most one of --status, --continue, --skip, --abort may be given")
	}
	return mode, nil
}

func detectVCS() (vcsadapter.VCS, error) {
	factory := vcsadapter.NewFactory(
		vcsadapter.WithGitBackend(git.New),
		vcsadapter.WithJJBackend(jj.New),
	)
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return factory.Create(cwd)
}

// confirmAbort asks the operator to confirm before ending a session
// without completing it, unless --yes was given or stdin isn't a
// terminal (scripted use has no one to prompt).
func confirmAbort() error {
	if yesFlag {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title("Abort the in-progress sync?").
		Affirmative("Abort").
		Negative("Cancel").
		Value(&confirmed).
		Run()
	if err != nil {
		if err == huh.ErrUserAborted {
			return fmt.Errorf("abort cancelled")
		}
		return fmt.Errorf("confirmation prompt failed: %w", err)
	}
	if !confirmed {
		return fmt.Errorf("abort cancelled")
	}
	return nil
}

func reportAndReturn(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "git-sync-world: ERROR - "+err.Error())
	return err
}
