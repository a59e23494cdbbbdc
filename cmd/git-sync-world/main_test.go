package main

import "testing"

func resetFlags() {
	statusFlag = false
	continueFlag = false
	skipFlag = false
	abortFlag = false
	yesFlag = false
	watchFlag = false
	serveFlag = ""
	historyFlag = 0
	exportYAML = ""
}

func TestSelectModeDefaultsToSync(t *testing.T) {
	resetFlags()
	mode, err := selectMode()
	if err != nil {
		t.Fatalf("selectMode: %v", err)
	}
	if mode != "sync" {
		t.Errorf("mode = %q, want sync", mode)
	}
}

func TestSelectModeSingleFlag(t *testing.T) {
	cases := []struct {
		name string
		set  func()
		want string
	}{
		{"status", func() { statusFlag = true }, "status"},
		{"continue", func() { continueFlag = true }, "continue"},
		{"skip", func() { skipFlag = true }, "skip"},
		{"abort", func() { abortFlag = true }, "abort"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags()
			tc.set()
			mode, err := selectMode()
			if err != nil {
				t.Fatalf("selectMode: %v", err)
			}
			if mode != tc.want {
				t.Errorf("mode = %q, want %q", mode, tc.want)
			}
		})
	}
}

func TestSelectModeConflictingFlagsIsUsageError(t *testing.T) {
	resetFlags()
	statusFlag = true
	abortFlag = true

	_, err := selectMode()
	if err == nil {
		t.Fatal("expected usage error for conflicting flags")
	}
}

func TestNewRootCommandRegistersAllFlags(t *testing.T) {
	resetFlags()
	cmd := newRootCommand()
	for _, name := range []string{"status", "continue", "skip", "abort", "color", "yes", "watch", "serve", "history", "export-yaml"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
}
