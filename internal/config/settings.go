package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// rawSettings mirrors the on-disk TOML schema; BurntSushi/toml decodes
// directly into it so a value of the wrong type surfaces as a decode
// error. Keys not in this schema are ignored without error.
type rawSettings struct {
	HookTimeoutSeconds int    `toml:"hook_timeout_seconds"`
	Color              string `toml:"color"`
	AuditDBPath        string `toml:"audit_db_path"`
	DebugLogMaxSizeMB  int    `toml:"debug_log_max_size_mb"`
	DebugLogMaxBackups int    `toml:"debug_log_max_backups"`
}

// Settings holds ambient, non-semantic knobs read from an optional
// <root_dir>/git-sync-world/config.toml. None of these fields may ever
// influence sync semantics (world id, queue contents, hook selection):
// they govern presentation and bookkeeping only.
type Settings struct {
	// HookTimeout is parsed from hook_timeout_seconds but read by no
	// other package: hooks never time out, and neither internal/dashboard
	// nor internal/livewatch consults it.
	HookTimeout time.Duration

	// Color holds "auto", "always", or "never" from the file or
	// SYNC_WORLD_COLOR. The CLI does not pass it to internal/uiout; the
	// --color flag alone selects the printer's color mode.
	Color string

	// AuditDBPath overrides the default location of the sync-history
	// SQLite database.
	AuditDBPath string

	// DebugLogMaxSizeMB and DebugLogMaxBackups configure the rotating
	// debug log's lumberjack.Logger.
	DebugLogMaxSizeMB  int
	DebugLogMaxBackups int
}

// DefaultSettings returns the settings used when no config.toml is
// present.
func DefaultSettings() Settings {
	return Settings{
		HookTimeout:        0,
		Color:              "auto",
		AuditDBPath:        "",
		DebugLogMaxSizeMB:  10,
		DebugLogMaxBackups: 5,
	}
}

// LoadSettings reads <rootDir>/git-sync-world/config.toml if present,
// merging it over DefaultSettings, then layers SYNC_WORLD_-prefixed
// environment variable overrides via viper. A missing file is not an
// error — it simply yields the defaults.
func LoadSettings(rootDir string) (Settings, error) {
	settings := DefaultSettings()

	path := filepath.Join(rootDir, HooksDirName, "config.toml")
	if _, err := os.Stat(path); err == nil {
		var raw rawSettings
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return settings, err
		}
		if raw.HookTimeoutSeconds != 0 {
			settings.HookTimeout = time.Duration(raw.HookTimeoutSeconds) * time.Second
		}
		if raw.Color != "" {
			settings.Color = raw.Color
		}
		if raw.AuditDBPath != "" {
			settings.AuditDBPath = raw.AuditDBPath
		}
		if raw.DebugLogMaxSizeMB != 0 {
			settings.DebugLogMaxSizeMB = raw.DebugLogMaxSizeMB
		}
		if raw.DebugLogMaxBackups != 0 {
			settings.DebugLogMaxBackups = raw.DebugLogMaxBackups
		}
	} else if !os.IsNotExist(err) {
		return settings, err
	}

	v := viper.New()
	v.SetEnvPrefix("SYNC_WORLD")
	v.AutomaticEnv()
	if v.IsSet("color") {
		settings.Color = v.GetString("color")
	}
	if v.IsSet("audit_db_path") {
		settings.AuditDBPath = v.GetString("audit_db_path")
	}

	return settings, nil
}
