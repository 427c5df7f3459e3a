// Package config loads the YAML configuration file, applies STRONGHOLDCORE_*
// environment overrides and watches the file for live edits.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"strongholdcore/internal/core"
	"strongholdcore/pkg/domain"
)

// Config is the on-disk configuration.
type Config struct {
	Parameters      domain.Parameters `yaml:"parameters"`
	UndoLimit       int               `yaml:"undo_limit"`
	LockedByDefault bool              `yaml:"locked_by_default"`
	AutoReset       AutoResetConfig   `yaml:"auto_reset"`
	Input           InputConfig       `yaml:"input"`
	Storage         StorageConfig     `yaml:"storage"`
	Blob            BlobConfig        `yaml:"blob"`
	Logging         LoggingConfig     `yaml:"logging"`
	Metrics         MetricsConfig     `yaml:"metrics"`
}

// AutoResetConfig controls the idle reset of an unlocked log.
type AutoResetConfig struct {
	Enabled bool          `yaml:"enabled"`
	After   time.Duration `yaml:"after"`
}

// InputConfig selects where F3+C observations are read from.
type InputConfig struct {
	// Source is "file" or "stdin".
	Source       string        `yaml:"source"`
	Path         string        `yaml:"path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// Hotkeys maps key names to command names (reset, undo, increment, ...).
	Hotkeys map[string]string `yaml:"hotkeys,omitempty"`
}

// StorageConfig selects the session archive backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	QueueSize   int    `yaml:"queue_size"`
}

// BlobConfig selects where finished sessions are exported. An empty driver
// disables exports.
type BlobConfig struct {
	Driver   string `yaml:"driver"`
	FSRoot   string `yaml:"fs_root,omitempty"`
	Bucket   string `yaml:"s3_bucket,omitempty"`
	Region   string `yaml:"s3_region,omitempty"`
	Endpoint string `yaml:"s3_endpoint,omitempty"`
	// PathStyle forces path-style S3 addressing for MinIO-style endpoints.
	PathStyle bool   `yaml:"s3_path_style,omitempty"`
	Prefix    string `yaml:"prefix"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus listener; empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Parameters: domain.DefaultParameters(),
		UndoLimit:  core.DefaultUndoLimit,
		AutoReset:  AutoResetConfig{After: 15 * time.Minute},
		Input: InputConfig{
			Source:       "file",
			Path:         "observation.txt",
			PollInterval: 100 * time.Millisecond,
			Hotkeys: map[string]string{
				"f6":      "reset",
				"f7":      "undo",
				"up":      "increment",
				"down":    "decrement",
				"f8":      "altstd",
				"f9":      "boat",
				"f10":     "lock",
				"shift+c": "force",
			},
		},
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "strongholdcore.db", QueueSize: 16},
		Blob:    BlobConfig{Prefix: "sessions/"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

var (
	storageDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	blobDrivers    = map[string]bool{"": true, "none": true, "fs": true, "memory": true, "s3": true}
	inputSources   = map[string]bool{"file": true, "stdin": true}
	logLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats     = map[string]bool{"text": true, "json": true}
)

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if err := c.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if !inputSources[c.Input.Source] {
		errs = append(errs, fmt.Errorf("input.source %q must be file or stdin", c.Input.Source))
	}
	if c.Input.Source == "file" && c.Input.Path == "" {
		errs = append(errs, errors.New("input.path is required for the file source"))
	}
	if c.Input.PollInterval <= 0 {
		errs = append(errs, errors.New("input.poll_interval must be positive"))
	}
	if !storageDrivers[c.Storage.Driver] {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
	}
	if c.Storage.QueueSize <= 0 {
		errs = append(errs, errors.New("storage.queue_size must be positive"))
	}
	if !blobDrivers[c.Blob.Driver] {
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if c.Blob.Driver == "s3" && c.Blob.Bucket == "" {
		errs = append(errs, errors.New("blob.s3_bucket is required for the s3 driver"))
	}
	if !logLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if !logFormats[c.Logging.Format] {
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Settings projects the state handler knobs.
func (c Config) Settings() core.Settings {
	return core.Settings{
		Parameters:      c.Parameters,
		UndoLimit:       c.UndoLimit,
		LockedByDefault: c.LockedByDefault,
		AutoReset:       core.AutoReset{Enabled: c.AutoReset.Enabled, After: c.AutoReset.After},
	}
}

// ExportsEnabled reports whether finished sessions are written to a blob store.
func (c Config) ExportsEnabled() bool {
	return c.Blob.Driver != "" && c.Blob.Driver != "none"
}
