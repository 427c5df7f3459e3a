package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath returns ~/.strongholdcore/strongholdcore.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".strongholdcore", "strongholdcore.yaml"), nil
}

// Load reads path, creating it with defaults on first run, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Info("first run detected, creating config", "path", path)
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	return loadExisting(path)
}

func loadExisting(path string) (Config, error) {
	cfg, err := read(path)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// read parses path on top of the defaults so omitted keys keep their values.
// A hotkeys map in the file replaces the default bindings instead of merging
// into them.
func read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	var keys struct {
		Input struct {
			Hotkeys map[string]string `yaml:"hotkeys"`
		} `yaml:"input"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if keys.Input.Hotkeys != nil {
		cfg.Input.Hotkeys = keys.Input.Hotkeys
	}
	return cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays STRONGHOLDCORE_* variables onto cfg.
//
//	STRONGHOLDCORE_STORAGE_DRIVER: memory|sqlite|postgres
//	STRONGHOLDCORE_SQLITE_PATH: path to the sqlite file
//	STRONGHOLDCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	STRONGHOLDCORE_BLOB_DRIVER: none|fs|memory|s3
//	STRONGHOLDCORE_BLOB_FS_ROOT, STRONGHOLDCORE_BLOB_S3_BUCKET,
//	STRONGHOLDCORE_BLOB_S3_REGION, STRONGHOLDCORE_BLOB_S3_ENDPOINT,
//	STRONGHOLDCORE_BLOB_S3_PATH_STYLE: export target
//	STRONGHOLDCORE_INPUT_PATH: observation file
//	STRONGHOLDCORE_LOCKED_BY_DEFAULT, STRONGHOLDCORE_AUTO_RESET (bool),
//	STRONGHOLDCORE_AUTO_RESET_AFTER (duration)
//	STRONGHOLDCORE_LOG_LEVEL, STRONGHOLDCORE_LOG_FORMAT
//	STRONGHOLDCORE_METRICS_ADDR
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("STRONGHOLDCORE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STRONGHOLDCORE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("STRONGHOLDCORE_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("STRONGHOLDCORE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("STRONGHOLDCORE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("STRONGHOLDCORE_BLOB_S3_BUCKET", &cfg.Blob.Bucket)
	str("STRONGHOLDCORE_BLOB_S3_REGION", &cfg.Blob.Region)
	str("STRONGHOLDCORE_BLOB_S3_ENDPOINT", &cfg.Blob.Endpoint)
	boolean("STRONGHOLDCORE_BLOB_S3_PATH_STYLE", &cfg.Blob.PathStyle)
	str("STRONGHOLDCORE_INPUT_PATH", &cfg.Input.Path)
	boolean("STRONGHOLDCORE_LOCKED_BY_DEFAULT", &cfg.LockedByDefault)
	boolean("STRONGHOLDCORE_AUTO_RESET", &cfg.AutoReset.Enabled)
	if v := strings.TrimSpace(getenv("STRONGHOLDCORE_AUTO_RESET_AFTER")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STRONGHOLDCORE_AUTO_RESET_AFTER: %w", err))
		} else {
			cfg.AutoReset.After = d
		}
	}
	str("STRONGHOLDCORE_LOG_LEVEL", &cfg.Logging.Level)
	str("STRONGHOLDCORE_LOG_FORMAT", &cfg.Logging.Format)
	str("STRONGHOLDCORE_METRICS_ADDR", &cfg.Metrics.Addr)
	return errors.Join(errs...)
}
