// Package config loads nestreport settings from a config file, the
// environment, and built-in defaults, in that order of increasing
// precedence for the environment over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nestdb/nestreport/internal/engine"
)

// Settings holds the resolved configuration.
type Settings struct {
	// LibraryPath is an explicit engine library path.
	LibraryPath string `mapstructure:"library-path"`
	// InstallDir overrides the default engine install directory.
	InstallDir string `mapstructure:"install-dir"`
	// Database is the default database file for report commands.
	Database string `mapstructure:"database"`
	// Version pins the engine release tag, or "latest".
	Version string `mapstructure:"version"`
	// Token authenticates release API requests.
	Token string `mapstructure:"token"`
	// Timeout bounds each release API attempt.
	Timeout time.Duration `mapstructure:"timeout"`
	// CacheMaxAge bounds download cache freshness.
	CacheMaxAge time.Duration `mapstructure:"cache-max-age"`
	// Format is the default report output format.
	Format string `mapstructure:"format"`
}

// Load reads settings. When file is non-empty it must exist; otherwise the
// standard location (user config dir, nestreport/config.yaml) is tried and
// a missing file is fine. NESTREPORT_* environment variables override file
// values (dashes become underscores, e.g. NESTREPORT_INSTALL_DIR).
func Load(file string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Every key needs a default so environment-only values survive
	// Unmarshal; viper only binds keys it already knows about.
	v.SetDefault("library-path", "")
	v.SetDefault("install-dir", "")
	v.SetDefault("database", "")
	v.SetDefault("token", "")
	v.SetDefault("version", engine.VersionLatest)
	v.SetDefault("timeout", engine.DefaultTimeout)
	v.SetDefault("cache-max-age", engine.DefaultCacheMaxAge)
	v.SetDefault("format", "table")

	v.SetEnvPrefix("NESTREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "nestreport"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &s, nil
}
