package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/gantry/xtime"
)

// Config represents the application configuration, backed by a filesystem
// for persistence.
type Config struct {
	Server Server

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem and
// configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Server defines configuration options specific to the HTTP server.
type Server struct {
	// Port is the TCP port the server will listen on.
	Port sql.Null[int] `json:"port"`
	// BaseURL is the URL prefix all route groups are mounted under, unless a
	// group carries its own base URL.
	BaseURL sql.Null[string] `json:"base_url"`
	// RoutesDir is the directory route plugins are loaded from at startup.
	RoutesDir sql.Null[string] `json:"routes_dir"`
	// ReadTimeout is the maximum duration for reading an entire request.
	// It serializes from/to xtime duration string values.
	ReadTimeout sql.Null[time.Duration] `json:"read_timeout"`
	// WriteTimeout is the maximum duration before timing out response writes.
	// It serializes from/to xtime duration string values.
	WriteTimeout sql.Null[time.Duration] `json:"write_timeout"`
	// ShutdownTimeout is the grace period for in-flight requests on close.
	// It serializes from/to xtime duration string values.
	ShutdownTimeout sql.Null[time.Duration] `json:"shutdown_timeout"`
}

type cfgWrapper struct {
	Server srvCfgWrapper `json:"server"`
}
type srvCfgWrapper struct {
	Port            int    `json:"port,omitempty"`
	BaseURL         string `json:"base_url,omitempty"`
	RoutesDir       string `json:"routes_dir,omitempty"`
	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Server.Port.Valid {
		w.Server.Port = c.Server.Port.V
	}
	if c.Server.BaseURL.Valid {
		w.Server.BaseURL = c.Server.BaseURL.V
	}
	if c.Server.RoutesDir.Valid {
		w.Server.RoutesDir = c.Server.RoutesDir.V
	}
	if c.Server.ReadTimeout.Valid {
		w.Server.ReadTimeout = xtime.FormatDuration(c.Server.ReadTimeout.V, time.Second)
	}
	if c.Server.WriteTimeout.Valid {
		w.Server.WriteTimeout = xtime.FormatDuration(c.Server.WriteTimeout.V, time.Second)
	}
	if c.Server.ShutdownTimeout.Valid {
		w.Server.ShutdownTimeout = xtime.FormatDuration(c.Server.ShutdownTimeout.V, time.Second)
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Server.Port > 0 {
		c.Server.Port = sql.Null[int]{V: w.Server.Port, Valid: true}
	}
	if w.Server.BaseURL != "" {
		c.Server.BaseURL = sql.Null[string]{V: w.Server.BaseURL, Valid: true}
	}
	if w.Server.RoutesDir != "" {
		c.Server.RoutesDir = sql.Null[string]{V: w.Server.RoutesDir, Valid: true}
	}

	durations := []struct {
		raw  string
		name string
		dst  *sql.Null[time.Duration]
	}{
		{w.Server.ReadTimeout, "read timeout", &c.Server.ReadTimeout},
		{w.Server.WriteTimeout, "write timeout", &c.Server.WriteTimeout},
		{w.Server.ShutdownTimeout, "shutdown timeout", &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		dur, err := xtime.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("failed parsing server's %s: %w", d.name, err)
		}
		*d.dst = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if !c.Server.Port.Valid {
		c.Server.Port = sql.Null[int]{V: 8080, Valid: true}
	}
	if !c.Server.ReadTimeout.Valid {
		c.Server.ReadTimeout = sql.Null[time.Duration]{V: 30 * time.Second, Valid: true}
	}
	if !c.Server.WriteTimeout.Valid {
		c.Server.WriteTimeout = sql.Null[time.Duration]{V: 10 * time.Minute, Valid: true}
	}
	if !c.Server.ShutdownTimeout.Valid {
		c.Server.ShutdownTimeout = sql.Null[time.Duration]{V: 5 * time.Second, Valid: true}
	}
}
