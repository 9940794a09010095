package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"

	"github.com/hpungsan/annot/internal/logging"
)

// FileName is the configuration file looked up in the base and repo directories.
const FileName = "config.toml"

// Environment variable overrides, applied after file configs.
const (
	EnvBind          = "ANNOT_BIND"
	EnvPort          = "ANNOT_PORT"
	EnvDataDir       = "ANNOT_DATA_DIR"
	EnvUploadDir     = "ANNOT_UPLOAD_DIR"
	EnvDBPath        = "ANNOT_DB_PATH"
	EnvMaxUploadSize = "ANNOT_MAX_UPLOAD_SIZE"
	EnvLogLevel      = "ANNOT_LOG_LEVEL"
	EnvLogFormat     = "ANNOT_LOG_FORMAT"
	EnvCORSOrigins   = "ANNOT_CORS_ORIGINS"
)

// Config holds application configuration.
type Config struct {
	// Bind is the interface the HTTP server listens on.
	Bind string `toml:"bind"`

	// Port is the HTTP listen port.
	Port int `toml:"port"`

	// DataDir is the root for the notes database and uploads.
	DataDir string `toml:"data_dir"`

	// UploadDir holds content-addressed document files. Defaults to DataDir/uploads.
	UploadDir string `toml:"upload_dir,omitempty"`

	// DBPath is the SQLite notes database. Defaults to DataDir/notes.db.
	DBPath string `toml:"db_path,omitempty"`

	// ExportDir receives note exports written to disk. Defaults to DataDir/exports.
	ExportDir string `toml:"export_dir,omitempty"`

	// AllowedPaths is an allowlist of directories for file import/export.
	// Paths outside ExportDir require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `toml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for file import/export.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `toml:"allow_unsafe_paths,omitempty"`

	// MaxUploadSize is a human-readable size limit ("50MB", "1GiB").
	MaxUploadSize string `toml:"max_upload_size"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `toml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `toml:"db_max_idle_conns,omitempty"`

	Logging logging.Config `toml:"logging"`

	// CORSOrigins lists allowed origins. "*" allows any origin.
	// An overlay replaces the list rather than merging it.
	CORSOrigins []string `toml:"cors_origins,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `toml:"disabled_tools,omitempty"`

	maxUploadBytes int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:          "127.0.0.1",
		Port:          8000,
		DataDir:       ".",
		MaxUploadSize: "50MB",
		Logging: logging.Config{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
		CORSOrigins: []string{"*"},
	}
}

// MaxUploadBytes returns the parsed upload limit. Valid after Finalize.
func (c *Config) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

// Load loads configuration from baseDir/config.toml.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads the global config from globalDir and the nearest
// .annot/config.toml found walking upward from startDir. Repo config takes
// precedence. Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .annot/config.toml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".annot", FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; DisabledTools is merged and
// deduplicated; CORSOrigins is replaced when the overlay sets it.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Bind = pick(overlay.Bind, base.Bind)
	result.DataDir = pick(overlay.DataDir, base.DataDir)
	result.UploadDir = pick(overlay.UploadDir, base.UploadDir)
	result.DBPath = pick(overlay.DBPath, base.DBPath)
	result.ExportDir = pick(overlay.ExportDir, base.ExportDir)
	result.MaxUploadSize = pick(overlay.MaxUploadSize, base.MaxUploadSize)
	result.Logging.Level = pick(overlay.Logging.Level, base.Logging.Level)
	result.Logging.Format = pick(overlay.Logging.Format, base.Logging.Format)

	result.Port = overlay.Port
	if result.Port == 0 {
		result.Port = base.Port
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.CORSOrigins = base.CORSOrigins
	if overlay.CORSOrigins != nil {
		result.CORSOrigins = overlay.CORSOrigins
	}

	// Once enabled by any layer, unsafe paths stay enabled
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// ApplyEnv overrides fields from ANNOT_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBind); v != "" {
		c.Bind = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvUploadDir); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = logging.Level(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = logging.Format(v)
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		c.CORSOrigins = mergeStringSlice(strings.Split(v, ","), nil)
	}
	return nil
}

// Finalize resolves derived paths and validates the configuration.
func (c *Config) Finalize() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "notes.db")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(c.DataDir, "exports")
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadBytes = size

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Addr returns the bind:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func pick[T ~string](overlay, base T) T {
	if overlay != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
