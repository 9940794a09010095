package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/annot/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != DefaultConfig().Port {
		t.Fatalf("Port = %d, want %d", cfg.Port, DefaultConfig().Port)
	}
	if cfg.MaxUploadSize != "50MB" {
		t.Fatalf("MaxUploadSize = %q, want 50MB", cfg.MaxUploadSize)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, FileName), `
port = 9001
max_upload_size = "10MB"

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if cfg.MaxUploadSize != "10MB" {
		t.Errorf("MaxUploadSize = %q, want 10MB", cfg.MaxUploadSize)
	}
	if cfg.Logging.Level != logging.LevelDebug || cfg.Logging.Format != logging.FormatJSON {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	// Untouched scalars keep defaults
	if cfg.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want default", cfg.Bind)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, FileName), `port = = 3`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeFile(t, filepath.Join(globalDir, FileName), `
port = 8100
disabled_tools = ["note_delete"]
`)
	writeFile(t, filepath.Join(repoRoot, ".annot", FileName), `
port = 8200
disabled_tools = ["note_update"]
cors_origins = ["http://localhost:5173"]
`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.Port != 8200 {
		t.Errorf("Port = %d, want 8200 (repo override)", cfg.Port)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want 2 merged entries", cfg.DisabledTools)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v, want repo list to replace default", cfg.CORSOrigins)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, ".annot", FileName), `disabled_tools = ["document_upload"]`)

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(t.TempDir(), subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "document_upload" {
		t.Errorf("DisabledTools = %v, want [document_upload]", cfg.DisabledTools)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if found := FindRepoConfig(t.TempDir()); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Port: 8000, DBMaxOpenConns: 5, Bind: "127.0.0.1"}
	overlay := &Config{Port: 9000}

	result := Merge(base, overlay)

	if result.Port != 9000 {
		t.Errorf("Port = %d, want 9000", result.Port)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base preserved)", result.DBMaxOpenConns)
	}
	if result.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want base value", result.Bind)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"a", "b"}}
	overlay := &Config{DisabledTools: []string{" b ", "c", ""}}

	result := Merge(base, overlay)

	want := []string{"a", "b", "c"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestMerge_UnsafePathsSticky(t *testing.T) {
	base := &Config{AllowUnsafePaths: true, AllowedPaths: []string{"/a"}}
	overlay := &Config{AllowedPaths: []string{"/b", "/a"}}

	result := Merge(base, overlay)

	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should stay enabled when any layer sets it")
	}
	if len(result.AllowedPaths) != 2 {
		t.Errorf("AllowedPaths = %v, want [/a /b]", result.AllowedPaths)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvDataDir, "/srv/annot")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvCORSOrigins, "http://a.test, http://b.test")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.DataDir != "/srv/annot" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Logging.Format != logging.FormatJSON {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	t.Setenv(EnvPort, "eighty")

	if err := DefaultConfig().ApplyEnv(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestFinalize_DerivesPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/annot"

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.UploadDir != filepath.Join("/var/lib/annot", "uploads") {
		t.Errorf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.DBPath != filepath.Join("/var/lib/annot", "notes.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ExportDir != filepath.Join("/var/lib/annot", "exports") {
		t.Errorf("ExportDir = %q", cfg.ExportDir)
	}
	if cfg.MaxUploadBytes() != 50_000_000 {
		t.Errorf("MaxUploadBytes() = %d, want 50000000", cfg.MaxUploadBytes())
	}
}

func TestFinalize_ExplicitPathsKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UploadDir = "/mnt/docs"
	cfg.DBPath = "/mnt/db/annot.db"

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.UploadDir != "/mnt/docs" || cfg.DBPath != "/mnt/db/annot.db" {
		t.Errorf("explicit paths overwritten: %q, %q", cfg.UploadDir, cfg.DBPath)
	}
}

func TestFinalize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad size", func(c *Config) { c.MaxUploadSize = "lots" }},
		{"zero size", func(c *Config) { c.MaxUploadSize = "0" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Finalize(); err == nil {
				t.Error("Finalize() expected error, got nil")
			}
		})
	}
}
