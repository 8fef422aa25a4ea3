package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFindsConfigInParentAndResolvesRelativeDBPath(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "repo")
	subDir := filepath.Join(projectDir, "a", "b")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfgContent := "db: .issuefeed/issues.db\nproject: proj\nworkers: 3\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(projectDir, FileName), []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Discover(subDir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}

	wantDB := filepath.Join(projectDir, ".issuefeed", "issues.db")
	if cfg.DBPath != wantDB {
		t.Fatalf("expected db path %q, got %q", wantDB, cfg.DBPath)
	}
	if cfg.Project != "PROJ" {
		t.Fatalf("expected project PROJ, got %q", cfg.Project)
	}
	if cfg.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Workers)
	}
	if cfg.Path != filepath.Join(projectDir, FileName) {
		t.Fatalf("unexpected config path %q", cfg.Path)
	}
}

func TestDiscoverNoConfigReturnsNil(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
}

func TestDiscoverEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg == nil || cfg.DBPath != "" || cfg.Workers != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestDiscoverRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"project":     "project: 9lives\n",
		"unknown key": "database: x.db\n",
		"workers":     "workers: -1\n",
		"log level":   "log_level: loud\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Discover(dir); err == nil {
				t.Fatalf("expected error for %q", content)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	if err != nil {
		t.Fatalf("parse level: %v", err)
	}
	if level != slog.LevelWarn {
		t.Fatalf("expected warn, got %v", level)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
