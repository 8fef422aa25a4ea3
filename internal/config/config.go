package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "issuefeed.yaml"

var projectKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type Config struct {
	Path     string `yaml:"-"`
	DBPath   string `yaml:"db"`
	Project  string `yaml:"project"`
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`
}

// Discover walks up from startDir and loads the first issuefeed.yaml it
// finds. It returns nil, nil when there is none.
func Discover(startDir string) (*Config, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			cfg, err := parseFile(candidate)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func parseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	cfg.Path = path

	if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Clean(filepath.Join(filepath.Dir(path), cfg.DBPath))
	}
	cfg.Project = strings.ToUpper(strings.TrimSpace(cfg.Project))
	if cfg.Project != "" && !projectKeyRe.MatchString(cfg.Project) {
		return nil, fmt.Errorf("invalid %s: project %q is not a project key", path, cfg.Project)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid %s: workers cannot be negative", path)
	}
	if cfg.LogLevel != "" {
		if _, err := ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", path, err)
		}
	}
	return cfg, nil
}

// ParseLevel maps debug|info|warn|error onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
