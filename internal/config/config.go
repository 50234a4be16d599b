package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"gh-issues/internal/app"
)

const CurrentVersion = 1

const (
	AuthModeSession = "session"
	AuthModePAT     = "pat"
)

type Config struct {
	Version            int          `json:"version"`
	Repo               string       `json:"repo"`
	AuthMode           string       `json:"auth_mode"`
	DefaultBaseBranch  string       `json:"default_base_branch"`
	DefaultIssueFilter string       `json:"default_issue_filter"`
	APIBaseURL         string       `json:"api_base_url"`
	Images             ImagesConfig `json:"images"`
	Log                LogConfig    `json:"log"`
	Theme              ThemeConfig  `json:"theme"`
}

type ImagesConfig struct {
	MaxSizeMB    float64 `json:"max_size_mb"`
	UploadPath   string  `json:"upload_path"`
	UploadBranch string  `json:"upload_branch"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type ThemeConfig struct {
	Active string `json:"active"`
}

func Default() Config {
	return Config{
		Version:            CurrentVersion,
		AuthMode:           AuthModeSession,
		DefaultBaseBranch:  "main",
		DefaultIssueFilter: "open",
		APIBaseURL:         "https://api.github.com",
		Images: ImagesConfig{
			MaxSizeMB:  10,
			UploadPath: ".gh-issues/uploads",
		},
		Log: LogConfig{
			Level: "info",
		},
		Theme: ThemeConfig{
			Active: "default",
		},
	}
}

func EnsureDefaults(cfg *Config) {
	d := Default()
	if cfg.Version <= 0 {
		cfg.Version = CurrentVersion
	}
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	if cfg.AuthMode != AuthModeSession && cfg.AuthMode != AuthModePAT {
		cfg.AuthMode = d.AuthMode
	}
	if strings.TrimSpace(cfg.DefaultBaseBranch) == "" {
		cfg.DefaultBaseBranch = d.DefaultBaseBranch
	}
	switch cfg.DefaultIssueFilter {
	case "open", "closed", "all":
	default:
		cfg.DefaultIssueFilter = d.DefaultIssueFilter
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = d.APIBaseURL
	}
	if cfg.Images.MaxSizeMB <= 0 {
		cfg.Images.MaxSizeMB = d.Images.MaxSizeMB
	}
	if strings.TrimSpace(cfg.Images.UploadPath) == "" {
		cfg.Images.UploadPath = d.Images.UploadPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Theme.Active == "" {
		cfg.Theme.Active = d.Theme.Active
	}
}

// ImageMaxBytes converts the configured megabyte limit to bytes.
func (c Config) ImageMaxBytes() int64 {
	mb := c.Images.MaxSizeMB
	if mb <= 0 {
		mb = Default().Images.MaxSizeMB
	}
	return int64(mb * 1024 * 1024)
}

func Dir() (string, error) {
	return app.ConfigDir()
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func ThemesDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "themes"), nil
}

func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(dir)
}

func Save(cfg Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return SaveTo(dir, cfg)
}

// LoadFrom reads config.json from dir, writing the defaults when the file is
// missing. Comments and trailing commas are accepted.
func LoadFrom(dir string) (Config, error) {
	cfgPath := filepath.Join(dir, "config.json")
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := SaveTo(dir, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(b), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", cfgPath, err)
	}
	EnsureDefaults(&cfg)
	return cfg, nil
}

func SaveTo(dir string, cfg Config) error {
	EnsureDefaults(&cfg)
	if err := os.MkdirAll(filepath.Join(dir, "themes"), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, "config.json", b, 0o644)
}

func writeAtomic(dir, name string, b []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, b, perm); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}
