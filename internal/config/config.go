package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Grid describes the canonical wavenumber axis every padded trace lands on.
type Grid struct {
	File   string `toml:"file"`
	Length int    `toml:"length"`
}

// Loader contains settings for parsing acquisition files.
type Loader struct {
	Delimiter string `toml:"delimiter"`
	Encoding  string `toml:"encoding"`
}

// Despike contains the cosmic-ray removal parameters.
type Despike struct {
	Threshold float64 `toml:"threshold"`
	Window    int     `toml:"window"`
}

// Background selects how ambiguous background matches are resolved.
type Background struct {
	Policy string `toml:"policy"`
}

// Smoothing contains the Gaussian filter parameters.
type Smoothing struct {
	Enabled bool    `toml:"enabled"`
	Sigma   float64 `toml:"sigma"`
}

// Truncation controls the flank cut discovered around each trace's peak.
type Truncation struct {
	Fraction float64 `toml:"fraction"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sfgproc.
//
// Configuration sections by subsystem:
//   - Paths: output, state, and log directories
//   - Grid: canonical wavenumber axis file and expected length
//   - Loader: acquisition-file delimiter and text encoding
//   - Despike: rolling-median spike threshold and window
//   - Background: ambiguous background match policy
//   - Smoothing: Gaussian kernel toggle and width
//   - Truncation: peak-fraction threshold for flank cuts
//   - Padding: per-detector left/right zero-fill widths
//   - Logging: log format and level
type Config struct {
	Paths      Paths            `toml:"paths"`
	Grid       Grid             `toml:"grid"`
	Loader     Loader           `toml:"loader"`
	Despike    Despike          `toml:"despike"`
	Background Background       `toml:"background"`
	Smoothing  Smoothing        `toml:"smoothing"`
	Truncation Truncation       `toml:"truncation"`
	Padding    map[string][]int `toml:"padding"`
	Logging    Logging          `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sfgproc/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sfgproc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. OutputDir is created
// on a best-effort basis so read-only commands keep working when the export
// target is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// CatalogPath returns the location of the run catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.StateDir, catalogFileName)
}

// LockPath returns the lock file that guards against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
