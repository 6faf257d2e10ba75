package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeGrid(); err != nil {
		return err
	}
	c.normalizeLoader()
	c.normalizeBackground()
	c.normalizePadding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGrid() error {
	c.Grid.File = strings.TrimSpace(c.Grid.File)
	if c.Grid.File == "" {
		return nil
	}
	var err error
	if c.Grid.File, err = expandPath(c.Grid.File); err != nil {
		return fmt.Errorf("grid.file: %w", err)
	}
	return nil
}

// normalizeLoader leaves the delimiter untrimmed so a tab still counts as a
// single character.
func (c *Config) normalizeLoader() {
	if c.Loader.Delimiter == "" {
		c.Loader.Delimiter = defaultDelimiter
	}
	c.Loader.Encoding = strings.ToLower(strings.TrimSpace(c.Loader.Encoding))
	if c.Loader.Encoding == "" {
		c.Loader.Encoding = defaultEncoding
	}
}

func (c *Config) normalizeBackground() {
	c.Background.Policy = strings.ToLower(strings.TrimSpace(c.Background.Policy))
	if c.Background.Policy == "" {
		c.Background.Policy = defaultBackgroundPolicy
	}
}

func (c *Config) normalizePadding() {
	cleaned := make(map[string][]int, len(c.Padding))
	for label, pair := range c.Padding {
		cleaned[strings.ToLower(strings.TrimSpace(label))] = pair
	}
	c.Padding = cleaned
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
