package config

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGrid(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateDespike(); err != nil {
		return err
	}
	if err := c.validateBackground(); err != nil {
		return err
	}
	if err := c.validateSmoothing(); err != nil {
		return err
	}
	if err := c.validateTruncation(); err != nil {
		return err
	}
	if err := c.validatePadding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

// validateGrid accepts an unset grid.file; the processing command reports a
// missing axis file when it actually needs one.
func (c *Config) validateGrid() error {
	if c.Grid.Length <= 0 {
		return errors.New("grid.length must be positive")
	}
	return nil
}

func (c *Config) validateLoader() error {
	if utf8.RuneCountInString(c.Loader.Delimiter) != 1 {
		return errors.New("loader.delimiter must be a single character")
	}
	switch c.Loader.Encoding {
	case "utf-8", "latin-1", "windows-1252":
	default:
		return errors.New("loader.encoding must be one of utf-8, latin-1, windows-1252")
	}
	return nil
}

func (c *Config) validateDespike() error {
	if c.Despike.Threshold <= 0 {
		return errors.New("despike.threshold must be positive")
	}
	if c.Despike.Window < 3 {
		return errors.New("despike.window must be at least 3")
	}
	if c.Despike.Window%2 == 0 {
		return errors.New("despike.window must be odd")
	}
	return nil
}

func (c *Config) validateBackground() error {
	switch c.Background.Policy {
	case "error", "first", "average", "sum":
	default:
		return errors.New("background.policy must be one of error, first, average, sum")
	}
	return nil
}

func (c *Config) validateSmoothing() error {
	if c.Smoothing.Sigma <= 0 {
		return errors.New("smoothing.sigma must be positive")
	}
	return nil
}

func (c *Config) validateTruncation() error {
	if c.Truncation.Fraction <= 0 || c.Truncation.Fraction >= 1 {
		return errors.New("truncation.fraction must be between 0 and 1 exclusive")
	}
	return nil
}

func (c *Config) validatePadding() error {
	if len(c.Padding) == 0 {
		return errors.New("padding must define at least one detector")
	}
	for label, pair := range c.Padding {
		if label == "" {
			return errors.New("padding keys must not be empty")
		}
		if len(pair) != 2 {
			return fmt.Errorf("padding.%s must list exactly two values (left and right)", label)
		}
		if pair[0] < 0 || pair[1] < 0 {
			return fmt.Errorf("padding.%s must not contain negative widths", label)
		}
	}
	return nil
}
