package config

import (
	"fmt"
	"slices"
)

var validOutputs = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks configuration values that no layer can repair.
func Validate(cfg *Config) error {
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if !slices.Contains(validOutputs, cfg.OutputFormat) {
		return fmt.Errorf("unknown output format %q (valid: %v)", cfg.OutputFormat, validOutputs)
	}
	return nil
}
