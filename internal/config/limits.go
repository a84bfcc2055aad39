// Package config loads the engine resource limits and parameter set
// definitions the CLI feeds into the generation engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casewise/doe/internal/doe"
)

// LimitsConfig holds the generation resource ceilings. Fields are pointers
// so a partial JSON file overrides only what it names; Get* methods supply
// defaults for the rest.
type LimitsConfig struct {
	// MaxFullFactorialRows caps the row count of a full factorial run. A
	// request above the cap fails before any row materializes.
	MaxFullFactorialRows *int64 `json:"max_full_factorial_rows,omitempty"`
}

// Helper to create pointers in tests and defaults files.
func ptrInt64(v int64) *int64 { return &v }

// EmptyLimitsConfig returns a LimitsConfig with all fields unset.
func EmptyLimitsConfig() *LimitsConfig {
	return &LimitsConfig{}
}

// LoadLimitsConfig loads a LimitsConfig from a JSON file. The path must end
// in .json and the file must stay under 1MB; fields omitted from the file
// keep their defaults, so partial configs are safe.
func LoadLimitsConfig(path string) (*LimitsConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyLimitsConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *LimitsConfig) Validate() error {
	if c.MaxFullFactorialRows != nil && *c.MaxFullFactorialRows < 1 {
		return fmt.Errorf("max_full_factorial_rows must be positive, got %d", *c.MaxFullFactorialRows)
	}
	return nil
}

// GetMaxFullFactorialRows returns the configured ceiling or the default.
func (c *LimitsConfig) GetMaxFullFactorialRows() int64 {
	if c.MaxFullFactorialRows == nil {
		return doe.DefaultLimits().MaxFullFactorialRows
	}
	return *c.MaxFullFactorialRows
}

// Limits converts the config into the engine's Limits value.
func (c *LimitsConfig) Limits() doe.Limits {
	return doe.Limits{MaxFullFactorialRows: c.GetMaxFullFactorialRows()}
}
