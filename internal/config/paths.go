package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputDir returns the absolute export output directory. Relative paths
// resolve against the working directory.
func (c *Config) OutputDir() (string, error) {
	dir := c.Export.OutputDir
	if dir == "" {
		dir = DefaultOutputDir
	}
	return filepath.Abs(dir)
}

// EnsureDir creates dir and its parents when missing
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
