package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the job file searched for when none is given.
const DefaultConfigFile = ".pseudokit.yaml"

// ErrConfigNotFound is returned when the job file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadJobFile parses a YAML job file. A job without a name is named after
// the file.
func LoadJobFile(path string) (*Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided job path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	job := NewJob()
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, err
	}
	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return job, nil
}

// FindConfigFile searches for the job file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pseudokit.yaml in the current directory
// 3. Look for .pseudokit.yaml in the user's home directory
//
// Returns the path to the job file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
