// Package home manages the paperly home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the paperly home directory.
	DefaultDirName = ".paperly"

	// DefraDirName is the subdirectory holding DefraDB data.
	DefraDirName = "defradb"

	// ConvertDirName is the subdirectory for PDF conversion scratch space.
	ConvertDirName = "convert"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the paperly home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.paperly).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DefraDataPath returns the directory DefraDB persists its store to.
func (d *Dir) DefraDataPath() string {
	return filepath.Join(d.path, DefraDirName)
}

// ConvertPath returns the scratch directory for one conversion run.
func (d *Dir) ConvertPath(analysisID string) string {
	return filepath.Join(d.path, ConvertDirName, analysisID)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.DefraDataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create defradb directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(d.path, ConvertDirName), 0o755); err != nil {
		return fmt.Errorf("failed to create convert directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
