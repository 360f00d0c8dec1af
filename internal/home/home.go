package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultDirName is the default name for the copyforge home directory.
	DefaultDirName = ".copyforge"

	// OutputsDirName is the subdirectory where saved generations are written.
	OutputsDirName = "outputs"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the copyforge home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.copyforge).
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

// OutputsPath returns the path to the saved outputs directory.
func (d *Dir) OutputsPath() string {
	return filepath.Join(d.path, OutputsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.OutputsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create outputs directory: %w", err)
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

// OutputPath returns a timestamped file path for a saved generation,
// e.g. outputs/content/20250102-150405-ao-thun.json.
func (d *Dir) OutputPath(kind, subject string, at time.Time) string {
	name := fmt.Sprintf("%s-%s.json", at.UTC().Format("20060102-150405"), slug(subject))
	return filepath.Join(d.OutputsPath(), kind, name)
}

// SaveOutput writes data under OutputPath, creating directories as needed.
func (d *Dir) SaveOutput(kind, subject string, at time.Time, data []byte) (string, error) {
	path := d.OutputPath(kind, subject, at)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return path, nil
}

// slug keeps letters and digits (any script) and joins the rest with dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	if r := []rune(out); len(r) > 48 {
		out = strings.TrimSuffix(string(r[:48]), "-")
	}
	return out
}
