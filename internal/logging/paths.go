package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.hvsearch/logs, or a temp directory when there is
// no home directory.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".hvsearch", "logs")
	}
	return filepath.Join(home, ".hvsearch", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "hvsearch.log")
}
