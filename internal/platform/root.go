package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigFileNames are the file names FindConfig looks for, in order.
var ConfigFileNames = []string{"base.yaml", "base.yml", ".base.yaml"}

// ErrNoConfig is returned when no config file exists up to the file system root.
var ErrNoConfig = errors.New("config file not found")

// FindConfig looks upwards from startDir for a config file and returns its
// absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigFileNames {
			if path := filepath.Join(dir, name); isFile(path) {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNoConfig
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
