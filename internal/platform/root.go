package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindConfig recursively looks upwards from startDir for a configuration file.
// It returns the absolute path of the first one found.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigFileNames {
			if hasFile(dir, name) {
				return filepath.Join(dir, name), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config not found")
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
