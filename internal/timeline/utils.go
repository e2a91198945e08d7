package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindLatest returns the most recently modified timeline YAML in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read timeline directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	if len(paths) == 0 {
		return "", fmt.Errorf("no timeline files found in %s", dir)
	}

	sort.Slice(paths, func(i, j int) bool {
		infoI, _ := os.Stat(paths[i])
		infoJ, _ := os.Stat(paths[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return paths[0], nil
}

// List returns every timeline YAML in dir, sorted by name. Used by batch mode.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
