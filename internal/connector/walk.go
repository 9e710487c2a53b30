package connector

import (
	"os"
	"path/filepath"
)

// globFiles walks root and returns every file whose name matches match,
// skipping unreadable subdirectories rather than aborting — the same
// resilience the teacher's FindAgentStoreDBs applies when scanning
// agent-CLI storage.
func globFiles(root string, match func(name string) bool) []string {
	var out []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if match(info.Name()) {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// pathPassesFilter reports whether path should be scanned given an
// optional PathFilter (empty filter means "scan everything").
func pathPassesFilter(path string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if path == f {
			return true
		}
		if rel, err := filepath.Rel(f, path); err == nil && rel != ".." && len(rel) > 0 && rel[0] != '.' {
			return true
		}
	}
	return false
}
