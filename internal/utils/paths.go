package utils

import "path/filepath"

// ResolvePaths resolves submission-relative paths against root. Absolute
// paths are returned unchanged.
func ResolvePaths(paths []string, root string) []string {
	if len(paths) == 0 {
		return nil
	}

	resolved := make([]string, 0, len(paths))
	for _, path := range paths {
		resolved = append(resolved, ResolvePath(path, root))
	}
	return resolved
}

// ResolvePath resolves a single path against root.
func ResolvePath(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
