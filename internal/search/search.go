// Package search locates the system-include tree used by <...> #includes.
// The installation layout is discovered by taking the executable's
// directory and walking up two components to find a "crt" tree; candidate
// headers under it are matched with glob patterns.
package search

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// StepOutDir walks up n path components from dir and returns the result,
// or "" if dir doesn't have n components to walk up through.
func StepOutDir(dir string, n int) string {
	cleaned := filepath.Clean(dir)
	for i := 0; i < n; i++ {
		parent := filepath.Dir(cleaned)
		if parent == cleaned {
			return ""
		}
		cleaned = parent
	}
	return cleaned
}

// DiscoverCRTRoot returns the "crt" system-include tree rooted two
// directories above the running executable.
func DiscoverCRTRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	root := StepOutDir(filepath.Dir(exe), 2)
	if root == "" {
		return "", os.ErrNotExist
	}
	return filepath.Join(root, "crt"), nil
}

// SystemLibs holds the resolved system search paths for <...> includes.
type SystemLibs struct {
	Root  string
	Paths []string
}

// defaultSystemPatterns glob-matches header directories under a
// vendor-subtree layout instead of a hand-rolled recursive walk: an
// "include" directory at root or at most two directory levels below it.
// Deeper "include" directories are not found.
var defaultSystemPatterns = []string{
	"include",
	"*/include",
	"*/*/include",
}

// ResolveSystemLibs walks root for directories matching
// defaultSystemPatterns and returns them in a stable order: pattern by
// pattern (shallowest first), in glob order within each pattern.
func ResolveSystemLibs(root string) (*SystemLibs, error) {
	libs := &SystemLibs{Root: root}

	for _, pattern := range defaultSystemPatterns {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			libs.Paths = append(libs.Paths, filepath.Join(root, m))
		}
	}

	return libs, nil
}

// MatchesHeader reports whether path (relative to a search root) looks like
// a C header under that root, using the glob pattern "**/*.h".
func MatchesHeader(path string) bool {
	ok, err := doublestar.Match("**/*.h", filepath.ToSlash(path))
	return err == nil && ok
}
