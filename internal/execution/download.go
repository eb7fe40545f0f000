package execution

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoDownload means the fetcher exited cleanly but left no file.
	ErrNoDownload = errors.New("fetch produced no output")
	// ErrAmbiguousDownload means more than one file matched the job prefix.
	ErrAmbiguousDownload = errors.New("fetch produced more than one output")
)

// FindByPrefix lists regular files in dir whose names start with prefix,
// sorted by name.
func FindByPrefix(dir, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, errors.New("empty prefix")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// ResolvePrefix locates the single file a staged download produced. It
// returns every match alongside the chosen path so callers can track them
// all, including on failure.
func ResolvePrefix(dir, prefix string) (string, []string, error) {
	matches, err := FindByPrefix(dir, prefix)
	if err != nil {
		return "", nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	switch len(matches) {
	case 0:
		return "", nil, fmt.Errorf("%w: nothing matched %s*", ErrNoDownload, prefix)
	case 1:
		return matches[0], matches, nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = filepath.Base(m)
		}
		return "", matches, fmt.Errorf("%w: %s", ErrAmbiguousDownload, strings.Join(names, ", "))
	}
}
