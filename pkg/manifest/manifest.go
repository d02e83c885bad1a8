package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PackageReference is one dependency declared by a project file.
type PackageReference struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ErrSolutionNotFound is returned when no ancestor directory contains a
// solution file.
var ErrSolutionNotFound = errors.New("directory not found: no solution file in any ancestor directory")

// Error reports a manifest that could not be read or parsed. Failures are
// collected per file so one bad project does not block auditing the rest.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FindSolutionRoot walks upward from start until it reaches a directory
// containing a .sln file.
func FindSolutionRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		matches, err := filepath.Glob(filepath.Join(dir, "*.sln"))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrSolutionNotFound
		}
		dir = parent
	}
}

// DiscoverProjects enumerates every .csproj file under root, at any depth.
// Ordering follows the filesystem walk; callers must not rely on it.
func DiscoverProjects(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var projects []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csproj") {
			projects = append(projects, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ProjectName derives the project identifier from a manifest path: the base
// name with its extension stripped.
func ProjectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
