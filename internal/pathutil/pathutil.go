// Package pathutil provides path resolution helpers shared by the CLI, the
// Coordinator, and the Remote Inventory.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAbsolutePath converts a relative or ~-prefixed path (a project
// path, publish directory, or config directory given on the command
// line) to an absolute path, resolving symlinks in whatever prefix of it
// already exists on disk and re-joining the rest unchanged — a publish
// directory that the Build Runner hasn't created yet must still resolve
// cleanly.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = home + rest
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved, nil
	}

	existing, missing := absPath, ""
	for {
		if _, err := os.Stat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return absPath, nil
		}
		missing = filepath.Join(filepath.Base(existing), missing)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		resolved = existing
	}
	return filepath.Join(resolved, missing), nil
}

// ToRelativeSlash returns path relative to root, normalized to forward
// slashes regardless of host OS.
func ToRelativeSlash(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// JoinRemote joins remote path segments with forward slashes, collapsing
// any accidental backslashes a caller on Windows might pass in.
func JoinRemote(base string, parts ...string) string {
	segs := []string{strings.TrimRight(filepath.ToSlash(base), "/")}
	for _, p := range parts {
		p = filepath.ToSlash(p)
		p = strings.Trim(p, "/")
		if p != "" {
			segs = append(segs, p)
		}
	}
	joined := strings.Join(segs, "/")
	if joined == "" {
		return "/"
	}
	return joined
}

// RemoteDir returns the parent directory of a forward-slash remote path.
func RemoteDir(remotePath string) string {
	idx := strings.LastIndex(remotePath, "/")
	if idx <= 0 {
		return "/"
	}
	return remotePath[:idx]
}
