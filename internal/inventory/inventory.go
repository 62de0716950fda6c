// Package inventory implements the Remote Inventory: a
// bounded-worklist recursive listing of the remote tree, used only in the
// cleanup stage to diff against the local publish set.
package inventory

import (
	"context"

	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/ftpsheep/ftpsheep/internal/pathutil"
)

// Snapshot is the remote tree under root, with files and directories
// tracked separately (cleanup deletes files before empty directories).
type Snapshot struct {
	Files []string // relative remote paths, root-relative, forward-slash
	Dirs  []string // relative remote paths, deepest first is not guaranteed here
}

// maxWorklist bounds how many directories can be queued at once, guarding
// against pathological remote trees (symlink loops some FTP servers
// report literally) from exhausting memory.
const maxWorklist = 100000

// List performs a breadth-first recursive listing of root via d.List,
// returning paths relative to root.
func List(ctx context.Context, d driver.Driver, root string) (Snapshot, error) {
	var snap Snapshot
	worklist := []string{root}

	for len(worklist) > 0 {
		if len(worklist) > maxWorklist {
			break
		}
		dir := worklist[0]
		worklist = worklist[1:]

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		default:
		}

		entries, err := d.List(ctx, dir)
		if err != nil {
			return snap, err
		}
		for _, e := range entries {
			if e.Name == "." || e.Name == ".." {
				continue
			}
			full := pathutil.JoinRemote(dir, e.Name)
			rel, relErr := relativeTo(root, full)
			if relErr != nil {
				continue
			}
			if e.IsDir {
				snap.Dirs = append(snap.Dirs, rel)
				worklist = append(worklist, full)
			} else {
				snap.Files = append(snap.Files, rel)
			}
		}
	}
	return snap, nil
}

// relativeTo strips root as a string prefix from full; both are already
// forward-slash remote paths so this avoids depending on filepath.Rel's
// OS-specific separator handling.
func relativeTo(root, full string) (string, error) {
	if len(full) >= len(root) && full[:len(root)] == root {
		rel := full[len(root):]
		for len(rel) > 0 && rel[0] == '/' {
			rel = rel[1:]
		}
		return rel, nil
	}
	return full, nil
}

// Diff computes the obsolete set: remote entries with no corresponding
// local relative path. Deletion order is files first, then directories
// (reverse depth order is the caller's responsibility when walking Dirs).
func Diff(remote Snapshot, localRelPaths map[string]bool) (obsoleteFiles, obsoleteDirs []string) {
	for _, f := range remote.Files {
		if !localRelPaths[f] {
			obsoleteFiles = append(obsoleteFiles, f)
		}
	}
	for _, dir := range remote.Dirs {
		if !localRelPaths[dir] {
			obsoleteDirs = append(obsoleteDirs, dir)
		}
	}
	return obsoleteFiles, obsoleteDirs
}
