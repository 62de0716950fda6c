// Package history implements the History Journal:
// append-only DeploymentHistoryEntry records with atomic writes and
// newest-first queries.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// Journal is a single JSON-array file of DeploymentHistoryEntry, rewritten
// atomically on every append so a crash mid-write never corrupts it.
type Journal struct {
	path string
}

// Open returns a Journal backed by path. The file need not exist yet.
func Open(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) readAll() ([]models.DeploymentHistoryEntry, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &deployerr.ConfigError{Path: j.path, Err: err}
	}
	var entries []models.DeploymentHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &deployerr.ConfigError{Path: j.path, Err: err}
	}
	return entries, nil
}

func (j *Journal) writeAll(entries []models.DeploymentHistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &deployerr.ConfigError{Path: j.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return &deployerr.ConfigError{Path: j.path, Err: err}
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &deployerr.ConfigError{Path: j.path, Err: err}
	}
	return os.Rename(tmp, j.path)
}

// Append writes entry as a new record. Writes are atomic: a crash leaves
// either the old file or the new one, never a partial write.
func (j *Journal) Append(entry models.DeploymentHistoryEntry) error {
	entries, err := j.readAll()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return j.writeAll(entries)
}

// Recent returns the n newest entries across all profiles, newest first.
func (j *Journal) Recent(n int) ([]models.DeploymentHistoryEntry, error) {
	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)
	return head(entries, n), nil
}

// ByProfile returns the n newest entries for profile, newest first.
func (j *Journal) ByProfile(name string, n int) ([]models.DeploymentHistoryEntry, error) {
	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var filtered []models.DeploymentHistoryEntry
	for _, e := range entries {
		if e.Profile == name {
			filtered = append(filtered, e)
		}
	}
	sortNewestFirst(filtered)
	return head(filtered, n), nil
}

// ByDateRange returns entries with StartedAt in [from, to], newest first.
func (j *Journal) ByDateRange(from, to time.Time) ([]models.DeploymentHistoryEntry, error) {
	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var filtered []models.DeploymentHistoryEntry
	for _, e := range entries {
		if !e.StartedAt.Before(from) && !e.StartedAt.After(to) {
			filtered = append(filtered, e)
		}
	}
	sortNewestFirst(filtered)
	return filtered, nil
}

// Clear truncates the journal to empty.
func (j *Journal) Clear() error {
	return j.writeAll(nil)
}

// Count returns the number of entries currently in the journal.
func (j *Journal) Count() (int, error) {
	entries, err := j.readAll()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func sortNewestFirst(entries []models.DeploymentHistoryEntry) {
	sort.SliceStable(entries, func(i, k int) bool {
		return entries[i].StartedAt.After(entries[k].StartedAt)
	})
}

func head(entries []models.DeploymentHistoryEntry, n int) []models.DeploymentHistoryEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
