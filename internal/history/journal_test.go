package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/stretchr/testify/require"
)

func entry(profile string, startedAt time.Time) models.DeploymentHistoryEntry {
	return models.DeploymentHistoryEntry{
		ID: profile + "-" + startedAt.Format(time.RFC3339), Profile: profile,
		StartedAt: startedAt, EndedAt: startedAt.Add(time.Minute), Success: true, FilesUploaded: 3,
	}
}

func TestAppendIncreasesCountByOne(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, j.Append(entry("prod", time.Now())))
	count, err := j.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, j.Append(entry("prod", time.Now())))
	count, err = j.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRecentNewestFirst(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "history.json"))
	base := time.Now()
	require.NoError(t, j.Append(entry("prod", base)))
	require.NoError(t, j.Append(entry("prod", base.Add(time.Hour))))
	require.NoError(t, j.Append(entry("prod", base.Add(2*time.Hour))))

	recent, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].StartedAt.After(recent[1].StartedAt))
}

func TestByProfileFiltersAndOrders(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "history.json"))
	base := time.Now()
	require.NoError(t, j.Append(entry("prod", base)))
	require.NoError(t, j.Append(entry("staging", base.Add(time.Hour))))
	require.NoError(t, j.Append(entry("prod", base.Add(2*time.Hour))))

	entries, err := j.ByProfile("prod", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, "prod", e.Profile)
	}
}

func TestClearEmptiesJournal(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, j.Append(entry("prod", time.Now())))
	require.NoError(t, j.Clear())
	count, err := j.Count()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
