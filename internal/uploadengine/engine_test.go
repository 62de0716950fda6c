package uploadengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/ftpsheep/ftpsheep/internal/pool"
	"github.com/ftpsheep/ftpsheep/internal/progress"
	"github.com/ftpsheep/ftpsheep/internal/retry"
	"github.com/stretchr/testify/require"
)

func writeLocal(t *testing.T, name string, size int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestSmallHappyPath(t *testing.T) {
	fake := driver.NewFakeDriver()
	p := pool.New(2, driver.NewFakeFactory(fake))
	policy := retry.New(1, time.Millisecond, 10*time.Millisecond, 2, true)

	var snaps []progress.Snapshot
	e := New(p, policy, func(s progress.Snapshot) { snaps = append(snaps, s) })

	tasks := []models.UploadTask{
		{Local: writeLocal(t, "a.dll", 1024), Remote: "/httpdocs/a.dll", Size: 1024, Overwrite: true, CreateRemoteDir: true},
		{Local: writeLocal(t, "b.html", 2048), Remote: "/httpdocs/b.html", Size: 2048, Overwrite: true, CreateRemoteDir: true},
		{Local: writeLocal(t, "c.css", 512), Remote: "/httpdocs/c.css", Size: 512, Overwrite: true, CreateRemoteDir: true},
	}

	results, success := e.Run(context.Background(), tasks, 2)
	require.True(t, success)
	require.Len(t, results, 3)
	for _, r := range results {
		require.True(t, r.Success)
		require.Equal(t, 1, r.Attempts)
	}
	require.NotEmpty(t, snaps)
}

func TestTransientReconnectRetries(t *testing.T) {
	fake := driver.NewFakeDriver()
	fake.FailUploadOnce["/httpdocs/b.html"] = true
	p := pool.New(2, driver.NewFakeFactory(fake))
	policy := retry.New(2, time.Millisecond, 10*time.Millisecond, 2, true)

	e := New(p, policy, nil)
	tasks := []models.UploadTask{
		{Local: writeLocal(t, "a.dll", 1024), Remote: "/httpdocs/a.dll", Size: 1024, Overwrite: true, CreateRemoteDir: true},
		{Local: writeLocal(t, "b.html", 2048), Remote: "/httpdocs/b.html", Size: 2048, Overwrite: true, CreateRemoteDir: true},
		{Local: writeLocal(t, "c.css", 512), Remote: "/httpdocs/c.css", Size: 512, Overwrite: true, CreateRemoteDir: true},
	}

	results, success := e.Run(context.Background(), tasks, 1)
	require.True(t, success)
	for _, r := range results {
		require.True(t, r.Success)
		if r.Task.Remote == "/httpdocs/b.html" {
			require.Equal(t, 2, r.Attempts)
		}
	}
}

func TestRetryCountZeroNeverRetries(t *testing.T) {
	fake := driver.NewFakeDriver()
	fake.FailUploadOnce["/httpdocs/a.dll"] = true
	p := pool.New(1, driver.NewFakeFactory(fake))
	policy := retry.New(0, time.Millisecond, 10*time.Millisecond, 2, true)

	e := New(p, policy, nil)
	tasks := []models.UploadTask{
		{Local: writeLocal(t, "a.dll", 1024), Remote: "/httpdocs/a.dll", Size: 1024, Overwrite: true, CreateRemoteDir: true},
	}
	results, success := e.Run(context.Background(), tasks, 1)
	require.False(t, success)
	require.Equal(t, 1, results[0].Attempts)
}

func TestEmptyTaskListSucceeds(t *testing.T) {
	fake := driver.NewFakeDriver()
	p := pool.New(1, driver.NewFakeFactory(fake))
	policy := retry.New(1, time.Millisecond, 10*time.Millisecond, 2, true)
	e := New(p, policy, nil)

	results, success := e.Run(context.Background(), nil, 1)
	require.True(t, success)
	require.Empty(t, results)
}

func TestCancellationStopsFurtherDequeue(t *testing.T) {
	fake := driver.NewFakeDriver()
	p := pool.New(1, driver.NewFakeFactory(fake))
	policy := retry.New(0, time.Millisecond, 10*time.Millisecond, 2, true)
	e := New(p, policy, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []models.UploadTask{
		{Local: writeLocal(t, "a.dll", 1024), Remote: "/httpdocs/a.dll", Size: 1024, Overwrite: true, CreateRemoteDir: true},
	}
	results, success := e.Run(ctx, tasks, 1)
	require.False(t, success)
	require.Len(t, results, 1)
}
