package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeDriverUploadAndExists(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0644))

	d := NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, d.Connect(ctx))

	outcome, err := d.Upload(ctx, local, "/httpdocs/a.txt", true, true)
	require.NoError(t, err)
	require.Equal(t, Uploaded, outcome)

	exists, err := d.Exists(ctx, "/httpdocs/a.txt")
	require.NoError(t, err)
	require.True(t, exists)

	size, err := d.Size(ctx, "/httpdocs/a.txt")
	require.NoError(t, err)
	require.EqualValues(t, 5, size)
}

func TestFakeDriverSkipsWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0644))

	d := NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, d.Connect(ctx))

	_, err := d.Upload(ctx, local, "/httpdocs/a.txt", true, true)
	require.NoError(t, err)

	outcome, err := d.Upload(ctx, local, "/httpdocs/a.txt", false, true)
	require.NoError(t, err)
	require.Equal(t, Skipped, outcome)
}

func TestFakeDriverFailConnectThenSucceed(t *testing.T) {
	d := NewFakeDriver()
	d.FailConnect = 1
	ctx := context.Background()

	require.Error(t, d.Connect(ctx))
	require.NoError(t, d.Connect(ctx))
}
