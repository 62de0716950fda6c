package inventory

import (
	"context"
	"testing"

	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/stretchr/testify/require"
)

func TestListAndDiff(t *testing.T) {
	d := driver.NewFakeDriver()
	d.PutRemote("/httpdocs/x.html", 10)
	d.PutRemote("/httpdocs/y.html", 10)
	d.PutRemote("/httpdocs/z.html", 10)
	d.PutRemote("/httpdocs/old.dll", 10)

	ctx := context.Background()
	require.NoError(t, d.Connect(ctx))

	snap, err := List(ctx, d, "/httpdocs")
	require.NoError(t, err)
	require.Len(t, snap.Files, 4)

	local := map[string]bool{"x.html": true, "y.html": true, "z.html": true}
	obsoleteFiles, _ := Diff(snap, local)
	require.Equal(t, []string{"old.dll"}, obsoleteFiles)
}

func TestListEmptyRemote(t *testing.T) {
	d := driver.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, d.Connect(ctx))

	snap, err := List(ctx, d, "/httpdocs")
	require.NoError(t, err)
	require.Empty(t, snap.Files)
}
