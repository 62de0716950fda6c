package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftpsheep/ftpsheep/internal/config"
	"github.com/ftpsheep/ftpsheep/internal/credentials"
	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/ftpsheep/ftpsheep/internal/progress"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*config.ProfileStore, *credentials.Store, string) {
	t.Helper()
	dir := t.TempDir()
	profiles, err := config.NewProfileStore(filepath.Join(dir, "profiles"))
	require.NoError(t, err)
	creds, err := credentials.Open(filepath.Join(dir, "creds"))
	require.NoError(t, err)
	return profiles, creds, dir
}

func writePublishFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.dll"), make([]byte, 1024), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	return dir
}

func sampleProfile(name string) models.DeploymentProfile {
	return models.DeploymentProfile{
		Name: name,
		Connection: models.ConnectionConfig{
			Host: "ftp.example.com", Port: 21, Protocol: models.ProtocolFTP,
			TimeoutSeconds: 30, ConnectionMode: models.ConnectionModePassive,
		},
		Username:    "deployer",
		RemotePath:  "/httpdocs",
		Concurrency: 2,
		RetryCount:  1,
		CleanupMode: models.CleanupNone,
	}
}

func TestDeploySmallHappyPath(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-a")
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		DryRun: false, Confirm: true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath: filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-a", opts)
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, state)

	_, statErr := os.Stat(opts.HistoryPath)
	require.NoError(t, statErr)
}

func TestDeployDryRunStopsAtSummary(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-b")
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		DryRun: true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath: filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-b", opts)
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, state)
}

// TestDeployBuildFailureNeverConnects asserts that a build failure fails
// before ConnectingToServer ever runs.
func TestDeployBuildFailureNeverConnects(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-c")
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	factoryCalls := 0
	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "false", // always exits 1
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			factoryCalls++
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-c", opts)
	require.Equal(t, models.StateFailed, state)
	require.Error(t, err)
	var buildErr *deployerr.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, deployerr.ExitBuildFailure, deployerr.ExitCodeFor(err))
	require.Zero(t, factoryCalls, "no driver factory may be built after a build failure")
}

// TestDeployAuthFailureNoUploadAttempts asserts that an authentication
// failure during ConnectingToServer fails with no upload attempts and
// exit code 4.
func TestDeployAuthFailureNoUploadAttempts(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-d")
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	fake.FailAuth = true
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-d", opts)
	require.Equal(t, models.StateFailed, state)
	require.Error(t, err)
	var authErr *deployerr.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, deployerr.ExitAuthenticationFailure, deployerr.ExitCodeFor(err))
	require.Empty(t, fake.Snapshot())
}

// TestDeployCleanupRemovesObsoleteFiles asserts that a remote file absent
// locally is deleted when CleanupMode is DeleteObsolete.
func TestDeployCleanupRemovesObsoleteFiles(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-e")
	profile.CleanupMode = models.CleanupDeleteObsolete
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	fake.PutRemote("/httpdocs/old-page.html", 100)
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-e", opts)
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, state)
	require.False(t, fake.HasRemoteFile("/httpdocs/old-page.html"))
}

// TestDeployCleanupPreservesDirectoriesStillInUse asserts that
// DeleteObsolete cleanup never removes a remote directory that still
// holds a file in the local publish set: the local side of the diff
// includes every ancestor directory of each local file.
func TestDeployCleanupPreservesDirectoriesStillInUse(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-i")
	profile.CleanupMode = models.CleanupDeleteObsolete
	require.NoError(t, profiles.Save(profile))

	publishDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(publishDir, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(publishDir, "assets", "logo.png"), []byte("x"), 0644))

	fake := driver.NewFakeDriver()
	require.NoError(t, fake.Mkdir(context.Background(), "/httpdocs/oldstuff"))
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: publishDir,
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-i", opts)
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, state)
	require.True(t, fake.HasRemoteDir("/httpdocs/assets"))
	require.False(t, fake.HasRemoteDir("/httpdocs/oldstuff"))
}

// TestDeployCleanupDeleteAllWipesAndReuploads asserts that CleanupMode
// DeleteAll removes every pre-existing remote entry under RemotePath,
// including ones a plain diff would have left alone, and still leaves
// every local file uploaded afterward.
func TestDeployCleanupDeleteAllWipesAndReuploads(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-g")
	profile.CleanupMode = models.CleanupDeleteAll
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	fake.PutRemote("/httpdocs/old-page.html", 100)
	fake.PutRemote("/httpdocs/site.dll", 1) // stale remnant, wrong size
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-g", opts)
	require.NoError(t, err)
	require.Equal(t, models.StateCompleted, state)
	require.False(t, fake.HasRemoteFile("/httpdocs/old-page.html"))
	require.True(t, fake.HasRemoteFile("/httpdocs/site.dll"))
	require.True(t, fake.HasRemoteFile("/httpdocs/index.html"))
}

// TestDeployCleanupDeleteAllGuardsRootPath asserts that DeleteAll refuses
// to run against an empty or root remote path rather than wiping an
// entire server.
func TestDeployCleanupDeleteAllGuardsRootPath(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-h")
	profile.CleanupMode = models.CleanupDeleteAll
	profile.RemotePath = "/"
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     true,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-h", opts)
	require.Equal(t, models.StateFailed, state)
	var validationErr *deployerr.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

// TestDeployCancellationBeforeConfirm covers the PreDeploymentSummary
// confirmation gate: declining confirmation yields Cancelled, never Failed.
func TestDeployCancellationBeforeConfirm(t *testing.T) {
	profiles, creds, dir := setup(t)
	profile := sampleProfile("site-f")
	require.NoError(t, profiles.Save(profile))

	fake := driver.NewFakeDriver()
	bus := progress.NewBus(64)
	c := New(profiles, config.DefaultGlobalConfig(), creds, bus)

	opts := Options{
		Confirm:     false,
		ProjectPath: ".", PublishDir: writePublishFiles(t),
		HistoryPath:  filepath.Join(dir, "history.json"),
		BuildCommand: "true",
		NewDriverForFTP: func(models.ConnectionConfig, string, string) driver.Factory {
			return driver.NewFakeFactory(fake)
		},
	}

	state, err := c.Deploy(context.Background(), "site-f", opts)
	require.Equal(t, models.StateCancelled, state)
	var cancelled *deployerr.Cancelled
	require.ErrorAs(t, err, &cancelled)
}
