package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/stretchr/testify/require"
)

func sampleProfile() models.DeploymentProfile {
	return models.DeploymentProfile{
		Name: "prod",
		Connection: models.ConnectionConfig{
			Host: "ftp.example.com", Port: 21, Protocol: models.ProtocolFTP,
			TimeoutSeconds: 30, ConnectionMode: models.ConnectionModePassive,
		},
		Username:          "deployer",
		Build:             models.BuildConfig{Configuration: "Release"},
		RemotePath:        "/httpdocs",
		Concurrency:       4,
		RetryCount:        3,
		CleanupMode:       models.CleanupNone,
		AppOfflineEnabled: true,
	}
}

func TestProfileSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prod.json")
	p := sampleProfile()

	require.NoError(t, SaveProfile(path, p))
	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, p, loaded)
}

func TestLegacyFlatShapeReadCompat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	flat := `{
		"name": "legacy",
		"Server": "ftp.example.com",
		"Port": 21,
		"Protocol": "ftp",
		"TimeoutSeconds": 30,
		"username": "deployer",
		"BuildConfiguration": "Release",
		"remotePath": "/httpdocs",
		"concurrency": 2,
		"retryCount": 1,
		"cleanupMode": "none",
		"appOfflineEnabled": false
	}`
	require.NoError(t, os.WriteFile(path, []byte(flat), 0644))

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, "legacy", profile.Name)
	require.Equal(t, "ftp.example.com", profile.Connection.Host)
	require.Equal(t, 21, profile.Connection.Port)
	require.Equal(t, "Release", profile.Build.Configuration)

	// Writing it back must produce the nested shape, never flat again.
	outPath := filepath.Join(dir, "legacy-out.json")
	require.NoError(t, SaveProfile(outPath, profile))
	reloaded, err := LoadProfile(outPath)
	require.NoError(t, err)
	require.Equal(t, profile, reloaded)
}

func TestValidateRejectsSFTPWithSSL(t *testing.T) {
	p := sampleProfile()
	p.Connection.Protocol = models.ProtocolSFTP
	p.Connection.UseSSL = true
	_, err := Validate(p)
	require.Error(t, err)
}

func TestValidateWarnsOnMismatchedPort(t *testing.T) {
	p := sampleProfile()
	p.Connection.Port = 22 // FTP on port 22: warning, not error
	warnings, err := Validate(p)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
}

func TestValidateProfileNameRules(t *testing.T) {
	require.NoError(t, ValidateProfileName("prod-east.v2"))
	require.Error(t, ValidateProfileName(""))
	require.Error(t, ValidateProfileName("CON"))
	require.Error(t, ValidateProfileName("-leading-dash"))
}

func TestApplyDefaultsFillsUnsetFields(t *testing.T) {
	p := models.DeploymentProfile{Name: "bare"}
	global := DefaultGlobalConfig()
	filled := ApplyDefaults(p, global)
	require.Equal(t, global.DefaultConcurrency, filled.Concurrency)
	require.Equal(t, global.DefaultRetryCount, filled.RetryCount)
	require.Equal(t, global.DefaultBuildConfiguration, filled.Build.Configuration)
}
