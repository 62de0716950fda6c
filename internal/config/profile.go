// Package config implements the Profile Resolver's storage half: JSON
// load/save of DeploymentProfile and GlobalConfig with legacy flat-shape
// read compat, profile name validation, and atomic writes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// legacyProfile is the flat on-disk shape some older profile files use.
// Read-compat only — never emitted on write.
type legacyProfile struct {
	Name               string   `json:"name"`
	Server             string   `json:"Server"`
	Port               int      `json:"Port"`
	Protocol           string   `json:"Protocol"`
	TimeoutSeconds     int      `json:"TimeoutSeconds"`
	Username           string   `json:"username"`
	BuildConfiguration string   `json:"BuildConfiguration"`
	TargetFramework    string   `json:"TargetFramework"`
	RuntimeIdentifier  string   `json:"RuntimeIdentifier"`
	RemotePath         string   `json:"remotePath"`
	Concurrency        int      `json:"concurrency"`
	RetryCount         int      `json:"retryCount"`
	CleanupMode        string   `json:"cleanupMode"`
	AppOfflineEnabled  bool     `json:"appOfflineEnabled"`
	ExclusionPatterns  []string `json:"exclusionPatterns"`
}

// isFlatShape reports whether raw JSON looks like the legacy flat shape
// (presence of a top-level "Server" or "Port" field, which the nested
// shape never has at top level).
func isFlatShape(raw map[string]json.RawMessage) bool {
	_, hasServer := raw["Server"]
	_, hasPort := raw["Port"]
	_, hasConnection := raw["connection"]
	return (hasServer || hasPort) && !hasConnection
}

// LoadProfile reads and parses a profile JSON file, mapping the legacy
// flat shape into the nested DeploymentProfile form transparently.
func LoadProfile(path string) (models.DeploymentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DeploymentProfile{}, &deployerr.ProfileNotFoundError{Name: filepath.Base(path)}
		}
		return models.DeploymentProfile{}, &deployerr.ConfigError{Path: path, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.DeploymentProfile{}, &deployerr.ConfigError{Path: path, Err: err}
	}

	if isFlatShape(raw) {
		var legacy legacyProfile
		if err := json.Unmarshal(data, &legacy); err != nil {
			return models.DeploymentProfile{}, &deployerr.ConfigError{Path: path, Err: err}
		}
		return fromLegacy(legacy), nil
	}

	var profile models.DeploymentProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return models.DeploymentProfile{}, &deployerr.ConfigError{Path: path, Err: err}
	}
	return profile, nil
}

func fromLegacy(l legacyProfile) models.DeploymentProfile {
	return models.DeploymentProfile{
		Name: l.Name,
		Connection: models.ConnectionConfig{
			Host:           l.Server,
			Port:           l.Port,
			Protocol:       models.Protocol(strings.ToLower(l.Protocol)),
			TimeoutSeconds: l.TimeoutSeconds,
			ConnectionMode: models.ConnectionModePassive,
		},
		Username: l.Username,
		Build: models.BuildConfig{
			Configuration:     l.BuildConfiguration,
			TargetFramework:   l.TargetFramework,
			RuntimeIdentifier: l.RuntimeIdentifier,
		},
		RemotePath:        l.RemotePath,
		Concurrency:       l.Concurrency,
		RetryCount:        l.RetryCount,
		CleanupMode:       models.CleanupMode(l.CleanupMode),
		AppOfflineEnabled: l.AppOfflineEnabled,
		ExclusionPatterns: l.ExclusionPatterns,
	}
}

// SaveProfile writes profile as nested-shape JSON using an atomic
// temp-file + rename. The legacy flat shape is never emitted.
func SaveProfile(path string, profile models.DeploymentProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return &deployerr.ConfigError{Path: path, Err: err}
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &deployerr.ConfigError{Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &deployerr.ConfigError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &deployerr.ConfigError{Path: path, Err: err}
	}
	return nil
}

// ApplyDefaults fills unset DeploymentProfile fields from a GlobalConfig,
// as the LoadingProfile transition requires.
func ApplyDefaults(profile models.DeploymentProfile, global GlobalConfig) models.DeploymentProfile {
	if profile.Concurrency <= 0 {
		profile.Concurrency = global.DefaultConcurrency
	}
	if profile.RetryCount == 0 && global.DefaultRetryCount > 0 {
		profile.RetryCount = global.DefaultRetryCount
	}
	if profile.Connection.TimeoutSeconds <= 0 {
		profile.Connection.TimeoutSeconds = global.DefaultTimeoutSeconds
	}
	if profile.Build.Configuration == "" {
		profile.Build.Configuration = global.DefaultBuildConfiguration
	}
	if len(profile.ExclusionPatterns) == 0 {
		profile.ExclusionPatterns = global.DefaultExclusionPatterns
	}
	return profile
}

var profileNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var reservedDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
}

func init() {
	for i := 1; i <= 9; i++ {
		reservedDeviceNames[fmt.Sprintf("COM%d", i)] = true
		reservedDeviceNames[fmt.Sprintf("LPT%d", i)] = true
	}
}

// ValidateProfileName enforces the profile name rules: non-empty, at
// most 100 characters, starting with a letter or digit, and restricted
// to [A-Za-z0-9._-], with reserved device names rejected.
func ValidateProfileName(name string) error {
	if name == "" {
		return &deployerr.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if len(name) > 100 {
		return &deployerr.ValidationError{Field: "name", Msg: "must be at most 100 characters"}
	}
	if !profileNameRE.MatchString(name) {
		return &deployerr.ValidationError{Field: "name", Msg: "must start with a letter/digit and use only [A-Za-z0-9._-]"}
	}
	if reservedDeviceNames[strings.ToUpper(name)] {
		return &deployerr.ValidationError{Field: "name", Msg: fmt.Sprintf("%q is a reserved device name", name)}
	}
	return nil
}

// Validate checks profile invariants: port range, likely-wrong
// protocol/port pairing (warning, not error — surfaced to the caller as
// a plain string), and the one hard SFTP+SSL conflict.
func Validate(profile models.DeploymentProfile) (warnings []string, err error) {
	if nameErr := ValidateProfileName(profile.Name); nameErr != nil {
		return nil, nameErr
	}
	port := profile.Connection.Port
	if port < 1 || port > 65535 {
		return nil, &deployerr.ValidationError{Field: "connection.port", Msg: fmt.Sprintf("%d is out of range 1-65535", port)}
	}
	if profile.Connection.Protocol == models.ProtocolSFTP && profile.Connection.UseSSL {
		return nil, &deployerr.ValidationError{Field: "connection.useSsl", Msg: "SFTP with useSsl set is invalid"}
	}
	if profile.Connection.Protocol == models.ProtocolFTP && port == 22 {
		warnings = append(warnings, "protocol is FTP but port 22 is the conventional SFTP port")
	}
	if profile.Connection.Protocol == models.ProtocolSFTP && port == 21 {
		warnings = append(warnings, "protocol is SFTP but port 21 is the conventional FTP port")
	}
	if profile.Concurrency < 1 {
		return nil, &deployerr.ValidationError{Field: "concurrency", Msg: "must be >= 1"}
	}
	if profile.RetryCount < 0 {
		return nil, &deployerr.ValidationError{Field: "retryCount", Msg: "must be >= 0"}
	}
	return warnings, nil
}
