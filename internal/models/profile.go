// Package models holds the plain data shapes shared across the deployment
// engine: profiles, publish files, upload tasks/results, and history entries.
package models

import "time"

// Protocol identifies the wire protocol a DeploymentProfile connects with.
type Protocol string

const (
	ProtocolFTP           Protocol = "ftp"
	ProtocolFTPSExplicit  Protocol = "ftps-explicit"
	ProtocolFTPSImplicit  Protocol = "ftps-implicit"
	ProtocolSFTP          Protocol = "sftp"
)

// ConnectionMode is the FTP data-connection mode. Meaningless for SFTP.
type ConnectionMode string

const (
	ConnectionModeActive       ConnectionMode = "active"
	ConnectionModePassive      ConnectionMode = "passive"
	ConnectionModeAutoPassive  ConnectionMode = "auto-passive"
)

// CleanupMode controls how the Coordinator reconciles the remote tree
// against the local publish set.
type CleanupMode string

const (
	CleanupNone           CleanupMode = "none"
	CleanupDeleteObsolete CleanupMode = "delete-obsolete"
	CleanupDeleteAll      CleanupMode = "delete-all"
)

// ConnectionConfig is the server-reachability portion of a profile.
type ConnectionConfig struct {
	Host                  string         `json:"host"`
	Port                  int            `json:"port"`
	Protocol              Protocol       `json:"protocol"`
	TimeoutSeconds        int            `json:"timeoutSeconds"`
	ConnectionMode        ConnectionMode `json:"connectionMode"`
	UseSSL                bool           `json:"useSsl"`
	ValidateSSLCertificate bool          `json:"validateSslCertificate"`
}

// BuildConfig describes how the Build Runner should invoke the external
// build tool.
type BuildConfig struct {
	Configuration        string            `json:"configuration"`
	TargetFramework      string            `json:"targetFramework,omitempty"`
	RuntimeIdentifier    string            `json:"runtimeIdentifier,omitempty"`
	AdditionalProperties map[string]string `json:"additionalProperties,omitempty"`
}

// DeploymentProfile is a named, persisted deployment configuration. The
// password is never held here as plaintext — CredentialRef is an opaque
// handle resolved by internal/credentials at deployment time.
type DeploymentProfile struct {
	Name               string           `json:"name"`
	Connection         ConnectionConfig `json:"connection"`
	Username           string           `json:"username"`
	// CredentialRef is an opaque ciphertext handle (internal/credentials),
	// never a plaintext password — safe to persist in the profile file.
	CredentialRef      string           `json:"credentialRef,omitempty"`
	Build              BuildConfig      `json:"build"`
	RemotePath         string           `json:"remotePath"`
	Concurrency        int              `json:"concurrency"`
	RetryCount         int              `json:"retryCount"`
	CleanupMode        CleanupMode      `json:"cleanupMode"`
	AppOfflineEnabled  bool             `json:"appOfflineEnabled"`
	ExclusionPatterns  []string         `json:"exclusionPatterns,omitempty"`
}

// FileKind drives upload ordering and cleanup policy for a PublishFile.
type FileKind string

const (
	KindAppOffline FileKind = "app_offline"
	KindWebConfig  FileKind = "web_config"
	KindAssembly   FileKind = "assembly"
	KindStatic     FileKind = "static"
	KindOther      FileKind = "other"
)

// PublishFile is one entry discovered by the Publish Walker.
type PublishFile struct {
	AbsolutePath string
	RelativePath string // POSIX slashes, relative to publish root
	Size         int64
	ModTime      time.Time
	Kind         FileKind
}

// UploadTask is immutable once enqueued to the Upload Engine.
type UploadTask struct {
	Local           string
	Remote          string
	Size            int64
	Overwrite       bool
	CreateRemoteDir bool
	Priority        int
}

// UploadResult records the outcome of one UploadTask after all retry
// attempts are exhausted or it succeeds.
type UploadResult struct {
	Task           UploadTask
	Success        bool
	Err            error
	Attempts       int
	StartedAt      time.Time
	CompletedAt    time.Time
	BytesPerSecond float64
}

// DeploymentState is the Coordinator's state-machine cursor. See
// internal/coordinator for the transition table.
type DeploymentState string

const (
	StateNotStarted              DeploymentState = "NotStarted"
	StateLoadingProfile           DeploymentState = "LoadingProfile"
	StateBuildingProject          DeploymentState = "BuildingProject"
	StateConnectingToServer       DeploymentState = "ConnectingToServer"
	StatePreDeploymentSummary     DeploymentState = "PreDeploymentSummary"
	StateUploadingAppOffline      DeploymentState = "UploadingAppOffline"
	StateUploadingFiles           DeploymentState = "UploadingFiles"
	StateCleaningUpObsoleteFiles  DeploymentState = "CleaningUpObsoleteFiles"
	StateDeletingAppOffline       DeploymentState = "DeletingAppOffline"
	StateRecordingHistory         DeploymentState = "RecordingHistory"
	StateCompleted                DeploymentState = "Completed"
	StateFailed                   DeploymentState = "Failed"
	StateCancelled                DeploymentState = "Cancelled"
)

// IsTerminal reports whether the state machine will make no further
// transitions.
func (s DeploymentState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// DeploymentHistoryEntry is one append-only record written exactly once at
// terminal state.
type DeploymentHistoryEntry struct {
	ID            string    `json:"id"`
	Profile       string    `json:"profile"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
	Success       bool      `json:"success"`
	FilesUploaded int       `json:"filesUploaded"`
	TotalBytes    int64     `json:"totalBytes"`
	ErrorSummary  string    `json:"errorSummary,omitempty"`
}
