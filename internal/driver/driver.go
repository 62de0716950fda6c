// Package driver defines the File Server Driver capability port and its
// FTP/FTPS and SFTP implementations. This is the only place protocol
// specifics live — the rest of the engine talks to a Driver.
package driver

import (
	"context"
	"io/fs"
	"time"
)

// UploadOutcome is the result of one Driver.Upload call.
type UploadOutcome int

const (
	Uploaded UploadOutcome = iota
	Skipped
	Failed
)

// Entry is one remote listing result from Driver.List.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Driver is the abstract capability port consumed by the Connection Pool,
// Upload Engine, and Remote Inventory. SFTP implementations ignore TLS
// flags; FTPS implementations honor explicit vs implicit modes. chmod is
// advisory — failures on backends that don't support it must not surface.
type Driver interface {
	Connect(ctx context.Context) error
	SetWorkingDir(ctx context.Context, path string) error
	Upload(ctx context.Context, local, remote string, overwrite, createRemoteDir bool) (UploadOutcome, error)
	Mkdir(ctx context.Context, path string) error
	Rmdir(ctx context.Context, path string) error
	Rm(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	Chmod(ctx context.Context, path string, mode fs.FileMode) error
	List(ctx context.Context, path string) ([]Entry, error)
	Disconnect(ctx context.Context) error
}

// Factory builds a new, unconnected Driver from a profile's connection
// settings. The Connection Pool calls this once per pooled slot and again
// whenever it rebuilds an unhealthy driver.
type Factory func() (Driver, error)
