package driver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// SFTPDriver implements Driver over SSH/SFTP using golang.org/x/crypto/ssh
// and github.com/pkg/sftp. It ignores TLS/connection-mode flags entirely —
// those are FTP/FTPS concepts with no SFTP equivalent.
type SFTPDriver struct {
	host, username, password string
	port                     int
	timeout                  time.Duration
	workingDir               string

	sshConn *ssh.Client
	client  *sftp.Client
}

// NewSFTPDriver builds a Factory for the given profile connection settings
// and resolved credential. Host key verification is intentionally
// permissive (shared-hosting targets rarely publish known_hosts entries a
// CLI tool can check); this mirrors common deploy-tool behavior rather
// than a security recommendation.
func NewSFTPDriver(conn models.ConnectionConfig, username, password string) Factory {
	return func() (Driver, error) {
		return &SFTPDriver{
			host:     conn.Host,
			port:     conn.Port,
			timeout:  time.Duration(conn.TimeoutSeconds) * time.Second,
			username: username,
			password: password,
		}, nil
	}
}

func (d *SFTPDriver) Connect(ctx context.Context) error {
	config := &ssh.ClientConfig{
		User:            d.username,
		Auth:            []ssh.AuthMethod{ssh.Password(d.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.timeout,
	}
	addr := fmt.Sprintf("%s:%d", d.host, d.port)
	sshConn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unable to authenticate") {
			return &deployerr.AuthError{CredentialIssue: true, Err: err}
		}
		return &deployerr.ConnectionError{Transient: true, Err: err}
	}
	client, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return &deployerr.ConnectionError{Transient: true, Err: err}
	}
	d.sshConn = sshConn
	d.client = client
	return nil
}

func (d *SFTPDriver) SetWorkingDir(ctx context.Context, p string) error {
	d.workingDir = p
	if p == "" || p == "/" {
		return nil
	}
	if err := d.client.MkdirAll(p); err != nil {
		return &deployerr.ConnectionError{Transient: false, Err: err}
	}
	return nil
}

func (d *SFTPDriver) Upload(ctx context.Context, local, remote string, overwrite, createRemoteDir bool) (UploadOutcome, error) {
	if !overwrite {
		if exists, _ := d.Exists(ctx, remote); exists {
			return Skipped, nil
		}
	}
	if createRemoteDir {
		if err := d.client.MkdirAll(path.Dir(remote)); err != nil {
			return Failed, &deployerr.TransferError{Transient: true, Err: err}
		}
	}

	src, err := os.Open(local)
	if err != nil {
		return Failed, &deployerr.TransferError{Transient: false, Err: err}
	}
	defer src.Close()

	dst, err := d.client.Create(remote)
	if err != nil {
		return Failed, &deployerr.TransferError{Transient: isTransientSFTP(err), Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return Failed, &deployerr.TransferError{Transient: isTransientSFTP(err), Err: err}
	}
	return Uploaded, nil
}

func (d *SFTPDriver) Mkdir(ctx context.Context, p string) error {
	if err := d.client.MkdirAll(p); err != nil {
		return &deployerr.TransferError{Transient: false, Err: err}
	}
	return nil
}

func (d *SFTPDriver) Rmdir(ctx context.Context, p string) error {
	if err := d.client.RemoveDirectory(p); err != nil {
		return &deployerr.CleanupError{Path: p, Err: err}
	}
	return nil
}

func (d *SFTPDriver) Rm(ctx context.Context, p string) error {
	if err := d.client.Remove(p); err != nil {
		return &deployerr.CleanupError{Path: p, Err: err}
	}
	return nil
}

func (d *SFTPDriver) Exists(ctx context.Context, p string) (bool, error) {
	_, err := d.client.Stat(p)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (d *SFTPDriver) Size(ctx context.Context, p string) (int64, error) {
	info, err := d.client.Stat(p)
	if err != nil {
		return 0, &deployerr.TransferError{Transient: false, Err: err}
	}
	return info.Size(), nil
}

// Chmod is a first-class SFTP operation, unlike the FTP driver's advisory
// no-op; failures are still swallowed since some shared hosts restrict
// chmod even over SFTP.
func (d *SFTPDriver) Chmod(ctx context.Context, p string, mode fs.FileMode) error {
	_ = d.client.Chmod(p, mode.Perm())
	return nil
}

func (d *SFTPDriver) List(ctx context.Context, p string) ([]Entry, error) {
	infos, err := d.client.ReadDir(p)
	if err != nil {
		return nil, &deployerr.TransferError{Transient: true, Err: err}
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, Entry{
			Name:    info.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

func (d *SFTPDriver) Disconnect(ctx context.Context) error {
	if d.client != nil {
		_ = d.client.Close()
	}
	if d.sshConn != nil {
		return d.sshConn.Close()
	}
	return nil
}

func isTransientSFTP(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "reset", "broken pipe", "connection refused", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
