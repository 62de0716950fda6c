package driver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
)

// FTPDriver implements Driver over FTP, FTPS-explicit, and FTPS-implicit
// using github.com/jlaffaye/ftp. The TLS mode and certificate-validation
// flag from the profile are translated into jlaffaye/ftp dial options here
// so no library-specific enum leaks above this file. Data connections are
// always passive: ConnectionModeActive adds no option and is not honored.
type FTPDriver struct {
	host               string
	port               int
	protocol           models.Protocol
	timeout            time.Duration
	passive            bool
	validateCert       bool
	username, password string

	conn *ftp.ServerConn
}

// NewFTPDriver builds a Factory for the given profile connection settings
// and resolved credential.
func NewFTPDriver(conn models.ConnectionConfig, username, password string) Factory {
	return func() (Driver, error) {
		return &FTPDriver{
			host:         conn.Host,
			port:         conn.Port,
			protocol:     conn.Protocol,
			timeout:      time.Duration(conn.TimeoutSeconds) * time.Second,
			passive:      conn.ConnectionMode != models.ConnectionModeActive,
			validateCert: conn.ValidateSSLCertificate,
			username:     username,
			password:     password,
		}, nil
	}
}

func (d *FTPDriver) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", d.host, d.port)
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(d.timeout),
	}
	if d.passive {
		opts = append(opts, ftp.DialWithDisabledEPSV(false))
	}

	switch d.protocol {
	case models.ProtocolFTPSImplicit:
		opts = append(opts, ftp.DialWithTLS(&tls.Config{InsecureSkipVerify: !d.validateCert}))
	case models.ProtocolFTPSExplicit:
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{InsecureSkipVerify: !d.validateCert}))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return &deployerr.ConnectionError{Transient: true, Err: err}
	}
	if err := conn.Login(d.username, d.password); err != nil {
		_ = conn.Quit()
		return &deployerr.AuthError{CredentialIssue: true, Err: err}
	}
	d.conn = conn
	return nil
}

func (d *FTPDriver) SetWorkingDir(ctx context.Context, p string) error {
	if p == "" || p == "/" {
		return nil
	}
	if err := d.conn.ChangeDir(p); err != nil {
		// Root chroot is optional; tolerate a missing directory by creating it.
		if mkErr := d.Mkdir(ctx, p); mkErr != nil {
			return &deployerr.ConnectionError{Transient: false, Err: err}
		}
		return d.conn.ChangeDir(p)
	}
	return nil
}

func (d *FTPDriver) Upload(ctx context.Context, local, remote string, overwrite, createRemoteDir bool) (UploadOutcome, error) {
	if !overwrite {
		if exists, _ := d.Exists(ctx, remote); exists {
			return Skipped, nil
		}
	}
	if createRemoteDir {
		if err := d.mkdirAll(ctx, path.Dir(remote)); err != nil {
			return Failed, &deployerr.TransferError{Transient: true, Err: err}
		}
	}
	f, err := os.Open(local)
	if err != nil {
		return Failed, &deployerr.TransferError{Transient: false, Err: err}
	}
	defer f.Close()

	if err := d.conn.Stor(remote, f); err != nil {
		return Failed, &deployerr.TransferError{Transient: isTransientFTP(err), Err: err}
	}
	return Uploaded, nil
}

func (d *FTPDriver) mkdirAll(ctx context.Context, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	parts := strings.Split(strings.Trim(dir, "/"), "/")
	cur := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		cur += "/" + part
		// MakeDir on an existing directory returns an error on most FTP
		// servers; tolerate it rather than treating it as fatal.
		_ = d.conn.MakeDir(cur)
	}
	return nil
}

func (d *FTPDriver) Mkdir(ctx context.Context, p string) error {
	return d.mkdirAll(ctx, p)
}

func (d *FTPDriver) Rmdir(ctx context.Context, p string) error {
	if err := d.conn.RemoveDir(p); err != nil {
		return &deployerr.CleanupError{Path: p, Err: err}
	}
	return nil
}

func (d *FTPDriver) Rm(ctx context.Context, p string) error {
	if err := d.conn.Delete(p); err != nil {
		return &deployerr.CleanupError{Path: p, Err: err}
	}
	return nil
}

func (d *FTPDriver) Exists(ctx context.Context, p string) (bool, error) {
	size, err := d.conn.FileSize(p)
	if err == nil && size >= 0 {
		return true, nil
	}
	entries, err := d.conn.List(path.Dir(p))
	if err != nil {
		return false, nil
	}
	base := path.Base(p)
	for _, e := range entries {
		if e.Name == base {
			return true, nil
		}
	}
	return false, nil
}

func (d *FTPDriver) Size(ctx context.Context, p string) (int64, error) {
	size, err := d.conn.FileSize(p)
	if err != nil {
		return 0, &deployerr.TransferError{Transient: false, Err: err}
	}
	return size, nil
}

// Chmod is advisory over FTP: SITE CHMOD is a non-standard extension with
// no portable client API, and most shared-hosting FTP servers ignore or
// reject it anyway. A no-op here ensures chmod failures on unsupported
// backends never surface.
func (d *FTPDriver) Chmod(ctx context.Context, p string, mode fs.FileMode) error {
	return nil
}

func (d *FTPDriver) List(ctx context.Context, p string) ([]Entry, error) {
	entries, err := d.conn.List(p)
	if err != nil {
		return nil, &deployerr.TransferError{Transient: true, Err: err}
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Name:    e.Name,
			IsDir:   e.Type == ftp.EntryTypeFolder,
			Size:    int64(e.Size),
			ModTime: e.Time,
		})
	}
	return out, nil
}

func (d *FTPDriver) Disconnect(ctx context.Context) error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Quit()
}

// isTransientFTP classifies common recoverable FTP failures (connection
// reset, timeout) as transient; permission/quota errors are not.
func isTransientFTP(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "reset", "broken pipe", "connection refused", "eof", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
