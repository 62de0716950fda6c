package driver

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
)

// FakeDriver is an in-memory Driver implementation used by Upload Engine,
// Connection Pool, and Coordinator tests in place of a real FTP/SFTP
// server. It is safe for concurrent use.
type FakeDriver struct {
	mu       sync.Mutex
	files    map[string]int64 // remote path -> size
	dirs     map[string]bool
	healthy  bool
	connects int

	// FailConnect, when >0, makes the next N Connect calls fail before
	// succeeding — used to simulate transient reconnects.
	FailConnect int
	// FailUploadOnce, when set, makes the upload of this remote path fail
	// exactly once with a transient TransferError.
	FailUploadOnce map[string]bool
	// FailAuth makes every Connect call return AuthError.
	FailAuth bool
}

// NewFakeDriver returns a ready, disconnected FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		files:          make(map[string]int64),
		dirs:           map[string]bool{"/": true},
		FailUploadOnce: make(map[string]bool),
	}
}

func (f *FakeDriver) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAuth {
		return &deployerr.AuthError{CredentialIssue: true, Err: os.ErrPermission}
	}
	if f.FailConnect > 0 {
		f.FailConnect--
		return &deployerr.ConnectionError{Transient: true, Err: os.ErrDeadlineExceeded}
	}
	f.connects++
	f.healthy = true
	return nil
}

func (f *FakeDriver) SetWorkingDir(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[p] = true
	return nil
}

func (f *FakeDriver) Upload(ctx context.Context, local, remote string, overwrite, createRemoteDir bool) (UploadOutcome, error) {
	f.mu.Lock()
	if f.FailUploadOnce[remote] {
		f.FailUploadOnce[remote] = false
		f.mu.Unlock()
		return Failed, &deployerr.TransferError{Transient: true, Err: os.ErrClosed}
	}
	if !overwrite {
		if _, ok := f.files[remote]; ok {
			f.mu.Unlock()
			return Skipped, nil
		}
	}
	f.mu.Unlock()

	info, err := os.Stat(local)
	if err != nil {
		return Failed, &deployerr.TransferError{Transient: false, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if createRemoteDir {
		f.dirs[path.Dir(remote)] = true
	}
	f.files[remote] = info.Size()
	return Uploaded, nil
}

func (f *FakeDriver) Mkdir(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[p] = true
	return nil
}

func (f *FakeDriver) Rmdir(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dirs, p)
	return nil
}

func (f *FakeDriver) Rm(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[p]; !ok {
		return &deployerr.CleanupError{Path: p, Err: os.ErrNotExist}
	}
	delete(f.files, p)
	return nil
}

func (f *FakeDriver) Exists(ctx context.Context, p string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[p]
	return ok, nil
}

func (f *FakeDriver) Size(ctx context.Context, p string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.files[p]
	if !ok {
		return 0, &deployerr.TransferError{Transient: false, Err: os.ErrNotExist}
	}
	return size, nil
}

func (f *FakeDriver) Chmod(ctx context.Context, p string, mode fs.FileMode) error {
	return nil
}

func (f *FakeDriver) List(ctx context.Context, dir string) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir = strings.TrimRight(dir, "/")
	seen := map[string]Entry{}
	for fp, size := range f.files {
		if path.Dir(fp) != dir {
			continue
		}
		seen[fp] = Entry{Name: path.Base(fp), IsDir: false, Size: size, ModTime: time.Now()}
	}
	for d := range f.dirs {
		if d == dir {
			continue
		}
		if path.Dir(d) == dir {
			seen[d] = Entry{Name: path.Base(d), IsDir: true}
		}
	}
	out := make([]Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FakeDriver) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = false
	return nil
}

// PutRemote seeds the fake remote filesystem directly, bypassing Upload —
// used by cleanup/inventory tests to set up a pre-existing remote state.
func (f *FakeDriver) PutRemote(remote string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[remote] = size
	f.dirs[path.Dir(remote)] = true
}

// Snapshot returns a copy of the fake remote file set, for test assertions.
func (f *FakeDriver) Snapshot() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.files))
	for k, v := range f.files {
		out[k] = v
	}
	return out
}

// HasRemoteFile reports whether remote exists in the fake filesystem.
func (f *FakeDriver) HasRemoteFile(remote string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[remote]
	return ok
}

// HasRemoteDir reports whether remote exists as a directory in the fake
// filesystem.
func (f *FakeDriver) HasRemoteDir(remote string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[remote]
}

// NewFakeFactory returns a Factory that always hands back the same
// FakeDriver instance, as if the pool were reconnecting to one server.
func NewFakeFactory(d *FakeDriver) Factory {
	return func() (Driver, error) { return d, nil }
}
