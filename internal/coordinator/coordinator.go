// Package coordinator implements the Deployment Coordinator: the
// 13-state machine that orchestrates Profile Resolver → Build Runner →
// Publish Walker → Connection Pool → Upload Engine → Remote Inventory
// (cleanup) → History Journal, publishing progress throughout. The
// pipeline is a context-cancellable sequence of stages, each reporting
// through callbacks into an event bus, with a mutex-protected state
// field and a Stop() that cancels the context.
package coordinator

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/ftpsheep/ftpsheep/internal/buildrunner"
	"github.com/ftpsheep/ftpsheep/internal/config"
	"github.com/ftpsheep/ftpsheep/internal/credentials"
	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/ftpsheep/ftpsheep/internal/history"
	"github.com/ftpsheep/ftpsheep/internal/inventory"
	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/ftpsheep/ftpsheep/internal/pathutil"
	"github.com/ftpsheep/ftpsheep/internal/pool"
	"github.com/ftpsheep/ftpsheep/internal/progress"
	"github.com/ftpsheep/ftpsheep/internal/retry"
	"github.com/ftpsheep/ftpsheep/internal/uploadengine"
	"github.com/ftpsheep/ftpsheep/internal/walk"
)

// Options controls a single Deploy invocation's non-profile behavior.
type Options struct {
	DryRun          bool // stop after PreDeploymentSummary
	Confirm         bool // PreDeploymentSummary's interactive-confirmation gate
	ProjectPath     string
	PublishDir      string // scratch directory the Build Runner writes to
	HistoryPath     string
	NewDriverForFTP func(models.ConnectionConfig, string, string) driver.Factory
	NewDriverForSFTP func(models.ConnectionConfig, string, string) driver.Factory
	BuildCommand    string // override for testing; empty uses "dotnet"
}

// Coordinator owns the state machine and the task queue exclusively.
// One Coordinator instance runs one deployment at a time; build a new
// one per Deploy call if concurrent deployments of different profiles
// are needed.
type Coordinator struct {
	profiles *config.ProfileStore
	global   config.GlobalConfig
	creds    *credentials.Store
	bus      *progress.Bus

	mu    sync.Mutex
	state models.DeploymentState
	cancel context.CancelFunc
}

// New builds a Coordinator backed by the given profile store, global
// config, and credential store. bus receives every stage/progress/
// warning/error/complete event for the lifetime of each Deploy call.
func New(profiles *config.ProfileStore, global config.GlobalConfig, creds *credentials.Store, bus *progress.Bus) *Coordinator {
	return &Coordinator{profiles: profiles, global: global, creds: creds, bus: bus, state: models.StateNotStarted}
}

// State returns the coordinator's current cursor.
func (c *Coordinator) State() models.DeploymentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop cancels the running deployment's context, if any. The Coordinator
// treats cancellation as terminal: it runs best-effort cleanup and
// transitions to Cancelled.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Coordinator) setState(profileName string, next models.DeploymentState) {
	c.mu.Lock()
	old := c.state
	c.state = next
	c.mu.Unlock()
	c.bus.StageChange(profileName, old, next)
}

// Deploy runs one deployment of profileName end to end, returning the
// terminal state and error (nil on success). Idempotent: retrying a
// failed deployment with the same profile is safe since
// uploads overwrite, mkdir tolerates existing dirs, and cleanup doesn't
// depend on prior run state.
func (c *Coordinator) Deploy(ctx context.Context, profileName string, opts Options) (models.DeploymentState, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	startedAt := time.Now()
	var profile models.DeploymentProfile
	var holder *credentials.Holder
	defer func() {
		if holder != nil {
			holder.Zero()
		}
	}()

	result := func() (models.DeploymentState, error) {
		// --- LoadingProfile ---
		c.setState(profileName, models.StateLoadingProfile)
		loaded, err := c.profiles.Load(profileName, c.global)
		if err != nil {
			return models.StateFailed, err
		}
		profile = loaded
		if warnings, err := config.Validate(profile); err != nil {
			return models.StateFailed, err
		} else {
			for _, w := range warnings {
				c.bus.Warning(profileName, fmt.Errorf("%s", w))
			}
		}
		if profile.CredentialRef != "" {
			h, err := c.creds.Open(credentials.Handle(profile.CredentialRef))
			if err != nil {
				return models.StateFailed, &deployerr.AuthError{CredentialIssue: true, Err: err}
			}
			holder = h
		}

		// --- BuildingProject ---
		c.setState(profileName, models.StateBuildingProject)
		runner := &buildrunner.Runner{Command: opts.BuildCommand}
		if _, err := runner.Run(ctx, opts.ProjectPath, profile.Build, opts.PublishDir); err != nil {
			return models.StateFailed, err
		}

		// --- ConnectingToServer ---
		c.setState(profileName, models.StateConnectingToServer)
		factory := c.driverFactory(profile, holder, opts)
		connPool := pool.New(profile.Concurrency, factory)
		defer connPool.CloseAll(ctx)

		connectPolicy := retry.New(profile.RetryCount, 2*time.Second, 30*time.Second, 2.0, true)
		probe, err := connPool.Acquire(ctx)
		for attempt := 0; err != nil && connectPolicy.IsRetryable(err) && attempt < connectPolicy.MaxAttempts; attempt++ {
			select {
			case <-time.After(connectPolicy.Delay(attempt)):
			case <-ctx.Done():
				return models.StateCancelled, &deployerr.Cancelled{}
			}
			probe, err = connPool.Acquire(ctx)
		}
		if err != nil {
			return models.StateFailed, err
		}
		if err := probe.Driver.SetWorkingDir(ctx, profile.RemotePath); err != nil {
			connPool.Release(ctx, probe, false)
			return models.StateFailed, err
		}
		connPool.Release(ctx, probe, true)

		// --- Publish Walker (feeds PreDeploymentSummary) ---
		walked, err := walk.Walk(opts.PublishDir, profile.ExclusionPatterns)
		if err != nil {
			return models.StateFailed, &deployerr.ConfigError{Path: opts.PublishDir, Err: err}
		}
		if profile.AppOfflineEnabled && walked.AppOffline == nil {
			synthetic, err := walk.SyntheticAppOffline(opts.PublishDir)
			if err == nil {
				walked.AppOffline = &synthetic
			}
		}

		// --- PreDeploymentSummary ---
		c.setState(profileName, models.StatePreDeploymentSummary)
		var totalBytes int64
		for _, f := range walked.Files {
			totalBytes += f.Size
		}
		c.bus.Upload(profileName, progress.Snapshot{TotalFiles: len(walked.Files), TotalBytes: totalBytes})

		if opts.DryRun {
			return models.StateCompleted, nil
		}
		if !opts.Confirm {
			return models.StateCancelled, &deployerr.Cancelled{}
		}

		// --- UploadingAppOffline ---
		if profile.AppOfflineEnabled && walked.AppOffline != nil {
			c.setState(profileName, models.StateUploadingAppOffline)
			lease, err := connPool.Acquire(ctx)
			if err != nil {
				return models.StateFailed, err
			}
			remote := pathutil.JoinRemote(profile.RemotePath, walked.AppOffline.RelativePath)
			_, uploadErr := lease.Driver.Upload(ctx, walked.AppOffline.AbsolutePath, remote, true, true)
			connPool.Release(ctx, lease, uploadErr == nil)
			if uploadErr != nil {
				return models.StateFailed, uploadErr
			}
		}

		// --- UploadingFiles ---
		c.setState(profileName, models.StateUploadingFiles)
		tasks := buildTasks(profile.RemotePath, walked.Files)
		policy := retry.New(profile.RetryCount, 2*time.Second, 30*time.Second, 2.0, true)
		engine := uploadengine.New(connPool, policy, func(s progress.Snapshot) {
			c.bus.Upload(profileName, s)
		})
		results, uploadSuccess := engine.Run(ctx, tasks, profile.Concurrency)
		filesUploaded := 0
		var uploadedBytes int64
		for _, r := range results {
			if r.Success {
				filesUploaded++
				uploadedBytes += r.Task.Size
			}
		}
		if !uploadSuccess {
			return models.StateFailed, &deployerr.TransferError{Transient: false, Err: fmt.Errorf("%d of %d uploads failed", len(results)-filesUploaded, len(results))}
		}

		// --- CleaningUpObsoleteFiles ---
		if profile.CleanupMode != models.CleanupNone {
			c.setState(profileName, models.StateCleaningUpObsoleteFiles)
			if profile.CleanupMode == models.CleanupDeleteAll {
				if err := c.cleanupDeleteAll(ctx, profileName, connPool, profile, walked); err != nil {
					return models.StateFailed, err
				}
			} else {
				c.cleanup(ctx, profileName, connPool, profile, walked)
			}
		}

		// --- DeletingAppOffline ---
		if profile.AppOfflineEnabled && walked.AppOffline != nil {
			c.setState(profileName, models.StateDeletingAppOffline)
			lease, err := connPool.Acquire(ctx)
			if err == nil {
				remote := pathutil.JoinRemote(profile.RemotePath, walked.AppOffline.RelativePath)
				if rmErr := lease.Driver.Rm(ctx, remote); rmErr != nil {
					c.bus.Warning(profileName, rmErr)
				}
				connPool.Release(ctx, lease, true)
			}
		}

		// --- RecordingHistory ---
		c.setState(profileName, models.StateRecordingHistory)
		journal := history.Open(opts.HistoryPath)
		if err := journal.Append(models.DeploymentHistoryEntry{
			ID: newHistoryID(profileName, startedAt),
			Profile: profileName, StartedAt: startedAt, EndedAt: time.Now(),
			Success: true, FilesUploaded: filesUploaded, TotalBytes: uploadedBytes,
		}); err != nil {
			c.bus.Warning(profileName, err)
		}

		return models.StateCompleted, nil
	}()

	terminalState, terminalErr := result
	if ctx.Err() != nil && terminalState != models.StateCompleted {
		terminalState = models.StateCancelled
		terminalErr = &deployerr.Cancelled{}
	}

	c.writeFailureHistory(opts, profileName, startedAt, terminalState, terminalErr)

	c.setState(profileName, terminalState)
	success := terminalState == models.StateCompleted
	if terminalState == models.StateFailed {
		c.bus.Error(profileName, terminalErr)
	}
	c.bus.Complete(profileName, success, terminalErr)
	return terminalState, terminalErr
}

// writeFailureHistory records a history entry for non-success terminal
// states; the success path already recorded its own entry during
// RecordingHistory. A history write failure is a warning, never a state
// change.
func (c *Coordinator) writeFailureHistory(opts Options, profileName string, startedAt time.Time, state models.DeploymentState, terminalErr error) {
	if state == models.StateCompleted || opts.HistoryPath == "" {
		return
	}
	summary := ""
	if terminalErr != nil {
		summary = terminalErr.Error()
	}
	journal := history.Open(opts.HistoryPath)
	if err := journal.Append(models.DeploymentHistoryEntry{
		ID: newHistoryID(profileName, startedAt),
		Profile: profileName, StartedAt: startedAt, EndedAt: time.Now(),
		Success: false, ErrorSummary: summary,
	}); err != nil {
		c.bus.Warning(profileName, err)
	}
}

// newHistoryID mints a random identifier for a DeploymentHistoryEntry,
// falling back to a profile/timestamp composite if the system entropy
// source is unavailable.
func newHistoryID(profileName string, startedAt time.Time) string {
	if id, err := uuid.GenerateUUID(); err == nil {
		return id
	}
	return fmt.Sprintf("%s-%d", profileName, startedAt.UnixNano())
}

// cleanup implements CleanupMode=DeleteObsolete: it computes the diff
// (remote set − local set) and deletes obsolete entries in reverse depth
// order, files first then empty dirs. Each delete is attempted
// independently: a failure is a warning, the pass continues.
func (c *Coordinator) cleanup(ctx context.Context, profileName string, p *pool.Pool, profile models.DeploymentProfile, walked walk.Result) {
	lease, err := p.Acquire(ctx)
	if err != nil {
		c.bus.Warning(profileName, err)
		return
	}
	defer p.Release(ctx, lease, true)

	snap, err := inventory.List(ctx, lease.Driver, profile.RemotePath)
	if err != nil {
		c.bus.Warning(profileName, err)
		return
	}

	local := make(map[string]bool, len(walked.Files)*2)
	for _, f := range walked.Files {
		local[f.RelativePath] = true
		for dir := path.Dir(f.RelativePath); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
			local[dir] = true
		}
	}

	obsoleteFiles, obsoleteDirs := inventory.Diff(snap, local)

	for _, rel := range obsoleteFiles {
		remote := pathutil.JoinRemote(profile.RemotePath, rel)
		if err := lease.Driver.Rm(ctx, remote); err != nil {
			c.bus.Warning(profileName, err)
		}
	}
	for i := len(obsoleteDirs) - 1; i >= 0; i-- {
		remote := pathutil.JoinRemote(profile.RemotePath, obsoleteDirs[i])
		if err := lease.Driver.Rmdir(ctx, remote); err != nil {
			c.bus.Warning(profileName, err)
		}
	}
}

// cleanupDeleteAll implements CleanupMode=DeleteAll: it removes every
// file and directory under profile.RemotePath, then re-uploads the full
// publish set so the deployment still ends with every file in place.
// This is stronger than DeleteObsolete — it also clears remote entries
// that happen to share a relative path with a local file but were left
// over from an incompatible layout (e.g. a file where the new build
// wants a directory) — at the cost of a full re-upload. Guarded against
// an empty or root RemotePath, since that would otherwise wipe the
// entire remote server.
func (c *Coordinator) cleanupDeleteAll(ctx context.Context, profileName string, p *pool.Pool, profile models.DeploymentProfile, walked walk.Result) error {
	if strings.Trim(profile.RemotePath, "/") == "" {
		return &deployerr.ValidationError{Field: "remotePath", Msg: "delete-all cleanup refuses an empty or root remote path"}
	}

	lease, err := p.Acquire(ctx)
	if err != nil {
		c.bus.Warning(profileName, err)
		return nil
	}
	snap, err := inventory.List(ctx, lease.Driver, profile.RemotePath)
	if err != nil {
		c.bus.Warning(profileName, err)
		p.Release(ctx, lease, true)
		return nil
	}
	for _, rel := range snap.Files {
		remote := pathutil.JoinRemote(profile.RemotePath, rel)
		if err := lease.Driver.Rm(ctx, remote); err != nil {
			c.bus.Warning(profileName, err)
		}
	}
	for i := len(snap.Dirs) - 1; i >= 0; i-- {
		remote := pathutil.JoinRemote(profile.RemotePath, snap.Dirs[i])
		if err := lease.Driver.Rmdir(ctx, remote); err != nil {
			c.bus.Warning(profileName, err)
		}
	}
	p.Release(ctx, lease, true)

	tasks := buildTasks(profile.RemotePath, walked.Files)
	policy := retry.New(profile.RetryCount, 2*time.Second, 30*time.Second, 2.0, true)
	engine := uploadengine.New(p, policy, func(s progress.Snapshot) {
		c.bus.Upload(profileName, s)
	})
	results, uploadSuccess := engine.Run(ctx, tasks, profile.Concurrency)
	if !uploadSuccess {
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		return &deployerr.TransferError{Transient: false, Err: fmt.Errorf("delete-all re-upload: %d of %d uploads failed", len(results)-succeeded, len(results))}
	}
	return nil
}

func (c *Coordinator) driverFactory(profile models.DeploymentProfile, holder *credentials.Holder, opts Options) driver.Factory {
	password := ""
	if holder != nil {
		password = holder.Password()
	}
	switch profile.Connection.Protocol {
	case models.ProtocolSFTP:
		if opts.NewDriverForSFTP != nil {
			return opts.NewDriverForSFTP(profile.Connection, profile.Username, password)
		}
		return driver.NewSFTPDriver(profile.Connection, profile.Username, password)
	default:
		if opts.NewDriverForFTP != nil {
			return opts.NewDriverForFTP(profile.Connection, profile.Username, password)
		}
		return driver.NewFTPDriver(profile.Connection, profile.Username, password)
	}
}

func buildTasks(remoteRoot string, files []models.PublishFile) []models.UploadTask {
	tasks := make([]models.UploadTask, 0, len(files))
	for _, f := range files {
		tasks = append(tasks, models.UploadTask{
			Local:           f.AbsolutePath,
			Remote:          pathutil.JoinRemote(remoteRoot, f.RelativePath),
			Size:            f.Size,
			Overwrite:       true,
			CreateRemoteDir: true,
			Priority:        priorityFor(f.Kind),
		})
	}
	return tasks
}

// priorityFor gives assemblies/config slightly higher priority than
// static assets so a partially-uploaded app is less likely to be left in
// a half-updated state if interrupted; ties still break on size within
// the Upload Engine's ordering.
func priorityFor(kind models.FileKind) int {
	switch kind {
	case models.KindWebConfig:
		return 0
	case models.KindAssembly:
		return 1
	default:
		return 2
	}
}
