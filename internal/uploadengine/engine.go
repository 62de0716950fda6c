// Package uploadengine implements the Upload Engine: a
// bounded-concurrency worker pool draining a task queue against the
// Connection Pool, with per-task retry and progress snapshots. Each worker
// checks for cancellation before taking the next job; a failed task does
// not stop the others, and every task yields its own UploadResult.
package uploadengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/ftpsheep/ftpsheep/internal/pool"
	"github.com/ftpsheep/ftpsheep/internal/progress"
	"github.com/ftpsheep/ftpsheep/internal/retry"
)

// ProgressFunc receives a snapshot after every task start and completion;
// no snapshots are emitted while a file's bytes are in transit.
// Implementations must not block.
type ProgressFunc func(progress.Snapshot)

// Engine drains a bounded task queue with N workers leased from a Pool.
type Engine struct {
	pool     *pool.Pool
	policy   retry.Policy
	onProgress ProgressFunc
}

// New builds an Engine backed by p, retrying failed uploads per policy.
func New(p *pool.Pool, policy retry.Policy, onProgress ProgressFunc) *Engine {
	if onProgress == nil {
		onProgress = func(progress.Snapshot) {}
	}
	return &Engine{pool: p, policy: policy, onProgress: onProgress}
}

// Run uploads every task in tasks, ordered priority-asc then size-asc
//, using up to concurrency workers. It returns one
// UploadResult per task (any order) and a bool indicating overall success
// (failed == 0). Cancellation via ctx stops dequeuing further tasks;
// in-flight uploads observe ctx at their next driver-operation boundary.
func (e *Engine) Run(ctx context.Context, tasks []models.UploadTask, concurrency int) ([]models.UploadResult, bool) {
	ordered := append([]models.UploadTask(nil), tasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Size < ordered[j].Size
	})

	queueSize := concurrency * 2
	if queueSize < 2 {
		queueSize = 2
	}
	jobChan := make(chan models.UploadTask, queueSize)
	resultChan := make(chan models.UploadResult, len(ordered))

	var wg sync.WaitGroup
	var totalBytes int64
	for _, task := range ordered {
		totalBytes += task.Size
	}
	snap := &liveSnapshot{totalFiles: len(ordered), pending: len(ordered), totalBytes: totalBytes}

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, jobChan, resultChan, snap)
		}()
	}

	go func() {
		defer close(jobChan)
		for _, task := range ordered {
			select {
			case jobChan <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]models.UploadResult, 0, len(ordered))
	for res := range resultChan {
		results = append(results, res)
	}
	// Tasks never dequeued because of cancellation still get a result.
	if len(results) < len(ordered) {
		seen := make(map[string]int, len(results))
		for _, r := range results {
			seen[r.Task.Remote]++
		}
		for _, task := range ordered {
			if seen[task.Remote] > 0 {
				seen[task.Remote]--
				continue
			}
			results = append(results, models.UploadResult{Task: task, Success: false, Err: &deployerr.Cancelled{}})
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	return results, failed == 0
}

func (e *Engine) worker(ctx context.Context, jobChan <-chan models.UploadTask, resultChan chan<- models.UploadResult, snap *liveSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok := <-jobChan
		if !ok {
			return
		}

		snap.startTask()
		e.onProgress(snap.view())

		result := e.executeWithRetry(ctx, task)

		snap.completeTask(result)
		e.onProgress(snap.view())

		resultChan <- result
	}
}

// executeWithRetry runs one task's upload loop: take next task; acquire
// lease; execute upload; on error ask policy.isRetryable; if retryable and
// attempts<max, sleep policy.delay(k), mark lease unhealthy, loop; else
// emit Failed result.
func (e *Engine) executeWithRetry(ctx context.Context, task models.UploadTask) models.UploadResult {
	started := time.Now()
	attempts := 0
	maxAttempts := e.policy.MaxAttempts + 1

	for {
		attempts++
		select {
		case <-ctx.Done():
			return models.UploadResult{Task: task, Success: false, Err: &deployerr.Cancelled{}, Attempts: attempts, StartedAt: started, CompletedAt: time.Now()}
		default:
		}

		lease, err := e.pool.Acquire(ctx)
		if err != nil {
			return models.UploadResult{Task: task, Success: false, Err: err, Attempts: attempts, StartedAt: started, CompletedAt: time.Now()}
		}

		attemptStart := time.Now()
		_, uploadErr := lease.Driver.Upload(ctx, task.Local, task.Remote, task.Overwrite, task.CreateRemoteDir)
		elapsed := time.Since(attemptStart)

		if uploadErr == nil {
			e.pool.Release(ctx, lease, true)
			bps := 0.0
			if elapsed > 0 {
				bps = float64(task.Size) / elapsed.Seconds()
			}
			return models.UploadResult{
				Task: task, Success: true, Attempts: attempts,
				StartedAt: started, CompletedAt: time.Now(), BytesPerSecond: bps,
			}
		}

		retryable := e.policy.IsRetryable(uploadErr)
		if !retryable || attempts >= maxAttempts {
			e.pool.Release(ctx, lease, false)
			return models.UploadResult{Task: task, Success: false, Err: uploadErr, Attempts: attempts, StartedAt: started, CompletedAt: time.Now()}
		}

		e.pool.Release(ctx, lease, false)

		delay := e.policy.Delay(attempts - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.UploadResult{Task: task, Success: false, Err: &deployerr.Cancelled{}, Attempts: attempts, StartedAt: started, CompletedAt: time.Now()}
		}
	}
}

// liveSnapshot accumulates the counters behind progress.Snapshot under a
// single mutex: a monotonically-updated point-in-time view rather than a
// decaying average across many small chunks.
type liveSnapshot struct {
	mu         sync.Mutex
	totalFiles int
	completed  int
	active     int
	pending    int
	successful int
	failed     int
	totalBytes int64
	uploaded   int64
}

func (s *liveSnapshot) startTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active++
	s.pending--
}

func (s *liveSnapshot) completeTask(r models.UploadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.completed++
	if r.Success {
		s.successful++
		s.uploaded += r.Task.Size
	} else {
		s.failed++
	}
}

func (s *liveSnapshot) view() progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progress.Snapshot{
		TotalFiles:    s.totalFiles,
		Completed:     s.completed,
		Active:        s.active,
		Pending:       s.pending,
		Successful:    s.successful,
		Failed:        s.failed,
		TotalBytes:    s.totalBytes,
		UploadedBytes: s.uploaded,
	}
}
