// Package progress implements the Progress Bus: a pub/sub of stage and
// progress events with immutable snapshots, using non-blocking publish
// and per-type plus all-event subscriber channels.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/models"
)

const (
	defaultBufferSize = 256
	maxBufferSize     = 4096
)

// EventKind discriminates the Event union below.
type EventKind string

const (
	EventStageChange EventKind = "stage_change"
	EventUpload       EventKind = "progress"
	EventWarning      EventKind = "warning"
	EventError        EventKind = "error"
	EventComplete     EventKind = "complete"
)

// Event is the single immutable value published on the bus. Only the
// fields relevant to Kind are populated; one type covers every event
// shape since the Coordinator's observer interface is the only consumer
// that matters here.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Profile   string
	OldState  models.DeploymentState
	NewState  models.DeploymentState
	Snapshot  Snapshot
	Warning   error
	Err       error
	Success   bool
}

// Snapshot is an immutable upload-progress point-in-time view, pushed on
// every task start and completion; there are no per-byte updates while a
// file is in transit, and CurrentBps, AvgBps and ETA are left zero by the
// Upload Engine.
type Snapshot struct {
	TotalFiles int
	Completed  int
	Active     int
	Pending    int
	Successful int
	Failed     int
	TotalBytes int64
	UploadedBytes int64
	CurrentBps float64
	AvgBps     float64
	ETA        time.Duration
}

// Bus is many-producer/many-consumer and non-blocking at the publish edge:
// a full subscriber buffer drops the event rather than stalling the
// Coordinator.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventKind][]chan Event
	all         []chan Event
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewBus builds a Bus with the given per-subscriber channel buffer size.
// A non-positive or oversized value is clamped.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if bufferSize > maxBufferSize {
		bufferSize = maxBufferSize
	}
	return &Bus{
		subscribers: make(map[EventKind][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving only events of kind.
func (b *Bus) Subscribe(kind EventKind) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, b.bufferSize)
	b.subscribers[kind] = append(b.subscribers[kind], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends event to every matching subscriber without blocking; a
// full channel increments the dropped-event counter instead of stalling.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[event.Kind] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// StageChange publishes a stage-transition event.
func (b *Bus) StageChange(profile string, old, next models.DeploymentState) {
	b.Publish(Event{Kind: EventStageChange, Time: time.Now(), Profile: profile, OldState: old, NewState: next})
}

// Upload publishes an upload-progress snapshot.
func (b *Bus) Upload(profile string, snap Snapshot) {
	b.Publish(Event{Kind: EventUpload, Time: time.Now(), Profile: profile, Snapshot: snap})
}

// Warning publishes a non-fatal warning (profile validation warning,
// cleanup failure, history write failure, app-offline delete failure).
func (b *Bus) Warning(profile string, err error) {
	b.Publish(Event{Kind: EventWarning, Time: time.Now(), Profile: profile, Warning: err})
}

// Error publishes the terminal error for a Failed deployment.
func (b *Bus) Error(profile string, err error) {
	b.Publish(Event{Kind: EventError, Time: time.Now(), Profile: profile, Err: err})
}

// Complete publishes the exactly-once terminal event: exactly one
// Completed|Failed|Cancelled event per deployment.
func (b *Bus) Complete(profile string, success bool, err error) {
	b.Publish(Event{Kind: EventComplete, Time: time.Now(), Profile: profile, Success: success, Err: err})
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// DroppedCount returns how many events were dropped due to full buffers.
func (b *Bus) DroppedCount() int64 { return b.dropped.Load() }
