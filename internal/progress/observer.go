package progress

import "github.com/ftpsheep/ftpsheep/internal/models"

// Observer is the Coordinator's event-dispatch contract: an observer
// interface rather than multicast events on mutable objects, to avoid
// shared-state hazards. Implementations must not block.
type Observer interface {
	OnStageChange(profile string, old, next models.DeploymentState)
	OnProgress(profile string, snap Snapshot)
	OnWarning(profile string, err error)
	OnError(profile string, err error)
	OnComplete(profile string, success bool, err error)
}

// Dispatch drains bus's all-events subscription and forwards each event to
// obs until the bus is closed. Intended to run in its own goroutine for the
// lifetime of one deployment.
func Dispatch(bus *Bus, obs Observer) {
	if obs == nil {
		return
	}
	for event := range bus.SubscribeAll() {
		switch event.Kind {
		case EventStageChange:
			obs.OnStageChange(event.Profile, event.OldState, event.NewState)
		case EventUpload:
			obs.OnProgress(event.Profile, event.Snapshot)
		case EventWarning:
			obs.OnWarning(event.Profile, event.Warning)
		case EventError:
			obs.OnError(event.Profile, event.Err)
		case EventComplete:
			obs.OnComplete(event.Profile, event.Success, event.Err)
		}
	}
}

// NopObserver implements Observer with no-ops, useful as a default when
// the caller (e.g. a non-interactive history replay) wants no callbacks.
type NopObserver struct{}

func (NopObserver) OnStageChange(string, models.DeploymentState, models.DeploymentState) {}
func (NopObserver) OnProgress(string, Snapshot)                                          {}
func (NopObserver) OnWarning(string, error)                                              {}
func (NopObserver) OnError(string, error)                                                {}
func (NopObserver) OnComplete(string, bool, error)                                       {}
