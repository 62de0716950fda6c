package progress

import (
	"testing"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBusPublishToSubscriber(t *testing.T) {
	b := NewBus(4)
	ch := b.Subscribe(EventStageChange)

	b.StageChange("prod", models.StateNotStarted, models.StateLoadingProfile)

	select {
	case ev := <-ch:
		require.Equal(t, EventStageChange, ev.Kind)
		require.Equal(t, models.StateLoadingProfile, ev.NewState)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	b := NewBus(1)
	_ = b.Subscribe(EventWarning) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Warning("prod", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
	require.Greater(t, b.DroppedCount(), int64(0))
}

func TestDispatchCallsObserverExactlyOnceOnComplete(t *testing.T) {
	b := NewBus(8)
	obs := &countingObserver{}
	go Dispatch(b, obs)

	b.StageChange("prod", models.StateNotStarted, models.StateLoadingProfile)
	b.Complete("prod", true, nil)
	time.Sleep(50 * time.Millisecond)
	b.Close()
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, obs.completeCalls)
}

type countingObserver struct {
	NopObserver
	completeCalls int
}

func (o *countingObserver) OnComplete(profile string, success bool, err error) {
	o.completeCalls++
}
