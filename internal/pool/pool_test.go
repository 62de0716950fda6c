package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/driver"
	"github.com/stretchr/testify/require"
)

func TestPoolAtMostNConcurrent(t *testing.T) {
	const n = 3
	p := New(n, func() (driver.Driver, error) { return driver.NewFakeDriver(), nil })

	var active int32
	var maxActive int32
	var wg sync.WaitGroup
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := p.Acquire(ctx)
			require.NoError(t, err)
			cur := atomic.AddInt32(&active, 1)
			for {
				max := atomic.LoadInt32(&maxActive)
				if cur <= max || atomic.CompareAndSwapInt32(&maxActive, max, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			p.Release(ctx, lease, true)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, int(atomic.LoadInt32(&maxActive)), n)
}

func TestPoolAcquireCancelled(t *testing.T) {
	p := New(1, func() (driver.Driver, error) { return driver.NewFakeDriver(), nil })
	ctx := context.Background()
	lease, err := p.Acquire(ctx)
	require.NoError(t, err)

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(cancelCtx)
	require.Error(t, err)

	p.Release(ctx, lease, true)
}

func TestPoolRebuildsUnhealthyDriver(t *testing.T) {
	fake := driver.NewFakeDriver()
	calls := 0
	p := New(1, func() (driver.Driver, error) {
		calls++
		return fake, nil
	})
	ctx := context.Background()

	lease, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(ctx, lease, false)
	require.GreaterOrEqual(t, calls, 1)

	_, err = p.Acquire(ctx)
	require.NoError(t, err)
}
