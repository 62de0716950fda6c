// Package pool implements the Connection Pool: a fixed-size set of Driver
// instances leased to Upload Engine workers, using a counting semaphore
// to bound concurrent connections.
package pool

import (
	"context"
	"sync"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
	"github.com/ftpsheep/ftpsheep/internal/driver"
)

// Lease is a temporarily exclusive borrow of a pooled Driver.
type Lease struct {
	Driver driver.Driver
	slot   int
}

// Pool is a fixed-size pool of N connected drivers. Acquire blocks until a
// driver is free or ctx is cancelled. At most N concurrent server-side
// operations proceed per deployment.
type Pool struct {
	factory driver.Factory
	sem     chan struct{}

	mu      sync.Mutex
	drivers []driver.Driver // index == slot, nil until first acquire of that slot
	free    []int           // free slot indices
}

// New builds a Pool of size n. No connections are made until Acquire is
// called — the pool connects lazily, matching the Coordinator's "connect
// one driver synchronously as a probe, defer remaining lazy-connects" rule
//.
func New(n int, factory driver.Factory) *Pool {
	if n < 1 {
		n = 1
	}
	free := make([]int, n)
	for i := range free {
		free[i] = i
	}
	return &Pool{
		factory: factory,
		sem:     make(chan struct{}, n),
		drivers: make([]driver.Driver, n),
		free:    free,
	}
}

// Size returns N, the pool's fixed capacity.
func (p *Pool) Size() int { return cap(p.sem) }

// Acquire blocks until a driver slot is free or ctx is cancelled. The
// returned driver is guaranteed connected; a dead driver is transparently
// rebuilt via a single reconnect attempt before being handed out, and a
// second failure surfaces as ConnectionError.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &deployerr.Cancelled{}
	}

	p.mu.Lock()
	if len(p.free) == 0 {
		p.mu.Unlock()
		<-p.sem
		return nil, &deployerr.ConnectionError{Transient: false, Err: ctx.Err()}
	}
	slot := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	d := p.drivers[slot]
	p.mu.Unlock()

	if d == nil {
		newDriver, err := p.factory()
		if err != nil {
			p.returnSlot(slot)
			<-p.sem
			return nil, &deployerr.ConnectionError{Transient: false, Err: err}
		}
		if err := newDriver.Connect(ctx); err != nil {
			p.returnSlot(slot)
			<-p.sem
			return nil, err
		}
		p.mu.Lock()
		p.drivers[slot] = newDriver
		p.mu.Unlock()
		d = newDriver
	}

	return &Lease{Driver: d, slot: slot}, nil
}

// Release returns a lease to the pool. If healthy is false, the driver is
// disconnected and rebuilt with a single reconnect attempt before being
// returned to the free set; a second failure leaves the slot driver-less
// so the next Acquire retries the rebuild.
func (p *Pool) Release(ctx context.Context, lease *Lease, healthy bool) {
	if lease == nil {
		return
	}
	if !healthy {
		_ = lease.Driver.Disconnect(ctx)
		rebuilt, err := p.factory()
		if err == nil && rebuilt.Connect(ctx) == nil {
			p.mu.Lock()
			p.drivers[lease.slot] = rebuilt
			p.mu.Unlock()
		} else {
			p.mu.Lock()
			p.drivers[lease.slot] = nil
			p.mu.Unlock()
		}
	}
	p.returnSlot(lease.slot)
	<-p.sem
}

func (p *Pool) returnSlot(slot int) {
	p.mu.Lock()
	p.free = append(p.free, slot)
	p.mu.Unlock()
}

// CloseAll disconnects every connected driver. Called at deployment end;
// completes even if ctx is already cancelled since Disconnect on a fake or
// real driver should not itself block on ctx.
func (p *Pool) CloseAll(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, d := range p.drivers {
		if d != nil {
			_ = d.Disconnect(ctx)
			p.drivers[i] = nil
		}
	}
}
