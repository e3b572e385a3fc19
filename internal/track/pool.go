package track

import (
	"sync"

	"github.com/banshee-data/gnss-track/internal/gnss"
)

// Pool is a fixed-capacity arena of tracking channel slots. The capacity
// is a build-time resource budget; exhaustion is a normal, reported
// condition. The mutex makes the free-slot scan plus claim atomic so
// concurrent handovers never claim the same slot.
type Pool struct {
	mu       sync.Mutex
	channels []Channel
}

// NewPool allocates a pool with n free slots.
func NewPool(n int) *Pool {
	return &Pool{channels: make([]Channel, n)}
}

// Len returns the pool capacity.
func (p *Pool) Len() int { return len(p.channels) }

// Channel returns the slot at idx. The caller must respect slot
// ownership; only the scheduler and the owning type callbacks mutate an
// active slot.
func (p *Pool) Channel(idx int) *Channel { return &p.channels[idx] }

// ActiveCount returns the number of active slots.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.channels {
		if p.channels[i].active {
			n++
		}
	}
	return n
}

// Available reports whether slot idx could be bound to sid: the slot must
// be free and sid must not already be tracked by another slot in the
// pool. This is the caller-side check that keeps at most one active slot
// per signal identity.
func (p *Pool) Available(idx int, sid gnss.SignalID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableLocked(idx, sid)
}

func (p *Pool) availableLocked(idx int, sid gnss.SignalID) bool {
	if idx < 0 || idx >= len(p.channels) {
		return false
	}
	if p.channels[idx].active {
		return false
	}
	for i := range p.channels {
		if p.channels[i].active && p.channels[i].Signal == sid {
			return false
		}
	}
	return true
}

// claim atomically binds slot idx to sid and, when init is non-nil, runs
// it on the slot before the lock is dropped, so no reader ever observes a
// claimed but half-initialised channel. It fails if the slot is taken or
// sid is already tracked in this pool.
func (p *Pool) claim(idx int, sid gnss.SignalID, corr Correlator, common CommonData, init func(*Channel)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.availableLocked(idx, sid) {
		return false
	}
	ch := &p.channels[idx]
	ch.active = true
	ch.Signal = sid
	ch.Correlator = corr
	ch.Common = common
	ch.Data = nil
	if init != nil {
		init(ch)
	}
	return true
}

// release frees slot idx. When fin is non-nil it runs on the still-active
// slot first, under the lock. Returns false if the slot was not active.
func (p *Pool) release(idx int, fin func(*Channel)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx >= len(p.channels) || !p.channels[idx].active {
		return false
	}
	ch := &p.channels[idx]
	if fin != nil {
		fin(ch)
	}
	ch.active = false
	ch.Data = nil
	ch.Correlator = nil
	return true
}

// forEachActive runs fn on every active slot while holding the pool lock.
// Claims, releases and other forEachActive passes are serialised against
// it, which is what makes concurrent status reads and scheduler updates
// safe.
func (p *Pool) forEachActive(fn func(idx int, ch *Channel)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.channels {
		if p.channels[i].active {
			fn(i, &p.channels[i])
		}
	}
}
