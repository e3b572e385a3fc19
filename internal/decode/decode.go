// Package decode implements the navigation-data decoder side of the
// channel architecture: a per-signal-type registry of decoder channel
// pools, structurally mirroring the tracker registry, plus the GPS L2C
// decoder.
package decode

import (
	"fmt"
	"sync"

	"github.com/banshee-data/gnss-track/internal/gnss"
)

// BitSource supplies navigation bits recovered by a tracking channel.
type BitSource interface {
	// NextBit returns the next hard-decision nav bit, or ok=false when no
	// bit is pending.
	NextBit() (bit bool, ok bool)
}

// Channel is one decoder channel slot.
type Channel struct {
	active bool

	Signal gnss.SignalID
	Bits   BitSource

	// Data holds the signal type's per-channel decoder state.
	Data any
}

// Active reports whether the slot is bound to a signal.
func (c *Channel) Active() bool { return c.active }

// Pool is a fixed-capacity arena of decoder channel slots.
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

// Channel returns the slot at idx.
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

// Available reports whether slot idx could be bound to sid.
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

// claim binds slot idx to sid and runs init on the slot before the lock
// is dropped, so no reader observes a half-initialised channel.
func (p *Pool) claim(idx int, sid gnss.SignalID, bits BitSource, init func(*Channel)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.availableLocked(idx, sid) {
		return false
	}
	ch := &p.channels[idx]
	ch.active = true
	ch.Signal = sid
	ch.Bits = bits
	ch.Data = nil
	if init != nil {
		init(ch)
	}
	return true
}

// release frees slot idx, running fin on the still-active slot first.
// Returns false if the slot was not active.
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
	ch.Bits = nil
	ch.Data = nil
	return true
}

// forEachActive runs fn on every active slot under the pool lock,
// serialising decode passes against claims and releases.
func (p *Pool) forEachActive(fn func(idx int, ch *Channel)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.channels {
		if p.channels[i].active {
			fn(i, &p.channels[i])
		}
	}
}

// DecoderType implements the decoding behaviour for one signal type.
type DecoderType interface {
	Code() gnss.Code
	Init(ch *Channel)
	Disable(ch *Channel)
	Process(ch *Channel)
}

type registryEntry struct {
	typ  DecoderType
	pool *Pool
}

// Registry dispatches decode work to decoder channels by signal type. Like
// the tracker registry it is populated once at process start.
type Registry struct {
	entries []registryEntry
	frozen  bool

	// BitSourceFor wires a newly started channel to the nav-bit stream
	// recovered by its paired tracking channel. nil leaves Bits unset.
	BitSourceFor func(idx int, sid gnss.SignalID) BitSource
}

// NewRegistry returns an empty decoder registry.
func NewRegistry() *Registry { return &Registry{} }

// Register binds a signal type to its decoder pool. It must be called
// exactly once per type before scheduling begins.
func (r *Registry) Register(typ DecoderType, pool *Pool) error {
	if r.frozen {
		return fmt.Errorf("decoder registry: register %s after freeze", typ.Code())
	}
	for _, e := range r.entries {
		if e.typ.Code() == typ.Code() {
			return fmt.Errorf("decoder registry: %s already registered", typ.Code())
		}
	}
	r.entries = append(r.entries, registryEntry{typ: typ, pool: pool})
	return nil
}

// Freeze marks the end of registration.
func (r *Registry) Freeze() { r.frozen = true }

func (r *Registry) lookup(code gnss.Code) (registryEntry, error) {
	for _, e := range r.entries {
		if e.typ.Code() == code {
			return e, nil
		}
	}
	return registryEntry{}, fmt.Errorf("decoder registry: no type registered for %s", code)
}

// Available reports whether slot idx of code's pool can be bound to sid.
func (r *Registry) Available(code gnss.Code, idx int, sid gnss.SignalID) bool {
	e, err := r.lookup(code)
	if err != nil {
		return false
	}
	return e.pool.Available(idx, sid)
}

// StartChannel claims slot idx of code's pool for sid and runs the
// type's init callback.
func (r *Registry) StartChannel(code gnss.Code, idx int, sid gnss.SignalID) error {
	e, err := r.lookup(code)
	if err != nil {
		return err
	}
	var bits BitSource
	if r.BitSourceFor != nil {
		bits = r.BitSourceFor(idx, sid)
	}
	if !e.pool.claim(idx, sid, bits, e.typ.Init) {
		return fmt.Errorf("decoder registry: slot %d unavailable for %s", idx, sid)
	}
	return nil
}

// DisableChannel runs the type's disable callback and frees the slot.
func (r *Registry) DisableChannel(code gnss.Code, idx int) error {
	e, err := r.lookup(code)
	if err != nil {
		return err
	}
	if !e.pool.release(idx, e.typ.Disable) {
		return fmt.Errorf("decoder registry: slot %d of %s not active", idx, code)
	}
	return nil
}

// Process runs one decode pass over every active channel. Each pool's
// lock is held across its pass, so concurrent handover claims never
// observe a channel mid-decode.
func (r *Registry) Process() {
	for _, e := range r.entries {
		e.pool.forEachActive(func(_ int, ch *Channel) {
			e.typ.Process(ch)
		})
	}
}
