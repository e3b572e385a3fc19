package track

import (
	"fmt"

	"github.com/banshee-data/gnss-track/internal/gnss"
)

// TrackerType implements the tracking behaviour for one signal type.
// Init and Disable bracket a slot's lifetime; Update runs one scheduler
// tick on an active slot.
type TrackerType interface {
	Code() gnss.Code
	Init(ch *Channel)
	Disable(ch *Channel)
	Update(ch *Channel)
}

type registryEntry struct {
	typ  TrackerType
	pool *Pool
}

// Registry dispatches scheduler ticks to tracking channels by signal
// type. It is populated once at process start and read-only afterwards
// except through the slots it owns; pass it by reference into the
// scheduler rather than holding it as ambient state.
type Registry struct {
	entries []registryEntry
	frozen  bool
}

// NewRegistry returns an empty tracker registry.
func NewRegistry() *Registry { return &Registry{} }

// Register binds a signal type to its channel pool. It must be called
// exactly once per type before scheduling begins.
func (r *Registry) Register(typ TrackerType, pool *Pool) error {
	if r.frozen {
		return fmt.Errorf("tracker registry: register %s after freeze", typ.Code())
	}
	for _, e := range r.entries {
		if e.typ.Code() == typ.Code() {
			return fmt.Errorf("tracker registry: %s already registered", typ.Code())
		}
	}
	r.entries = append(r.entries, registryEntry{typ: typ, pool: pool})
	return nil
}

// Freeze marks the end of registration. Later Register calls fail.
func (r *Registry) Freeze() { r.frozen = true }

func (r *Registry) lookup(code gnss.Code) (registryEntry, error) {
	for _, e := range r.entries {
		if e.typ.Code() == code {
			return e, nil
		}
	}
	return registryEntry{}, fmt.Errorf("tracker registry: no type registered for %s", code)
}

// NumChannels returns the pool capacity for code, or 0 if unregistered.
func (r *Registry) NumChannels(code gnss.Code) int {
	e, err := r.lookup(code)
	if err != nil {
		return 0
	}
	return e.pool.Len()
}

// Available reports whether slot idx of code's pool can be bound to sid.
func (r *Registry) Available(code gnss.Code, idx int, sid gnss.SignalID) bool {
	e, err := r.lookup(code)
	if err != nil {
		return false
	}
	return e.pool.Available(idx, sid)
}

// StartState seeds a newly started tracking channel.
type StartState struct {
	RefSampleCount uint64
	CodePhase      float64 // chips
	CarrierFreq    float64 // Hz
	CN0            float64 // dB-Hz
	Elevation      int8    // degrees
}

// StartChannel claims slot idx of code's pool for sid, seeds its common
// tracking data and runs the type's init callback.
func (r *Registry) StartChannel(code gnss.Code, idx int, sid gnss.SignalID, corr Correlator, st StartState) error {
	e, err := r.lookup(code)
	if err != nil {
		return err
	}
	common := CommonData{
		SampleCount:    st.RefSampleCount,
		CodePhaseEarly: st.CodePhase,
		CarrierFreq:    st.CarrierFreq,
		CodePhaseRate:  gnss.GPSCAChippingRateHz,
		CN0:            st.CN0,
		Elevation:      st.Elevation,
		TOWms:          -1,
	}
	if !e.pool.claim(idx, sid, corr, common, e.typ.Init) {
		return fmt.Errorf("tracker registry: slot %d unavailable for %s", idx, sid)
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
		return fmt.Errorf("tracker registry: slot %d of %s not active", idx, code)
	}
	return nil
}

// ChannelStatus is a diagnostic snapshot of one active channel.
type ChannelStatus struct {
	Code            string  `json:"code"`
	Slot            int     `json:"slot"`
	Sat             uint16  `json:"sat"`
	CN0             float64 `json:"cn0"`
	CarrierFreq     float64 `json:"carrier_freq"`
	CodePhaseRate   float64 `json:"code_phase_rate"`
	TOWms           int32   `json:"tow_ms"`
	UpdateCount     uint32  `json:"update_count"`
	ModeChangeCount uint32  `json:"mode_change_count"`
}

// Status snapshots every active channel for diagnostics. Each pool is
// read under its lock, so Status is safe to call concurrently with the
// scheduler tick and with handovers.
func (r *Registry) Status() []ChannelStatus {
	var out []ChannelStatus
	for _, e := range r.entries {
		e.pool.forEachActive(func(i int, ch *Channel) {
			out = append(out, ChannelStatus{
				Code:            ch.Signal.Code.String(),
				Slot:            i,
				Sat:             ch.Signal.Sat,
				CN0:             ch.Common.CN0,
				CarrierFreq:     ch.Common.CarrierFreq,
				CodePhaseRate:   ch.Common.CodePhaseRate,
				TOWms:           ch.Common.TOWms,
				UpdateCount:     ch.Common.UpdateCount,
				ModeChangeCount: ch.Common.ModeChangeCount,
			})
		})
	}
	return out
}

// Tick runs one tracking-loop update on every active channel. The caller
// serialises Tick invocations; each pool's lock is held across its
// updates, so status snapshots and handover claims never observe a
// channel mid-update.
func (r *Registry) Tick() {
	for _, e := range r.entries {
		e.pool.forEachActive(func(_ int, ch *Channel) {
			e.typ.Update(ch)
		})
	}
}
