// Package track implements the signal-tracking core: tracking channel
// pools, the per-signal-type tracker registry, the GPS L2 CM tracking
// loop and the cross-signal handover coordinator.
package track

import (
	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
)

// Correlator is the hardware correlator channel behind one tracking
// channel. Implementations wrap NAP register access or a simulated front
// end; the tracking core only reads accumulated correlations and issues
// fire-and-forget retunes.
type Correlator interface {
	// ReadCorrelations returns the early/prompt/late taps accumulated
	// since the previous read, with the updated sample count, early code
	// phase and carrier phase.
	ReadCorrelations() (cs [3]dsp.Correlation, sampleCount uint64, codePhaseEarly, carrierPhase float64)

	// Retune programs the correlator with a new carrier frequency and
	// code phase rate. integrationMs tags the remaining span of the
	// current integration; 0 marks a 1 ms short cycle.
	Retune(carrierFreqHz, codePhaseRateHz float64, integrationMs uint8)

	// InvalidatePhaseAmbiguity marks the absolute carrier phase as
	// untrusted after a suspected cycle slip.
	InvalidatePhaseAmbiguity()

	// UpdateBitSync feeds the navigation bit synchroniser with one
	// integration period's prompt in-phase sum.
	UpdateBitSync(intMs int, promptI int64)

	// BitAligned reports whether the integration boundary is aligned to
	// the navigation bit boundary.
	BitAligned() bool

	// TOWUpdate advances the time-of-week estimate by intMs.
	TOWUpdate(priorTOWms int32, intMs int) int32
}

// CorrelationSink receives per-tick correlation diagnostics. Sends are
// fire and forget; implementations must not block the tick.
type CorrelationSink interface {
	SendCorrelations(sid gnss.SignalID, cs [3]dsp.Correlation, cn0 float64)
}

// CommonData is the tracking state shared between a channel and its
// handover peers and diagnostics readers. It is mutated only by the
// owning channel's update step.
type CommonData struct {
	SampleCount    uint64
	CodePhaseEarly float64 // chips
	CarrierPhase   float64 // cycles
	TOWms          int32

	CarrierFreq   float64 // Hz
	CodePhaseRate float64 // chips/s
	CN0           float64 // dB-Hz
	Elevation     int8    // degrees

	// Update counters, in units of integrated milliseconds.
	UpdateCount            uint32
	CN0AboveDropThresCount uint32
	CN0BelowUseThresCount  uint32
	LockOptimisticCount    uint32
	LockPessUnlockCount    uint32
	ModeChangeCount        uint32
}

// Channel is one tracking channel slot. A slot is free until its type's
// init callback runs and stays exclusively owned by its pool; the per-type
// Data is owned by the slot for the slot's lifetime.
type Channel struct {
	active bool

	Signal     gnss.SignalID
	Correlator Correlator
	Common     CommonData

	// Data holds the signal type's per-channel state.
	Data any
}

// Active reports whether the slot is bound to a signal.
func (c *Channel) Active() bool { return c.active }

// NewActiveChannel builds a standalone active channel outside any pool.
// Parent channels owned by pipelines outside this core (e.g. the L1 C/A
// acquisition path) are represented this way for handover.
func NewActiveChannel(sid gnss.SignalID, corr Correlator, common CommonData) *Channel {
	return &Channel{
		active:     true,
		Signal:     sid,
		Correlator: corr,
		Common:     common,
	}
}
