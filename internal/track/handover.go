package track

import (
	"errors"
	"fmt"

	"github.com/banshee-data/gnss-track/internal/gnss"
	"github.com/banshee-data/gnss-track/internal/monitoring"
)

// Handover failure conditions. None of them is fatal; the caller may
// retry once conditions change.
var (
	// ErrCapabilityDenied reports that the satellite does not broadcast
	// the target signal. No state is mutated.
	ErrCapabilityDenied = errors.New("satellite does not broadcast target signal")

	// ErrNoFreeChannel reports that no slot index is free in both the
	// target tracker and decoder pools. No state is mutated.
	ErrNoFreeChannel = errors.New("no free channel for handover")

	// ErrParentNotTracking reports a handover from an inactive parent.
	ErrParentNotTracking = errors.New("parent channel is not tracking")
)

// PartialHandoverError reports that the tracker channel started but the
// paired decoder channel failed. The tracker channel is intentionally
// left active: tracking and decoding are independently useful.
type PartialHandoverError struct {
	Signal gnss.SignalID
	Slot   int
	Err    error
}

func (e *PartialHandoverError) Error() string {
	return fmt.Sprintf("handover %s: tracker slot %d started but decoder failed: %v",
		e.Signal, e.Slot, e.Err)
}

func (e *PartialHandoverError) Unwrap() error { return e.Err }

// DecoderStarter is the decoder-side allocation surface the handover
// coordinator pairs tracker slots with.
type DecoderStarter interface {
	Available(code gnss.Code, idx int, sid gnss.SignalID) bool
	StartChannel(code gnss.Code, idx int, sid gnss.SignalID) error
}

// Frontend hands out hardware correlator channels and the reference
// sample counter used to timestamp channel starts.
type Frontend interface {
	CorrelatorChannel(idx int, sid gnss.SignalID) Correlator
	TimingCount() uint64
}

// CapabilityCheck reports whether a satellite broadcasts a signal, e.g.
// from the navigation database's L2C capability mask.
type CapabilityCheck func(sat uint16, code gnss.Code) bool

// Coordinator allocates paired tracker and decoder channels for a signal
// derived from an already-tracked parent signal.
type Coordinator struct {
	Trackers *Registry
	Decoders DecoderStarter
	Frontend Frontend
	Capable  CapabilityCheck
}

// Handover starts tracking and decoding of targetCode on the parent's
// satellite, seeded from the parent's current tracking state. codePhase
// is the target signal's initial code phase in chips.
//
// The initial carrier frequency is the parent's scaled by the nominal
// frequency ratio; C/N0 and elevation are copied from the parent. Slot
// allocation is atomic: concurrent handovers never claim the same index.
func (c *Coordinator) Handover(parent *Channel, targetCode gnss.Code, codePhase float64) error {
	if !parent.Active() {
		return ErrParentNotTracking
	}

	sat := parent.Signal.Sat
	if c.Capable != nil && !c.Capable(sat, targetCode) {
		monitoring.Logf("SV%02d does not support %s", sat, targetCode)
		return ErrCapabilityDenied
	}

	sid := gnss.SignalID{Sat: sat, Code: targetCode}

	// The tracker and decoder slots must share an index so the pair stays
	// addressable as one channel.
	slot := -1
	for i := 0; i < c.Trackers.NumChannels(targetCode); i++ {
		if c.Trackers.Available(targetCode, i, sid) && c.Decoders.Available(targetCode, i, sid) {
			slot = i
			break
		}
	}
	if slot == -1 {
		monitoring.Warnf("no free channel for %s tracking", targetCode)
		return ErrNoFreeChannel
	}

	refSampleCount := c.Frontend.TimingCount()

	carrierFreq := parent.Common.CarrierFreq *
		targetCode.CarrierFreqHz() / parent.Signal.Code.CarrierFreqHz()
	monitoring.Logf("%s doppler %f Hz", sid, carrierFreq)

	corr := c.Frontend.CorrelatorChannel(slot, sid)
	err := c.Trackers.StartChannel(targetCode, slot, sid, corr, StartState{
		RefSampleCount: refSampleCount,
		CodePhase:      codePhase,
		CarrierFreq:    carrierFreq,
		CN0:            parent.Common.CN0,
		Elevation:      parent.Common.Elevation,
	})
	if err != nil {
		return fmt.Errorf("tracker channel init for %s failed: %w", sid, err)
	}
	monitoring.Logf("%s handover done, tracking slot %d (parent %s)", sid, slot, parent.Signal)

	if err := c.Decoders.StartChannel(targetCode, slot, sid); err != nil {
		return &PartialHandoverError{Signal: sid, Slot: slot, Err: err}
	}
	return nil
}
