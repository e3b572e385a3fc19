package track

import (
	"math"
	"sync"

	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
)

// SimFrontend is a software stand-in for the hardware correlator bank.
// Each channel integrates a clean carrier at a configurable true Doppler;
// the correlations it reports reflect the difference between the true
// signal and whatever the tracking loop last programmed, so closed-loop
// behaviour (pull-in, lock, C/N0) is observable without hardware.
type SimFrontend struct {
	// TrueDopplerHz is the actual carrier offset of the simulated signal.
	TrueDopplerHz float64
	// Amplitude scales the correlator taps per integrated millisecond.
	Amplitude float64

	mu          sync.Mutex
	timingCount uint64
	channels    map[int]*SimCorrelator
}

// NewSimFrontend builds a simulated front end.
func NewSimFrontend(trueDopplerHz, amplitude float64) *SimFrontend {
	return &SimFrontend{
		TrueDopplerHz: trueDopplerHz,
		Amplitude:     amplitude,
		channels:      make(map[int]*SimCorrelator),
	}
}

// CorrelatorChannel returns the simulated correlator for slot idx.
func (f *SimFrontend) CorrelatorChannel(idx int, sid gnss.SignalID) Correlator {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &SimCorrelator{
		frontend:  f,
		tunedFreq: 0,
		spanMs:    1,
	}
	f.channels[idx] = c
	return c
}

// Channel returns a previously created simulated correlator, or nil.
func (f *SimFrontend) Channel(idx int) *SimCorrelator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[idx]
}

// TimingCount returns a monotonically increasing sample reference.
func (f *SimFrontend) TimingCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timingCount += 1000
	return f.timingCount
}

// SimCorrelator simulates one hardware correlator channel. The short/long
// duty cycle of the L2 CM loop means reads alternate between a 1 ms span
// and the remainder of the integration period; the simulator mirrors that
// by toggling its span on every read.
type SimCorrelator struct {
	frontend *SimFrontend

	mu          sync.Mutex
	tunedFreq   float64
	codeRate    float64
	phaseCycles float64
	sampleCount uint64
	spanMs      int
	retunes     int
	ambiguous   bool

	bits     []bool
	bitCount int
}

// ReadCorrelations integrates the phase error accumulated over the
// current span and returns the resulting taps.
func (c *SimCorrelator) ReadCorrelations() (cs [3]dsp.Correlation, sampleCount uint64, codePhaseEarly, carrierPhase float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	span := float64(c.spanMs)
	freqErr := c.frontend.TrueDopplerHz - c.tunedFreq
	c.phaseCycles += freqErr * span * 1e-3
	c.sampleCount += uint64(span * 1e-3 * 1.023e6)

	amp := c.frontend.Amplitude * span
	angle := 2 * math.Pi * c.phaseCycles
	prompt := dsp.Correlation{
		I: int64(amp * math.Cos(angle)),
		Q: int64(amp * math.Sin(angle)),
	}
	side := dsp.Correlation{I: prompt.I / 2, Q: prompt.Q / 2}
	cs = [3]dsp.Correlation{side, prompt, side}

	// Toggle between the 1 ms short span and the long remainder.
	if c.spanMs == 1 {
		c.spanMs = settingsCoherentMs - 1
	} else {
		c.spanMs = 1
	}
	return cs, c.sampleCount, 0, c.phaseCycles
}

// settingsCoherentMs mirrors the supported L2 CM integration length.
const settingsCoherentMs = 20

// Retune records the requested carrier frequency and code rate.
func (c *SimCorrelator) Retune(carrierFreqHz, codePhaseRateHz float64, integrationMs uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tunedFreq = carrierFreqHz
	c.codeRate = codePhaseRateHz
	c.retunes++
}

// InvalidatePhaseAmbiguity marks the carrier phase as untrusted.
func (c *SimCorrelator) InvalidatePhaseAmbiguity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ambiguous = true
}

// UpdateBitSync records one integration period's prompt sum as a nav bit.
func (c *SimCorrelator) UpdateBitSync(intMs int, promptI int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bits = append(c.bits, promptI >= 0)
	c.bitCount++
}

// BitAligned reports bit alignment; the simulated signal is always
// aligned to the integration boundary.
func (c *SimCorrelator) BitAligned() bool { return true }

// TOWUpdate advances the time of week.
func (c *SimCorrelator) TOWUpdate(priorTOWms int32, intMs int) int32 {
	if priorTOWms < 0 {
		return priorTOWms
	}
	return priorTOWms + int32(intMs)
}

// NextBit pops one recovered nav bit, implementing the decoder's bit
// source.
func (c *SimCorrelator) NextBit() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bits) == 0 {
		return false, false
	}
	bit := c.bits[0]
	c.bits = c.bits[1:]
	return bit, true
}

// Retunes returns how many retune commands the channel has received.
func (c *SimCorrelator) Retunes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retunes
}

// TunedFreq returns the last programmed carrier frequency.
func (c *SimCorrelator) TunedFreq() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tunedFreq
}
