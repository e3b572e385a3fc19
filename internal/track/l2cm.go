package track

import (
	"math"

	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
	"github.com/banshee-data/gnss-track/internal/monitoring"
	"github.com/banshee-data/gnss-track/internal/settings"
)

const (
	// l2cAliasDetectIntervalMs is the span of one alias-detection
	// accumulation interval.
	l2cAliasDetectIntervalMs = 500

	// cn0EstLpfCutoffHz is the C/N0 estimator smoothing cutoff.
	cn0EstLpfCutoffHz = 5
)

// l2cmData is the per-channel tracking state for GPS L2 CM.
type l2cmData struct {
	tl          dsp.AidedLoopFilter
	cs          [3]dsp.Correlation // early, prompt, late sums for the period
	cn0Est      dsp.CN0Estimator
	lockDetect  dsp.LockDetector
	aliasDetect dsp.AliasDetector

	intMs      int
	shortCycle bool

	// stage 0 is the coarse loop stage; stage 1 (refined parameters
	// after bit sync) is reserved for a second parameter set.
	stage uint8
}

// L2CMTracker is the GPS L2 CM tracking-loop state machine. One value
// serves every channel in its pool; all mutable state lives in the
// per-channel l2cmData.
type L2CMTracker struct {
	params *settings.Binding
	sink   CorrelationSink
}

// NewL2CMTracker builds the L2 CM tracker reading tuning from params.
// sink may be nil to disable correlation diagnostics.
func NewL2CMTracker(params *settings.Binding, sink CorrelationSink) *L2CMTracker {
	return &L2CMTracker{params: params, sink: sink}
}

// Code returns the signal type this tracker serves.
func (t *L2CMTracker) Code() gnss.Code { return gnss.CodeGPSL2CM }

// Init prepares a freshly claimed channel. The carrier phase ambiguity
// starts unknown; every estimator is seeded from the committed parameter
// records and the channel's initial common data.
func (t *L2CMTracker) Init(ch *Channel) {
	d := &l2cmData{}
	ch.Data = d

	ch.Correlator.InvalidatePhaseAmbiguity()

	lp := t.params.LoopParams()
	d.intMs = lp.CoherentMs
	d.shortCycle = true

	loopFreq := 1e3 / float64(d.intMs)
	d.tl.Init(dsp.AidedLoopFilterConfig{
		LoopFreqHz: loopFreq,
		CodeBw:     lp.CodeBw,
		CodeZeta:   lp.CodeZeta,
		CodeK:      lp.CodeK,
		CarrToCode: lp.CarrToCode,
		CarrBw:     lp.CarrBw,
		CarrZeta:   lp.CarrZeta,
		CarrK:      lp.CarrK,
		CarrFllAid: lp.CarrFllAid,
		CarrFreqHz: ch.Common.CarrierFreq,
		CodeFreqHz: ch.Common.CodePhaseRate - gnss.GPSCAChippingRateHz,
	})

	d.cn0Est.Init(loopFreq, ch.Common.CN0, cn0EstLpfCutoffHz, loopFreq)

	ld := t.params.LockDetectParams()
	d.lockDetect.Init(ld.K1, ld.K2, ld.Lp, ld.Lo)

	d.aliasDetect.Init(l2cAliasDetectIntervalMs/d.intMs, float64(d.intMs-1)*1e-3)
}

// Disable releases a channel. All state is slot-local, so there is
// nothing to tear down beyond dropping it.
func (t *L2CMTracker) Disable(ch *Channel) {
	ch.Data = nil
}

// Update runs one scheduler tick. Long integrations alternate between a
// 1 ms short cycle and the remaining long cycle because of correlator
// pipelining; loop parameters can only be updated at the end of the long
// cycle.
func (t *L2CMTracker) Update(ch *Channel) {
	d := ch.Data.(*l2cmData)

	if d.shortCycle {
		cs, sampleCount, codePhase, carrierPhase := ch.Correlator.ReadCorrelations()
		d.cs = cs
		ch.Common.SampleCount = sampleCount
		ch.Common.CodePhaseEarly = codePhase
		ch.Common.CarrierPhase = carrierPhase
		d.aliasDetect.First(cs[1].I, cs[1].Q)
	} else {
		// End of the long cycle: accumulate onto the short cycle's taps
		// to form the full coherent-integration sum.
		cs, sampleCount, codePhase, carrierPhase := ch.Correlator.ReadCorrelations()
		ch.Common.SampleCount = sampleCount
		ch.Common.CodePhaseEarly = codePhase
		ch.Common.CarrierPhase = carrierPhase
		for i := range d.cs {
			d.cs[i].I += cs[i].I
			d.cs[i].Q += cs[i].Q
		}
	}

	intMs := 1
	if !d.shortCycle {
		intMs = d.intMs - 1
	}
	ch.Common.TOWms = ch.Correlator.TOWUpdate(ch.Common.TOWms, intMs)

	shortCycle := d.shortCycle
	d.shortCycle = !d.shortCycle

	if shortCycle {
		ch.Correlator.Retune(ch.Common.CarrierFreq, ch.Common.CodePhaseRate, 0)
		return
	}

	ch.Common.UpdateCount += uint32(d.intMs)

	ch.Correlator.UpdateBitSync(d.intMs, d.cs[1].I)

	cs := &d.cs

	ch.Common.CN0 = d.cn0Est.Update(
		float64(cs[1].I)/float64(d.intMs),
		float64(cs[1].Q)/float64(d.intMs))
	if ch.Common.CN0 > t.params.CN0DropThreshold() {
		ch.Common.CN0AboveDropThresCount = ch.Common.UpdateCount
	}
	if ch.Common.CN0 < t.params.CN0UseThreshold() {
		// Below the use threshold cycle slips are likely; the carrier
		// phase ambiguity can no longer be trusted.
		ch.Correlator.InvalidatePhaseAmbiguity()
		ch.Common.CN0BelowUseThresCount = ch.Common.UpdateCount
	}

	lastPessimistic := d.lockDetect.Pessimistic()
	d.lockDetect.Update(cs[1].I, cs[1].Q, d.intMs)
	if d.lockDetect.Optimistic() {
		ch.Common.LockOptimisticCount = ch.Common.UpdateCount
	}
	if !d.lockDetect.Pessimistic() {
		ch.Common.LockPessUnlockCount = ch.Common.UpdateCount
	}
	if lastPessimistic && !d.lockDetect.Pessimistic() {
		monitoring.Logf("%s: PLL stress", ch.Signal)
		ch.Correlator.InvalidatePhaseAmbiguity()
	}

	if t.sink != nil {
		t.sink.SendCorrelations(ch.Signal, d.cs, ch.Common.CN0)
	}

	// The loop filter consumes the taps in late, prompt, early order.
	var cs2 [3]dsp.Correlation
	for i := 0; i < 3; i++ {
		cs2[i] = cs[2-i]
	}
	d.tl.Update(cs2)
	ch.Common.CarrierFreq = d.tl.CarrFreq
	ch.Common.CodePhaseRate = d.tl.CodeFreq + gnss.GPSCAChippingRateHz

	// Alias detection needs at least optimistic phase lock.
	if t.params.AliasDetection() && (d.lockDetect.Pessimistic() || d.lockDetect.Optimistic()) {
		di := (cs[1].I - int64(d.aliasDetect.FirstI)) / int64(d.intMs-1)
		dq := (cs[1].Q - int64(d.aliasDetect.FirstQ)) / int64(d.intMs-1)
		errHz := d.aliasDetect.Second(di, dq)
		if math.Abs(errHz) > 250/float64(d.intMs) {
			if d.lockDetect.Pessimistic() {
				monitoring.Warnf("%s: false phase lock detected", ch.Signal)
			}
			ch.Correlator.InvalidatePhaseAmbiguity()
			ch.Common.ModeChangeCount = ch.Common.UpdateCount

			// Pull the loop back toward the true frequency instead of
			// re-acquiring.
			d.tl.AdjustCarrFreq(errHz)
			ch.Common.CarrierFreq = d.tl.CarrFreq
		}
	}

	if d.lockDetect.Optimistic() && ch.Correlator.BitAligned() {
		monitoring.Logf("%s: synced @ %d ms, %.1f dB-Hz",
			ch.Signal, ch.Common.UpdateCount, ch.Common.CN0)
		ch.Common.ModeChangeCount = ch.Common.UpdateCount
	}

	ch.Correlator.Retune(ch.Common.CarrierFreq, ch.Common.CodePhaseRate, uint8(d.intMs-1))
}
