// Package dsp implements the numeric state machines driven by the tracking
// core: the aided carrier/code loop filter, the C/N0 estimator, the phase
// lock detector and the alias (false lock) detector.
//
// Each state value is exclusively owned by one tracking channel; none of
// the update paths allocate or block.
package dsp

// Correlation is one complex correlator tap accumulated over an
// integration period.
type Correlation struct {
	I int64
	Q int64
}

// calcLoopGains derives proportional and integral gains from a loop noise
// bandwidth, damping ratio and gain for a standard second-order loop.
func calcLoopGains(bw, zeta, k, loopFreq float64) (pgain, igain float64) {
	omegaN := bw * 8 * zeta / (4*zeta*zeta + 1)
	pgain = 2 * zeta * omegaN / k
	igain = omegaN * omegaN / (k * loopFreq)
	return pgain, igain
}

// loopFilter is a proportional-integral filter with an optional aiding
// integrator, used for both the carrier and code loops.
type loopFilter struct {
	pgain      float64
	igain      float64
	aidingGain float64
	prevError  float64

	// Y is the integrator state. The alias-detection recovery path writes
	// it directly to re-centre a falsely locked loop.
	Y float64
}

func (f *loopFilter) init(y0, pgain, igain, aidingGain float64) {
	f.Y = y0
	f.pgain = pgain
	f.igain = igain
	f.aidingGain = aidingGain
	f.prevError = 0
}

func (f *loopFilter) update(err, aidingErr float64) float64 {
	f.Y += f.pgain*(err-f.prevError) + f.igain*err + f.aidingGain*aidingErr
	f.prevError = err
	return f.Y
}
