package dsp

import "math"

// CN0Estimator estimates the carrier-to-noise density ratio from
// normalised prompt correlations, smoothing the noise-to-signal ratio
// with a single-pole low-pass filter.
type CN0Estimator struct {
	bwHz  float64
	alpha float64
	nsr   float64
	cn0   float64
}

// Init prepares the estimator. bwHz is the receiver noise bandwidth,
// cn0_0 the initial estimate in dB-Hz, cutoffHz the smoothing filter
// cutoff and loopFreqHz the update rate.
func (e *CN0Estimator) Init(bwHz, cn00, cutoffHz, loopFreqHz float64) {
	e.bwHz = bwHz
	// Single-pole IIR coefficient for the given cutoff.
	e.alpha = 1 - math.Exp(-2*math.Pi*cutoffHz/loopFreqHz)
	e.cn0 = cn00
	e.nsr = e.bwHz / math.Pow(10, cn00/10)
}

// Update folds one normalised prompt correlation (I, Q divided by the
// integration length in ms) into the estimate and returns the new C/N0
// in dB-Hz.
func (e *CN0Estimator) Update(i, q float64) float64 {
	p := i*i + q*q
	if p == 0 {
		return e.cn0
	}
	// Quadrature power approximates noise, total power approximates
	// signal plus noise.
	nsr := (2 * q * q) / p
	if nsr <= 0 {
		nsr = 1e-12
	}
	e.nsr += e.alpha * (nsr - e.nsr)
	e.cn0 = 10 * math.Log10(e.bwHz/e.nsr)
	return e.cn0
}

// CN0 returns the current estimate in dB-Hz.
func (e *CN0Estimator) CN0() float64 { return e.cn0 }
