package dsp

import "math"

// AidedLoopFilterConfig holds the carrier and code loop tuning for one
// tracking stage.
type AidedLoopFilterConfig struct {
	LoopFreqHz float64 // update rate, e.g. 50 for 20 ms integrations

	CodeBw      float64 // code loop noise bandwidth [Hz]
	CodeZeta    float64 // code loop damping ratio
	CodeK       float64 // code loop gain
	CarrToCode  float64 // carrier aiding gain into the code loop (0 disables)
	CarrBw      float64 // carrier loop noise bandwidth [Hz]
	CarrZeta    float64 // carrier loop damping ratio
	CarrK       float64 // carrier loop gain
	CarrFllAid  float64 // FLL aiding gain into the carrier loop
	CarrFreqHz  float64 // initial carrier frequency (Doppler) [Hz]
	CodeFreqHz  float64 // initial code frequency offset from nominal [Hz]
}

// AidedLoopFilter is an FLL-aided PLL carrier loop combined with a
// carrier-aided DLL code loop.
//
// Update consumes the three correlator taps ordered late, prompt, early.
// That ordering is the filter's input contract; callers reorder before
// invoking it.
type AidedLoopFilter struct {
	CarrFreq float64 // carrier frequency output [Hz]
	CodeFreq float64 // code frequency output, relative to nominal [Hz]

	carrFilt loopFilter
	codeFilt loopFilter

	carrToCode float64
	prevI      float64
	prevQ      float64
}

// Init resets the filter state for a new channel.
func (f *AidedLoopFilter) Init(cfg AidedLoopFilterConfig) {
	f.CarrFreq = cfg.CarrFreqHz
	f.CodeFreq = cfg.CodeFreqHz
	f.carrToCode = 0
	if cfg.CarrToCode > 0 {
		f.carrToCode = 1 / cfg.CarrToCode
	}

	pgain, igain := calcLoopGains(cfg.CarrBw, cfg.CarrZeta, cfg.CarrK, cfg.LoopFreqHz)
	f.carrFilt.init(cfg.CarrFreqHz, pgain, igain, cfg.CarrFllAid*igain)

	pgain, igain = calcLoopGains(cfg.CodeBw, cfg.CodeZeta, cfg.CodeK, cfg.LoopFreqHz)
	f.codeFilt.init(cfg.CodeFreqHz, pgain, igain, 0)

	f.prevI = 0
	f.prevQ = 0
}

// Update runs one loop-filter iteration. cs must be ordered late, prompt,
// early. The new carrier and code frequencies are left in CarrFreq and
// CodeFreq.
func (f *AidedLoopFilter) Update(cs [3]Correlation) {
	late, prompt, early := cs[0], cs[1], cs[2]

	pI := float64(prompt.I)
	pQ := float64(prompt.Q)

	carrErr := costasDiscriminator(pI, pQ)
	freqErr := frequencyDiscriminator(pI, pQ, f.prevI, f.prevQ)
	f.prevI = pI
	f.prevQ = pQ

	f.CarrFreq = f.carrFilt.update(-carrErr, -freqErr)

	codeErr := dllDiscriminator(early, late)
	f.CodeFreq = f.codeFilt.update(-codeErr, 0) + f.carrToCode*f.CarrFreq
}

// AdjustCarrFreq shifts the carrier frequency output and the carrier
// filter's integrator by errHz. Used to pull a falsely locked loop back
// toward the true frequency without re-acquisition.
func (f *AidedLoopFilter) AdjustCarrFreq(errHz float64) {
	f.CarrFreq += errHz
	f.carrFilt.Y = f.CarrFreq
}

// costasDiscriminator is the standard Costas loop phase discriminator,
// insensitive to 180° data-bit flips. Output is in cycles.
func costasDiscriminator(i, q float64) float64 {
	if i == 0 {
		return 0
	}
	return math.Atan(q/i) / (2 * math.Pi)
}

// frequencyDiscriminator estimates the frequency error from consecutive
// prompt samples via the cross/dot product method.
func frequencyDiscriminator(i, q, prevI, prevQ float64) float64 {
	cross := prevI*q - i*prevQ
	dot := math.Abs(prevI*i + prevQ*q)
	if dot == 0 && cross == 0 {
		return 0
	}
	return math.Atan2(cross, dot) / (2 * math.Pi)
}

// dllDiscriminator is the normalised early-minus-late envelope code phase
// discriminator.
func dllDiscriminator(early, late Correlation) float64 {
	e := math.Hypot(float64(early.I), float64(early.Q))
	l := math.Hypot(float64(late.I), float64(late.Q))
	if e+l == 0 {
		return 0
	}
	return (e - l) / (2 * (e + l))
}
