package dsp

import "math"

// AliasDetector detects false phase lock at a frequency offset by a
// multiple of the data bit rate. Each integration period the tracking loop
// records the first-half-cycle prompt (First) and later supplies the
// per-millisecond delta between the full-cycle prompt and that reference
// (Second); the phase rotation between the two halves over the known time
// difference yields a frequency error estimate.
type AliasDetector struct {
	accLen   int
	timeDiff float64 // seconds between the two half-cycle samples

	FirstI float64
	FirstQ float64

	dot   float64
	cross float64
	count int
}

// Init prepares the detector. accLen is the number of integration periods
// accumulated per detection interval, timeDiff the time between the
// half-cycle reference and the full-cycle sample in seconds.
func (d *AliasDetector) Init(accLen int, timeDiff float64) {
	if accLen < 1 {
		accLen = 1
	}
	d.accLen = accLen
	d.timeDiff = timeDiff
	d.FirstI = 0
	d.FirstQ = 0
	d.dot = 0
	d.cross = 0
	d.count = 0
}

// First records the first-half-cycle prompt correlation.
func (d *AliasDetector) First(i, q int64) {
	d.FirstI = float64(i)
	d.FirstQ = float64(q)
}

// Second folds in the second-half-cycle sample and returns the estimated
// frequency error in Hz. The dot/cross accumulators are cleared every
// accLen updates so stale geometry ages out of the estimate.
func (d *AliasDetector) Second(i, q int64) float64 {
	fi := float64(i)
	fq := float64(q)
	d.dot += (fi*d.FirstI + fq*d.FirstQ) / 1e6
	d.cross += (fq*d.FirstI - fi*d.FirstQ) / 1e6

	errHz := 0.0
	if d.dot != 0 || d.cross != 0 {
		errHz = math.Atan2(d.cross, d.dot) / (2 * math.Pi * d.timeDiff)
	}

	d.count++
	if d.count >= d.accLen {
		d.dot = 0
		d.cross = 0
		d.count = 0
	}
	return errHz
}
