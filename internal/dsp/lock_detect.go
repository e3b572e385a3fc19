package dsp

import "math"

// LockDetector is a two-level phase lock detector. It low-pass filters the
// magnitudes of the prompt in-phase and quadrature arms and compares them:
// in-phase dominating quadrature by the factor k2 indicates phase lock.
//
// The optimistic indicator raises immediately and lowers only after lo
// consecutive unlocked updates; the pessimistic indicator raises only after
// lp consecutive locked updates and lowers immediately.
type LockDetector struct {
	k1 float64
	k2 float64
	lp uint16
	lo uint16

	lpfI float64
	lpfQ float64

	pcount1 uint16
	pcount2 uint16

	optimistic  bool
	pessimistic bool
}

// Init resets the detector with filter gain k1, I/Q ratio threshold k2 and
// the pessimistic/optimistic hold-off counts lp and lo.
func (d *LockDetector) Init(k1, k2 float64, lp, lo uint16) {
	d.k1 = k1
	d.k2 = k2
	d.lp = lp
	d.lo = lo
	d.lpfI = 0
	d.lpfQ = 0
	d.pcount1 = 0
	d.pcount2 = 0
	d.optimistic = false
	d.pessimistic = false
}

// Update folds one prompt correlation, integrated over dtMs milliseconds,
// into the detector.
func (d *LockDetector) Update(i, q int64, dtMs int) {
	dt := float64(dtMs)
	d.lpfI += d.k1 * (math.Abs(float64(i))/dt - d.lpfI)
	d.lpfQ += d.k1 * (math.Abs(float64(q))/dt - d.lpfQ)

	if d.lpfI > d.lpfQ*d.k2 {
		d.optimistic = true
		d.pcount2 = 0
		if d.pcount1 > d.lp {
			d.pessimistic = true
		} else {
			d.pcount1++
		}
	} else {
		d.pessimistic = false
		d.pcount1 = 0
		if d.pcount2 > d.lo {
			d.optimistic = false
		} else {
			d.pcount2++
		}
	}
}

// Optimistic reports the fast-attack, slow-release lock indication.
func (d *LockDetector) Optimistic() bool { return d.optimistic }

// Pessimistic reports the slow-attack, fast-release lock indication.
func (d *LockDetector) Pessimistic() bool { return d.pessimistic }
