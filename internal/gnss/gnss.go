// Package gnss provides shared signal identities and constants for the
// tracking core.
package gnss

import "fmt"

// Code identifies a GNSS signal/code type.
type Code uint8

const (
	CodeInvalid Code = iota
	CodeGPSL1CA
	CodeGPSL2CM
)

// String returns the conventional short name for the code.
func (c Code) String() string {
	switch c {
	case CodeGPSL1CA:
		return "GPS L1CA"
	case CodeGPSL2CM:
		return "GPS L2CM"
	default:
		return "invalid"
	}
}

// Valid reports whether the code is a known signal type.
func (c Code) Valid() bool {
	return c == CodeGPSL1CA || c == CodeGPSL2CM
}

// Nominal signal constants.
const (
	// GPSL1FreqHz is the GPS L1 carrier frequency.
	GPSL1FreqHz = 1.57542e9
	// GPSL2FreqHz is the GPS L2 carrier frequency.
	GPSL2FreqHz = 1.2276e9
	// GPSCAChippingRateHz is the C/A code nominal chipping rate.
	GPSCAChippingRateHz = 1.023e6
)

// CarrierFreqHz returns the nominal carrier frequency for the code.
func (c Code) CarrierFreqHz() float64 {
	switch c {
	case CodeGPSL1CA:
		return GPSL1FreqHz
	case CodeGPSL2CM:
		return GPSL2FreqHz
	default:
		return 0
	}
}

// SignalID identifies one satellite signal: (satellite, code). It is the
// key distinguishing channels and is immutable once a channel is bound.
type SignalID struct {
	Sat  uint16
	Code Code
}

func (s SignalID) String() string {
	return fmt.Sprintf("SV%02d %s", s.Sat, s.Code)
}
