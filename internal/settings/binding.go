// Package settings provides the runtime-tunable tracking parameters:
// validated textual records parsed into numeric structs and committed
// atomically, plus a key/value registration facility and an optional
// sqlite-backed persistence store.
package settings

import (
	"fmt"
	"strings"
	"sync"
)

// L2CCoherentIntegrationTimeMs is the only coherent integration length
// supported by the L2 CM tracking loop. Loop-parameter records with any
// other value are rejected; the tracking loop's alias-detection divisor
// (coherent time minus one) relies on this being greater than 1.
const L2CCoherentIntegrationTimeMs = 20

// Display-string caps. Longer accepted input is truncated for display
// only; the parsed numeric record is unaffected.
const (
	loopParamsDisplayMax       = 120
	lockDetectParamsDisplayMax = 24
)

// Defaults match the shipped tracking configuration.
const (
	DefaultLoopParams       = "(20 ms, (1, 0.7, 1, 1200), (13, 0.7, 1, 5))"
	DefaultLockDetectParams = "0.0247, 1.5, 50, 240"
	DefaultCN0UseThreshold  = 31.0
	DefaultCN0DropThreshold = 31.0
)

// LoopParams is one stage of carrier/code tracking loop tuning.
type LoopParams struct {
	CoherentMs int

	CodeBw     float64
	CodeZeta   float64
	CodeK      float64
	CarrToCode float64

	CarrBw     float64
	CarrZeta   float64
	CarrK      float64
	CarrFllAid float64
}

// String renders the canonical textual form of the record.
func (p LoopParams) String() string {
	return fmt.Sprintf("(%d ms, (%g, %g, %g, %g), (%g, %g, %g, %g))",
		p.CoherentMs,
		p.CodeBw, p.CodeZeta, p.CodeK, p.CarrToCode,
		p.CarrBw, p.CarrZeta, p.CarrK, p.CarrFllAid)
}

// LockDetectParams tunes the phase lock detector.
type LockDetectParams struct {
	K1 float64
	K2 float64
	Lp uint16
	Lo uint16
}

// String renders the canonical textual form of the record.
func (p LockDetectParams) String() string {
	return fmt.Sprintf("%g, %g, %d, %d", p.K1, p.K2, p.Lp, p.Lo)
}

// ParseLoopParams parses a loop-parameter record of the form
// "(20 ms, (code_bw, code_zeta, code_k, carr_to_code), (carr_bw,
// carr_zeta, carr_k, fll_aid))". The coherent time must equal
// L2CCoherentIntegrationTimeMs.
func ParseLoopParams(text string) (LoopParams, error) {
	var p LoopParams
	n, err := fmt.Sscanf(text, "( %d ms , ( %f , %f , %f , %f ) , ( %f , %f , %f , %f ) )",
		&p.CoherentMs,
		&p.CodeBw, &p.CodeZeta, &p.CodeK, &p.CarrToCode,
		&p.CarrBw, &p.CarrZeta, &p.CarrK, &p.CarrFllAid)
	if err != nil && n < 9 {
		return LoopParams{}, fmt.Errorf("ill-formatted tracking loop param string %q: %w", text, err)
	}
	if p.CoherentMs != L2CCoherentIntegrationTimeMs {
		return LoopParams{}, fmt.Errorf("invalid coherent integration length for L2 CM: %d ms", p.CoherentMs)
	}
	return p, nil
}

// ParseLockDetectParams parses a lock-detector record of the form
// "k1, k2, lp, lo".
func ParseLockDetectParams(text string) (LockDetectParams, error) {
	var p LockDetectParams
	n, err := fmt.Sscanf(text, "%f , %f , %d , %d", &p.K1, &p.K2, &p.Lp, &p.Lo)
	if err != nil && n < 4 {
		return LockDetectParams{}, fmt.Errorf("ill-formatted lock detect param string %q: %w", text, err)
	}
	return p, nil
}

// Binding holds the committed tracking parameters. Records are replaced
// whole under the lock so a channel init never observes a partial
// update; a failed parse leaves the committed record untouched.
type Binding struct {
	mu sync.RWMutex

	loopParams     LoopParams
	loopParamsText string

	lockDetectParams     LockDetectParams
	lockDetectParamsText string

	cn0UseThreshold  float64
	cn0DropThreshold float64
	aliasDetection   bool
}

// NewBinding returns a binding committed to the shipped defaults.
func NewBinding() *Binding {
	loop, err := ParseLoopParams(DefaultLoopParams)
	if err != nil {
		panic("settings: default loop params invalid: " + err.Error())
	}
	lock, err := ParseLockDetectParams(DefaultLockDetectParams)
	if err != nil {
		panic("settings: default lock detect params invalid: " + err.Error())
	}
	return &Binding{
		loopParams:           loop,
		loopParamsText:       DefaultLoopParams,
		lockDetectParams:     lock,
		lockDetectParamsText: DefaultLockDetectParams,
		cn0UseThreshold:      DefaultCN0UseThreshold,
		cn0DropThreshold:     DefaultCN0DropThreshold,
		aliasDetection:       true,
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// SetLoopParams validates text and commits the parsed record.
func (b *Binding) SetLoopParams(text string) error {
	p, err := ParseLoopParams(text)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.loopParams = p
	b.loopParamsText = truncate(text, loopParamsDisplayMax)
	b.mu.Unlock()
	return nil
}

// SetLockDetectParams validates text and commits the parsed record.
func (b *Binding) SetLockDetectParams(text string) error {
	p, err := ParseLockDetectParams(text)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.lockDetectParams = p
	b.lockDetectParamsText = truncate(text, lockDetectParamsDisplayMax)
	b.mu.Unlock()
	return nil
}

// SetCN0UseThreshold parses and commits the C/N0 use threshold in dB-Hz.
func (b *Binding) SetCN0UseThreshold(text string) error {
	v, err := parseThreshold(text)
	if err != nil {
		return fmt.Errorf("cn0_use: %w", err)
	}
	b.mu.Lock()
	b.cn0UseThreshold = v
	b.mu.Unlock()
	return nil
}

// SetCN0DropThreshold parses and commits the C/N0 drop threshold in dB-Hz.
func (b *Binding) SetCN0DropThreshold(text string) error {
	v, err := parseThreshold(text)
	if err != nil {
		return fmt.Errorf("cn0_drop: %w", err)
	}
	b.mu.Lock()
	b.cn0DropThreshold = v
	b.mu.Unlock()
	return nil
}

// SetAliasDetection parses and commits the alias-detection enable flag.
func (b *Binding) SetAliasDetection(text string) error {
	var v bool
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "on":
		v = true
	case "false", "0", "off":
		v = false
	default:
		return fmt.Errorf("alias_detect: invalid boolean %q", text)
	}
	b.mu.Lock()
	b.aliasDetection = v
	b.mu.Unlock()
	return nil
}

func parseThreshold(text string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(text), "%f", &v); err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", text, err)
	}
	if v < 0 || v > 60 {
		return 0, fmt.Errorf("threshold %g dB-Hz out of range [0, 60]", v)
	}
	return v, nil
}

// LoopParams returns a copy of the committed loop parameters.
func (b *Binding) LoopParams() LoopParams {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loopParams
}

// LoopParamsText returns the canonical display string of the committed
// loop parameters.
func (b *Binding) LoopParamsText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loopParamsText
}

// LockDetectParams returns a copy of the committed lock-detector
// parameters.
func (b *Binding) LockDetectParams() LockDetectParams {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lockDetectParams
}

// LockDetectParamsText returns the canonical display string of the
// committed lock-detector parameters.
func (b *Binding) LockDetectParamsText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lockDetectParamsText
}

// CN0UseThreshold returns the committed use threshold in dB-Hz.
func (b *Binding) CN0UseThreshold() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cn0UseThreshold
}

// CN0DropThreshold returns the committed drop threshold in dB-Hz.
func (b *Binding) CN0DropThreshold() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cn0DropThreshold
}

// AliasDetection reports whether false-lock detection is enabled.
func (b *Binding) AliasDetection() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.aliasDetection
}
