package dsp

import (
	"math"
	"testing"
)

func testConfig() AidedLoopFilterConfig {
	return AidedLoopFilterConfig{
		LoopFreqHz: 50,
		CodeBw:     1, CodeZeta: 0.7, CodeK: 1, CarrToCode: 1200,
		CarrBw: 13, CarrZeta: 0.7, CarrK: 1, CarrFllAid: 5,
		CarrFreqHz: 0,
		CodeFreqHz: 0,
	}
}

func TestAidedLoopFilterInitSeedsOutputs(t *testing.T) {
	cfg := testConfig()
	cfg.CarrFreqHz = 1234.5
	cfg.CodeFreqHz = -2.5

	var f AidedLoopFilter
	f.Init(cfg)

	if f.CarrFreq != 1234.5 {
		t.Errorf("CarrFreq = %v, want 1234.5", f.CarrFreq)
	}
	if f.CodeFreq != -2.5 {
		t.Errorf("CodeFreq = %v, want -2.5", f.CodeFreq)
	}
}

func TestAidedLoopFilterPhaseErrorMovesCarrier(t *testing.T) {
	var f AidedLoopFilter
	f.Init(testConfig())

	// Positive phase error (Q leading I): the Costas discriminator sees a
	// positive angle and the loop must push the carrier frequency down.
	cs := [3]Correlation{{500, 100}, {1000, 200}, {500, 100}}
	for i := 0; i < 5; i++ {
		f.Update(cs)
	}
	if f.CarrFreq >= 0 {
		t.Errorf("CarrFreq = %v, want negative correction for positive phase error", f.CarrFreq)
	}
}

func TestAidedLoopFilterZeroErrorHoldsFrequency(t *testing.T) {
	cfg := testConfig()
	cfg.CarrFreqHz = 100
	var f AidedLoopFilter
	f.Init(cfg)

	// Perfectly aligned prompt and balanced early/late: no corrections.
	cs := [3]Correlation{{500, 0}, {1000, 0}, {500, 0}}
	f.Update(cs)
	f.Update(cs)

	if math.Abs(f.CarrFreq-100) > 1e-9 {
		t.Errorf("CarrFreq drifted to %v with zero discriminator error", f.CarrFreq)
	}
}

func TestAdjustCarrFreqShiftsFilterMemory(t *testing.T) {
	cfg := testConfig()
	cfg.CarrFreqHz = 50
	var f AidedLoopFilter
	f.Init(cfg)

	f.AdjustCarrFreq(20)
	if f.CarrFreq != 70 {
		t.Fatalf("CarrFreq = %v, want 70", f.CarrFreq)
	}

	// With zero discriminator error the loop must hold the adjusted
	// frequency rather than snapping back to the pre-adjustment state.
	cs := [3]Correlation{{500, 0}, {1000, 0}, {500, 0}}
	f.Update(cs)
	if math.Abs(f.CarrFreq-70) > 1e-9 {
		t.Errorf("CarrFreq = %v after zero-error update, want 70", f.CarrFreq)
	}
}

func TestDLLDiscriminatorBalancedTaps(t *testing.T) {
	if got := dllDiscriminator(Correlation{500, 0}, Correlation{500, 0}); got != 0 {
		t.Errorf("balanced early/late discriminator = %v, want 0", got)
	}
	if got := dllDiscriminator(Correlation{800, 0}, Correlation{200, 0}); got <= 0 {
		t.Errorf("early-heavy discriminator = %v, want positive", got)
	}
}
