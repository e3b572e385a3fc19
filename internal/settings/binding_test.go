package settings

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLoopParamsRoundTrip(t *testing.T) {
	p, err := ParseLoopParams(DefaultLoopParams)
	if err != nil {
		t.Fatalf("ParseLoopParams(default): %v", err)
	}

	want := LoopParams{
		CoherentMs: 20,
		CodeBw:     1, CodeZeta: 0.7, CodeK: 1, CarrToCode: 1200,
		CarrBw: 13, CarrZeta: 0.7, CarrK: 1, CarrFllAid: 5,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("parsed loop params mismatch (-want +got):\n%s", diff)
	}

	again, err := ParseLoopParams(p.String())
	if err != nil {
		t.Fatalf("reparse of canonical form: %v", err)
	}
	if diff := cmp.Diff(p, again); diff != "" {
		t.Errorf("canonical form did not round-trip (-want +got):\n%s", diff)
	}
}

func TestParseLoopParamsRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"garbage", "not a record"},
		{"wrong coherent time", "(10 ms, (1, 0.7, 1, 1200), (13, 0.7, 1, 5))"},
		{"truncated", "(20 ms, (1, 0.7, 1, 1200)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseLoopParams(tc.text); err == nil {
				t.Errorf("ParseLoopParams(%q) succeeded, want error", tc.text)
			}
		})
	}
}

func TestParseLockDetectParamsRoundTrip(t *testing.T) {
	p, err := ParseLockDetectParams(DefaultLockDetectParams)
	if err != nil {
		t.Fatalf("ParseLockDetectParams(default): %v", err)
	}
	want := LockDetectParams{K1: 0.0247, K2: 1.5, Lp: 50, Lo: 240}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("parsed lock detect params mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseLockDetectParams(p.String()); err != nil {
		t.Errorf("reparse of canonical form: %v", err)
	}
}

func TestBindingRejectedWriteKeepsCommittedRecord(t *testing.T) {
	b := NewBinding()
	before := b.LoopParams()

	if err := b.SetLoopParams("(10 ms, (1, 0.7, 1, 1200), (13, 0.7, 1, 5))"); err == nil {
		t.Fatal("invalid coherent time accepted")
	}
	if diff := cmp.Diff(before, b.LoopParams()); diff != "" {
		t.Errorf("rejected write mutated the committed record (-want +got):\n%s", diff)
	}
	if b.LoopParamsText() != DefaultLoopParams {
		t.Errorf("display text = %q, want default kept", b.LoopParamsText())
	}
}

func TestBindingTruncatesDisplayText(t *testing.T) {
	b := NewBinding()
	padded := DefaultLockDetectParams + strings.Repeat(" ", 40)
	if err := b.SetLockDetectParams(padded); err != nil {
		t.Fatalf("SetLockDetectParams: %v", err)
	}
	if got := b.LockDetectParamsText(); len(got) > lockDetectParamsDisplayMax {
		t.Errorf("display text length = %d, want at most %d", len(got), lockDetectParamsDisplayMax)
	}
	// The numeric record is unaffected by display truncation.
	if b.LockDetectParams().Lo != 240 {
		t.Errorf("Lo = %d, want 240", b.LockDetectParams().Lo)
	}
}

func TestBindingThresholdValidation(t *testing.T) {
	b := NewBinding()
	if err := b.SetCN0UseThreshold("35.5"); err != nil {
		t.Fatalf("valid threshold rejected: %v", err)
	}
	if b.CN0UseThreshold() != 35.5 {
		t.Errorf("CN0UseThreshold = %v, want 35.5", b.CN0UseThreshold())
	}

	for _, bad := range []string{"-1", "61", "loud"} {
		if err := b.SetCN0DropThreshold(bad); err == nil {
			t.Errorf("SetCN0DropThreshold(%q) succeeded, want error", bad)
		}
	}
	if b.CN0DropThreshold() != DefaultCN0DropThreshold {
		t.Errorf("CN0DropThreshold = %v, want default kept", b.CN0DropThreshold())
	}
}

func TestBindingAliasDetectionFlag(t *testing.T) {
	b := NewBinding()
	if !b.AliasDetection() {
		t.Fatal("alias detection must default on")
	}
	for _, off := range []string{"false", "0", "OFF"} {
		if err := b.SetAliasDetection(off); err != nil {
			t.Fatalf("SetAliasDetection(%q): %v", off, err)
		}
		if b.AliasDetection() {
			t.Errorf("AliasDetection() = true after SetAliasDetection(%q)", off)
		}
		if err := b.SetAliasDetection("on"); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.SetAliasDetection("maybe"); err == nil {
		t.Error("invalid boolean accepted")
	}
}
