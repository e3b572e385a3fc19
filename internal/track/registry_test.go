package track

import (
	"sync"
	"testing"

	"github.com/banshee-data/gnss-track/internal/gnss"
)

type stubTracker struct {
	code     gnss.Code
	inits    int
	updates  int
	disables int
}

func (s *stubTracker) Code() gnss.Code  { return s.code }
func (s *stubTracker) Init(ch *Channel) { s.inits++ }
func (s *stubTracker) Update(ch *Channel) {
	s.updates++
	ch.Common.UpdateCount++
}
func (s *stubTracker) Disable(ch *Channel) {
	s.disables++
	ch.Data = nil
}

func TestRegistryRegisterOncePerCode(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTracker{code: gnss.CodeGPSL2CM}, NewPool(2)); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(&stubTracker{code: gnss.CodeGPSL2CM}, NewPool(2)); err == nil {
		t.Error("duplicate Register must fail")
	}

	r.Freeze()
	if err := r.Register(&stubTracker{code: gnss.CodeGPSL1CA}, NewPool(2)); err == nil {
		t.Error("Register after Freeze must fail")
	}
}

func TestRegistryStartChannelSeedsCommonData(t *testing.T) {
	r := NewRegistry()
	typ := &stubTracker{code: gnss.CodeGPSL2CM}
	pool := NewPool(1)
	if err := r.Register(typ, pool); err != nil {
		t.Fatal(err)
	}

	s := gnss.SignalID{Sat: 12, Code: gnss.CodeGPSL2CM}
	err := r.StartChannel(gnss.CodeGPSL2CM, 0, s, nil, StartState{
		RefSampleCount: 42,
		CodePhase:      100.5,
		CarrierFreq:    935,
		CN0:            39,
		Elevation:      30,
	})
	if err != nil {
		t.Fatalf("StartChannel: %v", err)
	}
	if typ.inits != 1 {
		t.Errorf("inits = %d, want 1", typ.inits)
	}

	ch := pool.Channel(0)
	if !ch.Active() {
		t.Fatal("channel not active after StartChannel")
	}
	if ch.Common.CodePhaseRate != gnss.GPSCAChippingRateHz {
		t.Errorf("CodePhaseRate = %v, want nominal chipping rate", ch.Common.CodePhaseRate)
	}
	if ch.Common.TOWms != -1 {
		t.Errorf("TOWms = %d, want -1 (unknown)", ch.Common.TOWms)
	}
	if ch.Common.SampleCount != 42 || ch.Common.CarrierFreq != 935 {
		t.Errorf("seeded common data = %+v", ch.Common)
	}
}

func TestRegistryTickUpdatesOnlyActiveChannels(t *testing.T) {
	r := NewRegistry()
	typ := &stubTracker{code: gnss.CodeGPSL2CM}
	if err := r.Register(typ, NewPool(3)); err != nil {
		t.Fatal(err)
	}

	r.Tick()
	if typ.updates != 0 {
		t.Fatalf("updates on empty pool = %d, want 0", typ.updates)
	}

	s := gnss.SignalID{Sat: 3, Code: gnss.CodeGPSL2CM}
	if err := r.StartChannel(gnss.CodeGPSL2CM, 1, s, nil, StartState{}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if typ.updates != 1 {
		t.Errorf("updates = %d, want 1", typ.updates)
	}
}

func TestRegistryDisableChannel(t *testing.T) {
	r := NewRegistry()
	typ := &stubTracker{code: gnss.CodeGPSL2CM}
	pool := NewPool(1)
	if err := r.Register(typ, pool); err != nil {
		t.Fatal(err)
	}

	s := gnss.SignalID{Sat: 9, Code: gnss.CodeGPSL2CM}
	if err := r.DisableChannel(gnss.CodeGPSL2CM, 0); err == nil {
		t.Error("DisableChannel on inactive slot must fail")
	}

	if err := r.StartChannel(gnss.CodeGPSL2CM, 0, s, nil, StartState{}); err != nil {
		t.Fatal(err)
	}
	if err := r.DisableChannel(gnss.CodeGPSL2CM, 0); err != nil {
		t.Fatalf("DisableChannel: %v", err)
	}
	if typ.disables != 1 {
		t.Errorf("disables = %d, want 1", typ.disables)
	}
	if pool.ActiveCount() != 0 {
		t.Error("slot must be free after DisableChannel")
	}
	if !r.Available(gnss.CodeGPSL2CM, 0, s) {
		t.Error("slot must be available for the same signal after disable")
	}
}

func TestRegistryStatus(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTracker{code: gnss.CodeGPSL2CM}, NewPool(2)); err != nil {
		t.Fatal(err)
	}
	if got := r.Status(); len(got) != 0 {
		t.Fatalf("Status() on empty registry = %v", got)
	}

	s := gnss.SignalID{Sat: 21, Code: gnss.CodeGPSL2CM}
	if err := r.StartChannel(gnss.CodeGPSL2CM, 1, s, nil, StartState{CN0: 37}); err != nil {
		t.Fatal(err)
	}

	got := r.Status()
	if len(got) != 1 {
		t.Fatalf("Status() length = %d, want 1", len(got))
	}
	if got[0].Sat != 21 || got[0].Slot != 1 || got[0].CN0 != 37 {
		t.Errorf("Status()[0] = %+v", got[0])
	}
}

// Exercised under the race detector: the scheduler tick mutates channel
// common data while the diagnostics surface snapshots it and handovers
// claim and free neighbouring slots.
func TestRegistryStatusDuringTicks(t *testing.T) {
	r := NewRegistry()
	typ := &stubTracker{code: gnss.CodeGPSL2CM}
	if err := r.Register(typ, NewPool(4)); err != nil {
		t.Fatal(err)
	}
	s := gnss.SignalID{Sat: 1, Code: gnss.CodeGPSL2CM}
	if err := r.StartChannel(gnss.CodeGPSL2CM, 0, s, nil, StartState{}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Tick()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Status()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sid := gnss.SignalID{Sat: uint16(2 + i%3), Code: gnss.CodeGPSL2CM}
			slot := 1 + i%3
			if err := r.StartChannel(gnss.CodeGPSL2CM, slot, sid, nil, StartState{}); err != nil {
				continue
			}
			r.DisableChannel(gnss.CodeGPSL2CM, slot)
		}
	}()
	wg.Wait()

	var found bool
	for _, st := range r.Status() {
		if st.Slot == 0 {
			found = true
			if st.UpdateCount == 0 {
				t.Error("ticks did not advance the channel's update count")
			}
		}
	}
	if !found {
		t.Error("slot 0 missing from status")
	}
}

func TestRegistryUnknownCode(t *testing.T) {
	r := NewRegistry()
	if n := r.NumChannels(gnss.CodeGPSL2CM); n != 0 {
		t.Errorf("NumChannels for unregistered code = %d, want 0", n)
	}
	s := gnss.SignalID{Sat: 1, Code: gnss.CodeGPSL2CM}
	if r.Available(gnss.CodeGPSL2CM, 0, s) {
		t.Error("Available must be false for unregistered code")
	}
	if err := r.StartChannel(gnss.CodeGPSL2CM, 0, s, nil, StartState{}); err == nil {
		t.Error("StartChannel for unregistered code must fail")
	}
}
