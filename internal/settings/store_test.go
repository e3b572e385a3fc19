package settings

import (
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStoreSaveAndLoad(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.Save(L2CMTrackSection, "cn0_use", "33"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(L2CMTrackSection, "cn0_use", "29"); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}
	if err := s.Save(L2CMTrackSection, "alias_detect", "false"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := map[string]string{}
	err := s.Load(func(section, name, value string) error {
		got[section+"."+name] = value
		return nil
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d rows, want 2: %v", len(got), got)
	}
	if got[L2CMTrackSection+".cn0_use"] != "29" {
		t.Errorf("cn0_use = %q, want upserted 29", got[L2CMTrackSection+".cn0_use"])
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := s.Save(L2CMTrackSection, "cn0_drop", "27"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: migrations are a no-op, data is still there.
	s2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var value string
	err = s2.Load(func(section, name, v string) error {
		value = v
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if value != "27" {
		t.Errorf("persisted value = %q, want 27", value)
	}
}

func TestStoreLoadSkipsRejectedValues(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.Save(L2CMTrackSection, "cn0_use", "not a number"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(L2CMTrackSection, "cn0_drop", "30"); err != nil {
		t.Fatal(err)
	}

	b := NewBinding()
	r := NewRegistry()
	if err := RegisterTracking(r, b); err != nil {
		t.Fatal(err)
	}

	// Replay must not abort on the stale value; the binding keeps its
	// default for that key and applies the rest.
	if err := s.Load(r.Apply); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.CN0UseThreshold() != DefaultCN0UseThreshold {
		t.Errorf("CN0UseThreshold = %v, want default kept", b.CN0UseThreshold())
	}
	if b.CN0DropThreshold() != 30 {
		t.Errorf("CN0DropThreshold = %v, want 30", b.CN0DropThreshold())
	}
}

func TestStoreLoadOffersEveryRow(t *testing.T) {
	s, _ := openTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save("section", fmt.Sprintf("name%d", i), "v"); err != nil {
			t.Fatal(err)
		}
	}
	n := 0
	if err := s.Load(func(section, name, value string) error {
		n++
		return fmt.Errorf("reject everything")
	}); err != nil {
		t.Fatalf("Load must not fail on per-row rejection: %v", err)
	}
	if n != 3 {
		t.Errorf("apply calls = %d, want all 3 rows offered", n)
	}
}
