package settings

import (
	"fmt"
	"sort"
	"sync"
)

// Setting is one registered runtime setting: a validating setter plus a
// getter for the current display value.
type Setting struct {
	Section string
	Name    string
	Set     func(value string) error
	Get     func() string
}

func (s Setting) key() string { return s.Section + "." + s.Name }

// Registry is the key/value registration facility that delivers validated
// values to the tracking core. Types register their settings once at
// startup; Apply routes operator writes through the validating setter.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]Setting
}

// NewRegistry returns an empty settings registry.
func NewRegistry() *Registry {
	return &Registry{settings: make(map[string]Setting)}
}

// Register adds a setting. Duplicate (section, name) pairs are rejected.
func (r *Registry) Register(s Setting) error {
	if s.Set == nil || s.Get == nil {
		return fmt.Errorf("settings: %s registered without setter or getter", s.key())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[s.key()]; ok {
		return fmt.Errorf("settings: %s already registered", s.key())
	}
	r.settings[s.key()] = s
	return nil
}

// Apply routes a value to the named setting's validating setter. A
// rejected value leaves the previously committed value untouched.
func (r *Registry) Apply(section, name, value string) error {
	r.mu.RLock()
	s, ok := r.settings[section+"."+name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("settings: unknown setting %s.%s", section, name)
	}
	return s.Set(value)
}

// Snapshot returns the current display value of every setting, keyed by
// "section.name", in stable order.
func (r *Registry) Snapshot() []SettingValue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SettingValue, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, SettingValue{Section: s.Section, Name: s.Name, Value: s.Get()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SettingValue is one snapshot entry.
type SettingValue struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// L2CMTrackSection is the settings section for the L2 CM tracking loop.
const L2CMTrackSection = "l2cm_track"

// RegisterTracking registers the tracking-loop settings backed by b.
func RegisterTracking(r *Registry, b *Binding) error {
	entries := []Setting{
		{L2CMTrackSection, "loop_params", b.SetLoopParams, b.LoopParamsText},
		{L2CMTrackSection, "lock_detect_params", b.SetLockDetectParams, b.LockDetectParamsText},
		{L2CMTrackSection, "cn0_use", b.SetCN0UseThreshold, func() string { return fmt.Sprintf("%g", b.CN0UseThreshold()) }},
		{L2CMTrackSection, "cn0_drop", b.SetCN0DropThreshold, func() string { return fmt.Sprintf("%g", b.CN0DropThreshold()) }},
		{L2CMTrackSection, "alias_detect", b.SetAliasDetection, func() string { return fmt.Sprintf("%t", b.AliasDetection()) }},
	}
	for _, s := range entries {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
