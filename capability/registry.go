// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package capability defines the static, process-wide registry of
// capability kinds that stack layers declare. Registration happens once at
// program init; there is no teardown.
package capability

import (
	"fmt"
	"sync"

	"github.com/luxfi/negotiate/utils/set"
)

// Sidedness describes whether a capability can be satisfied unilaterally
// by one endpoint (OneSided) or requires identical declarations on both
// peers (BothSided).
type Sidedness uint8

const (
	// OneSided capabilities are satisfied as long as the union of both
	// sides' available variants covers the capability's universe.
	OneSided Sidedness = iota
	// BothSided capabilities require both peers to declare the exact
	// same implementation and available set.
	BothSided
)

func (s Sidedness) String() string {
	switch s {
	case OneSided:
		return "one-sided"
	case BothSided:
		return "both-sided"
	default:
		return fmt.Sprintf("Sidedness(%d)", uint8(s))
	}
}

// Universe is the set of variant IDs a closed capability may take, or nil
// for an Open (two-sided-equality) capability.
type Universe struct {
	closed bool
	values set.Set[uint32]
}

// Open returns a Universe with no closed variant set; open capabilities
// degrade to requiring both sides' available sets be equal.
func Open() Universe {
	return Universe{closed: false}
}

// Closed returns a Universe whose variants are exactly variants.
func Closed(variants ...uint32) Universe {
	return Universe{closed: true, values: set.Of(variants...)}
}

// IsOpen reports whether u has no closed variant set.
func (u Universe) IsOpen() bool {
	return !u.closed
}

// CoveredBy reports whether the union of the given available sets fully
// covers a closed universe. An open universe is never "covered"; callers
// must fall back to equality checks for it.
func (u Universe) CoveredBy(sets ...set.Set[uint32]) bool {
	if !u.closed {
		return false
	}
	for variant := range u.values {
		found := false
		for _, s := range sets {
			if s.Contains(variant) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Capability is the static metadata the registry associates with a
// capability GUID: its universe and sidedness. Two capabilities sharing a
// GUID across endpoints MUST carry identical metadata; a mismatch is a
// deployment error (IncompatibleBuild), never negotiated at runtime.
type Capability struct {
	GUID      uint64
	Name      string
	Universe  Universe
	Sidedness Sidedness
}

// Registry is the static, per-build table of known capabilities.
type Registry struct {
	mu  sync.RWMutex
	all map[uint64]Capability
}

// NewRegistry returns an empty registry. Most programs use the process-wide
// Default registry instead of constructing their own, but an isolated
// registry is useful in tests that register conflicting GUIDs.
func NewRegistry() *Registry {
	return &Registry{all: make(map[uint64]Capability)}
}

// Default is the process-wide capability registry. Layer packages call
// Register from an init() function.
var Default = NewRegistry()

// Register adds cap to the registry. Registering a GUID a second time with
// different metadata returns ErrIncompatibleBuild; registering the same
// GUID with identical metadata is a no-op.
func (r *Registry) Register(cap Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.all[cap.GUID]
	if !ok {
		r.all[cap.GUID] = cap
		return nil
	}
	if !capabilitiesEqual(existing, cap) {
		return fmt.Errorf("%w: capability guid %d registered twice with different metadata (%q vs %q)",
			ErrIncompatibleBuild, cap.GUID, existing.Name, cap.Name)
	}
	return nil
}

// MustRegister is Register, panicking on error. Intended for package-level
// init() calls where a mismatch is always a programmer error.
func (r *Registry) MustRegister(cap Capability) {
	if err := r.Register(cap); err != nil {
		panic(err)
	}
}

// Lookup returns the metadata registered for guid, if any.
func (r *Registry) Lookup(guid uint64) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.all[guid]
	return cap, ok
}

func capabilitiesEqual(a, b Capability) bool {
	if a.GUID != b.GUID || a.Sidedness != b.Sidedness {
		return false
	}
	if a.Universe.closed != b.Universe.closed {
		return false
	}
	if !a.Universe.closed {
		return true
	}
	if len(a.Universe.values) != len(b.Universe.values) {
		return false
	}
	for v := range a.Universe.values {
		if _, ok := b.Universe.values[v]; !ok {
			return false
		}
	}
	return true
}
