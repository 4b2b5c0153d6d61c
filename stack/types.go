// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stack implements the stack algebra: leaves, sequential
// composition and Select branches, and the operations that enumerate,
// compare and collapse them into one concrete stack.
package stack

import (
	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/utils/set"
)

// Offer describes one capability GUID within one concrete stack.
type Offer struct {
	CapabilityGUID uint64
	ImplGUID       uint64
	Available      set.Set[uint32]
	Sidedness      capability.Sidedness
}

// Equal reports whether two offers are identical down to their available
// variant sets, as BothSided compatibility requires.
func (o Offer) Equal(other Offer) bool {
	return o.CapabilityGUID == other.CapabilityGUID &&
		o.ImplGUID == other.ImplGUID &&
		o.Sidedness == other.Sidedness &&
		o.Available.Equals(other.Available)
}

// StackNonce is the full set of Offers describing one concrete stack,
// keyed by capability GUID. It is the unit exchanged on the wire.
type StackNonce map[uint64]Offer

// Clone returns an independent copy of n.
func (n StackNonce) Clone() StackNonce {
	out := make(StackNonce, len(n))
	for k, v := range n {
		av := make(set.Set[uint32], len(v.Available))
		av.Union(v.Available)
		v.Available = av
		out[k] = v
	}
	return out
}

// GUIDs returns the set of capability GUIDs present in n.
func (n StackNonce) GUIDs() set.Set[uint64] {
	guids := set.NewSet[uint64](len(n))
	for guid := range n {
		guids.Add(guid)
	}
	return guids
}

// merge returns a new StackNonce holding the union of a and b's entries.
// The stack algebra's own invariant (each capability GUID appears at most
// once in a concrete stack) guarantees a and b never collide on a key when
// both originate from sibling Sequence branches built from disjoint
// leaves; a collision here is a construction bug, and the later entry
// wins rather than panicking.
func merge(a, b StackNonce) StackNonce {
	out := make(StackNonce, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Preference tells a Select node which branch to favor when both are
// otherwise equally valid.
type Preference uint8

const (
	// Unspecified lets the pick tie-break fall through to implementation
	// priority and then lexicographic GUID order.
	Unspecified Preference = iota
	// Left favors the left branch.
	Left
	// Right favors the right branch.
	Right
)

func (p Preference) String() string {
	switch p {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unspecified"
	}
}
