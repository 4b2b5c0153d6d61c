// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import (
	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/utils/set"
)

// Node is a stack value: a tree whose leaves are concrete layers and whose
// internal nodes are Sequence (ordered composition) or Select (sum-type
// choice). Every node can enumerate its concrete specializations and,
// given a chosen nonce, collapse itself to the matching concrete subtree.
type Node interface {
	// Offers enumerates every concrete specialization reachable from this
	// node. A Leaf yields exactly one nonce; a Sequence yields the
	// cartesian product of its children; a Select yields the union.
	Offers() []StackNonce

	// Apply collapses this node to the concrete subtree matching picked,
	// or returns ErrMonomorphizationFailed if no branch resolves.
	Apply(picked StackNonce) (Applied, error)
}

// CapabilityDecl is one capability a Leaf declares.
type CapabilityDecl struct {
	CapabilityGUID uint64
	Available      set.Set[uint32]
	Sidedness      capability.Sidedness
}

// Leaf is a concrete layer. It declares one or more capabilities, all
// under the same implementation GUID, and has no internal choice.
type Leaf struct {
	ImplGUID               uint64
	ImplementationPriority int
	Declares               []CapabilityDecl
}

// NewLeaf builds a Leaf offering decls under implGUID.
func NewLeaf(implGUID uint64, priority int, decls ...CapabilityDecl) *Leaf {
	return &Leaf{ImplGUID: implGUID, ImplementationPriority: priority, Declares: decls}
}

func (l *Leaf) nonce() StackNonce {
	n := make(StackNonce, len(l.Declares))
	for _, d := range l.Declares {
		n[d.CapabilityGUID] = Offer{
			CapabilityGUID: d.CapabilityGUID,
			ImplGUID:       l.ImplGUID,
			Available:      d.Available,
			Sidedness:      d.Sidedness,
		}
	}
	return n
}

// Offers implements Node.
func (l *Leaf) Offers() []StackNonce {
	return []StackNonce{l.nonce()}
}

// Apply implements Node.
func (l *Leaf) Apply(picked StackNonce) (Applied, error) {
	own := l.nonce()
	for guid, want := range own {
		got, ok := picked[guid]
		if !ok || got.ImplGUID != want.ImplGUID || !got.Available.Equals(want.Available) {
			return nil, ErrMonomorphizationFailed
		}
	}
	return &appliedLeaf{implGUID: l.ImplGUID, priority: l.ImplementationPriority, nonce: own}, nil
}

// Sequence composes head before tail (inner to outer). Their capability
// GUID sets must be disjoint; Offers merges them pointwise.
type Sequence struct {
	Head, Tail Node
}

// NewSequence composes head and tail.
func NewSequence(head, tail Node) *Sequence {
	return &Sequence{Head: head, Tail: tail}
}

// Offers implements Node.
func (s *Sequence) Offers() []StackNonce {
	heads := s.Head.Offers()
	tails := s.Tail.Offers()
	out := make([]StackNonce, 0, len(heads)*len(tails))
	for _, h := range heads {
		for _, t := range tails {
			out = append(out, merge(h, t))
		}
	}
	return out
}

// Apply implements Node.
func (s *Sequence) Apply(picked StackNonce) (Applied, error) {
	head, err := s.Head.Apply(picked)
	if err != nil {
		return nil, err
	}
	tail, err := s.Tail.Apply(picked)
	if err != nil {
		return nil, err
	}
	return &appliedSequence{head: head, tail: tail}, nil
}

// Select is a sum-type branch point between two alternative sub-stacks.
// Prefer records the stack author's declared tie-break preference.
type Select struct {
	Left, Right Node
	Prefer      Preference
}

// NewSelect builds a choice between left and right with preference pref.
func NewSelect(left, right Node, pref Preference) *Select {
	return &Select{Left: left, Right: right, Prefer: pref}
}

// Offers implements Node.
func (s *Select) Offers() []StackNonce {
	out := make([]StackNonce, 0)
	out = append(out, s.Left.Offers()...)
	out = append(out, s.Right.Offers()...)
	return out
}

// Apply implements Node.
//
// It tries the left branch first unless Prefer is Right, falling back to
// the other branch on failure. Stack construction guarantees at most one
// branch's leaves match a given picked nonce; trying both in preference
// order keeps Apply a pure function of (s, picked) even when, in a
// malformed stack, both would otherwise match.
func (s *Select) Apply(picked StackNonce) (Applied, error) {
	first, second := s.Left, s.Right
	if s.Prefer == Right {
		first, second = s.Right, s.Left
	}
	if applied, err := first.Apply(picked); err == nil {
		return applied, nil
	}
	return second.Apply(picked)
}

// Applied is the result of collapsing a Node tree to one concrete,
// Select-free stack.
type Applied interface {
	// Nonce returns the full StackNonce this applied (sub)stack
	// represents: the union of every leaf's offers beneath it.
	Nonce() StackNonce
	// ImplGUIDs returns, in stack order, the implementation GUIDs chosen
	// for every leaf beneath this node.
	ImplGUIDs() []uint64
	// Priority is the sum of the chosen leaves' declared
	// implementation_priority, used as a pick tie-break.
	Priority() int
}

type appliedLeaf struct {
	implGUID uint64
	priority int
	nonce    StackNonce
}

func (a *appliedLeaf) Nonce() StackNonce   { return a.nonce }
func (a *appliedLeaf) ImplGUIDs() []uint64 { return []uint64{a.implGUID} }
func (a *appliedLeaf) Priority() int       { return a.priority }

type appliedSequence struct {
	head, tail Applied
}

func (a *appliedSequence) Nonce() StackNonce {
	return merge(a.head.Nonce(), a.tail.Nonce())
}

func (a *appliedSequence) ImplGUIDs() []uint64 {
	return append(a.head.ImplGUIDs(), a.tail.ImplGUIDs()...)
}

func (a *appliedSequence) Priority() int {
	return a.head.Priority() + a.tail.Priority()
}
