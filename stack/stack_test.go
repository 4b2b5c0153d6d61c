// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/utils/set"
)

const (
	guidBase       = 1
	guidSerialize  = 2
	guidOrdering   = 3
	implBase       = 100
	implSerializeA = 200
	implOrderingB  = 300
	implOrderingC  = 301
)

func newTestRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	r := capability.NewRegistry()
	require.NoError(t, r.Register(capability.Capability{GUID: guidBase, Universe: capability.Open(), Sidedness: capability.BothSided}))
	require.NoError(t, r.Register(capability.Capability{GUID: guidSerialize, Universe: capability.Open(), Sidedness: capability.BothSided}))
	require.NoError(t, r.Register(capability.Capability{GUID: guidOrdering, Universe: capability.Closed(1, 2), Sidedness: capability.OneSided}))
	return r
}

func baseLeaf() *Leaf {
	return NewLeaf(implBase, 0, CapabilityDecl{CapabilityGUID: guidBase, Available: set.Of[uint32](0), Sidedness: capability.BothSided})
}

func TestOffersCountsTwoToTheK(t *testing.T) {
	selectNode := NewSelect(
		NewLeaf(implOrderingB, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](1), Sidedness: capability.OneSided}),
		NewLeaf(implOrderingC, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](2), Sidedness: capability.OneSided}),
		Unspecified,
	)
	root := NewSequence(baseLeaf(), selectNode)

	offers := root.Offers()
	require.Len(t, offers, 2)
	for _, o := range offers {
		require.Equal(t, set.Of[uint64](guidBase, guidOrdering), o.GUIDs())
	}
}

func TestSelfMonomorphizeIsDeterministic(t *testing.T) {
	registry := newTestRegistry(t)
	root := NewSequence(baseLeaf(), NewSelect(
		NewLeaf(implOrderingB, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](1, 2), Sidedness: capability.OneSided}),
		NewLeaf(implOrderingC, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](1, 2), Sidedness: capability.OneSided}),
		Right,
	))

	offers := root.Offers()
	candidates := make([]Candidate, 0, len(offers))
	for _, o := range offers {
		candidates = append(candidates, Candidate{Local: o, Peer: o})
	}

	picked, err := Pick(registry, root, candidates)
	require.NoError(t, err)
	require.Equal(t, implOrderingC, int(picked[guidOrdering].ImplGUID))

	applied, err := root.Apply(picked)
	require.NoError(t, err)
	require.Contains(t, applied.ImplGUIDs(), uint64(implOrderingC))
}

func TestValidPairBothSidedRequiresEquality(t *testing.T) {
	registry := newTestRegistry(t)
	a := StackNonce{guidBase: {CapabilityGUID: guidBase, ImplGUID: implBase, Available: set.Of[uint32](0), Sidedness: capability.BothSided}}
	b := StackNonce{guidBase: {CapabilityGUID: guidBase, ImplGUID: implBase, Available: set.Of[uint32](1), Sidedness: capability.BothSided}}

	require.False(t, ValidPair(registry, a, b))
	require.True(t, ValidPair(registry, a, a.Clone()))
}

func TestValidPairOneSidedClosedUnion(t *testing.T) {
	registry := newTestRegistry(t)
	a := StackNonce{guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingB, Available: set.Of[uint32](1), Sidedness: capability.OneSided}}
	b := StackNonce{guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingC, Available: set.Of[uint32](2), Sidedness: capability.OneSided}}

	require.True(t, ValidPair(registry, a, b))

	c := StackNonce{guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingB, Available: set.Of[uint32](1), Sidedness: capability.OneSided}}
	require.False(t, ValidPair(registry, a, c.Clone()))
}

func TestValidPairSymmetric(t *testing.T) {
	registry := newTestRegistry(t)
	a := StackNonce{guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingB, Available: set.Of[uint32](1), Sidedness: capability.OneSided}}
	b := StackNonce{guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingC, Available: set.Of[uint32](2), Sidedness: capability.OneSided}}

	require.Equal(t, ValidPair(registry, a, b), ValidPair(registry, b, a))
}

func TestPartialValidPairRequiresOverlap(t *testing.T) {
	registry := newTestRegistry(t)
	a := StackNonce{guidBase: {CapabilityGUID: guidBase, ImplGUID: implBase, Available: set.Of[uint32](0), Sidedness: capability.BothSided}}
	b := StackNonce{guidSerialize: {CapabilityGUID: guidSerialize, ImplGUID: implSerializeA, Available: set.Of[uint32](0), Sidedness: capability.BothSided}}

	require.False(t, PartialValidPair(registry, a, b))

	b[guidBase] = a[guidBase]
	require.True(t, PartialValidPair(registry, a, b))
}

func TestApplyRejectsMismatch(t *testing.T) {
	root := NewSequence(baseLeaf(), NewSelect(
		NewLeaf(implOrderingB, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](1), Sidedness: capability.OneSided}),
		NewLeaf(implOrderingC, 0, CapabilityDecl{CapabilityGUID: guidOrdering, Available: set.Of[uint32](2), Sidedness: capability.OneSided}),
		Unspecified,
	))

	bogus := StackNonce{
		guidBase:     {CapabilityGUID: guidBase, ImplGUID: 999, Available: set.Of[uint32](0), Sidedness: capability.BothSided},
		guidOrdering: {CapabilityGUID: guidOrdering, ImplGUID: implOrderingB, Available: set.Of[uint32](1), Sidedness: capability.OneSided},
	}
	_, err := root.Apply(bogus)
	require.ErrorIs(t, err, ErrMonomorphizationFailed)
}
