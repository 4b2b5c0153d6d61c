// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package monomorphize turns a Select-bearing stack.Node plus a peer's
// offers into the single concrete stack both sides will run.
package monomorphize

import (
	"fmt"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/stack"
)

// Result is the outcome of a successful monomorphization: the agreed
// nonce and the concrete, Select-free stack it resolves to.
type Result struct {
	Picked  stack.StackNonce
	Applied stack.Applied
}

// Monomorphize builds the candidate (local, peer) pairs satisfying
// stack.ValidPair, asks s to pick one, and verifies it applies. peer may be
// nil or empty, in which case every local offer is paired with itself
// (self-monomorphization, used by the rendezvous coordinator at join
// time).
func Monomorphize(registry *capability.Registry, s stack.Node, peer []stack.StackNonce) (*Result, error) {
	local := s.Offers()

	var candidates []stack.Candidate
	if len(peer) == 0 {
		candidates = make([]stack.Candidate, 0, len(local))
		for _, l := range local {
			candidates = append(candidates, stack.Candidate{Local: l, Peer: l})
		}
	} else {
		candidates = make([]stack.Candidate, 0, len(local)*len(peer))
		for _, l := range local {
			for _, p := range peer {
				candidates = append(candidates, stack.Candidate{Local: l, Peer: p})
			}
		}
	}

	picked, err := stack.Pick(registry, s, candidates)
	if err != nil {
		return nil, &NoCompatibleStackError{Local: local, Peer: peer, cause: err}
	}

	applied, err := s.Apply(picked)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMonomorphizationFailed, err)
	}
	return &Result{Picked: picked, Applied: applied}, nil
}

// SelfMonomorphize is Monomorphize with the stack's own offers standing in
// for the peer's, matching the source's "solo_monomorphize": the nonce
// this endpoint would choose in isolation, before ever meeting a peer.
func SelfMonomorphize(registry *capability.Registry, s stack.Node) (*Result, error) {
	return Monomorphize(registry, s, nil)
}
