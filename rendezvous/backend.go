// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rendezvous implements N-party negotiation on a logical address,
// backed by an external KV store with leases, plus the two-phase commit
// protocol that transitions an active connection's semantics without
// tearing it down.
package rendezvous

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/luxfi/negotiate/stack"
)

// Kind distinguishes the two shapes a Backend call can return.
type Kind uint8

const (
	// Matched means the caller's nonce/round agrees with the store.
	Matched Kind = iota
	// NoMatch means the store disagrees; Entry holds its current view.
	NoMatch
)

// Result is the outcome of a Backend call that observes shared state.
type Result struct {
	Kind            Kind
	Entry           stack.StackNonce
	NumParticipants int
	Round           uint64
}

// Backend is the external KV store the rendezvous coordinator runs
// against: atomic compare-and-set on a per-address ConnState record plus
// a watch/subscription primitive, linearizable per address. id identifies
// the calling participant and must be stable across a session's calls.
//
// Non-goals inherited from the spec: Backend implementations are not
// required to authenticate callers or tolerate Byzantine participants.
type Backend interface {
	// TryInit joins addr as id. If no entry exists, it creates one with
	// current=nonce, round=0 and returns Matched. If one exists and its
	// current nonce equals nonce, id is added to participants and
	// Matched is returned. Otherwise id is added and NoMatch(current) is
	// returned.
	TryInit(ctx context.Context, addr string, id ids.NodeID, nonce stack.StackNonce) (Result, error)

	// PollEntry refreshes id's lease and reports whether (current, round)
	// still matches (myNonce, myRound). A store round behind myRound is an
	// error: rounds must never be observed going backwards.
	PollEntry(ctx context.Context, addr string, id ids.NodeID, myNonce stack.StackNonce, myRound uint64) (Result, error)

	// Transition proposes newNonce. Phase 1 stages it, advances round,
	// and credits id's own commit. Phase 2 blocks until every current
	// participant has called StagedUpdate for this round (or dropped out
	// via lease expiry), then commits and advances round again. It
	// returns the final round.
	Transition(ctx context.Context, addr string, id ids.NodeID, newNonce stack.StackNonce) (uint64, error)

	// StagedUpdate credits id's commit for round if it matches the
	// store's current round, then blocks until the transition commits
	// (or is abandoned).
	StagedUpdate(ctx context.Context, addr string, id ids.NodeID, round uint64) error

	// Notify blocks until addr's state changes from (current, round),
	// emitting exactly one event per join, leave, or transition, or until
	// ctx is cancelled.
	Notify(ctx context.Context, addr string, id ids.NodeID, current stack.StackNonce, round uint64) (Result, error)

	// Leave is a best-effort, optional removal of id from addr's
	// participant set; lease expiration is the backstop if it is never
	// called or fails.
	Leave(ctx context.Context, addr string, id ids.NodeID) error
}
