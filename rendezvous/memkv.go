// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous

import (
	"fmt"
	"sync"
	"time"

	"context"

	"github.com/luxfi/ids"

	"github.com/luxfi/negotiate/networking/benchlist"
	"github.com/luxfi/negotiate/stack"
)

type participant struct {
	leaseExpiry time.Time
}

type connState struct {
	mu           sync.Mutex
	current      stack.StackNonce
	staged       stack.StackNonce
	round        uint64
	participants map[ids.NodeID]*participant
	committedBy  map[ids.NodeID]bool
	commitCount  int
}

// MemBackend is an in-process reference Backend implementation: the
// rendezvous algorithm's two-phase commit run against a plain mutex
// rather than a networked store. It exists for tests and single-process
// deployments; a production deployment would back Backend with a real
// linearizable KV store.
type MemBackend struct {
	mu           sync.Mutex
	states       map[string]*connState
	liveness     time.Duration
	pollInterval time.Duration

	// Benchlist is optional. When set, a participant whose Transition
	// proposals repeatedly lose the commit race to someone else's is
	// temporarily refused new proposals, so it can't keep preempting
	// everyone else's attempts to land a transition.
	Benchlist benchlist.Manager
}

// NewMemBackend returns a MemBackend whose participant leases last
// liveness and whose Notify/commit polling wakes every pollInterval.
func NewMemBackend(liveness, pollInterval time.Duration) *MemBackend {
	return &MemBackend{
		states:       make(map[string]*connState),
		liveness:     liveness,
		pollInterval: pollInterval,
	}
}

func (b *MemBackend) stateFor(addr string) *connState {
	b.mu.Lock()
	defer b.mu.Unlock()
	cs, ok := b.states[addr]
	if !ok {
		cs = &connState{
			participants: make(map[ids.NodeID]*participant),
			committedBy:  make(map[ids.NodeID]bool),
		}
		b.states[addr] = cs
	}
	return cs
}

func (b *MemBackend) expireLocked(cs *connState) {
	now := time.Now()
	for id, p := range cs.participants {
		if now.After(p.leaseExpiry) {
			delete(cs.participants, id)
			delete(cs.committedBy, id)
		}
	}
}

func equalNonce(a, b stack.StackNonce) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a) != len(b) {
		return false
	}
	for guid, oa := range a {
		ob, ok := b[guid]
		if !ok || !oa.Equal(ob) {
			return false
		}
	}
	return true
}

// TryInit implements Backend.
func (b *MemBackend) TryInit(ctx context.Context, addr string, id ids.NodeID, nonce stack.StackNonce) (Result, error) {
	cs := b.stateFor(addr)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b.expireLocked(cs)

	cs.participants[id] = &participant{leaseExpiry: time.Now().Add(b.liveness)}

	if cs.current == nil {
		cs.current = nonce.Clone()
		cs.round = 0
		return Result{Kind: Matched, NumParticipants: len(cs.participants), Round: cs.round}, nil
	}
	if equalNonce(cs.current, nonce) {
		return Result{Kind: Matched, NumParticipants: len(cs.participants), Round: cs.round}, nil
	}
	return Result{Kind: NoMatch, Entry: cs.current.Clone(), NumParticipants: len(cs.participants), Round: cs.round}, nil
}

// PollEntry implements Backend.
func (b *MemBackend) PollEntry(ctx context.Context, addr string, id ids.NodeID, myNonce stack.StackNonce, myRound uint64) (Result, error) {
	cs := b.stateFor(addr)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b.expireLocked(cs)

	if p, ok := cs.participants[id]; ok {
		p.leaseExpiry = time.Now().Add(b.liveness)
	} else {
		cs.participants[id] = &participant{leaseExpiry: time.Now().Add(b.liveness)}
	}

	if myRound > cs.round {
		return Result{}, fmt.Errorf("%w: observed round %d, store at %d", ErrRoundWentBackwards, myRound, cs.round)
	}
	if myRound == cs.round && equalNonce(myNonce, cs.current) {
		return Result{Kind: Matched, NumParticipants: len(cs.participants), Round: cs.round}, nil
	}

	entry := cs.current
	if cs.staged != nil {
		entry = cs.staged
	}
	return Result{Kind: NoMatch, Entry: entry.Clone(), NumParticipants: len(cs.participants), Round: cs.round}, nil
}

// Transition implements Backend: phase 1 stages newNonce and credits id's
// own commit; phase 2 polls until every remaining participant has called
// StagedUpdate, then commits.
func (b *MemBackend) Transition(ctx context.Context, addr string, id ids.NodeID, newNonce stack.StackNonce) (uint64, error) {
	if b.Benchlist != nil && b.Benchlist.IsBenched(id) {
		return 0, fmt.Errorf("%w: participant is benchlisted", ErrTransitionRejected)
	}

	cs := b.stateFor(addr)

	cs.mu.Lock()
	b.expireLocked(cs)
	cs.staged = newNonce.Clone()
	cs.round++
	targetRound := cs.round
	cs.committedBy = map[ids.NodeID]bool{id: true}
	cs.commitCount = 1
	cs.mu.Unlock()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		cs.mu.Lock()
		b.expireLocked(cs)
		if cs.round != targetRound {
			round := cs.round
			cs.mu.Unlock()
			if b.Benchlist != nil {
				b.Benchlist.RegisterFailure(id)
			}
			return round, fmt.Errorf("%w: round advanced past our proposal", ErrTransitionRejected)
		}
		if cs.commitCount >= len(cs.participants) {
			cs.current = cs.staged
			cs.staged = nil
			cs.round++
			final := cs.round
			cs.commitCount = 0
			cs.committedBy = map[ids.NodeID]bool{}
			cs.mu.Unlock()
			if b.Benchlist != nil {
				b.Benchlist.RegisterResponse(id)
			}
			return final, nil
		}
		cs.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// StagedUpdate implements Backend.
func (b *MemBackend) StagedUpdate(ctx context.Context, addr string, id ids.NodeID, round uint64) error {
	cs := b.stateFor(addr)

	cs.mu.Lock()
	if cs.round != round || cs.staged == nil {
		cs.mu.Unlock()
		return fmt.Errorf("%w: round %d no longer staged", ErrTransitionRejected, round)
	}
	if !cs.committedBy[id] {
		cs.committedBy[id] = true
		cs.commitCount++
	}
	target := cs.round
	cs.mu.Unlock()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		cs.mu.Lock()
		advanced := cs.round != target
		cs.mu.Unlock()
		if advanced {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Notify implements Backend as the spec's default long-poll wrapper over
// PollEntry, waking every pollInterval.
func (b *MemBackend) Notify(ctx context.Context, addr string, id ids.NodeID, current stack.StackNonce, round uint64) (Result, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	seen := -1
	for {
		result, err := b.PollEntry(ctx, addr, id, current, round)
		if err != nil {
			return Result{}, err
		}
		if result.Kind == NoMatch || result.Round != round {
			return result, nil
		}
		// A join or leave shows up as a participant count change.
		if seen >= 0 && result.NumParticipants != seen {
			return result, nil
		}
		seen = result.NumParticipants
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Leave implements Backend.
func (b *MemBackend) Leave(ctx context.Context, addr string, id ids.NodeID) error {
	cs := b.stateFor(addr)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.participants, id)
	delete(cs.committedBy, id)
	return nil
}
