// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/stack"
)

type trigger struct {
	handleIdx int
	offers    []stack.StackNonce
	done      chan error
}

// UpgradeHandle is attached to one Select node in the negotiated stack. A
// caller holding a connection built from that stack can propose switching
// the live connection to whichever branch it names; the coordinator's
// monitor loop performs the backend transition and then notifies the
// connection of the new branch over SwitchNotify.
type UpgradeHandle struct {
	leftOffers, rightOffers []stack.StackNonce
	switchCh                chan stack.StackNonce
	idx                     int
	shared                  chan trigger

	// refs counts outstanding holders of this handle, starting at 1 for
	// the caller collectUpgradeHandles returned it to. Acquire lets a
	// handle be safely shared across additional goroutines/tasks;
	// Close releases one reference. live and allClosed are shared by
	// every handle collected from the same stack, so the last Close
	// across the whole set signals the coordinator's monitor to exit.
	refs      int32
	live      *int32
	allClosed chan struct{}
}

// Acquire adds a reference to h and returns h, so a second task sharing
// this branch's handle can hold and later Close its own reference
// independent of the first. Each Acquire must be matched by exactly one
// later Close.
func (h *UpgradeHandle) Acquire() *UpgradeHandle {
	atomic.AddInt32(&h.refs, 1)
	atomic.AddInt32(h.live, 1)
	return h
}

// Close releases one reference to h, matching either the implicit
// reference collectUpgradeHandles handed out or a prior Acquire. Once
// every reference to every handle collected alongside h has been
// closed, the coordinator's monitor loop (StackUpgradeHandle.Run) exits
// with ErrClosed.
func (h *UpgradeHandle) Close() error {
	atomic.AddInt32(&h.refs, -1)
	if atomic.AddInt32(h.live, -1) == 0 {
		close(h.allClosed)
	}
	return nil
}

// TriggerLeft asks the coordinator to transition this connection to the
// Select's left branch.
func (h *UpgradeHandle) TriggerLeft(ctx context.Context) error {
	return h.propose(ctx, h.leftOffers)
}

// TriggerRight asks the coordinator to transition this connection to the
// Select's right branch.
func (h *UpgradeHandle) TriggerRight(ctx context.Context) error {
	return h.propose(ctx, h.rightOffers)
}

func (h *UpgradeHandle) propose(ctx context.Context, offers []stack.StackNonce) error {
	done := make(chan error, 1)
	select {
	case h.shared <- trigger{handleIdx: h.idx, offers: offers, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// switchToStack is called by the coordinator's monitor loop once a
// transition affecting this branch has committed. It keeps only the most
// recent pending nonce, matching a watched value rather than a queue.
func (h *UpgradeHandle) switchToStack(n stack.StackNonce) {
	select {
	case h.switchCh <- n:
		return
	default:
	}
	select {
	case <-h.switchCh:
	default:
	}
	h.switchCh <- n
}

// SwitchNotify returns the channel a connection wrapper reads from to
// learn this branch's active nonce changed.
func (h *UpgradeHandle) SwitchNotify() <-chan stack.StackNonce {
	return h.switchCh
}

func (h *UpgradeHandle) checkCompatibility(registry *capability.Registry, candidate stack.StackNonce) bool {
	for _, opt := range h.leftOffers {
		if stack.PartialValidPair(registry, candidate, opt) {
			return true
		}
	}
	for _, opt := range h.rightOffers {
		if stack.PartialValidPair(registry, candidate, opt) {
			return true
		}
	}
	return false
}

// collectUpgradeHandles walks a stack for every Select node, wiring each
// one's UpgradeHandle to a channel shared across the whole tree so the
// coordinator's monitor loop can fan in proposals from all of them with a
// single select statement. It also wires every handle's reference count
// into a shared live counter and allClosed channel: once every handle
// collected here (and every reference later Acquired from one) has been
// Closed, allClosed closes so the monitor loop can exit.
func collectUpgradeHandles(n stack.Node) ([]*UpgradeHandle, chan trigger, chan struct{}) {
	shared := make(chan trigger)
	allClosed := make(chan struct{})
	var handles []*UpgradeHandle
	var walk func(stack.Node)
	walk = func(n stack.Node) {
		switch t := n.(type) {
		case *stack.Select:
			handles = append(handles, &UpgradeHandle{
				leftOffers:  t.Left.Offers(),
				rightOffers: t.Right.Offers(),
				switchCh:    make(chan stack.StackNonce, 1),
				idx:         len(handles),
				shared:      shared,
				refs:        1,
				allClosed:   allClosed,
			})
			walk(t.Left)
			walk(t.Right)
		case *stack.Sequence:
			walk(t.Head)
			walk(t.Tail)
		}
	}
	walk(n)

	live := int32(len(handles))
	for _, h := range handles {
		h.live = &live
	}
	return handles, shared, allClosed
}

// findStackFromStub returns the first root-level offer that is a superset
// of one of stub's candidate nonces by (capability GUID, impl GUID).
func findStackFromStub(stub, all []stack.StackNonce) (stack.StackNonce, error) {
	for _, candidate := range all {
		for _, want := range stub {
			if subsetMatches(want, candidate) {
				return candidate, nil
			}
		}
	}
	return nil, ErrNoMatchingStack
}

func subsetMatches(want, candidate stack.StackNonce) bool {
	for guid, offer := range want {
		co, ok := candidate[guid]
		if !ok || co.ImplGUID != offer.ImplGUID {
			return false
		}
	}
	return true
}

// watchValue is a single-slot, latest-value channel wrapper used for the
// participant-count notification StackUpgradeHandle exposes to callers.
type watchValue struct {
	mu sync.Mutex
	ch chan int
}

func newWatchValue() *watchValue {
	return &watchValue{ch: make(chan int, 1)}
}

func (w *watchValue) set(v int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.ch <- v:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- v
}

func (w *watchValue) notify() <-chan int {
	return w.ch
}
