// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous

import (
	"context"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/metrics"
	"github.com/luxfi/negotiate/monomorphize"
	"github.com/luxfi/negotiate/stack"
)

// NegotiateRendezvous registers s's favored semantics on addr and returns
// the stack both this endpoint will run now (monomorphized against itself
// if it is the first participant, or against whatever the backend already
// holds) along with a StackUpgradeHandle driving later in-place
// transitions. Callers should run StackUpgradeHandle.Run in a background
// goroutine for as long as the resulting connection is in use. m is
// optional; a nil value disables metric collection both here and on the
// returned handle.
func NegotiateRendezvous(ctx context.Context, s stack.Node, registry *capability.Registry, backend Backend, addr string, id ids.NodeID, m *metrics.Metrics) (*monomorphize.Result, *StackUpgradeHandle, error) {
	offers := s.Offers()

	solo, err := monomorphize.SelfMonomorphize(registry, s)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed stack: %w", err)
	}

	handles, triggers, allClosed := collectUpgradeHandles(s)

	res, err := backend.TryInit(ctx, addr, id, solo.Picked)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRendezvousBackend, err)
	}
	if m != nil {
		m.RendezvousJoins.Inc()
	}

	entry, numParticipants, round := solo.Picked, res.NumParticipants, res.Round
	if res.Kind == NoMatch {
		entry = res.Entry
	}

	applied, err := s.Apply(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", stack.ErrMonomorphizationFailed, err)
	}

	sh := &StackUpgradeHandle{
		handles:             handles,
		triggers:            triggers,
		allClosed:           allClosed,
		backend:             backend,
		registry:            registry,
		addr:                addr,
		id:                  id,
		offers:              offers,
		currEntry:           entry,
		currNumParticipants: numParticipants,
		currRound:           round,
		participants:        newWatchValue(),
		Metrics:             m,
	}
	sh.participants.set(numParticipants)

	return &monomorphize.Result{Picked: entry, Applied: applied}, sh, nil
}

// StackUpgradeHandle drives one negotiated connection's rendezvous
// lifecycle: it learns about new/departed participants and proposed
// transitions via the backend, and local transition requests via the
// UpgradeHandles collected from the stack's Select nodes, and keeps both
// in agreement.
type StackUpgradeHandle struct {
	handles   []*UpgradeHandle
	triggers  chan trigger
	allClosed chan struct{}

	backend  Backend
	registry *capability.Registry
	addr     string
	id       ids.NodeID

	offers              []stack.StackNonce
	currEntry           stack.StackNonce
	currNumParticipants int
	currRound           uint64

	participants *watchValue

	// Metrics is optional; a nil value disables metric collection.
	Metrics *metrics.Metrics
}

func (s *StackUpgradeHandle) incr(f func(*metrics.Metrics)) {
	if s.Metrics != nil {
		f(s.Metrics)
	}
}

// Handles returns the UpgradeHandle for every Select node in the
// negotiated stack, in tree-walk order.
func (s *StackUpgradeHandle) Handles() []*UpgradeHandle {
	return s.handles
}

// ParticipantsChanged reports the connection's participant count whenever
// it changes, independent of any semantics transition.
func (s *StackUpgradeHandle) ParticipantsChanged() <-chan int {
	return s.participants.notify()
}

type notifyResult struct {
	res Result
	err error
}

// Run drives the rendezvous monitor loop until ctx is cancelled or the
// backend reports an unrecoverable error. It should run in its own
// goroutine for the lifetime of the negotiated connection.
func (s *StackUpgradeHandle) Run(ctx context.Context) error {
	for {
		notifyCtx, cancelNotify := context.WithCancel(ctx)
		notifyCh := make(chan notifyResult, 1)
		go func() {
			res, err := s.backend.Notify(notifyCtx, s.addr, s.id, s.currEntry, s.currRound)
			notifyCh <- notifyResult{res, err}
		}()

		select {
		case <-ctx.Done():
			cancelNotify()
			<-notifyCh
			return ctx.Err()

		case <-s.allClosed:
			cancelNotify()
			<-notifyCh
			return ErrClosed

		case t := <-s.triggers:
			cancelNotify()
			<-notifyCh
			err := s.handleTrigger(ctx, t.handleIdx, t.offers)
			t.done <- err

		case nr := <-notifyCh:
			cancelNotify()
			if nr.err != nil {
				return fmt.Errorf("%w: %w", ErrRendezvousBackend, nr.err)
			}
			if err := s.handleNotify(ctx, nr.res); err != nil {
				return err
			}
		}
	}
}

func (s *StackUpgradeHandle) handleTrigger(ctx context.Context, idx int, wanted []stack.StackNonce) error {
	full, err := findStackFromStub(wanted, s.offers)
	if err != nil {
		return err
	}
	newRound, err := s.backend.Transition(ctx, s.addr, s.id, full)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRendezvousBackend, err)
	}
	s.currRound = newRound
	s.currEntry = full
	s.handles[idx].switchToStack(full)
	s.incr(func(m *metrics.Metrics) { m.RendezvousTransitions.Inc() })
	return nil
}

func (s *StackUpgradeHandle) handleNotify(ctx context.Context, res Result) error {
	switch res.Kind {
	case Matched:
		if res.NumParticipants == s.currNumParticipants {
			s.currRound = res.Round
			return nil
		}
		s.currNumParticipants = res.NumParticipants
		s.participants.set(res.NumParticipants)
		s.incr(func(m *metrics.Metrics) { m.RendezvousParticipants.Set(float64(res.NumParticipants)) })
		return nil

	case NoMatch:
		s.currNumParticipants = res.NumParticipants
		s.currRound = res.Round
		s.incr(func(m *metrics.Metrics) { m.RendezvousParticipants.Set(float64(res.NumParticipants)) })

		compatible := true
		for _, h := range s.handles {
			if !h.checkCompatibility(s.registry, res.Entry) {
				compatible = false
				break
			}
		}

		if compatible {
			if err := s.backend.StagedUpdate(ctx, s.addr, s.id, s.currRound); err != nil {
				return fmt.Errorf("%w: %w", ErrRendezvousBackend, err)
			}
			// StagedUpdate blocks until every participant has committed
			// and the backend advances past the staged round; the commit
			// increments the round exactly once past what we staged.
			s.currRound++
			s.currEntry = res.Entry
			for _, h := range s.handles {
				h.switchToStack(res.Entry)
			}
			return nil
		}

		s.incr(func(m *metrics.Metrics) { m.RendezvousRollbacks.Inc() })
		newRound, err := s.backend.Transition(ctx, s.addr, s.id, s.currEntry)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRendezvousBackend, err)
		}
		s.currRound = newRound
		return nil

	default:
		return nil
	}
}
