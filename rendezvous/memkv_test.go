// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/negotiate/networking/benchlist"
	"github.com/luxfi/negotiate/stack"
)

func nonceOf(guid, impl uint64) stack.StackNonce {
	return stack.StackNonce{guid: {CapabilityGUID: guid, ImplGUID: impl}}
}

func TestMemBackendTryInitFirstJoinMatches(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	alice := ids.GenerateTestNodeID()

	res, err := b.TryInit(context.Background(), "svc", alice, nonceOf(1, 10))
	require.NoError(t, err)
	require.Equal(t, Matched, res.Kind)
	require.Equal(t, 1, res.NumParticipants)
	require.Equal(t, uint64(0), res.Round)
}

func TestMemBackendTryInitSecondJoinerMismatch(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	_, err := b.TryInit(context.Background(), "svc", alice, nonceOf(1, 10))
	require.NoError(t, err)

	res, err := b.TryInit(context.Background(), "svc", bob, nonceOf(1, 11))
	require.NoError(t, err)
	require.Equal(t, NoMatch, res.Kind)
	require.True(t, res.Entry[1].Equal(nonceOf(1, 10)[1]))
	require.Equal(t, 2, res.NumParticipants)
}

func TestMemBackendTransitionCommitsWhenAllParticipantsAck(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	_, err := b.TryInit(context.Background(), "svc", alice, nonceOf(1, 10))
	require.NoError(t, err)
	_, err = b.TryInit(context.Background(), "svc", bob, nonceOf(1, 10))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var aliceRound uint64
	var aliceErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		aliceRound, aliceErr = b.Transition(ctx, "svc", alice, nonceOf(1, 99))
	}()

	// Give alice's phase 1 a moment to land before bob acks.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.StagedUpdate(ctx, "svc", bob, 1))

	wg.Wait()
	require.NoError(t, aliceErr)
	require.Equal(t, uint64(2), aliceRound)

	poll, err := b.PollEntry(ctx, "svc", alice, nonceOf(1, 99), 2)
	require.NoError(t, err)
	require.Equal(t, Matched, poll.Kind)
}

func TestMemBackendCounterProposalRollsBackOriginalTransition(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	original := nonceOf(1, 10)
	_, err := b.TryInit(context.Background(), "svc", alice, original)
	require.NoError(t, err)
	_, err = b.TryInit(context.Background(), "svc", bob, original)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var aliceErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, aliceErr = b.Transition(ctx, "svc", alice, nonceOf(1, 20))
	}()

	// Bob decides the proposal is incompatible and rolls back to the
	// original nonce instead of acking alice's staged round.
	time.Sleep(20 * time.Millisecond)
	var bobRound uint64
	var bobErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		bobRound, bobErr = b.Transition(ctx, "svc", bob, original)
	}()

	// Alice must see her own transition as rejected once bob's
	// counter-proposal advances the round out from under it, and must
	// ack bob's rollback to let it commit. Alice's proposal was staged at
	// round 1, so bob's counter-proposal is staged at round 2.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.StagedUpdate(ctx, "svc", alice, 2))

	wg.Wait()
	require.NoError(t, bobErr)
	require.ErrorIs(t, aliceErr, ErrTransitionRejected)

	final, err := b.PollEntry(ctx, "svc", alice, original, bobRound)
	require.NoError(t, err)
	require.Equal(t, Matched, final.Kind)
}

func TestMemBackendLeaseExpiryUnblocksTransition(t *testing.T) {
	b := NewMemBackend(15*time.Millisecond, 5*time.Millisecond)
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	_, err := b.TryInit(context.Background(), "svc", alice, nonceOf(1, 10))
	require.NoError(t, err)
	_, err = b.TryInit(context.Background(), "svc", bob, nonceOf(1, 10))
	require.NoError(t, err)

	// bob never acks and never refreshes its lease again; its lease
	// expires and the store drops it from participants, so alice's
	// transition completes without bob's ack.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	round, err := b.Transition(ctx, "svc", alice, nonceOf(1, 30))
	require.NoError(t, err)
	require.Equal(t, uint64(2), round)
}

func TestMemBackendBenchesParticipantAfterRepeatedLosses(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	b.Benchlist = benchlist.NewManager(benchlist.Config{Threshold: 2, Duration: time.Second})
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	original := nonceOf(1, 10)
	_, err := b.TryInit(context.Background(), "svc", alice, original)
	require.NoError(t, err)
	_, err = b.TryInit(context.Background(), "svc", bob, original)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		var wg sync.WaitGroup
		var aliceErr, bobErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, aliceErr = b.Transition(ctx, "svc", alice, nonceOf(1, uint64(20+i)))
		}()
		time.Sleep(20 * time.Millisecond)
		go func() {
			defer wg.Done()
			_, bobErr = b.Transition(ctx, "svc", bob, original)
		}()
		time.Sleep(20 * time.Millisecond)
		// Each iteration advances the round three times (alice stages, bob
		// stages, bob commits), so bob's counter-proposal is staged at
		// round 3*i+2.
		require.NoError(t, b.StagedUpdate(ctx, "svc", alice, uint64(3*i+2)))
		wg.Wait()
		require.NoError(t, bobErr)
		require.ErrorIs(t, aliceErr, ErrTransitionRejected)
	}

	require.True(t, b.Benchlist.IsBenched(alice))
	_, err = b.Transition(ctx, "svc", alice, nonceOf(1, 99))
	require.ErrorIs(t, err, ErrTransitionRejected)
}

func TestMemBackendLeaveRemovesParticipant(t *testing.T) {
	b := NewMemBackend(time.Second, 5*time.Millisecond)
	alice, bob := ids.GenerateTestNodeID(), ids.GenerateTestNodeID()

	_, err := b.TryInit(context.Background(), "svc", alice, nonceOf(1, 10))
	require.NoError(t, err)
	_, err = b.TryInit(context.Background(), "svc", bob, nonceOf(1, 10))
	require.NoError(t, err)
	require.NoError(t, b.Leave(context.Background(), "svc", bob))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	round, err := b.Transition(ctx, "svc", alice, nonceOf(1, 40))
	require.NoError(t, err)
	require.Equal(t, uint64(2), round)
}
