// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous

import "errors"

var (
	// ErrRendezvousBackend wraps a failed KV operation; retryable at the
	// caller's discretion.
	ErrRendezvousBackend = errors.New("rendezvous: backend error")

	// ErrTransitionRejected means a proposed transition failed
	// compatibility or lost a race; the connection stays on its
	// previous nonce.
	ErrTransitionRejected = errors.New("rendezvous: transition rejected")

	// ErrRoundWentBackwards signals a PollEntry or Notify observed a
	// round number lower than one already seen, violating the backend's
	// monotonicity contract.
	ErrRoundWentBackwards = errors.New("rendezvous: round went backwards")

	// ErrClosed is returned by a handle once every caller has stopped
	// using it and its monitor has exited.
	ErrClosed = errors.New("rendezvous: handle closed")

	// ErrNoMatchingStack means a triggered branch's offers don't appear
	// in any of the root stack's enumerated specializations; this only
	// happens if the stack was mutated after collectUpgradeHandles ran.
	ErrNoMatchingStack = errors.New("rendezvous: no root stack matches the requested branch")
)
