// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import "errors"

var (
	// ErrNoCompatibleStack is returned when no candidate pair satisfies
	// ValidPair.
	ErrNoCompatibleStack = errors.New("stack: no compatible stack")

	// ErrMonomorphizationFailed is returned when Apply cannot resolve a
	// Select against the picked nonce. Reaching this should be
	// unreachable if Pick only ever returns nonces drawn from Offers();
	// it escalates to a bug rather than a negotiation failure.
	ErrMonomorphizationFailed = errors.New("stack: monomorphization failed")
)
