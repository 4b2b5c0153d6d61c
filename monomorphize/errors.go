// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package monomorphize

import (
	"errors"
	"fmt"

	"github.com/luxfi/negotiate/stack"
)

// ErrMonomorphizationFailed re-exports stack.ErrMonomorphizationFailed (the
// same sentinel value) so callers outside the stack package can errors.Is
// against this package.
var ErrMonomorphizationFailed = stack.ErrMonomorphizationFailed

// NoCompatibleStackError reports that no candidate pair satisfied
// stack.ValidPair; it carries both sides' offers for diagnostics, as the
// spec requires.
type NoCompatibleStackError struct {
	Local []stack.StackNonce
	Peer  []stack.StackNonce
	cause error
}

func (e *NoCompatibleStackError) Error() string {
	return fmt.Sprintf("monomorphize: no compatible stack (%d local offers, %d peer offers)", len(e.Local), len(e.Peer))
}

func (e *NoCompatibleStackError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is(err, stack.ErrNoCompatibleStack) succeed against a
// *NoCompatibleStackError.
func (e *NoCompatibleStackError) Is(target error) bool {
	return errors.Is(stack.ErrNoCompatibleStack, target)
}
