// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import "errors"

// ErrProtocol wraps a malformed or unrecognized frame.
var ErrProtocol = errors.New("wire: protocol error")
