// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import "errors"

// ErrIncompatibleBuild is returned when two capability declarations with
// the same GUID disagree on metadata. This can never happen from
// negotiation traffic; it signals two builds of the library were compiled
// against divergent layer definitions.
var ErrIncompatibleBuild = errors.New("capability: incompatible build")
