// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/negotiate/utils/set"
)

func TestRegisterIdempotent(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	cap := Capability{GUID: 1, Name: "ordering", Universe: Closed(1, 2), Sidedness: OneSided}
	require.NoError(r.Register(cap))
	require.NoError(r.Register(cap))

	got, ok := r.Lookup(1)
	require.True(ok)
	require.Equal(cap.Name, got.Name)
}

func TestRegisterConflictingMetadata(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	require.NoError(r.Register(Capability{GUID: 1, Name: "ordering", Universe: Closed(1), Sidedness: OneSided}))
	err := r.Register(Capability{GUID: 1, Name: "ordering-v2", Universe: Closed(1, 2), Sidedness: OneSided})
	require.ErrorIs(err, ErrIncompatibleBuild)
}

func TestUniverseCoveredBy(t *testing.T) {
	require := require.New(t)
	u := Closed(1, 2, 3)

	a := set.Of[uint32](1)
	b := set.Of[uint32](2, 3)

	require.False(u.CoveredBy(a))
	require.True(u.CoveredBy(a, b))
	require.True(Open().IsOpen())
	require.False(u.IsOpen())
}
