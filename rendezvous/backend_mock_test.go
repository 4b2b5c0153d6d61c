// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rendezvous_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/ids"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/rendezvous"
	"github.com/luxfi/negotiate/rendezvous/rendezvousmock"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/set"
)

const guidTransport = 1
const implTCP = 10

func TestNegotiateRendezvousWrapsBackendError(t *testing.T) {
	ctrl := gomock.NewController(t)

	registry := capability.NewRegistry()
	require.NoError(t, registry.Register(capability.Capability{GUID: guidTransport, Universe: capability.Open(), Sidedness: capability.BothSided}))

	s := stack.NewLeaf(implTCP, 0, stack.CapabilityDecl{CapabilityGUID: guidTransport, Available: set.Of[uint32](0), Sidedness: capability.BothSided})

	wantErr := errors.New("kv store unreachable")
	backend := rendezvousmock.NewBackend(ctrl)
	backend.EXPECT().
		TryInit(gomock.Any(), "svc", gomock.Any(), gomock.Any()).
		Return(rendezvous.Result{}, wantErr)

	_, _, err := rendezvous.NegotiateRendezvous(context.Background(), s, registry, backend, "svc", ids.GenerateTestNodeID(), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, rendezvous.ErrRendezvousBackend)
	require.ErrorIs(t, err, wantErr)
}
