// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/set"
)

func sampleNonce() stack.StackNonce {
	return stack.StackNonce{
		1: {CapabilityGUID: 1, ImplGUID: 100, Available: set.Of[uint32](0, 1), Sidedness: capability.BothSided},
		2: {CapabilityGUID: 2, ImplGUID: 200, Available: set.Of[uint32](5), Sidedness: capability.OneSided},
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestClientOfferRoundTrip(t *testing.T) {
	msg := ClientOffer{ID: 42, Offers: []stack.StackNonce{sampleNonce()}}
	payload, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(payload)
	require.NoError(t, err)

	got, ok := decoded.(ClientOffer)
	require.True(t, ok)
	require.Equal(t, msg.ID, got.ID)
	require.Len(t, got.Offers, 1)
	require.True(t, got.Offers[0][1].Equal(sampleNonce()[1]))
	require.True(t, got.Offers[0][2].Equal(sampleNonce()[2]))
}

func TestServerReplyRoundTrip(t *testing.T) {
	msg := ServerReply{ID: 7, Ok: false, Message: "NoCompatibleStack"}
	payload, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := Unmarshal(payload)
	require.NoError(t, err)
	got := decoded.(ServerReply)
	require.Equal(t, msg, got)
}

func TestUnmarshalUnknownTag(t *testing.T) {
	_, err := Unmarshal([]byte{0xff})
	require.ErrorIs(t, err, ErrProtocol)
}
