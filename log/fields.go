// Copyright (C) 2019-2024, Lux Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"encoding/binary"
	"sort"

	luxlog "github.com/luxfi/log"
	"go.uber.org/zap"

	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/formatting"
)

// Logger re-exports the luxfi/log interface so callers only need to
// import this package.
type Logger = luxlog.Logger

// Capability identifies a capability GUID field for structured logs.
func Capability(guid uint64) zap.Field {
	return zap.Uint64("capability_guid", guid)
}

// Implementation identifies an implementation GUID field.
func Implementation(guid uint64) zap.Field {
	return zap.Uint64("impl_guid", guid)
}

// HandshakeID identifies a client/server handshake field.
func HandshakeID(id uint64) zap.Field {
	return zap.Uint64("handshake_id", id)
}

// Addr tags a peer address field.
func Addr(addr string) zap.Field {
	return zap.String("peer_addr", addr)
}

// RendezvousAddr tags a logical rendezvous address field.
func RendezvousAddr(addr string) zap.Field {
	return zap.String("rendezvous_addr", addr)
}

// Round tags a rendezvous round number field.
func Round(round uint64) zap.Field {
	return zap.Uint64("round", round)
}

// Err tags an error field.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Nonce renders a stack nonce as the hex encoding of its (capability GUID,
// impl GUID) pairs sorted by capability GUID, for logging which
// specialization a handshake or transition picked without dumping the
// whole map (available sets and sidedness are left out).
func Nonce(n stack.StackNonce) zap.Field {
	guids := n.GUIDs().List()
	sort.Slice(guids, func(i, j int) bool { return guids[i] < guids[j] })

	buf := make([]byte, 0, len(guids)*16)
	for _, guid := range guids {
		var pair [16]byte
		binary.BigEndian.PutUint64(pair[:8], guid)
		binary.BigEndian.PutUint64(pair[8:], n[guid].ImplGUID)
		buf = append(buf, pair[:]...)
	}

	digest, err := formatting.Encode(formatting.HexNC, buf)
	if err != nil {
		return zap.String("nonce", "<unencodable>")
	}
	return zap.String("nonce", digest)
}
