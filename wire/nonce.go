// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/set"
	"github.com/luxfi/negotiate/utils/wrappers"
)

// PackNonce appends n's wire encoding to p: a count followed by, for each
// entry, {capability_guid:u64, impl_guid:u64, available:set<u32>,
// sidedness:u8}.
func PackNonce(p *wrappers.Packer, n stack.StackNonce) {
	p.PackInt(uint32(len(n)))
	for guid, offer := range n {
		p.PackLong(guid)
		p.PackLong(offer.ImplGUID)
		p.PackInt(uint32(offer.Available.Len()))
		for _, v := range offer.Available.List() {
			p.PackInt(v)
		}
		p.PackByte(byte(offer.Sidedness))
	}
}

// UnpackNonce reads a StackNonce in the format PackNonce writes.
func UnpackNonce(u *wrappers.Unpacker) stack.StackNonce {
	count := u.UnpackInt()
	n := make(stack.StackNonce, count)
	for i := uint32(0); i < count; i++ {
		guid := u.UnpackLong()
		implGUID := u.UnpackLong()
		availCount := u.UnpackInt()
		available := set.NewSet[uint32](int(availCount))
		for j := uint32(0); j < availCount; j++ {
			available.Add(u.UnpackInt())
		}
		sidedness := capability.Sidedness(u.UnpackByte())
		n[guid] = stack.Offer{
			CapabilityGUID: guid,
			ImplGUID:       implGUID,
			Available:      available,
			Sidedness:      sidedness,
		}
	}
	return n
}
