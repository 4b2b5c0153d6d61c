// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"

	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/utils/wrappers"
)

// Tag identifies a message's variant in the tagged union.
type Tag byte

const (
	TagClientOffer Tag = iota + 1
	TagServerNonce
	TagServerReply
	TagClientNonce
)

// Message is any of the four handshake frame variants.
type Message interface {
	tag() Tag
	marshal(p *wrappers.Packer)
}

// ClientOffer is the client's opening frame: a fresh handshake id and
// every concrete specialization its stack can offer.
type ClientOffer struct {
	ID     uint64
	Offers []stack.StackNonce
}

func (ClientOffer) tag() Tag { return TagClientOffer }

func (m ClientOffer) marshal(p *wrappers.Packer) {
	p.PackLong(m.ID)
	p.PackInt(uint32(len(m.Offers)))
	for _, o := range m.Offers {
		PackNonce(p, o)
	}
}

// ServerNonce is the server's chosen concrete stack for handshake ID.
type ServerNonce struct {
	ID     uint64
	Picked stack.StackNonce
}

func (ServerNonce) tag() Tag { return TagServerNonce }

func (m ServerNonce) marshal(p *wrappers.Packer) {
	p.PackLong(m.ID)
	PackNonce(p, m.Picked)
}

// ServerReply carries the outcome of a handshake the server could not
// complete.
type ServerReply struct {
	ID      uint64
	Ok      bool
	Message string
}

func (ServerReply) tag() Tag { return TagServerReply }

func (m ServerReply) marshal(p *wrappers.Packer) {
	p.PackLong(m.ID)
	if m.Ok {
		p.PackByte(1)
	} else {
		p.PackByte(0)
	}
	msg := []byte(m.Message)
	p.PackInt(uint32(len(msg)))
	p.PackBytes(msg)
}

// ClientNonce is the client's optional confirmation of the server's
// picked nonce, used when stateful layers need it before data flows.
type ClientNonce struct {
	ID     uint64
	Picked stack.StackNonce
}

func (ClientNonce) tag() Tag { return TagClientNonce }

func (m ClientNonce) marshal(p *wrappers.Packer) {
	p.PackLong(m.ID)
	PackNonce(p, m.Picked)
}

// Marshal renders msg as a single frame payload (tag byte followed by its
// body), ready for WriteFrame.
func Marshal(msg Message) ([]byte, error) {
	p := wrappers.NewPacker(64)
	p.PackByte(byte(msg.tag()))
	msg.marshal(p)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Bytes, nil
}

// Unmarshal parses a frame payload produced by Marshal.
func Unmarshal(payload []byte) (Message, error) {
	u := wrappers.NewUnpacker(payload)
	tag := Tag(u.UnpackByte())

	var msg Message
	switch tag {
	case TagClientOffer:
		id := u.UnpackLong()
		count := u.UnpackInt()
		offers := make([]stack.StackNonce, count)
		for i := range offers {
			offers[i] = UnpackNonce(u)
		}
		msg = ClientOffer{ID: id, Offers: offers}
	case TagServerNonce:
		id := u.UnpackLong()
		msg = ServerNonce{ID: id, Picked: UnpackNonce(u)}
	case TagServerReply:
		id := u.UnpackLong()
		ok := u.UnpackByte() == 1
		n := u.UnpackInt()
		message := string(u.UnpackBytes(int(n)))
		msg = ServerReply{ID: id, Ok: ok, Message: message}
	case TagClientNonce:
		id := u.UnpackLong()
		msg = ClientNonce{ID: id, Picked: UnpackNonce(u)}
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrProtocol, tag)
	}

	if u.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, u.Err)
	}
	return msg, nil
}
