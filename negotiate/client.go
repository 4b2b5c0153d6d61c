// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"

	"github.com/luxfi/negotiate/metrics"
	"github.com/luxfi/negotiate/monomorphize"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/transport"
	"github.com/luxfi/negotiate/wire"
)

// Client drives the one-shot client side of the two-party handshake
// described in the spec's Client/Server Negotiator.
type Client struct {
	Stack stack.Node

	// Metrics is optional; a nil value disables metric collection.
	Metrics *metrics.Metrics
}

func (c *Client) incr(f func(*metrics.Metrics)) {
	if c.Metrics != nil {
		f(c.Metrics)
	}
}

// Negotiate sends every concrete specialization of c.Stack to raw over a
// single handshake frame, awaits the server's pick, and returns the
// resulting concrete stack.
func (c *Client) Negotiate(ctx context.Context, raw transport.RawConn) (*monomorphize.Result, error) {
	offers := c.Stack.Offers()
	id := rand.Uint64()

	c.incr(func(m *metrics.Metrics) { m.HandshakesStarted.Inc() })

	payload, err := wire.Marshal(wire.ClientOffer{ID: id, Offers: offers})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if err := raw.Send(ctx, payload); err != nil {
		return nil, err
	}

	reply, err := raw.Recv(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := wire.Unmarshal(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	switch m := msg.(type) {
	case wire.ServerReply:
		if !m.Ok {
			c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
			return nil, fmt.Errorf("%w: %s", stack.ErrNoCompatibleStack, m.Message)
		}
		c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
		return nil, fmt.Errorf("%w: unexpected ok ServerReply without a ServerNonce", ErrProtocol)
	case wire.ServerNonce:
		if m.ID != id {
			c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
			return nil, fmt.Errorf("%w: handshake id mismatch", ErrProtocol)
		}
		if !offeredBy(offers, m.Picked) {
			c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
			return nil, fmt.Errorf("%w: server picked a nonce outside our offers", ErrProtocol)
		}
		applied, err := c.Stack.Apply(m.Picked)
		if err != nil {
			c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
			return nil, err
		}
		c.incr(func(m *metrics.Metrics) { m.HandshakesSucceeded.Inc() })
		return &monomorphize.Result{Picked: m.Picked, Applied: applied}, nil
	default:
		c.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
		return nil, fmt.Errorf("%w: unexpected message type %T", ErrProtocol, msg)
	}
}

func offeredBy(offers []stack.StackNonce, picked stack.StackNonce) bool {
	for _, o := range offers {
		if reflect.DeepEqual(map[uint64]stack.Offer(o), map[uint64]stack.Offer(picked)) {
			return true
		}
	}
	return false
}
