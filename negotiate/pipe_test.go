// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import (
	"context"
	"fmt"
)

// pipeConn is an in-memory transport.RawConn used to exercise the
// handshake without a real socket. Each side's Send feeds the other
// side's Recv over an unbuffered channel of framed payloads.
type pipeConn struct {
	addr string
	out  chan<- []byte
	in   <-chan []byte
}

func newPipePair(addrA, addrB string) (*pipeConn, *pipeConn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	a := &pipeConn{addr: addrA, out: ab, in: ba}
	b := &pipeConn{addr: addrB, out: ba, in: ab}
	return a, b
}

func (p *pipeConn) Send(ctx context.Context, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case p.out <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-p.in:
		if !ok {
			return nil, fmt.Errorf("pipe closed")
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Addr() string { return p.addr }
func (p *pipeConn) Close() error { return nil }
