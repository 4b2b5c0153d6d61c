// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport describes the raw, capability-agnostic connection
// contract the negotiator runs its handshake over. Concrete transports
// (datagram sockets, stream sockets, local domain sockets, in-process
// channels) are external collaborators; this package only states what
// they must provide.
package transport

import "context"

// RawConn is a bidirectional message pipe with message boundaries
// preserved and addresses opaque to the negotiator. Send and Recv both
// accept a context so they remain suspension points rather than
// busy-loops, and so a caller can cancel one without corrupting the
// connection.
type RawConn interface {
	// Send writes payload as one message. Implementations must not
	// fragment or coalesce it with another Send.
	Send(ctx context.Context, payload []byte) error

	// Recv reads the next message. It blocks until one is available, ctx
	// is cancelled, or the connection closes.
	Recv(ctx context.Context) ([]byte, error)

	// Addr returns an opaque, comparable string identifying the peer.
	// The negotiator uses it only as a cache key, never interpreting it.
	Addr() string

	// Close releases the connection. Calling Send or Recv after Close
	// must return an error derived from TransportClosed.
	Close() error
}

// Listener accepts RawConns, analogous to net.Listener.
type Listener interface {
	Accept(ctx context.Context) (RawConn, error)
	Close() error
}
