// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import (
	"context"
	"fmt"
	"time"

	luxlog "github.com/luxfi/log"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/config"
	nlog "github.com/luxfi/negotiate/log"
	"github.com/luxfi/negotiate/metrics"
	"github.com/luxfi/negotiate/monomorphize"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/transport"
	"github.com/luxfi/negotiate/utils"
	"github.com/luxfi/negotiate/wire"
)

// TypedConn is the outcome of a completed handshake: the agreed nonce,
// the concrete stack it resolves to, and the raw connection it now
// governs. The application wraps raw itself with whatever runtime
// connectors correspond to applied's chosen implementations; that step
// is outside the negotiation core (see the spec's "Layer implementations"
// external collaborator contract).
type TypedConn struct {
	Picked  stack.StackNonce
	Applied stack.Applied
	Raw     transport.RawConn
}

// Server is the accept-side of the two-party handshake. OfferListMax
// bounds how many offers a ClientOffer may carry before it is rejected.
type Server struct {
	Stack        stack.Node
	Registry     *capability.Registry
	Cache        *HandshakeCache
	OfferListMax int
	Log          luxlog.Logger

	// Metrics is optional; a nil value disables metric collection.
	Metrics *metrics.Metrics

	inFlight utils.AtomicInt
}

// InFlightHandshakes returns the number of HandleConn calls currently
// running, for callers that want to watch load without wiring Prometheus.
func (s *Server) InFlightHandshakes() int64 {
	return s.inFlight.Get()
}

// NewServer returns a Server with its own private handshake cache. Use
// NewSharedServer to have multiple Server values (e.g. one per listening
// socket) share a single cache, matching the spec's
// negotiate_server_shared_state.
func NewServer(s stack.Node, registry *capability.Registry, cacheTTL time.Duration) *Server {
	return &Server{
		Stack:        s,
		Registry:     registry,
		Cache:        NewHandshakeCache(cacheTTL),
		OfferListMax: 256,
		Log:          luxlog.NewNoOpLogger(),
	}
}

// NewServerFromConfig returns a Server whose handshake cache and offer
// list bound are taken from cfg.
func NewServerFromConfig(s stack.Node, registry *capability.Registry, cfg config.Config) *Server {
	return &Server{
		Stack:        s,
		Registry:     registry,
		Cache:        NewHandshakeCacheWithCapacity(cfg.HandshakeCacheTTL, cfg.HandshakeCacheMaxEntries),
		OfferListMax: cfg.OfferListMax,
		Log:          luxlog.NewNoOpLogger(),
	}
}

// NewSharedServer returns a Server using the given, possibly shared,
// handshake cache.
func NewSharedServer(s stack.Node, registry *capability.Registry, cache *HandshakeCache) *Server {
	return &Server{
		Stack:        s,
		Registry:     registry,
		Cache:        cache,
		OfferListMax: 256,
		Log:          luxlog.NewNoOpLogger(),
	}
}

func (s *Server) incr(f func(*metrics.Metrics)) {
	if s.Metrics != nil {
		f(s.Metrics)
	}
}

func (s *Server) observeLatency(start time.Time) {
	s.incr(func(m *metrics.Metrics) { m.HandshakeLatencySeconds.Observe(time.Since(start).Seconds()) })
}

// HandleConn runs the server procedure for one accepted raw connection:
// receive the ClientOffer, monomorphize (or replay a cached result),
// reply, and return the typed connection on success.
func (s *Server) HandleConn(ctx context.Context, raw transport.RawConn) (*TypedConn, error) {
	s.inFlight.Inc()
	defer s.inFlight.Dec()

	start := time.Now()
	defer s.observeLatency(start)

	frame, err := raw.Recv(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := wire.Unmarshal(frame)
	if err != nil {
		// Malformed frame: close without reply.
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	offer, ok := msg.(wire.ClientOffer)
	if !ok {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: expected ClientOffer, got %T", ErrProtocol, msg)
	}
	if len(offer.Offers) > s.OfferListMax {
		_ = raw.Close()
		return nil, fmt.Errorf("%w: %d offers exceeds max %d", ErrOfferListTooLarge, len(offer.Offers), s.OfferListMax)
	}

	s.incr(func(m *metrics.Metrics) { m.HandshakesStarted.Inc() })

	computed := false
	picked, err := s.Cache.Resolve(raw.Addr(), offer.ID, func() (stack.StackNonce, error) {
		computed = true
		result, err := monomorphize.Monomorphize(s.Registry, s.Stack, offer.Offers)
		if err != nil {
			return nil, err
		}
		return result.Picked, nil
	})
	if err == nil && !computed {
		s.incr(func(m *metrics.Metrics) { m.HandshakeCacheHits.Inc() })
	}
	if err != nil {
		s.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
		s.Log.Debug("handshake failed", nlog.Addr(raw.Addr()), nlog.HandshakeID(offer.ID), nlog.Err(err))
		payload, merr := wire.Marshal(wire.ServerReply{ID: offer.ID, Ok: false, Message: err.Error()})
		if merr == nil {
			_ = raw.Send(ctx, payload)
		}
		_ = raw.Close()
		return nil, err
	}

	applied, err := s.Stack.Apply(picked)
	if err != nil {
		s.incr(func(m *metrics.Metrics) { m.HandshakesFailed.Inc() })
		return nil, err
	}
	s.incr(func(m *metrics.Metrics) { m.HandshakesSucceeded.Inc() })
	s.Log.Debug("handshake resolved", nlog.Addr(raw.Addr()), nlog.HandshakeID(offer.ID), nlog.Nonce(picked))

	payload, err := wire.Marshal(wire.ServerNonce{ID: offer.ID, Picked: picked})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if err := raw.Send(ctx, payload); err != nil {
		return nil, err
	}

	return &TypedConn{Picked: picked, Applied: applied, Raw: raw}, nil
}

// Serve accepts connections from l until ctx is cancelled, handing each
// successfully negotiated one to onConn. Handshake failures are logged
// and the faulty connection dropped; Serve itself only returns on a
// listener error or context cancellation.
func (s *Server) Serve(ctx context.Context, l transport.Listener, onConn func(*TypedConn)) error {
	for {
		raw, err := l.Accept(ctx)
		if err != nil {
			return err
		}
		go func() {
			conn, err := s.HandleConn(ctx, raw)
			if err != nil {
				s.Log.Debug("rejected connection", nlog.Addr(raw.Addr()), nlog.Err(err))
				return
			}
			onConn(conn)
		}()
	}
}
