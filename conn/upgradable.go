// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package conn provides the Upgradable Connection: a wrapper that keeps
// the handle an application holds stable across a rendezvous transition,
// swapping the negotiated stack behind it instead.
package conn

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/negotiate/metrics"
	"github.com/luxfi/negotiate/stack"
	"github.com/luxfi/negotiate/transport"
)

// UpgradableConn wraps a shared base transport and a Select-bearing root
// stack. It starts on whatever Applied stack the caller negotiated, and
// re-applies root to a new nonce whenever one arrives on switchCh, without
// tearing down base or handing the application a new handle.
//
// There is no guarantee that messages in flight when an upgrade lands are
// delivered under the old or the new stack; the upgrade is a punctuation
// point. Callers needing no reordering across an upgrade must quiesce
// first.
type UpgradableConn struct {
	mu       sync.RWMutex
	base     transport.RawConn
	root     stack.Node
	current  stack.Applied
	switchCh <-chan stack.StackNonce

	// Metrics is optional; a nil value disables metric collection.
	Metrics *metrics.Metrics
}

// NewUpgradableConn wraps base under root, starting from current and
// watching switchCh — ordinarily an UpgradeHandle's SwitchNotify — for
// later transitions.
func NewUpgradableConn(base transport.RawConn, root stack.Node, current stack.Applied, switchCh <-chan stack.StackNonce) *UpgradableConn {
	return &UpgradableConn{base: base, root: root, current: current, switchCh: switchCh}
}

// Current returns the Applied stack active at the moment of the call.
func (c *UpgradableConn) Current() stack.Applied {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *UpgradableConn) tryUpgrade(n stack.StackNonce) error {
	applied, err := c.root.Apply(n)
	if err != nil {
		return fmt.Errorf("upgradable connection: %w", err)
	}
	c.mu.Lock()
	c.current = applied
	c.mu.Unlock()
	if c.Metrics != nil {
		c.Metrics.UpgradesApplied.Inc()
	}
	return nil
}

// Send applies any pending switch before writing payload on the base
// transport.
func (c *UpgradableConn) Send(ctx context.Context, payload []byte) error {
	select {
	case n := <-c.switchCh:
		if err := c.tryUpgrade(n); err != nil {
			return err
		}
	default:
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Send(ctx, payload)
}

type recvResult struct {
	payload []byte
	err     error
}

// Recv races the base transport's Recv against the switch channel. If the
// switch fires first, the pending Recv is cancelled and discarded, the
// stack is upgraded, and Recv retries; it does not requeue whatever the
// cancelled Recv might have read.
func (c *UpgradableConn) Recv(ctx context.Context) ([]byte, error) {
	for {
		recvCtx, cancelRecv := context.WithCancel(ctx)
		recvCh := make(chan recvResult, 1)
		go func() {
			payload, err := c.base.Recv(recvCtx)
			recvCh <- recvResult{payload, err}
		}()

		select {
		case n := <-c.switchCh:
			cancelRecv()
			<-recvCh
			if err := c.tryUpgrade(n); err != nil {
				return nil, err
			}
			continue

		case r := <-recvCh:
			cancelRecv()
			return r.payload, r.err

		case <-ctx.Done():
			cancelRecv()
			<-recvCh
			return nil, ctx.Err()
		}
	}
}

// Addr implements transport.RawConn, delegating to the base transport.
func (c *UpgradableConn) Addr() string { return c.base.Addr() }

// Close implements transport.RawConn, delegating to the base transport.
func (c *UpgradableConn) Close() error { return c.base.Close() }

var _ transport.RawConn = (*UpgradableConn)(nil)
