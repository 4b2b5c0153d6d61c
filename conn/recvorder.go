// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package conn

import (
	"context"
	"sync"

	"github.com/luxfi/negotiate/transport"
)

// RecvCallOrder wraps a transport.RawConn shared by multiple tasks and
// restores submission-order FIFO delivery across their Recv calls. Each
// Recv races a fresh read against whatever other tasks are doing the
// same; whichever goroutine's read actually completes hands its payload
// to the oldest still-waiting caller rather than its own, so results come
// back in the order calls were made regardless of which one happened to
// win the race against the underlying transport.
type RecvCallOrder struct {
	inner transport.RawConn

	mu    sync.Mutex
	queue []chan recvResult
}

// NewRecvCallOrder wraps inner.
func NewRecvCallOrder(inner transport.RawConn) *RecvCallOrder {
	return &RecvCallOrder{inner: inner}
}

// Send implements transport.RawConn, delegating directly: send ordering
// within one task is already preserved by Go's own call-then-return
// sequencing.
func (r *RecvCallOrder) Send(ctx context.Context, payload []byte) error {
	return r.inner.Send(ctx, payload)
}

// Recv implements transport.RawConn.
func (r *RecvCallOrder) Recv(ctx context.Context) ([]byte, error) {
	mine := make(chan recvResult, 1)
	r.mu.Lock()
	r.queue = append(r.queue, mine)
	r.mu.Unlock()

	for {
		select {
		case res := <-mine:
			return res.payload, res.err
		default:
		}

		innerCtx, cancelInner := context.WithCancel(ctx)
		innerDone := make(chan recvResult, 1)
		go func() {
			payload, err := r.inner.Recv(innerCtx)
			innerDone <- recvResult{payload, err}
		}()

		select {
		case res := <-mine:
			cancelInner()
			if late := <-innerDone; late.err == nil {
				r.deliverToOldest(late)
			}
			return res.payload, res.err

		case res := <-innerDone:
			cancelInner()
			r.deliverToOldest(res)
			// loop: the result may have gone to a different waiter, so
			// check whether ours has arrived yet.
		}
	}
}

func (r *RecvCallOrder) deliverToOldest(res recvResult) {
	r.mu.Lock()
	var front chan recvResult
	if len(r.queue) > 0 {
		front, r.queue = r.queue[0], r.queue[1:]
	}
	r.mu.Unlock()
	if front != nil {
		front <- res
	}
}

// Addr implements transport.RawConn.
func (r *RecvCallOrder) Addr() string { return r.inner.Addr() }

// Close implements transport.RawConn.
func (r *RecvCallOrder) Close() error { return r.inner.Close() }

var _ transport.RawConn = (*RecvCallOrder)(nil)
