// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/negotiate/metrics"
)

func TestServerIncrementsHandshakeMetrics(t *testing.T) {
	registry := testRegistry(t)
	clientConn, serverConn := newPipePair("client", "server")

	server := NewServer(echoStack(implReliable), registry, 30*time.Second)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	server.Metrics = m
	client := &Client{Stack: echoStack(implReliable)}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		_, err := server.HandleConn(ctx, serverConn)
		serverErr <- err
	}()

	_, err = client.Negotiate(ctx, clientConn)
	require.NoError(t, err)
	require.NoError(t, <-serverErr)

	require.Equal(t, float64(1), testutil.ToFloat64(m.HandshakesStarted))
	require.Equal(t, float64(1), testutil.ToFloat64(m.HandshakesSucceeded))
	require.Equal(t, 1, testutil.CollectAndCount(m.HandshakeLatencySeconds))
	require.Equal(t, int64(0), server.InFlightHandshakes())
}
