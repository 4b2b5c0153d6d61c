// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	ErrHandshakeCacheTTLTooLow        = errors.New("handshake cache ttl must be >= 1ms")
	ErrHandshakeCacheMaxEntriesTooLow = errors.New("handshake cache max entries must be >= 1")
	ErrLivenessExpirationTooLow       = errors.New("liveness expiration must be >= 1ms")
	ErrNotifyPollIntervalTooLow       = errors.New("notify poll interval must be >= 1ms")
	ErrOfferListMaxTooLow             = errors.New("offer list max must be >= 1")
	ErrUnknownPreset                  = errors.New("unknown preset")
)
