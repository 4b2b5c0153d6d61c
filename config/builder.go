// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"time"
)

// Preset names a canned Config suitable for a deployment profile.
type Preset string

const (
	// ProductionPreset favors a long handshake cache and a conservative
	// liveness window for WAN deployments.
	ProductionPreset Preset = "production"
	// LocalPreset favors fast convergence for single-process tests.
	LocalPreset Preset = "local"
)

var presets = map[Preset]Config{
	ProductionPreset: {
		HandshakeCacheTTL:        30 * time.Second,
		HandshakeCacheMaxEntries: 4096,
		LivenessExpiration:       10 * time.Second,
		NotifyPollInterval:       10 * time.Millisecond,
		OfferListMax:             256,
	},
	LocalPreset: {
		HandshakeCacheTTL:        2 * time.Second,
		HandshakeCacheMaxEntries: 256,
		LivenessExpiration:       200 * time.Millisecond,
		NotifyPollInterval:       time.Millisecond,
		OfferListMax:             256,
	},
}

// Builder provides a fluent interface for constructing a Config.
type Builder struct {
	config Config
	err    error
}

// NewBuilder creates a new configuration builder seeded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// FromPreset loads a named preset, discarding any values already set.
func (b *Builder) FromPreset(preset Preset) *Builder {
	if b.err != nil {
		return b
	}
	c, ok := presets[preset]
	if !ok {
		b.err = fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
		return b
	}
	b.config = c
	return b
}

// WithHandshakeCacheTTL sets the server-side handshake cache TTL.
func (b *Builder) WithHandshakeCacheTTL(ttl time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	if ttl < time.Millisecond {
		b.err = fmt.Errorf("%w: got %s", ErrHandshakeCacheTTLTooLow, ttl)
		return b
	}
	b.config.HandshakeCacheTTL = ttl
	return b
}

// WithHandshakeCacheMaxEntries bounds the handshake cache's size.
func (b *Builder) WithHandshakeCacheMaxEntries(max int) *Builder {
	if b.err != nil {
		return b
	}
	if max < 1 {
		b.err = fmt.Errorf("%w: got %d", ErrHandshakeCacheMaxEntriesTooLow, max)
		return b
	}
	b.config.HandshakeCacheMaxEntries = max
	return b
}

// WithLivenessExpiration sets the rendezvous participant lease duration.
func (b *Builder) WithLivenessExpiration(d time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	if d < time.Millisecond {
		b.err = fmt.Errorf("%w: got %s", ErrLivenessExpirationTooLow, d)
		return b
	}
	b.config.LivenessExpiration = d
	return b
}

// WithNotifyPollInterval sets the default long-poll period.
func (b *Builder) WithNotifyPollInterval(d time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	if d < time.Millisecond {
		b.err = fmt.Errorf("%w: got %s", ErrNotifyPollIntervalTooLow, d)
		return b
	}
	b.config.NotifyPollInterval = d
	return b
}

// WithOfferListMax bounds the number of offers a ClientOffer may carry.
func (b *Builder) WithOfferListMax(max int) *Builder {
	if b.err != nil {
		return b
	}
	if max < 1 {
		b.err = fmt.Errorf("%w: got %d", ErrOfferListMaxTooLow, max)
		return b
	}
	b.config.OfferListMax = max
	return b
}

// Build validates and returns the assembled Config.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	if err := b.config.Valid(); err != nil {
		return Config{}, err
	}
	return b.config, nil
}
