// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package benchlist temporarily excludes rendezvous participants whose
// Transition proposals keep losing the two-phase commit race, so one
// flapping or adversarial participant can't starve every other
// participant's attempts to land a transition.
package benchlist

import (
	"sync"
	"time"

	"github.com/luxfi/ids"
)

// Manager tracks per-participant Transition outcomes and decides who is
// currently benched.
type Manager interface {
	IsBenched(id ids.NodeID) bool
	RegisterResponse(id ids.NodeID)
	RegisterFailure(id ids.NodeID)
}

type manager struct {
	lock       sync.RWMutex
	benchlist  map[ids.NodeID]time.Time
	config     Config
	failures   map[ids.NodeID]int
	failedTime map[ids.NodeID]time.Time
}

// NewManager returns a Manager enforcing config.
func NewManager(config Config) Manager {
	return &manager{
		benchlist:  make(map[ids.NodeID]time.Time),
		config:     config,
		failures:   make(map[ids.NodeID]int),
		failedTime: make(map[ids.NodeID]time.Time),
	}
}

func (m *manager) IsBenched(id ids.NodeID) bool {
	m.lock.RLock()
	benchedUntil, exists := m.benchlist[id]
	m.lock.RUnlock()
	if !exists {
		return false
	}
	if time.Now().After(benchedUntil) {
		m.lock.Lock()
		delete(m.benchlist, id)
		m.lock.Unlock()
		return false
	}
	return true
}

// RegisterResponse clears id's failure streak after one of its proposals
// commits.
func (m *manager) RegisterResponse(id ids.NodeID) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.failures, id)
	delete(m.failedTime, id)
}

// RegisterFailure records one of id's Transition proposals losing the
// commit race, benching id once it crosses both the failure count and
// minimum failing duration thresholds.
func (m *manager) RegisterFailure(id ids.NodeID) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, benched := m.benchlist[id]; benched {
		return
	}
	if _, exists := m.failedTime[id]; !exists {
		m.failedTime[id] = time.Now()
	}
	m.failures[id]++

	if m.failures[id] >= m.config.Threshold {
		failingDuration := time.Since(m.failedTime[id])
		if failingDuration >= m.config.MinimumFailingDuration {
			m.benchlist[id] = time.Now().Add(m.config.Duration)
			delete(m.failures, id)
			delete(m.failedTime, id)
		}
	}
}
