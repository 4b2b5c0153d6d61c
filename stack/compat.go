// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import "github.com/luxfi/negotiate/capability"

// ValidPair reports whether local and peer can coexist as the two sides of
// one connection, per every capability GUID present in either nonce.
func ValidPair(registry *capability.Registry, local, peer StackNonce) bool {
	return validPair(registry, local, peer, false)
}

// PartialValidPair is ValidPair relaxed to only the GUIDs present in both
// sides; used to vet a candidate sub-stack during a live upgrade, where
// local and peer may not yet share every capability.
func PartialValidPair(registry *capability.Registry, local, peer StackNonce) bool {
	return validPair(registry, local, peer, true)
}

func validPair(registry *capability.Registry, local, peer StackNonce, partial bool) bool {
	guids := local.GUIDs()
	guids.Union(peer.GUIDs())

	atLeastOneShared := false
	for guid := range guids {
		l, lok := local[guid]
		p, pok := peer[guid]

		if lok && pok {
			atLeastOneShared = true
			if !offersCompatible(registry, guid, l, p) {
				return false
			}
			continue
		}
		if partial {
			// Missing on one side is fine for a partial check; it simply
			// isn't part of the overlap being vetted.
			continue
		}

		// Exactly one side declares this capability: only OneSided
		// capabilities can be satisfied unilaterally, and only if the
		// declaring side's available set alone covers the universe.
		var present Offer
		if lok {
			present = l
		} else {
			present = p
		}
		if present.Sidedness != capability.OneSided {
			return false
		}
		cap, ok := registry.Lookup(guid)
		if !ok || cap.Universe.IsOpen() {
			return false
		}
		if !cap.Universe.CoveredBy(present.Available) {
			return false
		}
	}

	if partial {
		return atLeastOneShared
	}
	return true
}

func offersCompatible(registry *capability.Registry, guid uint64, a, b Offer) bool {
	if a.Sidedness != b.Sidedness {
		return false
	}
	switch a.Sidedness {
	case capability.BothSided:
		return a.ImplGUID == b.ImplGUID && a.Available.Equals(b.Available)
	case capability.OneSided:
		cap, ok := registry.Lookup(guid)
		if !ok {
			return false
		}
		if cap.Universe.IsOpen() {
			return a.Available.Equals(b.Available)
		}
		return cap.Universe.CoveredBy(a.Available, b.Available)
	default:
		return false
	}
}
