// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stack

import (
	"fmt"

	"github.com/luxfi/negotiate/capability"
	"github.com/luxfi/negotiate/utils"
)

// Candidate is one (local, peer) offer pair a monomorphizer considers.
type Candidate struct {
	Local StackNonce
	Peer  StackNonce
}

// Pick chooses one candidate's local nonce out of the valid ones, applying
// the tie-break order in this order of precedence:
//
//  1. prefer a local nonce that is fully one-sided compatible without
//     needing anything from the peer;
//  2. prefer the branch each Select node along the path declared via its
//     Prefer field;
//  3. prefer higher implementation_priority;
//  4. lexicographic order of the chosen implementation GUIDs, as a final
//     deterministic tiebreak.
func Pick(registry *capability.Registry, root Node, candidates []Candidate) (StackNonce, error) {
	type scored struct {
		score score
		local StackNonce
	}

	var best *scored
	for _, c := range candidates {
		if !ValidPair(registry, c.Local, c.Peer) {
			continue
		}
		applied, err := root.Apply(c.Local)
		if err != nil {
			continue
		}
		s := score{
			selfSufficient: selfSufficient(registry, c.Local),
			prefMatches:    preferenceScore(root, c.Local),
			priority:       applied.Priority(),
			implKey:        implGUIDKey(applied.ImplGUIDs()),
		}
		if best == nil || s.better(best.score) {
			best = &scored{score: s, local: c.Local}
		}
	}
	if best == nil {
		return nil, ErrNoCompatibleStack
	}
	return best.local, nil
}

type score struct {
	selfSufficient bool
	prefMatches    int
	priority       int
	implKey        string
}

// better reports whether s is strictly preferred over other, per the
// tie-break order documented on Pick.
func (s score) better(other score) bool {
	if s.selfSufficient != other.selfSufficient {
		return s.selfSufficient
	}
	if s.prefMatches != other.prefMatches {
		return s.prefMatches > other.prefMatches
	}
	if s.priority != other.priority {
		return s.priority > other.priority
	}
	return s.implKey < other.implKey
}

// selfSufficient reports whether every OneSided, Closed capability in
// local is already covered by local's own available set, i.e. this side
// needs nothing from its peer to be valid.
func selfSufficient(registry *capability.Registry, local StackNonce) bool {
	for guid, o := range local {
		if o.Sidedness != capability.OneSided {
			continue
		}
		cap, ok := registry.Lookup(guid)
		if !ok || cap.Universe.IsOpen() {
			continue
		}
		if !cap.Universe.CoveredBy(o.Available) {
			return false
		}
	}
	return true
}

// preferenceScore counts how many Select nodes along the path that
// produced local resolved to their declared preference.
func preferenceScore(node Node, local StackNonce) int {
	switch n := node.(type) {
	case *Sequence:
		return preferenceScore(n.Head, local) + preferenceScore(n.Tail, local)
	case *Select:
		branch := n.Left
		pref := Left
		if _, err := n.Left.Apply(local); err != nil {
			branch = n.Right
			pref = Right
		}
		score := preferenceScore(branch, local)
		if n.Prefer == pref {
			score++
		}
		return score
	default:
		return 0
	}
}

// implGUIDKey renders GUIDs as a fixed-width hex string so string
// comparison matches numeric comparison, sorted in ascending order.
func implGUIDKey(guids []uint64) string {
	sorted := make([]uint64, len(guids))
	copy(sorted, guids)
	utils.Sort(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	key := make([]byte, 0, len(sorted)*16)
	for _, g := range sorted {
		key = append(key, []byte(fmt.Sprintf("%016x", g))...)
	}
	return string(key)
}
