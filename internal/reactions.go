package internal

import (
	"sort"

	"maunium.net/go/mautrix/id"
)

// ReactionInfo is a single reaction by one sender.
type ReactionInfo struct {
	Timestamp int64 `json:"timestamp"`
}

// ReactionsByKeyBySender maps reaction key to sender to reaction. There is
// at most one reaction per (key, sender); keys never map to an empty set.
// Keys and Senders iterate in sorted order.
type ReactionsByKeyBySender map[string]map[id.UserID]ReactionInfo

// Add records sender's reaction with key, replacing any earlier one.
func (r *ReactionsByKeyBySender) Add(key string, sender id.UserID, ts int64) {
	if *r == nil {
		*r = make(ReactionsByKeyBySender)
	}
	bySender, ok := (*r)[key]
	if !ok {
		bySender = make(map[id.UserID]ReactionInfo)
		(*r)[key] = bySender
	}
	bySender[sender] = ReactionInfo{Timestamp: ts}
}

// Remove drops sender's reaction with key. It reports whether one existed.
func (r ReactionsByKeyBySender) Remove(key string, sender id.UserID) bool {
	bySender, ok := r[key]
	if !ok {
		return false
	}
	if _, ok := bySender[sender]; !ok {
		return false
	}
	delete(bySender, sender)
	if len(bySender) == 0 {
		delete(r, key)
	}
	return true
}

// Keys returns the reaction keys in sorted order.
func (r ReactionsByKeyBySender) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Senders returns who reacted with key, in sorted order.
func (r ReactionsByKeyBySender) Senders(key string) []id.UserID {
	senders := make([]id.UserID, 0, len(r[key]))
	for s := range r[key] {
		senders = append(senders, s)
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i] < senders[j] })
	return senders
}

// Count returns the number of senders that reacted with key.
func (r ReactionsByKeyBySender) Count(key string) int {
	return len(r[key])
}

// Total returns the number of reactions across all keys.
func (r ReactionsByKeyBySender) Total() int {
	n := 0
	for _, bySender := range r {
		n += len(bySender)
	}
	return n
}

// Clone returns a deep copy.
func (r ReactionsByKeyBySender) Clone() ReactionsByKeyBySender {
	if r == nil {
		return nil
	}
	out := make(ReactionsByKeyBySender, len(r))
	for k, bySender := range r {
		cp := make(map[id.UserID]ReactionInfo, len(bySender))
		for s, info := range bySender {
			cp[s] = info
		}
		out[k] = cp
	}
	return out
}
