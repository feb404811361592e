package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator drops events seen more than once across pages
type Deduplicator struct {
	seen map[string]bool
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]bool)}
}

// Deduplicate returns the events not seen by earlier calls, in order
func (d *Deduplicator) Deduplicate(events []TimelineEvent) []TimelineEvent {
	unique := make([]TimelineEvent, 0, len(events))
	for _, ev := range events {
		key := d.eventKey(ev)
		if d.seen[key] {
			continue
		}
		d.seen[key] = true
		unique = append(unique, ev)
	}
	return unique
}

// eventKey is the event ID, or a hash of the raw payload for events without one
func (d *Deduplicator) eventKey(ev TimelineEvent) string {
	if ev.EventID != "" {
		return "id:" + string(ev.EventID)
	}
	h := sha256.Sum256(ev.Raw)
	return "raw:" + hex.EncodeToString(h[:])
}
