package internal

import (
	"maunium.net/go/mautrix/id"
)

type reactionRef struct {
	target id.EventID
	key    string
	sender id.UserID
}

// foldRelations applies reactions, redactions and edits in entries to
// their targets, in chronological order. Relations whose target is not in
// the batch are left alone, except edits, which are hidden. It returns the
// event ID index of entries.
func foldRelations(entries []*entry) map[id.EventID]*entry {
	index := make(map[id.EventID]*entry, len(entries))
	lastEdit := make(map[id.EventID]int64)
	for _, e := range entries {
		if e.event.EventID == "" {
			continue
		}
		if _, dup := index[e.event.EventID]; !dup {
			index[e.event.EventID] = e
		}
		if e.editedAt > 0 {
			lastEdit[e.event.EventID] = e.editedAt
		}
	}

	reactions := make(map[id.EventID]reactionRef)
	for _, e := range entries {
		switch e.rel.kind {
		case relAnnotation:
			ml := msgLikeOf(index[e.rel.target])
			if ml == nil || !acceptsRelations(ml) {
				continue
			}
			ml.Reactions.Add(e.rel.key, e.event.Sender, e.event.Timestamp)
			if e.event.EventID != "" {
				reactions[e.event.EventID] = reactionRef{target: e.rel.target, key: e.rel.key, sender: e.event.Sender}
			}

		case relRedaction:
			if ref, ok := reactions[e.rel.target]; ok {
				if ml := msgLikeOf(index[ref.target]); ml != nil {
					ml.Reactions.Remove(ref.key, ref.sender)
				}
				delete(reactions, e.rel.target)
				continue
			}
			target := index[e.rel.target]
			if target == nil || target.folded {
				continue
			}
			if ml := msgLikeOf(target); ml != nil {
				if _, hidden := ml.Kind.(Hidden); !hidden {
					redact(ml)
				}
			}

		case relReplace:
			target := index[e.rel.target]
			if target == nil || target == e || target.folded || !applyEdit(target, e, lastEdit) {
				hideEdit(e)
				continue
			}
			e.folded = true
		}
	}
	return index
}

// applyEdit folds edit into target. Edits by anyone but the original
// sender, and edits older than one already applied, are rejected.
func applyEdit(target, edit *entry, lastEdit map[id.EventID]int64) bool {
	ml := msgLikeOf(target)
	if ml == nil {
		return false
	}
	msg, ok := ml.Kind.(Message)
	if !ok || target.event.Sender != edit.event.Sender {
		return false
	}
	if prev, ok := lastEdit[target.event.EventID]; ok && edit.event.Timestamp < prev {
		// Superseded by a newer edit, but still a valid one.
		edit.folded = true
		return true
	}
	ml.Kind = ApplyEdit(msg, edit.rel.newContent)
	lastEdit[target.event.EventID] = edit.event.Timestamp
	return true
}

func hideEdit(e *entry) {
	if ml := msgLikeOf(e); ml != nil {
		ml.Kind = Hidden{}
		ml.InReplyTo = nil
		ml.ThreadRoot = ""
	}
}

func redact(ml *MsgLikeContent) {
	ml.Kind = Redacted{}
	ml.Reactions = nil
	ml.InReplyTo = nil
	ml.ThreadRoot = ""
}

func msgLikeOf(e *entry) *MsgLikeContent {
	if e == nil {
		return nil
	}
	ml, _ := e.event.Content.(*MsgLikeContent)
	return ml
}

// acceptsRelations reports whether reactions can attach to ml.
func acceptsRelations(ml *MsgLikeContent) bool {
	switch ml.Kind.(type) {
	case Message, UnableToDecrypt:
		return true
	default:
		return false
	}
}
