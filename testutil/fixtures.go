package testutil

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

// Event builds a raw room event from its parts.
func Event(t *testing.T, eventType, eventID, sender string, ts int64, content map[string]interface{}) json.RawMessage {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{
		"type":             eventType,
		"event_id":         eventID,
		"sender":           sender,
		"origin_server_ts": ts,
		"content":          content,
	})
}

// TextMessage builds an m.room.message with msgtype m.text.
func TextMessage(t *testing.T, eventID, sender string, ts int64, body string) json.RawMessage {
	t.Helper()
	return Event(t, "m.room.message", eventID, sender, ts, map[string]interface{}{
		"msgtype": "m.text",
		"body":    body,
	})
}

// HTMLMessage builds an m.text message with an HTML formatted body.
func HTMLMessage(t *testing.T, eventID, sender string, ts int64, body, html string) json.RawMessage {
	t.Helper()
	return Event(t, "m.room.message", eventID, sender, ts, map[string]interface{}{
		"msgtype":        "m.text",
		"body":           body,
		"format":         "org.matrix.custom.html",
		"formatted_body": html,
	})
}

// Reply builds an m.text message replying to inReplyTo.
func Reply(t *testing.T, eventID, sender string, ts int64, body, inReplyTo string) json.RawMessage {
	t.Helper()
	return Event(t, "m.room.message", eventID, sender, ts, map[string]interface{}{
		"msgtype": "m.text",
		"body":    body,
		"m.relates_to": map[string]interface{}{
			"m.in_reply_to": map[string]interface{}{"event_id": inReplyTo},
		},
	})
}

// Edit builds an m.replace edit of target.
func Edit(t *testing.T, eventID, sender string, ts int64, target, newBody string) json.RawMessage {
	t.Helper()
	return Event(t, "m.room.message", eventID, sender, ts, map[string]interface{}{
		"msgtype": "m.text",
		"body":    "* " + newBody,
		"m.new_content": map[string]interface{}{
			"msgtype": "m.text",
			"body":    newBody,
		},
		"m.relates_to": map[string]interface{}{
			"rel_type": "m.replace",
			"event_id": target,
		},
	})
}

// Reaction builds an m.reaction annotating target with key.
func Reaction(t *testing.T, eventID, sender string, ts int64, target, key string) json.RawMessage {
	t.Helper()
	return Event(t, "m.reaction", eventID, sender, ts, map[string]interface{}{
		"m.relates_to": map[string]interface{}{
			"rel_type": "m.annotation",
			"event_id": target,
			"key":      key,
		},
	})
}

// Redaction builds an m.room.redaction of target.
func Redaction(t *testing.T, eventID, sender string, ts int64, target string) json.RawMessage {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{
		"type":             "m.room.redaction",
		"event_id":         eventID,
		"sender":           sender,
		"origin_server_ts": ts,
		"redacts":          target,
		"content":          map[string]interface{}{"redacts": target},
	})
}

// RedactedMessage builds an m.room.message whose content the server removed.
func RedactedMessage(t *testing.T, eventID, sender string, ts int64) json.RawMessage {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{
		"type":             "m.room.message",
		"event_id":         eventID,
		"sender":           sender,
		"origin_server_ts": ts,
		"content":          map[string]interface{}{},
		"unsigned": map[string]interface{}{
			"redacted_because": map[string]interface{}{
				"type":    "m.room.redaction",
				"sender":  sender,
				"redacts": eventID,
			},
		},
	})
}

// Encrypted builds an m.room.encrypted event.
func Encrypted(t *testing.T, eventID, sender string, ts int64, sessionID string) json.RawMessage {
	t.Helper()
	return Event(t, "m.room.encrypted", eventID, sender, ts, map[string]interface{}{
		"algorithm":  "m.megolm.v1.aes-sha2",
		"ciphertext": "AwgAEnAC",
		"session_id": sessionID,
		"sender_key": "senderkey",
		"device_id":  "DEVICE",
	})
}

// StateEvent builds a state event.
func StateEvent(t *testing.T, eventType, eventID, sender string, ts int64, stateKey string, content map[string]interface{}) json.RawMessage {
	t.Helper()
	return JSONMarshal(t, map[string]interface{}{
		"type":             eventType,
		"event_id":         eventID,
		"sender":           sender,
		"origin_server_ts": ts,
		"state_key":        stateKey,
		"content":          content,
	})
}

// Newest reverses chronological events into the newest-first order of a
// backward pagination response.
func Newest(events ...json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

// CreateRoomDumpFixture writes a small room dump to dir and returns its path.
func CreateRoomDumpFixture(t *testing.T, dir string) string {
	t.Helper()
	dump := map[string]interface{}{
		"room_id":         "!lounge:example.org",
		"name":            "Lounge",
		"canonical_alias": "#lounge:example.org",
		"aliases":         []string{"#lounge:example.org"},
		"encrypted":       false,
		"unread_count":    1,
		"members": []map[string]interface{}{
			{"user_id": "@alice:example.org", "display_name": "Alice"},
			{"user_id": "@bob:example.org", "display_name": "Bob"},
		},
		"events": []json.RawMessage{
			StateEvent(t, "m.room.create", "$create", "@alice:example.org", 1000, "", map[string]interface{}{"creator": "@alice:example.org"}),
			TextMessage(t, "$hello", "@alice:example.org", 2000, "hello"),
			Reply(t, "$hi", "@bob:example.org", 3000, "hi alice", "$hello"),
			Reaction(t, "$thumbs", "@bob:example.org", 4000, "$hello", "👍"),
			Edit(t, "$fix", "@alice:example.org", 5000, "$hello", "hello everyone"),
		},
	}
	path := filepath.Join(dir, "lounge.json")
	WriteJSON(t, path, dump)
	return path
}
