package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"maunium.net/go/mautrix/id"
)

// eventHeader holds the envelope fields every event carries.
type eventHeader struct {
	Type      string
	EventID   id.EventID
	Sender    id.UserID
	Timestamp int64
	// StateKey is non-nil for state events, even when empty
	StateKey *string
}

func (h eventHeader) isState() bool {
	return h.StateKey != nil
}

// rawEnvelope is a room event as delivered by a homeserver.
type rawEnvelope struct {
	Type      string          `json:"type"`
	EventID   id.EventID      `json:"event_id"`
	Sender    id.UserID       `json:"sender"`
	Timestamp int64           `json:"origin_server_ts"`
	StateKey  *string         `json:"state_key"`
	Redacts   id.EventID      `json:"redacts"`
	Content   json.RawMessage `json:"content"`
	Unsigned  rawUnsigned     `json:"unsigned"`

	raw json.RawMessage
}

type rawUnsigned struct {
	RedactedBecause json.RawMessage `json:"redacted_because"`
	Relations       *rawRelations   `json:"m.relations"`
}

type rawRelations struct {
	Replace json.RawMessage `json:"m.replace"`
}

func (e *rawEnvelope) header() eventHeader {
	return eventHeader{
		Type:      e.Type,
		EventID:   e.EventID,
		Sender:    e.Sender,
		Timestamp: e.Timestamp,
		StateKey:  e.StateKey,
	}
}

// isRedacted reports whether the server stripped this event's content.
func (e *rawEnvelope) isRedacted() bool {
	return isPresent(e.Unsigned.RedactedBecause)
}

// bundledReplace returns the server-aggregated latest edit, if any.
func (e *rawEnvelope) bundledReplace() json.RawMessage {
	if e.Unsigned.Relations == nil || !isPresent(e.Unsigned.Relations.Replace) {
		return nil
	}
	return e.Unsigned.Relations.Replace
}

// parseEnvelope decodes the outer event structure of raw.
func parseEnvelope(raw json.RawMessage) (*rawEnvelope, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, ErrMissingEventType
	}
	env.raw = raw
	return &env, nil
}

// peekHeader extracts whatever header fields are readable from raw, field by
// field, ignoring any that fail to decode. It never fails.
func peekHeader(raw json.RawMessage) eventHeader {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return eventHeader{}
	}
	var h eventHeader
	_ = json.Unmarshal(fields["type"], &h.Type)
	_ = json.Unmarshal(fields["event_id"], &h.EventID)
	_ = json.Unmarshal(fields["sender"], &h.Sender)
	_ = json.Unmarshal(fields["origin_server_ts"], &h.Timestamp)
	if sk, ok := fields["state_key"]; ok {
		// A malformed state key still marks a state event.
		stateKey := string(sk)
		_ = json.Unmarshal(sk, &stateKey)
		h.StateKey = &stateKey
	}
	return h
}

// isPresent reports whether a raw JSON value exists and is not null.
func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// requireObject checks that raw is a JSON object.
func requireObject(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("missing content")
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("content is not a JSON object")
	}
	return nil
}
