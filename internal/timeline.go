package internal

import (
	"encoding/json"

	"maunium.net/go/mautrix/id"
)

// TimelineEvent is one normalized, renderable unit of room history
type TimelineEvent struct {
	// EventID is empty for events delivered without a stable identifier
	EventID id.EventID
	Sender  id.UserID
	// SenderProfile is nil when the sender could not be resolved
	SenderProfile *Profile
	// Timestamp is origin_server_ts in milliseconds since the Unix epoch
	Timestamp int64
	Content   TimelineItemContent
	// IsRoomEncrypted may be false when the encryption state is unknown
	IsRoomEncrypted bool
	// Raw is the input payload, byte for byte
	Raw json.RawMessage
}

// Profile is the display name and avatar of a room member
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	// DisplayNameAmbiguous is true if another member of the room shares the name
	DisplayNameAmbiguous bool                `json:"display_name_ambiguous"`
	AvatarURL            id.ContentURIString `json:"avatar_url,omitempty"`
}

// TimelineItemContent is the closed set of content arms for a TimelineEvent:
// *MsgLikeContent, *OtherState, *FailedToParseMessageLike and *FailedToParseState.
type TimelineItemContent interface {
	isTimelineItemContent()
}

// MsgLikeContent groups message-like kinds with their reactions and
// reply/thread information.
type MsgLikeContent struct {
	Kind      MsgLikeKind
	Reactions ReactionsByKeyBySender
	// InReplyTo is set when this message replies to another event
	InReplyTo *InReplyToDetails
	// ThreadRoot is the thread root event for messages sent in a thread
	ThreadRoot id.EventID
}

// OtherState is a state event without dedicated handling.
type OtherState struct {
	EventType string
	StateKey  string
	Content   json.RawMessage
}

// FailedToParseMessageLike is a message-like event that could not be
// deserialized or whose type is not supported.
type FailedToParseMessageLike struct {
	EventType string
	Err       error
}

// FailedToParseState is a state event that could not be deserialized.
type FailedToParseState struct {
	EventType string
	StateKey  string
	Err       error
}

func (*MsgLikeContent) isTimelineItemContent()           {}
func (*OtherState) isTimelineItemContent()               {}
func (*FailedToParseMessageLike) isTimelineItemContent() {}
func (*FailedToParseState) isTimelineItemContent()       {}

// MsgLikeKind is the closed set of message-like kinds: Message, Hidden,
// Redacted and UnableToDecrypt.
type MsgLikeKind interface {
	isMsgLikeKind()
}

// Message is an m.room.message, with any edits already applied.
type Message struct {
	MsgType MessageContent
	// Edited only ever goes from false to true
	Edited bool
}

// Hidden is a reaction or redaction event; it has no body of its own.
type Hidden struct{}

// Redacted is a tombstone: the body is gone, the position is kept.
type Redacted struct{}

// UnableToDecrypt is a placeholder for ciphertext that could not be opened.
// The fields are the retry hints visible in the encrypted envelope.
type UnableToDecrypt struct {
	Algorithm string
	SessionID string
	SenderKey string
	DeviceID  string
	Reason    string
}

func (Message) isMsgLikeKind()         {}
func (Hidden) isMsgLikeKind()          {}
func (Redacted) isMsgLikeKind()        {}
func (UnableToDecrypt) isMsgLikeKind() {}

// InReplyToDetails is a back-reference to a replied-to event.
type InReplyToDetails struct {
	EventID id.EventID
	// Event is nil until the replied-to event has been resolved
	Event *RepliedToEvent
}

// RepliedToEvent is the resolved copy of a replied-to event.
type RepliedToEvent struct {
	Content       TimelineItemContent
	Sender        id.UserID
	SenderProfile *Profile
}

// Content kind names used in serialized output.
const (
	KindMsgLike                  = "msg_like"
	KindOtherState               = "other_state"
	KindFailedToParseMessageLike = "failed_to_parse_message_like"
	KindFailedToParseState       = "failed_to_parse_state"

	KindMessage         = "message"
	KindHidden          = "hidden"
	KindRedacted        = "redacted"
	KindUnableToDecrypt = "unable_to_decrypt"
)

// ContentKind returns the serialized name of a content arm.
func ContentKind(c TimelineItemContent) string {
	switch c.(type) {
	case *MsgLikeContent:
		return KindMsgLike
	case *OtherState:
		return KindOtherState
	case *FailedToParseMessageLike:
		return KindFailedToParseMessageLike
	case *FailedToParseState:
		return KindFailedToParseState
	default:
		return ""
	}
}

// MsgLikeKindName returns the serialized name of a message-like kind.
func MsgLikeKindName(k MsgLikeKind) string {
	switch k.(type) {
	case Message:
		return KindMessage
	case Hidden:
		return KindHidden
	case Redacted:
		return KindRedacted
	case UnableToDecrypt:
		return KindUnableToDecrypt
	default:
		return ""
	}
}

// ItemKind is ContentKind refined by the message-like kind, e.g. "message"
// or "other_state". Used for statistics and metrics labels.
func ItemKind(c TimelineItemContent) string {
	if ml, ok := c.(*MsgLikeContent); ok {
		return MsgLikeKindName(ml.Kind)
	}
	return ContentKind(c)
}

// AsMessage returns the Message carried by c, if any.
func AsMessage(c TimelineItemContent) (Message, bool) {
	ml, ok := c.(*MsgLikeContent)
	if !ok {
		return Message{}, false
	}
	msg, ok := ml.Kind.(Message)
	return msg, ok
}

type timelineEventJSON struct {
	EventID         id.EventID      `json:"event_id,omitempty"`
	Sender          id.UserID       `json:"sender"`
	SenderProfile   *Profile        `json:"sender_profile,omitempty"`
	Timestamp       int64           `json:"timestamp"`
	Content         map[string]any  `json:"content"`
	IsRoomEncrypted bool            `json:"is_room_encrypted"`
	Raw             json.RawMessage `json:"raw"`
	RawText         string          `json:"raw_text,omitempty"`
}

// MarshalJSON encodes the event with a "kind" discriminator on its content.
func (e TimelineEvent) MarshalJSON() ([]byte, error) {
	raw, rawText := e.Raw, ""
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	} else if !json.Valid(raw) {
		// Undecodable payloads still travel with the item, as a string.
		raw, rawText = json.RawMessage("null"), string(e.Raw)
	}
	return json.Marshal(timelineEventJSON{
		EventID:         e.EventID,
		Sender:          e.Sender,
		SenderProfile:   e.SenderProfile,
		Timestamp:       e.Timestamp,
		Content:         ContentMap(e.Content),
		IsRoomEncrypted: e.IsRoomEncrypted,
		Raw:             raw,
		RawText:         rawText,
	})
}

// ContentMap converts content into a generic map suitable for JSON or YAML.
func ContentMap(c TimelineItemContent) map[string]any {
	return contentMap(c, true)
}

// contentMap stops descending into replied-to events after one level so
// reply cycles cannot recurse.
func contentMap(c TimelineItemContent, withReply bool) map[string]any {
	out := map[string]any{"kind": ContentKind(c)}
	switch c := c.(type) {
	case *MsgLikeContent:
		out["msg_kind"] = MsgLikeKindName(c.Kind)
		switch k := c.Kind.(type) {
		case Message:
			out["message"] = map[string]any{
				"msgtype": k.MsgType,
				"edited":  k.Edited,
			}
		case UnableToDecrypt:
			out["unable_to_decrypt"] = map[string]any{
				"algorithm":  k.Algorithm,
				"session_id": k.SessionID,
				"sender_key": k.SenderKey,
				"device_id":  k.DeviceID,
				"reason":     k.Reason,
			}
		case Hidden, Redacted:
		}
		reactions := c.Reactions
		if reactions == nil {
			reactions = ReactionsByKeyBySender{}
		}
		out["reactions"] = reactions
		if c.InReplyTo != nil {
			reply := map[string]any{"event_id": c.InReplyTo.EventID}
			if withReply && c.InReplyTo.Event != nil {
				replied := map[string]any{
					"sender":  c.InReplyTo.Event.Sender,
					"content": contentMap(c.InReplyTo.Event.Content, false),
				}
				if c.InReplyTo.Event.SenderProfile != nil {
					replied["sender_profile"] = c.InReplyTo.Event.SenderProfile
				}
				reply["event"] = replied
			}
			out["in_reply_to"] = reply
		}
		if c.ThreadRoot != "" {
			out["thread_root"] = c.ThreadRoot
		}
	case *OtherState:
		out["event_type"] = c.EventType
		out["state_key"] = c.StateKey
		out["content"] = c.Content
	case *FailedToParseMessageLike:
		out["event_type"] = c.EventType
		out["error"] = errorString(c.Err)
	case *FailedToParseState:
		out["event_type"] = c.EventType
		out["state_key"] = c.StateKey
		out["error"] = errorString(c.Err)
	}
	return out
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
