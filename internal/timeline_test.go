package internal

import (
	"encoding/json"
	"errors"
	"testing"

	"maunium.net/go/mautrix/event"
)

func TestTimelineEvent_MarshalJSON(t *testing.T) {
	var reactions ReactionsByKeyBySender
	reactions.Add("👍", bob, 7)

	ev := TimelineEvent{
		EventID:   "$1",
		Sender:    alice,
		Timestamp: 42,
		Content: &MsgLikeContent{
			Kind:      Message{MsgType: MessageContent{Type: event.MsgText, Body: "hi"}, Edited: true},
			Reactions: reactions,
			InReplyTo: &InReplyToDetails{EventID: "$0"},
		},
		IsRoomEncrypted: true,
		Raw:             json.RawMessage(`{"type":"m.room.message"}`),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded struct {
		EventID         string `json:"event_id"`
		IsRoomEncrypted bool   `json:"is_room_encrypted"`
		Content         struct {
			Kind    string `json:"kind"`
			MsgKind string `json:"msg_kind"`
			Message struct {
				MsgType MessageContent `json:"msgtype"`
				Edited  bool           `json:"edited"`
			} `json:"message"`
			Reactions ReactionsByKeyBySender `json:"reactions"`
			InReplyTo struct {
				EventID string `json:"event_id"`
			} `json:"in_reply_to"`
		} `json:"content"`
		Raw json.RawMessage `json:"raw"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if decoded.Content.Kind != KindMsgLike || decoded.Content.MsgKind != KindMessage {
		t.Errorf("kind = %q/%q, want msg_like/message", decoded.Content.Kind, decoded.Content.MsgKind)
	}
	if decoded.Content.Message.MsgType.Body != "hi" || !decoded.Content.Message.Edited {
		t.Errorf("message = %+v", decoded.Content.Message)
	}
	if decoded.Content.Reactions.Count("👍") != 1 {
		t.Errorf("reactions = %v", decoded.Content.Reactions)
	}
	if decoded.Content.InReplyTo.EventID != "$0" {
		t.Errorf("in_reply_to = %+v", decoded.Content.InReplyTo)
	}
	if string(decoded.Raw) != `{"type":"m.room.message"}` {
		t.Errorf("raw = %s", decoded.Raw)
	}
}

func TestTimelineEvent_MarshalJSONInvalidRaw(t *testing.T) {
	tests := []struct {
		name        string
		raw         json.RawMessage
		wantRaw     string
		wantRawText string
	}{
		{"valid", json.RawMessage(`{"a":1}`), `{"a":1}`, ""},
		{"empty", nil, "null", ""},
		{"truncated", json.RawMessage(`{"a":`), "null", `{"a":`},
		{"not json", json.RawMessage("garbage"), "null", "garbage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := TimelineEvent{EventID: "$x", Content: &FailedToParseMessageLike{EventType: "m.room.message"}, Raw: tt.raw}
			data, err := json.Marshal(ev)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			var decoded struct {
				Raw     json.RawMessage `json:"raw"`
				RawText string          `json:"raw_text"`
			}
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			if string(decoded.Raw) != tt.wantRaw || decoded.RawText != tt.wantRawText {
				t.Errorf("raw = %s, raw_text = %q, want %s, %q", decoded.Raw, decoded.RawText, tt.wantRaw, tt.wantRawText)
			}
		})
	}
}

func TestContentMap_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		content TimelineItemContent
		kind    string
		item    string
	}{
		{"hidden", &MsgLikeContent{Kind: Hidden{}}, KindMsgLike, KindHidden},
		{"redacted", &MsgLikeContent{Kind: Redacted{}}, KindMsgLike, KindRedacted},
		{"utd", &MsgLikeContent{Kind: UnableToDecrypt{SessionID: "s"}}, KindMsgLike, KindUnableToDecrypt},
		{"state", &OtherState{EventType: "m.room.topic", Content: json.RawMessage(`{}`)}, KindOtherState, KindOtherState},
		{"failed", &FailedToParseMessageLike{EventType: "m.x", Err: errors.New("bad")}, KindFailedToParseMessageLike, KindFailedToParseMessageLike},
		{"failed state", &FailedToParseState{EventType: "m.y", Err: errors.New("bad")}, KindFailedToParseState, KindFailedToParseState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ContentMap(tt.content)
			if m["kind"] != tt.kind {
				t.Errorf("ContentMap() kind = %v, want %v", m["kind"], tt.kind)
			}
			if got := ItemKind(tt.content); got != tt.item {
				t.Errorf("ItemKind() = %q, want %q", got, tt.item)
			}
		})
	}
}

func TestContentMap_ReplyCycle(t *testing.T) {
	a := &MsgLikeContent{Kind: Message{}, InReplyTo: &InReplyToDetails{EventID: "$b"}}
	b := &MsgLikeContent{Kind: Message{}, InReplyTo: &InReplyToDetails{EventID: "$a"}}
	a.InReplyTo.Event = &RepliedToEvent{Content: b}
	b.InReplyTo.Event = &RepliedToEvent{Content: a}

	if _, err := json.Marshal(TimelineEvent{Content: a}); err != nil {
		t.Errorf("json.Marshal() of reply cycle error = %v", err)
	}
}
