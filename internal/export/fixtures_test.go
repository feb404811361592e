package export

import (
	"encoding/json"
	"errors"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/JadedBlueEyes/libretto/internal"
)

func textContent(body string) *internal.MsgLikeContent {
	return &internal.MsgLikeContent{Kind: internal.Message{
		MsgType: internal.MessageContent{Type: event.MsgText, Body: body},
	}}
}

// sampleExport is a small lounge history: a state event, a message with a
// reaction, a reply, a hidden reaction event and an unreadable event.
func sampleExport() *internal.RoomExport {
	hello := textContent("hello **world**")
	hello.Reactions.Add("👍", "@bob:example.org", 1700000002000)

	reply := textContent("hi back")
	reply.InReplyTo = &internal.InReplyToDetails{
		EventID: "$hello",
		Event: &internal.RepliedToEvent{
			Content:       textContent("hello **world**"),
			Sender:        "@alice:example.org",
			SenderProfile: &internal.Profile{DisplayName: "Alice"},
		},
	}

	return &internal.RoomExport{
		Room: internal.RoomInfo{
			ID:             "!lounge:example.org",
			Name:           "Lounge",
			CanonicalAlias: "#lounge:example.org",
		},
		EndOfTimeline: true,
		ExportedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Events: []internal.TimelineEvent{
			{
				EventID:   "$create",
				Sender:    "@alice:example.org",
				Timestamp: 1700000000000,
				Content: &internal.OtherState{
					EventType: "m.room.create",
					Content:   json.RawMessage(`{"room_version":"10"}`),
				},
				Raw: json.RawMessage(`{"type":"m.room.create","state_key":""}`),
			},
			{
				EventID:       "$hello",
				Sender:        "@alice:example.org",
				SenderProfile: &internal.Profile{DisplayName: "Alice"},
				Timestamp:     1700000001000,
				Content:       hello,
				Raw:           json.RawMessage(`{"type":"m.room.message"}`),
			},
			{
				EventID:       "$hi",
				Sender:        "@bob:example.org",
				SenderProfile: &internal.Profile{DisplayName: "Sam", DisplayNameAmbiguous: true},
				Timestamp:     1700000003000,
				Content:       reply,
				Raw:           json.RawMessage(`{"type":"m.room.message"}`),
			},
			{
				EventID:   "$thumbs",
				Sender:    "@bob:example.org",
				Timestamp: 1700000002000,
				Content:   &internal.MsgLikeContent{Kind: internal.Hidden{}},
				Raw:       json.RawMessage(`{"type":"m.reaction"}`),
			},
			{
				EventID:   "$odd",
				Sender:    "@carol:example.org",
				Timestamp: 1700000004000,
				Content: &internal.FailedToParseMessageLike{
					EventType: "m.room.message",
					Err:       errors.New("missing msgtype"),
				},
				Raw: json.RawMessage(`{"type":"m.room.message","content":{}}`),
			},
		},
	}
}
