package internal

import (
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MsgServerNotice is the msgtype homeservers use for server notices.
const MsgServerNotice event.MessageType = "m.server_notice"

// MessageContent is the displayable part of an m.room.message. Type keeps
// the msgtype as sent; Shape maps it onto the set of shapes we render.
type MessageContent struct {
	Type          event.MessageType   `json:"msgtype"`
	Body          string              `json:"body"`
	FormattedBody string              `json:"formatted_body,omitempty"`
	URL           id.ContentURIString `json:"url,omitempty"`
	FileName      string              `json:"filename,omitempty"`
	GeoURI        string              `json:"geo_uri,omitempty"`
}

// Shape returns the closed-set message shape. Unknown msgtypes render as text.
func (c MessageContent) Shape() event.MessageType {
	switch c.Type {
	case event.MsgText, event.MsgEmote, event.MsgNotice,
		event.MsgImage, event.MsgVideo, event.MsgAudio, event.MsgFile,
		event.MsgLocation, MsgServerNotice:
		return c.Type
	default:
		return event.MsgText
	}
}

// FormattedHTML returns the sanitized HTML body, if this shape carries one.
func (c MessageContent) FormattedHTML() (string, bool) {
	switch c.Shape() {
	case event.MsgLocation, MsgServerNotice:
		return "", false
	}
	if c.FormattedBody == "" {
		return "", false
	}
	return c.FormattedBody, true
}

// Caption returns the caption of a media message. The body of a media
// message is only a caption when a separate filename is present.
func (c MessageContent) Caption() (string, bool) {
	switch c.Shape() {
	case event.MsgImage, event.MsgVideo, event.MsgAudio, event.MsgFile:
		if c.FileName != "" && c.FileName != c.Body {
			return c.Body, true
		}
	}
	return "", false
}

func messageContentOf(c *event.MessageEventContent) MessageContent {
	mc := MessageContent{
		Type:     c.MsgType,
		Body:     c.Body,
		URL:      c.URL,
		FileName: c.FileName,
		GeoURI:   c.GeoURI,
	}
	if c.Format == event.FormatHTML {
		mc.FormattedBody = c.FormattedBody
	}
	return mc
}

// MessageFromEvent builds the Message for an m.room.message. When replacement
// is the latest edit's m.new_content, it is applied on top. The initial
// content has its reply fallback removed.
func MessageFromEvent(initial *event.MessageEventContent, replacement *event.MessageEventContent) Message {
	msg := Message{
		MsgType: SanitizeMessageContent(messageContentOf(initial), true),
	}
	if replacement != nil {
		msg = ApplyEdit(msg, replacement)
	}
	return msg
}

// ApplyEdit returns current with its content replaced by newContent. Edits
// never carry a reply fallback so nothing is stripped from them.
func ApplyEdit(current Message, newContent *event.MessageEventContent) Message {
	if newContent == nil {
		return current
	}
	return Message{
		MsgType: SanitizeMessageContent(messageContentOf(newContent), false),
		Edited:  true,
	}
}
