package internal

import (
	"fmt"
	"strings"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/format"
)

// UnknownTime is shown for events without a usable timestamp
const UnknownTime = "Unknown Time"

// FormatTimestamp renders a millisecond timestamp in UTC
func FormatTimestamp(ms int64) string {
	if ms <= 0 {
		return UnknownTime
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

// MessageText returns the plain-text form of a message, preferring the
// formatted body when there is one.
func MessageText(c MessageContent) string {
	if html, ok := c.FormattedHTML(); ok {
		return strings.TrimSpace(format.HTMLToText(html))
	}
	switch c.Shape() {
	case event.MsgImage, event.MsgVideo, event.MsgAudio, event.MsgFile:
		name := c.FileName
		if name == "" {
			name = c.Body
		}
		if caption, ok := c.Caption(); ok {
			return fmt.Sprintf("[%s] %s", name, caption)
		}
		return fmt.Sprintf("[%s]", name)
	case event.MsgLocation:
		return fmt.Sprintf("%s (%s)", c.Body, c.GeoURI)
	}
	return c.Body
}

// SummarizeContent is a one-line plain-text rendering of content. Hidden
// items summarize to the empty string.
func SummarizeContent(c TimelineItemContent) string {
	switch c := c.(type) {
	case *MsgLikeContent:
		switch k := c.Kind.(type) {
		case Message:
			text := MessageText(k.MsgType)
			if k.MsgType.Shape() == event.MsgEmote {
				text = "* " + text
			}
			if k.Edited {
				text += " (edited)"
			}
			return text
		case Redacted:
			return "(message deleted)"
		case UnableToDecrypt:
			return "(unable to decrypt: " + k.Reason + ")"
		}
		return ""
	case *OtherState:
		return fmt.Sprintf("(%s changed)", c.EventType)
	case *FailedToParseMessageLike:
		return fmt.Sprintf("(unreadable %s event: %v)", c.EventType, c.Err)
	case *FailedToParseState:
		return fmt.Sprintf("(unreadable %s state: %v)", c.EventType, c.Err)
	}
	return ""
}

// IsHidden reports whether content has no visible rendering
func IsHidden(c TimelineItemContent) bool {
	ml, ok := c.(*MsgLikeContent)
	if !ok {
		return false
	}
	_, hidden := ml.Kind.(Hidden)
	return hidden
}
