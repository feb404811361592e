package internal

import (
	"context"
	"encoding/json"
	"errors"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Decryptor opens m.room.encrypted events. The returned payload is the
// plaintext event: at least "type" and "content".
type Decryptor interface {
	Decrypt(ctx context.Context, roomID id.RoomID, raw json.RawMessage) (json.RawMessage, error)
}

// ErrNoDecryptor is the UnableToDecrypt reason when no Decryptor is set.
var ErrNoDecryptor = errors.New("no decryptor configured")

type relationKind int

const (
	relNone relationKind = iota
	relAnnotation
	relReplace
	relRedaction
)

// relation is what an event says about another event in the batch.
type relation struct {
	kind       relationKind
	target     id.EventID
	key        string
	newContent *event.MessageEventContent
}

// classification is a classified event plus what the relation pass needs.
type classification struct {
	header  eventHeader
	content TimelineItemContent
	rel     relation
	// editedAt is the timestamp of a bundled edit that was already applied
	editedAt int64
}

type encryptedContent struct {
	Algorithm string `json:"algorithm"`
	SessionID string `json:"session_id"`
	SenderKey string `json:"sender_key"`
	DeviceID  string `json:"device_id"`
}

type redactionContent struct {
	Redacts id.EventID `json:"redacts"`
}

// bundledEdit is the unsigned m.relations.m.replace aggregation. Older
// servers send only the event_id, origin_server_ts and sender.
type bundledEdit struct {
	EventID   id.EventID                 `json:"event_id"`
	Sender    id.UserID                  `json:"sender"`
	Timestamp int64                      `json:"origin_server_ts"`
	Content   *event.MessageEventContent `json:"content"`
}

// Classifier maps raw events onto TimelineItemContent.
type Classifier struct {
	decryptor Decryptor
}

// NewClassifier creates a classifier. decryptor may be nil, in which case
// every encrypted event classifies as UnableToDecrypt.
func NewClassifier(decryptor Decryptor) *Classifier {
	return &Classifier{decryptor: decryptor}
}

// Classify maps one raw event to its content. Malformed events become
// FailedToParseMessageLike or FailedToParseState; the only error is
// *UnsupportedEventError for message-like types without a mapping.
func (c *Classifier) Classify(ctx context.Context, roomID id.RoomID, raw json.RawMessage) (TimelineItemContent, error) {
	cl, err := c.classify(ctx, roomID, raw)
	if err != nil {
		return nil, err
	}
	return cl.content, nil
}

// classify always returns a classification with whatever header could be
// read, even alongside an error.
func (c *Classifier) classify(ctx context.Context, roomID id.RoomID, raw json.RawMessage) (*classification, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		hdr := peekHeader(raw)
		return &classification{header: hdr, content: failedContent(hdr, err)}, nil
	}
	hdr := env.header()
	if hdr.isState() {
		cl := &classification{header: hdr}
		if err := requireObject(env.Content); err != nil {
			cl.content = failedContent(hdr, err)
		} else {
			cl.content = &OtherState{EventType: env.Type, StateKey: *env.StateKey, Content: env.Content}
		}
		return cl, nil
	}
	return c.classifyMessageLike(ctx, roomID, env)
}

// failedContent wraps err in the failure arm matching the event's kind.
func failedContent(hdr eventHeader, err error) TimelineItemContent {
	perr := &ParseError{EventType: hdr.Type, EventID: hdr.EventID, Err: err}
	if hdr.isState() {
		return &FailedToParseState{EventType: hdr.Type, StateKey: *hdr.StateKey, Err: perr}
	}
	return &FailedToParseMessageLike{EventType: hdr.Type, Err: perr}
}

func (c *Classifier) classifyMessageLike(ctx context.Context, roomID id.RoomID, env *rawEnvelope) (*classification, error) {
	hdr := env.header()
	cl := &classification{header: hdr}

	switch env.Type {
	case event.EventMessage.Type:
		if env.isRedacted() {
			cl.content = &MsgLikeContent{Kind: Redacted{}}
			return cl, nil
		}
		c.classifyRoomMessage(cl, env)

	case event.EventReaction.Type:
		var content event.ReactionEventContent
		if !env.isRedacted() {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				cl.content = failedContent(hdr, err)
				return cl, nil
			}
			rel := content.RelatesTo
			if rel.Type == event.RelAnnotation && rel.EventID != "" && rel.Key != "" {
				cl.rel = relation{kind: relAnnotation, target: rel.EventID, key: rel.Key}
			}
		}
		cl.content = &MsgLikeContent{Kind: Hidden{}}

	case event.EventRedaction.Type:
		target := env.Redacts
		if target == "" && isPresent(env.Content) {
			var content redactionContent
			if err := json.Unmarshal(env.Content, &content); err == nil {
				target = content.Redacts
			}
		}
		if target != "" && !env.isRedacted() {
			cl.rel = relation{kind: relRedaction, target: target}
		}
		cl.content = &MsgLikeContent{Kind: Hidden{}}

	case event.EventEncrypted.Type:
		if env.isRedacted() {
			cl.content = &MsgLikeContent{Kind: Redacted{}}
			return cl, nil
		}
		return c.classifyEncrypted(ctx, roomID, env)

	default:
		return cl, &UnsupportedEventError{EventType: env.Type, EventID: env.EventID}
	}
	return cl, nil
}

func (c *Classifier) classifyRoomMessage(cl *classification, env *rawEnvelope) {
	var content event.MessageEventContent
	if err := json.Unmarshal(env.Content, &content); err != nil {
		cl.content = failedContent(cl.header, err)
		return
	}
	if content.MsgType == "" {
		cl.content = failedContent(cl.header, ErrMissingMsgType)
		return
	}

	var replacement *event.MessageEventContent
	if edit := parseBundledEdit(env); edit != nil {
		replacement = edit.Content.NewContent
		cl.editedAt = edit.Timestamp
	}

	ml := &MsgLikeContent{Kind: MessageFromEvent(&content, replacement)}
	if rel := content.RelatesTo; rel != nil {
		switch rel.Type {
		case event.RelThread:
			ml.ThreadRoot = rel.EventID
		case event.RelReplace:
			if rel.EventID != "" && content.NewContent != nil {
				cl.rel = relation{kind: relReplace, target: rel.EventID, newContent: content.NewContent}
			}
		}
		if rel.InReplyTo != nil && rel.InReplyTo.EventID != "" && !rel.IsFallingBack {
			ml.InReplyTo = &InReplyToDetails{EventID: rel.InReplyTo.EventID}
		}
	}
	cl.content = ml
}

// parseBundledEdit returns the bundled edit if it is usable: it must carry
// m.new_content and come from the original sender.
func parseBundledEdit(env *rawEnvelope) *bundledEdit {
	raw := env.bundledReplace()
	if raw == nil {
		return nil
	}
	var edit bundledEdit
	if err := json.Unmarshal(raw, &edit); err != nil {
		LogDebug("ignoring malformed bundled edit on %s: %v", env.EventID, err)
		return nil
	}
	if edit.Content == nil || edit.Content.NewContent == nil {
		return nil
	}
	if edit.Sender != "" && edit.Sender != env.Sender {
		return nil
	}
	return &edit
}

func (c *Classifier) classifyEncrypted(ctx context.Context, roomID id.RoomID, env *rawEnvelope) (*classification, error) {
	cl := &classification{header: env.header()}

	var enc encryptedContent
	if err := json.Unmarshal(env.Content, &enc); err != nil {
		cl.content = failedContent(cl.header, err)
		return cl, nil
	}
	utd := UnableToDecrypt{
		Algorithm: enc.Algorithm,
		SessionID: enc.SessionID,
		SenderKey: enc.SenderKey,
		DeviceID:  enc.DeviceID,
	}

	// A decrypted payload has no raw bytes of its own.
	if env.raw == nil {
		utd.Reason = "decrypted payload is itself encrypted"
		cl.content = &MsgLikeContent{Kind: utd}
		return cl, nil
	}
	if c.decryptor == nil {
		utd.Reason = ErrNoDecryptor.Error()
		cl.content = &MsgLikeContent{Kind: utd}
		return cl, nil
	}

	plain, err := c.decryptor.Decrypt(ctx, roomID, env.raw)
	if err != nil {
		LogDebug("unable to decrypt %s: %v", env.EventID, err)
		utd.Reason = err.Error()
		cl.content = &MsgLikeContent{Kind: utd}
		return cl, nil
	}

	var inner rawEnvelope
	if err := json.Unmarshal(plain, &inner); err != nil || inner.Type == "" {
		if err == nil {
			err = ErrMissingEventType
		}
		utd.Reason = "malformed plaintext: " + err.Error()
		cl.content = &MsgLikeContent{Kind: utd}
		return cl, nil
	}

	// The plaintext only carries type and content; the envelope stays outer.
	merged := *env
	merged.Type = inner.Type
	merged.Content = inner.Content
	merged.raw = nil
	return c.classifyMessageLike(ctx, roomID, &merged)
}
