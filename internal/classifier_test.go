package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/JadedBlueEyes/libretto/testutil"
)

const testRoom id.RoomID = "!room:example.org"

type fakeDecryptor struct {
	plaintext map[string]json.RawMessage
	err       error
}

func (d *fakeDecryptor) Decrypt(_ context.Context, _ id.RoomID, raw json.RawMessage) (json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	var env struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	plain, ok := d.plaintext[env.EventID]
	if !ok {
		return nil, errors.New("unknown session")
	}
	return plain, nil
}

func classify(t *testing.T, c *Classifier, raw json.RawMessage) TimelineItemContent {
	t.Helper()
	content, err := c.Classify(context.Background(), testRoom, raw)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return content
}

func requireMsgLike(t *testing.T, content TimelineItemContent) *MsgLikeContent {
	t.Helper()
	ml, ok := content.(*MsgLikeContent)
	if !ok {
		t.Fatalf("content = %T, want *MsgLikeContent", content)
	}
	return ml
}

func TestClassify_TextMessage(t *testing.T) {
	c := NewClassifier(nil)
	content := classify(t, c, testutil.TextMessage(t, "$a", "@alice:example.org", 1, "hello"))

	msg, ok := AsMessage(content)
	if !ok {
		t.Fatalf("Classify() = %T, want message", content)
	}
	if msg.MsgType.Body != "hello" || msg.MsgType.Type != event.MsgText {
		t.Errorf("Classify() message = %+v, want text 'hello'", msg.MsgType)
	}
	if msg.Edited {
		t.Error("Classify() message should not be edited")
	}
}

func TestClassify_HTMLMessageSanitized(t *testing.T) {
	c := NewClassifier(nil)
	content := classify(t, c, testutil.HTMLMessage(t, "$h", "@alice:example.org", 1,
		"hi", `<script>alert(1)</script><b>hi</b>`))

	msg, ok := AsMessage(content)
	if !ok {
		t.Fatalf("Classify() = %T, want message", content)
	}
	html, ok := msg.MsgType.FormattedHTML()
	if !ok || html != "<b>hi</b>" {
		t.Errorf("FormattedHTML() = %q, %v, want <b>hi</b>, true", html, ok)
	}
}

func TestClassify_SingleLineQuoteKept(t *testing.T) {
	c := NewClassifier(nil)
	body := "> <@alice:example.org> hi there"
	msg, ok := AsMessage(classify(t, c, testutil.TextMessage(t, "$q", string(bob), 1, body)))
	if !ok || msg.MsgType.Body != body {
		t.Errorf("Classify() body = %q, want %q", msg.MsgType.Body, body)
	}
}

func TestClassify_Failures(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name      string
		raw       string
		wantState bool
	}{
		{"invalid json", `{not json`, false},
		{"missing type", `{"event_id":"$x","sender":"@a:b","content":{}}`, false},
		{"missing msgtype", `{"type":"m.room.message","event_id":"$x","sender":"@a:b","content":{"body":"x"}}`, false},
		{"wrong body type", `{"type":"m.room.message","event_id":"$x","sender":"@a:b","content":{"msgtype":"m.text","body":5}}`, false},
		{"malformed reaction", `{"type":"m.reaction","event_id":"$x","sender":"@a:b","content":{"m.relates_to":"nope"}}`, false},
		{"state with non-object content", `{"type":"m.room.name","event_id":"$x","sender":"@a:b","state_key":"","content":"x"}`, true},
		{"state with malformed state key", `{"type":"m.room.member","event_id":"$x","sender":"@a:b","state_key":5,"content":{}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := classify(t, c, json.RawMessage(tt.raw))
			if tt.wantState {
				if _, ok := content.(*FailedToParseState); !ok {
					t.Errorf("Classify() = %T, want *FailedToParseState", content)
				}
				return
			}
			if _, ok := content.(*FailedToParseMessageLike); !ok {
				t.Errorf("Classify() = %T, want *FailedToParseMessageLike", content)
			}
		})
	}
}

func TestClassify_MissingMsgTypeError(t *testing.T) {
	c := NewClassifier(nil)
	raw := json.RawMessage(`{"type":"m.room.message","event_id":"$x","sender":"@a:b","content":{"body":"x"}}`)
	content := classify(t, c, raw)

	failed, ok := content.(*FailedToParseMessageLike)
	if !ok {
		t.Fatalf("Classify() = %T, want *FailedToParseMessageLike", content)
	}
	if !errors.Is(failed.Err, ErrMissingMsgType) {
		t.Errorf("Classify() err = %v, want ErrMissingMsgType", failed.Err)
	}
	var perr *ParseError
	if !errors.As(failed.Err, &perr) || perr.EventID != "$x" {
		t.Errorf("Classify() err = %v, want *ParseError for $x", failed.Err)
	}
}

func TestClassify_OtherState(t *testing.T) {
	c := NewClassifier(nil)
	raw := testutil.StateEvent(t, "m.room.topic", "$t", "@alice:example.org", 1, "", map[string]interface{}{"topic": "hi"})
	content := classify(t, c, raw)

	state, ok := content.(*OtherState)
	if !ok {
		t.Fatalf("Classify() = %T, want *OtherState", content)
	}
	if state.EventType != "m.room.topic" || state.StateKey != "" {
		t.Errorf("Classify() state = %+v", state)
	}
	if string(state.Content) != `{"topic":"hi"}` {
		t.Errorf("Classify() state content = %s", state.Content)
	}
}

func TestClassify_HiddenAndRedacted(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		raw  json.RawMessage
		want MsgLikeKind
	}{
		{"reaction", testutil.Reaction(t, "$r", "@bob:example.org", 1, "$a", "👍"), Hidden{}},
		{"redaction", testutil.Redaction(t, "$d", "@bob:example.org", 1, "$a"), Hidden{}},
		{"redacted message", testutil.RedactedMessage(t, "$m", "@bob:example.org", 1), Redacted{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ml := requireMsgLike(t, classify(t, c, tt.raw))
			if ml.Kind != tt.want {
				t.Errorf("Classify() kind = %#v, want %#v", ml.Kind, tt.want)
			}
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	c := NewClassifier(nil)
	raw := testutil.Event(t, "m.sticker", "$s", "@alice:example.org", 1, map[string]interface{}{"body": "sticker"})

	_, err := c.Classify(context.Background(), testRoom, raw)
	var unsupported *UnsupportedEventError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Classify() error = %v, want *UnsupportedEventError", err)
	}
	if unsupported.EventType != "m.sticker" {
		t.Errorf("UnsupportedEventError.EventType = %q, want m.sticker", unsupported.EventType)
	}
}

func TestClassify_UnknownMsgType(t *testing.T) {
	c := NewClassifier(nil)
	raw := testutil.Event(t, "m.room.message", "$x", "@alice:example.org", 1, map[string]interface{}{
		"msgtype": "org.example.poll",
		"body":    "what for lunch?",
	})

	msg, ok := AsMessage(classify(t, c, raw))
	if !ok {
		t.Fatal("Classify() should produce a message for unknown msgtypes")
	}
	if msg.MsgType.Type != "org.example.poll" || msg.MsgType.Shape() != event.MsgText {
		t.Errorf("Classify() msgtype = %q shape %q", msg.MsgType.Type, msg.MsgType.Shape())
	}
}

func TestClassify_BundledEdit(t *testing.T) {
	c := NewClassifier(nil)
	edit := func(sender string) json.RawMessage {
		return testutil.JSONMarshal(t, map[string]interface{}{
			"type":             "m.room.message",
			"event_id":         "$orig",
			"sender":           "@alice:example.org",
			"origin_server_ts": 1,
			"content":          map[string]interface{}{"msgtype": "m.text", "body": "helo"},
			"unsigned": map[string]interface{}{
				"m.relations": map[string]interface{}{
					"m.replace": map[string]interface{}{
						"event_id":         "$edit",
						"sender":           sender,
						"origin_server_ts": 5,
						"content": map[string]interface{}{
							"msgtype":       "m.text",
							"body":          "* hello",
							"m.new_content": map[string]interface{}{"msgtype": "m.text", "body": "hello"},
						},
					},
				},
			},
		})
	}

	msg, _ := AsMessage(classify(t, c, edit("@alice:example.org")))
	if !msg.Edited || msg.MsgType.Body != "hello" {
		t.Errorf("bundled edit by sender = %+v, want edited 'hello'", msg)
	}

	msg, _ = AsMessage(classify(t, c, edit("@mallory:example.org")))
	if msg.Edited || msg.MsgType.Body != "helo" {
		t.Errorf("bundled edit by other user = %+v, want unedited 'helo'", msg)
	}
}

func TestClassify_ReplyAndThread(t *testing.T) {
	c := NewClassifier(nil)

	ml := requireMsgLike(t, classify(t, c, testutil.Reply(t, "$r", "@bob:example.org", 2, "yes", "$q")))
	if ml.InReplyTo == nil || ml.InReplyTo.EventID != "$q" {
		t.Errorf("reply InReplyTo = %+v, want $q", ml.InReplyTo)
	}
	if ml.InReplyTo != nil && ml.InReplyTo.Event != nil {
		t.Error("reply should not be resolved by the classifier")
	}

	thread := testutil.Event(t, "m.room.message", "$t", "@bob:example.org", 3, map[string]interface{}{
		"msgtype": "m.text",
		"body":    "in thread",
		"m.relates_to": map[string]interface{}{
			"rel_type":        "m.thread",
			"event_id":        "$root",
			"is_falling_back": true,
			"m.in_reply_to":   map[string]interface{}{"event_id": "$prev"},
		},
	})
	ml = requireMsgLike(t, classify(t, c, thread))
	if ml.ThreadRoot != "$root" {
		t.Errorf("thread root = %q, want $root", ml.ThreadRoot)
	}
	if ml.InReplyTo != nil {
		t.Errorf("thread fallback reply should be ignored, got %+v", ml.InReplyTo)
	}
}

func TestClassify_Encrypted(t *testing.T) {
	raw := testutil.Encrypted(t, "$e", "@alice:example.org", 1, "session1")

	t.Run("no decryptor", func(t *testing.T) {
		ml := requireMsgLike(t, classify(t, NewClassifier(nil), raw))
		utd, ok := ml.Kind.(UnableToDecrypt)
		if !ok {
			t.Fatalf("kind = %T, want UnableToDecrypt", ml.Kind)
		}
		if utd.SessionID != "session1" || utd.Algorithm != "m.megolm.v1.aes-sha2" {
			t.Errorf("UnableToDecrypt = %+v", utd)
		}
		if utd.Reason != ErrNoDecryptor.Error() {
			t.Errorf("UnableToDecrypt.Reason = %q", utd.Reason)
		}
	})

	t.Run("decryptor error", func(t *testing.T) {
		c := NewClassifier(&fakeDecryptor{err: errors.New("withheld")})
		ml := requireMsgLike(t, classify(t, c, raw))
		utd, ok := ml.Kind.(UnableToDecrypt)
		if !ok || utd.Reason != "withheld" {
			t.Errorf("kind = %#v, want UnableToDecrypt(withheld)", ml.Kind)
		}
	})

	t.Run("decrypted", func(t *testing.T) {
		c := NewClassifier(&fakeDecryptor{plaintext: map[string]json.RawMessage{
			"$e": json.RawMessage(`{"type":"m.room.message","content":{"msgtype":"m.text","body":"secret"}}`),
		}})
		msg, ok := AsMessage(classify(t, c, raw))
		if !ok || msg.MsgType.Body != "secret" {
			t.Errorf("decrypted = %+v, want message 'secret'", msg)
		}
	})

	t.Run("nested encryption", func(t *testing.T) {
		c := NewClassifier(&fakeDecryptor{plaintext: map[string]json.RawMessage{
			"$e": json.RawMessage(`{"type":"m.room.encrypted","content":{"algorithm":"x"}}`),
		}})
		ml := requireMsgLike(t, classify(t, c, raw))
		if _, ok := ml.Kind.(UnableToDecrypt); !ok {
			t.Errorf("kind = %T, want UnableToDecrypt", ml.Kind)
		}
	})
}
