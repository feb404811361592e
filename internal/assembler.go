package internal

import (
	"context"
	"encoding/json"
	"errors"

	"maunium.net/go/mautrix/id"
)

// EventFetcher loads single events by ID, for replies outside the batch.
type EventFetcher interface {
	Event(ctx context.Context, roomID id.RoomID, eventID id.EventID) (json.RawMessage, error)
}

// Batch is one page of history as returned by backward pagination.
type Batch struct {
	// Events are newest first
	Events []json.RawMessage
	// End is the token for the next older page, empty when there is none
	End string
}

// Timeline is an assembled batch, oldest first.
type Timeline struct {
	Events        []TimelineEvent
	EndOfTimeline bool
	End           string
}

// AssembleOptions control how the Assembler reacts to per-event failures.
type AssembleOptions struct {
	// Strict aborts the whole batch on the first unsupported event
	// instead of emitting it as FailedToParseMessageLike.
	Strict bool
}

// Assembler turns batches of raw events into Timelines.
type Assembler struct {
	classifier *Classifier
	profiles   *ProfileEnricher
	opts       AssembleOptions
}

// NewAssembler creates an Assembler.
func NewAssembler(classifier *Classifier, profiles *ProfileEnricher, opts AssembleOptions) *Assembler {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	if profiles == nil {
		profiles = NewProfileEnricher()
	}
	return &Assembler{classifier: classifier, profiles: profiles, opts: opts}
}

// entry is an event on its way through assembly.
type entry struct {
	event    TimelineEvent
	rel      relation
	editedAt int64
	// folded entries were merged into another event and are not emitted
	folded bool
}

// Assemble builds a Timeline from batch. The result is in chronological
// order with one event per input, minus edits folded into their targets.
// Only cancellation (and, with Strict, an unsupported event) fails the batch.
func (a *Assembler) Assemble(ctx context.Context, batch Batch, room *RoomContext) (*Timeline, error) {
	var roomID id.RoomID
	var encrypted bool
	if room != nil {
		roomID = room.RoomID
		encrypted = room.Encrypted
	}

	entries := make([]*entry, 0, len(batch.Events))
	for i := len(batch.Events) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, &AssemblyError{RoomID: roomID, Err: err}
		}
		raw := batch.Events[i]

		cl, err := a.classifier.classify(ctx, roomID, raw)
		if err != nil {
			if a.opts.Strict {
				return nil, &AssemblyError{RoomID: roomID, Err: err}
			}
			LogWarn("%v", err)
			cl.content = &FailedToParseMessageLike{EventType: cl.header.Type, Err: err}
		}

		ev := TimelineEvent{
			EventID:         cl.header.EventID,
			Sender:          cl.header.Sender,
			Timestamp:       cl.header.Timestamp,
			Content:         cl.content,
			IsRoomEncrypted: encrypted,
			Raw:             append(json.RawMessage(nil), raw...),
		}
		ev.SenderProfile = a.profiles.Resolve(ctx, ev.Sender, room)

		entries = append(entries, &entry{event: ev, rel: cl.rel, editedAt: cl.editedAt})
	}

	index := foldRelations(entries)
	if err := a.resolveReplies(ctx, entries, index, room); err != nil {
		return nil, &AssemblyError{RoomID: roomID, Err: err}
	}

	events := make([]TimelineEvent, 0, len(entries))
	for _, e := range entries {
		if !e.folded {
			events = append(events, e.event)
		}
	}
	return &Timeline{
		Events:        events,
		EndOfTimeline: batch.End == "",
		End:           batch.End,
	}, nil
}

// resolveReplies fills in replied-to events, from the batch first and then
// from room.Events. Failed lookups leave the reply unresolved.
func (a *Assembler) resolveReplies(ctx context.Context, entries []*entry, index map[id.EventID]*entry, room *RoomContext) error {
	for _, e := range entries {
		ml, ok := e.event.Content.(*MsgLikeContent)
		if !ok || ml.InReplyTo == nil || ml.InReplyTo.Event != nil {
			continue
		}
		if target, ok := index[ml.InReplyTo.EventID]; ok && !target.folded {
			ml.InReplyTo.Event = &RepliedToEvent{
				Content:       target.event.Content,
				Sender:        target.event.Sender,
				SenderProfile: target.event.SenderProfile,
			}
			continue
		}
		if room == nil || room.Events == nil {
			continue
		}
		replied, err := a.fetchRepliedTo(ctx, ml.InReplyTo.EventID, room)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			LogDebug("reply target %s of %s unavailable: %v", ml.InReplyTo.EventID, e.event.EventID, err)
			continue
		}
		ml.InReplyTo.Event = replied
	}
	return nil
}

func (a *Assembler) fetchRepliedTo(ctx context.Context, eventID id.EventID, room *RoomContext) (*RepliedToEvent, error) {
	raw, err := room.Events.Event(ctx, room.RoomID, eventID)
	if err != nil {
		return nil, err
	}
	cl, err := a.classifier.classify(ctx, room.RoomID, raw)
	if err != nil {
		var unsupported *UnsupportedEventError
		if !errors.As(err, &unsupported) {
			return nil, err
		}
		cl.content = &FailedToParseMessageLike{EventType: cl.header.Type, Err: err}
	}
	return &RepliedToEvent{
		Content:       cl.content,
		Sender:        cl.header.Sender,
		SenderProfile: a.profiles.Resolve(ctx, cl.header.Sender, room),
	}, nil
}
