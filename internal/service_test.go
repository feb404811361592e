package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/JadedBlueEyes/libretto/testutil"
)

func newTestService(t *testing.T) *RoomService {
	t.Helper()
	s := newTestStore(t)
	dump := testDump(t, 5)
	dump.Events = append(dump.Events,
		testutil.Reaction(t, "$r", string(bob), 6000, "$1", "👍"),
		testutil.Edit(t, "$e", string(alice), 7000, "$1", "first, edited"),
	)
	importDump(t, s, dump)
	assembler := NewAssembler(NewClassifier(s), NewProfileEnricher(), AssembleOptions{})
	return NewRoomService(s, s, s, NewCachedDirectory(s), assembler)
}

func TestRoomService_Timeline(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Timeline(ctx, "#test:example.org", "", 3)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if page.Room.ID != testRoom {
		t.Errorf("Timeline() room = %s, want %s", page.Room.ID, testRoom)
	}
	if page.Timeline.EndOfTimeline || page.Timeline.End == "" {
		t.Errorf("Timeline() first page should have more history, got %+v", page.Timeline)
	}
	for _, ev := range page.Timeline.Events {
		if !ev.IsRoomEncrypted {
			t.Errorf("event %s IsRoomEncrypted = false", ev.EventID)
		}
	}

	next, err := svc.Timeline(ctx, string(testRoom), page.Timeline.End, 100)
	if err != nil {
		t.Fatalf("Timeline(next) error = %v", err)
	}
	if !next.Timeline.EndOfTimeline {
		t.Error("Timeline(next) should reach the start of history")
	}
}

func TestRoomService_TimelineUnknownRoom(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Timeline(context.Background(), "#nope:example.org", "", 10); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Timeline() error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomService_History(t *testing.T) {
	svc := newTestService(t)

	pages := 0
	export, err := svc.History(context.Background(), string(testRoom), 2, func(int) { pages++ })
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if pages != 4 {
		t.Errorf("History() pages = %d, want 4", pages)
	}
	if !export.EndOfTimeline {
		t.Error("History() EndOfTimeline = false")
	}
	// Five messages and the reaction; the edit folds into $1 across pages.
	if len(export.Events) != 6 {
		t.Fatalf("History() = %d events, want 6", len(export.Events))
	}
	first := export.Events[0]
	msg, ok := AsMessage(first.Content)
	if !ok || !msg.Edited || msg.MsgType.Body != "first, edited" {
		t.Errorf("first event = %+v, want edited message", msg)
	}
	if first.Content.(*MsgLikeContent).Reactions.Count("👍") != 1 {
		t.Error("reaction from a later page was not folded")
	}
	if first.SenderProfile == nil || first.SenderProfile.DisplayName != "Alice" {
		t.Errorf("first event profile = %+v", first.SenderProfile)
	}
}

func TestRoomService_RoomList(t *testing.T) {
	svc := newTestService(t)
	list, err := svc.RoomList(context.Background())
	if err != nil {
		t.Fatalf("RoomList() error = %v", err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].Name != "Test Room" {
		t.Errorf("RoomList() = %+v", list.Rooms)
	}
}
