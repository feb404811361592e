package internal

import (
	"context"
	"encoding/json"
	"time"

	"maunium.net/go/mautrix/id"
)

// DefaultPageLimit is the number of events fetched per backward page
const DefaultPageLimit = 100

// RoomStore is the room metadata a RoomService needs
type RoomStore interface {
	Room(ctx context.Context, roomID id.RoomID) (*RoomInfo, error)
	Rooms(ctx context.Context) ([]RoomInfo, error)
	ResolveRoom(ctx context.Context, idOrAlias string) (id.RoomID, error)
}

// RoomPage is one assembled page of a room's history
type RoomPage struct {
	Room     RoomInfo
	Timeline *Timeline
}

// RoomExport is a room's full history, oldest first
type RoomExport struct {
	Room          RoomInfo        `json:"room" yaml:"room"`
	Events        []TimelineEvent `json:"events" yaml:"-"`
	EndOfTimeline bool            `json:"end_of_timeline" yaml:"end_of_timeline"`
	ExportedAt    time.Time       `json:"exported_at" yaml:"exported_at"`
}

// RoomService assembles room timelines from stored history
type RoomService struct {
	rooms     RoomStore
	source    EventSource
	events    EventFetcher
	members   MemberDirectory
	assembler *Assembler
}

// NewRoomService creates a RoomService. events and members may be nil.
func NewRoomService(rooms RoomStore, source EventSource, events EventFetcher, members MemberDirectory, assembler *Assembler) *RoomService {
	return &RoomService{
		rooms:     rooms,
		source:    source,
		events:    events,
		members:   members,
		assembler: assembler,
	}
}

// RoomList returns every stored room sorted by display name
func (s *RoomService) RoomList(ctx context.Context) (*RoomList, error) {
	infos, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	list := NewRoomList(infos)
	list.SortByDisplayNames()
	return list, nil
}

func (s *RoomService) resolve(ctx context.Context, idOrAlias string) (*RoomInfo, *RoomContext, error) {
	roomID, err := s.rooms.ResolveRoom(ctx, idOrAlias)
	if err != nil {
		return nil, nil, err
	}
	info, err := s.rooms.Room(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return info, &RoomContext{
		RoomID:    info.ID,
		Encrypted: info.Encrypted,
		Members:   s.members,
		Events:    s.events,
	}, nil
}

// Timeline assembles one page of history for a room ID or alias, starting
// at from (empty for the newest events)
func (s *RoomService) Timeline(ctx context.Context, idOrAlias, from string, limit int) (*RoomPage, error) {
	info, room, err := s.resolve(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	page, err := s.source.Messages(ctx, info.ID, from, limit)
	if err != nil {
		return nil, err
	}
	tl, err := s.assembler.Assemble(ctx, Batch{Events: page.Chunk, End: page.End}, room)
	if err != nil {
		return nil, err
	}
	return &RoomPage{Room: *info, Timeline: tl}, nil
}

// History pages backward through the whole room and returns it oldest
// first. onPage, if set, is called after each page with the running count.
func (s *RoomService) History(ctx context.Context, idOrAlias string, limit int, onPage func(events int)) (*RoomExport, error) {
	info, room, err := s.resolve(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	// Collect raw events newest first, then assemble once so relations
	// across page boundaries still fold.
	var raw []json.RawMessage
	from := ""
	for {
		page, err := s.source.Messages(ctx, info.ID, from, limit)
		if err != nil {
			return nil, err
		}
		raw = append(raw, page.Chunk...)
		if onPage != nil {
			onPage(len(raw))
		}
		if page.End == "" || len(page.Chunk) == 0 {
			break
		}
		from = page.End
	}

	tl, err := s.assembler.Assemble(ctx, Batch{Events: raw}, room)
	if err != nil {
		return nil, err
	}
	return &RoomExport{
		Room:          *info,
		Events:        NewDeduplicator().Deduplicate(tl.Events),
		EndOfTimeline: tl.EndOfTimeline,
		ExportedAt:    time.Now().UTC(),
	}, nil
}
