package internal

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"maunium.net/go/mautrix/id"
)

// RoomListEntry is one row of the room list
type RoomListEntry struct {
	ID           id.RoomID           `json:"room_id" yaml:"room_id"`
	Name         string              `json:"name" yaml:"name"`
	AvatarURL    id.ContentURIString `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	IsEncrypted  bool                `json:"is_encrypted" yaml:"is_encrypted"`
	IsDirect     bool                `json:"is_direct" yaml:"is_direct"`
	UnreadCount  int                 `json:"unread_count" yaml:"unread_count"`
	State        string              `json:"state" yaml:"state"`
	LastActivity int64               `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
	EventCount   int                 `json:"event_count" yaml:"event_count"`
}

// NewRoomListEntry builds an entry from stored room info. Rooms without a
// name fall back to their canonical alias, then their ID.
func NewRoomListEntry(info RoomInfo) RoomListEntry {
	name := info.Name
	if name == "" {
		name = string(info.CanonicalAlias)
	}
	if name == "" {
		name = string(info.ID)
	}
	return RoomListEntry{
		ID:           info.ID,
		Name:         name,
		AvatarURL:    info.AvatarURL,
		IsEncrypted:  info.Encrypted,
		IsDirect:     info.IsDirect,
		UnreadCount:  info.UnreadCount,
		State:        info.Membership,
		LastActivity: info.LastActivity,
		EventCount:   info.EventCount,
	}
}

// NameInitial is the upper-cased first letter of the name, for avatars
func (e RoomListEntry) NameInitial() string {
	name := strings.TrimLeft(e.Name, "#!@")
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// HasUnread reports whether the room has unread messages
func (e RoomListEntry) HasUnread() bool {
	return e.UnreadCount > 0
}

// RoomList is an ordered list of rooms
type RoomList struct {
	Rooms []RoomListEntry `json:"rooms" yaml:"rooms"`
}

// NewRoomList builds a room list from stored rooms
func NewRoomList(infos []RoomInfo) *RoomList {
	list := &RoomList{Rooms: make([]RoomListEntry, 0, len(infos))}
	for _, info := range infos {
		list.AddRoom(NewRoomListEntry(info))
	}
	return list
}

// AddRoom appends a room
func (l *RoomList) AddRoom(entry RoomListEntry) {
	l.Rooms = append(l.Rooms, entry)
}

// GetRoom finds a room by ID
func (l *RoomList) GetRoom(roomID id.RoomID) (RoomListEntry, bool) {
	for _, r := range l.Rooms {
		if r.ID == roomID {
			return r, true
		}
	}
	return RoomListEntry{}, false
}

// SortByDisplayNames orders rooms case-insensitively by name, then ID
func (l *RoomList) SortByDisplayNames() {
	sort.SliceStable(l.Rooms, func(i, j int) bool {
		a, b := strings.ToLower(l.Rooms[i].Name), strings.ToLower(l.Rooms[j].Name)
		if a != b {
			return a < b
		}
		return l.Rooms[i].ID < l.Rooms[j].ID
	})
}

// SortByActivity orders rooms most recently active first
func (l *RoomList) SortByActivity() {
	sort.SliceStable(l.Rooms, func(i, j int) bool {
		return l.Rooms[i].LastActivity > l.Rooms[j].LastActivity
	})
}
