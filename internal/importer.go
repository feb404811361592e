package internal

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"maunium.net/go/mautrix/id"
)

// RoomDump is the on-disk format accepted by Store.ImportRoom: room state
// plus the raw event history, oldest first.
type RoomDump struct {
	RoomID         id.RoomID           `json:"room_id"`
	Name           string              `json:"name,omitempty"`
	CanonicalAlias id.RoomAlias        `json:"canonical_alias,omitempty"`
	Aliases        []id.RoomAlias      `json:"aliases,omitempty"`
	AvatarURL      id.ContentURIString `json:"avatar_url,omitempty"`
	Encrypted      bool                `json:"encrypted"`
	IsDirect       bool                `json:"is_direct"`
	UnreadCount    int                 `json:"unread_count"`
	Membership     string              `json:"membership,omitempty"`
	Members        []DumpMember        `json:"members,omitempty"`
	Events         []json.RawMessage   `json:"events"`
	// Plaintexts are decrypted payloads of encrypted events, by event ID
	Plaintexts map[id.EventID]json.RawMessage `json:"plaintexts,omitempty"`
}

// DumpMember is one member entry of a RoomDump
type DumpMember struct {
	UserID      id.UserID           `json:"user_id"`
	DisplayName string              `json:"display_name,omitempty"`
	AvatarURL   id.ContentURIString `json:"avatar_url,omitempty"`
	Membership  string              `json:"membership,omitempty"`
}

// ImportResult summarizes a RoomDump import
type ImportResult struct {
	RoomID         id.RoomID
	EventsImported int
	EventsSkipped  int
	Members        int
}

// LoadRoomDump reads a RoomDump from a JSON file
func LoadRoomDump(path string) (*RoomDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	var dump RoomDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, &StorageError{Path: path, Op: "parse", Err: err}
	}
	if !strings.HasPrefix(string(dump.RoomID), "!") {
		return nil, &StorageError{Path: path, Op: "parse", Err: errors.Errorf("invalid room_id %q", dump.RoomID)}
	}
	return &dump, nil
}

// ImportRoom stores dump, merging with anything already stored for the
// room. Events already present (by event ID) are skipped.
func (s *Store) ImportRoom(ctx context.Context, dump *RoomDump) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin import")
	}
	defer func() { _ = tx.Rollback() }()

	membership := dump.Membership
	if membership == "" {
		membership = "join"
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (room_id, name, canonical_alias, avatar_url, encrypted, is_direct, unread_count, membership)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (room_id) DO UPDATE SET
			name = excluded.name, canonical_alias = excluded.canonical_alias,
			avatar_url = excluded.avatar_url, encrypted = excluded.encrypted,
			is_direct = excluded.is_direct, unread_count = excluded.unread_count,
			membership = excluded.membership`,
		dump.RoomID, dump.Name, dump.CanonicalAlias, dump.AvatarURL,
		dump.Encrypted, dump.IsDirect, dump.UnreadCount, membership); err != nil {
		return nil, errors.Wrap(err, "save room")
	}

	aliases := dump.Aliases
	if dump.CanonicalAlias != "" {
		aliases = append(aliases, dump.CanonicalAlias)
	}
	for _, alias := range aliases {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO room_aliases (alias, room_id) VALUES (?, ?)`, alias, dump.RoomID); err != nil {
			return nil, errors.Wrapf(err, "save alias %s", alias)
		}
	}

	result := &ImportResult{RoomID: dump.RoomID}
	for _, m := range dump.Members {
		if _, _, err := m.UserID.Parse(); err != nil {
			LogWarn("skipping member with invalid user ID %q: %v", m.UserID, err)
			continue
		}
		memberMembership := m.Membership
		if memberMembership == "" {
			memberMembership = "join"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO members (room_id, user_id, display_name, avatar_url, membership)
			VALUES (?, ?, ?, ?, ?)`,
			dump.RoomID, m.UserID, m.DisplayName, m.AvatarURL, memberMembership); err != nil {
			return nil, errors.Wrapf(err, "save member %s", m.UserID)
		}
		result.Members++
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(stream_ordering), 0) FROM events WHERE room_id = ?`, dump.RoomID).Scan(&next); err != nil {
		return nil, errors.Wrap(err, "read stream position")
	}

	for _, raw := range dump.Events {
		hdr := peekHeader(raw)
		next++
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO events (room_id, stream_ordering, event_id, type, sender, origin_server_ts, json)
			VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?)`,
			dump.RoomID, next, hdr.EventID, hdr.Type, hdr.Sender, hdr.Timestamp, string(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "save event %s", hdr.EventID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.EventsSkipped++
			next--
			continue
		}
		result.EventsImported++
	}

	for eventID, plaintext := range dump.Plaintexts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO plaintexts (room_id, event_id, plaintext) VALUES (?, ?, ?)`,
			dump.RoomID, eventID, string(plaintext)); err != nil {
			return nil, errors.Wrapf(err, "save plaintext %s", eventID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit import")
	}
	return result, nil
}
