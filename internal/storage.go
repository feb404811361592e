package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"maunium.net/go/mautrix/id"
)

// ErrMissingSessionKey is returned by Store.Decrypt when no plaintext was
// imported for an event
var ErrMissingSessionKey = stderrors.New("no session key for this event")

// RoomInfo is the stored summary of a room
type RoomInfo struct {
	ID             id.RoomID           `json:"room_id" yaml:"room_id"`
	Name           string              `json:"name,omitempty" yaml:"name,omitempty"`
	CanonicalAlias id.RoomAlias        `json:"canonical_alias,omitempty" yaml:"canonical_alias,omitempty"`
	AvatarURL      id.ContentURIString `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	Encrypted      bool                `json:"encrypted" yaml:"encrypted"`
	IsDirect       bool                `json:"is_direct" yaml:"is_direct"`
	UnreadCount    int                 `json:"unread_count" yaml:"unread_count"`
	Membership     string              `json:"membership" yaml:"membership"`
	LastActivity   int64               `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
	EventCount     int                 `json:"event_count" yaml:"event_count"`
}

// MessagesPage is one page of backward pagination: Chunk is newest first,
// End is the token for the next older page or empty at the start of history
type MessagesPage struct {
	Chunk []json.RawMessage
	End   string
}

// EventSource pages backward through a room's history
type EventSource interface {
	Messages(ctx context.Context, roomID id.RoomID, from string, limit int) (*MessagesPage, error)
}

// Store is the SQLite-backed event store
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle
func (s *Store) DB() *sql.DB {
	return s.db
}

func formatToken(streamOrdering int64) string {
	return "t" + strconv.FormatInt(streamOrdering, 10)
}

func parseToken(token string) (int64, error) {
	if !strings.HasPrefix(token, "t") {
		return 0, errors.Wrapf(ErrInvalidToken, "%q", token)
	}
	n, err := strconv.ParseInt(token[1:], 10, 64)
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrInvalidToken, "%q", token)
	}
	return n, nil
}

// Messages returns up to limit events older than the from token, newest
// first. An empty from starts at the newest event.
func (s *Store) Messages(ctx context.Context, roomID id.RoomID, from string, limit int) (*MessagesPage, error) {
	if limit <= 0 {
		limit = 100
	}
	before := int64(-1)
	if from != "" {
		n, err := parseToken(from)
		if err != nil {
			return nil, err
		}
		before = n
	}

	query := `SELECT stream_ordering, json FROM events WHERE room_id = ?`
	args := []interface{}{roomID}
	if before >= 0 {
		query += ` AND stream_ordering < ?`
		args = append(args, before)
	}
	query += ` ORDER BY stream_ordering DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer func() { _ = rows.Close() }()

	page := &MessagesPage{}
	var last int64
	for rows.Next() {
		var ordering int64
		var raw string
		if err := rows.Scan(&ordering, &raw); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		if len(page.Chunk) == limit {
			// There is at least one more event; resume after the last one kept.
			page.End = formatToken(last)
			break
		}
		page.Chunk = append(page.Chunk, json.RawMessage(raw))
		last = ordering
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate events")
	}
	return page, nil
}

// Event loads a single event by ID
func (s *Store) Event(ctx context.Context, roomID id.RoomID, eventID id.EventID) (json.RawMessage, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT json FROM events WHERE room_id = ? AND event_id = ?`, roomID, eventID).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load event %s", eventID)
	}
	return json.RawMessage(raw), nil
}

// Member loads a room member, flagging display names shared with another
// joined member
func (s *Store) Member(ctx context.Context, roomID id.RoomID, userID id.UserID) (*Member, error) {
	m := &Member{UserID: userID}
	var avatar string
	var others int
	err := s.db.QueryRowContext(ctx, `
		SELECT m.display_name, m.avatar_url,
			(SELECT COUNT(*) FROM members o
			 WHERE o.room_id = m.room_id AND o.user_id <> m.user_id
			   AND o.display_name = m.display_name AND o.membership = 'join'
			   AND m.display_name <> '')
		FROM members m WHERE m.room_id = ? AND m.user_id = ?`, roomID, userID).Scan(&m.DisplayName, &avatar, &others)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load member %s", userID)
	}
	m.AvatarURL = id.ContentURIString(avatar)
	m.DisplayNameAmbiguous = others > 0
	return m, nil
}

const roomColumns = `r.room_id, r.name, r.canonical_alias, r.avatar_url, r.encrypted, r.is_direct,
	r.unread_count, r.membership, COALESCE(MAX(e.origin_server_ts), 0), COUNT(e.stream_ordering)`

func scanRoom(row interface{ Scan(...interface{}) error }) (*RoomInfo, error) {
	var info RoomInfo
	var alias, avatar string
	if err := row.Scan(&info.ID, &info.Name, &alias, &avatar, &info.Encrypted, &info.IsDirect,
		&info.UnreadCount, &info.Membership, &info.LastActivity, &info.EventCount); err != nil {
		return nil, err
	}
	info.CanonicalAlias = id.RoomAlias(alias)
	info.AvatarURL = id.ContentURIString(avatar)
	return &info, nil
}

// Room loads the summary of one room
func (s *Store) Room(ctx context.Context, roomID id.RoomID) (*RoomInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+`
		FROM rooms r LEFT JOIN events e ON e.room_id = r.room_id
		WHERE r.room_id = ? GROUP BY r.room_id`, roomID)
	info, err := scanRoom(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load room %s", roomID)
	}
	return info, nil
}

// Rooms lists every stored room
func (s *Store) Rooms(ctx context.Context) ([]RoomInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roomColumns+`
		FROM rooms r LEFT JOIN events e ON e.room_id = r.room_id
		GROUP BY r.room_id ORDER BY r.room_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query rooms")
	}
	defer func() { _ = rows.Close() }()

	var rooms []RoomInfo
	for rows.Next() {
		info, err := scanRoom(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan room")
		}
		rooms = append(rooms, *info)
	}
	return rooms, errors.Wrap(rows.Err(), "iterate rooms")
}

// ResolveRoom turns a room ID or #alias into a known room ID
func (s *Store) ResolveRoom(ctx context.Context, idOrAlias string) (id.RoomID, error) {
	switch {
	case strings.HasPrefix(idOrAlias, "#"):
		var roomID string
		err := s.db.QueryRowContext(ctx,
			`SELECT room_id FROM room_aliases WHERE alias = ?`, idOrAlias).Scan(&roomID)
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrapf(ErrRoomNotFound, "alias %s", idOrAlias)
		}
		if err != nil {
			return "", errors.Wrapf(err, "resolve alias %s", idOrAlias)
		}
		return id.RoomID(roomID), nil
	case strings.HasPrefix(idOrAlias, "!"):
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM rooms WHERE room_id = ?`, idOrAlias).Scan(&n)
		if err != nil {
			return "", errors.Wrapf(err, "look up room %s", idOrAlias)
		}
		if n == 0 {
			return "", errors.Wrapf(ErrRoomNotFound, "room %s", idOrAlias)
		}
		return id.RoomID(idOrAlias), nil
	default:
		return "", errors.Wrapf(ErrRoomNotFound, "%q is neither a room ID nor an alias", idOrAlias)
	}
}

// EventTypeCounts counts stored events by type
func (s *Store) EventTypeCounts(ctx context.Context, roomID id.RoomID) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM events WHERE room_id = ? GROUP BY type`, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "count events")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var eventType string
		var n int
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, errors.Wrap(err, "scan event count")
		}
		counts[eventType] = n
	}
	return counts, errors.Wrap(rows.Err(), "iterate event counts")
}

// Decrypt returns the imported plaintext for an encrypted event
func (s *Store) Decrypt(ctx context.Context, roomID id.RoomID, raw json.RawMessage) (json.RawMessage, error) {
	hdr := peekHeader(raw)
	if hdr.EventID == "" {
		return nil, ErrMissingSessionKey
	}
	var plaintext string
	err := s.db.QueryRowContext(ctx,
		`SELECT plaintext FROM plaintexts WHERE room_id = ? AND event_id = ?`, roomID, hdr.EventID).Scan(&plaintext)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrMissingSessionKey
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load plaintext for %s", hdr.EventID)
	}
	return json.RawMessage(plaintext), nil
}
