package internal

import (
	"errors"
	"fmt"

	"maunium.net/go/mautrix/id"
)

var (
	// ErrMissingEventType is returned for events without a "type" field
	ErrMissingEventType = errors.New("event has no type")
	// ErrMissingMsgType is returned for room messages without a "msgtype"
	ErrMissingMsgType = errors.New("message content has no msgtype")
	// ErrRoomNotFound is returned when a room ID or alias is unknown
	ErrRoomNotFound = errors.New("room not found")
	// ErrMemberNotFound is returned when a user is not a member of the room
	ErrMemberNotFound = errors.New("member not found")
	// ErrEventNotFound is returned when an event is not in the store
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidToken is returned for malformed pagination tokens
	ErrInvalidToken = errors.New("invalid pagination token")
)

// StorageError represents errors accessing the event store or cache
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "parse"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents an event whose envelope or content failed to decode
type ParseError struct {
	EventType string
	EventID   id.EventID
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.EventType, e.EventID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedEventError represents a message-like event type the classifier
// has no mapping for
type UnsupportedEventError struct {
	EventType string
	EventID   id.EventID
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported message-like event %s (%s)", e.EventType, e.EventID)
}

// AssemblyError represents a batch that could not be assembled
type AssemblyError struct {
	RoomID id.RoomID
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly error [%s]: %v", e.RoomID, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
