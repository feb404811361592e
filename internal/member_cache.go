package internal

import (
	"context"
	"sync"

	"maunium.net/go/mautrix/id"
)

// MemberStore is the persistent source behind a CachedDirectory.
type MemberStore interface {
	Member(ctx context.Context, roomID id.RoomID, userID id.UserID) (*Member, error)
}

type memberKey struct {
	room id.RoomID
	user id.UserID
}

// CachedDirectory is a MemberDirectory that memoizes lookups in a
// MemberStore. It is safe for concurrent use.
type CachedDirectory struct {
	store   MemberStore
	mu      sync.RWMutex
	members map[memberKey]*Member
}

// NewCachedDirectory creates a new CachedDirectory
func NewCachedDirectory(store MemberStore) *CachedDirectory {
	return &CachedDirectory{
		store:   store,
		members: make(map[memberKey]*Member),
	}
}

// CachedMember retrieves a member from the cache only
func (d *CachedDirectory) CachedMember(_ context.Context, roomID id.RoomID, userID id.UserID) (*Member, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[memberKey{roomID, userID}]
	return m, ok
}

// FetchMember loads a member from the store and caches it
func (d *CachedDirectory) FetchMember(ctx context.Context, roomID id.RoomID, userID id.UserID) (*Member, error) {
	if d.store == nil {
		return nil, ErrMemberNotFound
	}
	m, err := d.store.Member(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	d.Set(roomID, m)
	return m, nil
}

// Set stores a member
func (d *CachedDirectory) Set(roomID id.RoomID, m *Member) {
	if m == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[memberKey{roomID, m.UserID}] = m
}

// Len returns the number of cached members
func (d *CachedDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

// Invalidate drops every cached member
func (d *CachedDirectory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = make(map[memberKey]*Member)
}
