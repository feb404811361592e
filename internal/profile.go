package internal

import (
	"context"

	"maunium.net/go/mautrix/id"
)

// Member is a room member as known to a MemberDirectory.
type Member struct {
	UserID               id.UserID
	DisplayName          string
	DisplayNameAmbiguous bool
	AvatarURL            id.ContentURIString
}

// MemberDirectory looks up room members. CachedMember must not block on
// I/O; FetchMember may, and returns ErrMemberNotFound for non-members.
type MemberDirectory interface {
	CachedMember(ctx context.Context, roomID id.RoomID, userID id.UserID) (*Member, bool)
	FetchMember(ctx context.Context, roomID id.RoomID, userID id.UserID) (*Member, error)
}

// RoomContext is the per-room environment a batch is assembled in.
type RoomContext struct {
	RoomID    id.RoomID
	Encrypted bool
	// Members may be nil, in which case no profiles are resolved
	Members MemberDirectory
	// Events may be nil, in which case replies outside the batch stay unresolved
	Events EventFetcher
}

// ProfileEnricher resolves sender profiles against a room's member directory.
type ProfileEnricher struct{}

// NewProfileEnricher creates a ProfileEnricher.
func NewProfileEnricher() *ProfileEnricher {
	return &ProfileEnricher{}
}

// Resolve returns the profile of sender in room, or nil when it can't be
// found. Lookup failures are logged and never propagated.
func (p *ProfileEnricher) Resolve(ctx context.Context, sender id.UserID, room *RoomContext) *Profile {
	if room == nil || room.Members == nil || sender == "" {
		return nil
	}
	if m, ok := room.Members.CachedMember(ctx, room.RoomID, sender); ok {
		return profileFromMember(m)
	}
	m, err := room.Members.FetchMember(ctx, room.RoomID, sender)
	if err != nil {
		LogDebug("no profile for %s in %s: %v", sender, room.RoomID, err)
		return nil
	}
	return profileFromMember(m)
}

func profileFromMember(m *Member) *Profile {
	if m == nil {
		return nil
	}
	return &Profile{
		DisplayName:          m.DisplayName,
		DisplayNameAmbiguous: m.DisplayNameAmbiguous,
		AvatarURL:            m.AvatarURL,
	}
}

// DisplayNameOf returns the name to show for sender: the profile's display
// name, disambiguated with the user ID if needed, or the user ID itself.
func DisplayNameOf(sender id.UserID, profile *Profile) string {
	if profile == nil || profile.DisplayName == "" {
		return string(sender)
	}
	if profile.DisplayNameAmbiguous {
		return profile.DisplayName + " (" + string(sender) + ")"
	}
	return profile.DisplayName
}
