// Package command shapes outbound payloads from local user intent plus the
// current session state. Validation happens here, before anything touches
// the wire; a rejected intent produces no command and no state change.
package command

import (
	"strings"

	"breakout/internal/state"
	"breakout/pkg/protocol"
)

// BroadcastScope is the user-selected audience for a broadcast intent.
type BroadcastScope string

const (
	ScopeCurrentRoom  BroadcastScope = "currentRoom"
	ScopeMain         BroadcastScope = "main"
	ScopeGlobal       BroadcastScope = "global"
	ScopeBreakoutOnly BroadcastScope = "breakoutOnly"
)

// Builder validates intents against the session store and produces
// commands. Echo entries returned alongside a command are local-only
// optimistic appends already applied to the store.
type Builder struct {
	store *state.Store
}

// NewBuilder creates a builder bound to one session store.
func NewBuilder(store *state.Store) *Builder {
	return &Builder{store: store}
}

// Compose resolves a message intent. A non-empty recipient always wins:
// the message goes out as a whisper regardless of any selected broadcast
// scope. Otherwise the scope table decides.
func (b *Builder) Compose(recipient string, scope BroadcastScope, content string) (protocol.Command, []state.Entry, error) {
	if strings.TrimSpace(recipient) != "" {
		return b.Whisper(recipient, content)
	}
	cmd, err := b.Broadcast(scope, content)
	return cmd, nil, err
}

// Whisper builds a private message and echoes it into the recipient's
// local history as sent by "Me".
func (b *Builder) Whisper(to, content string) (protocol.Command, []state.Entry, error) {
	to = strings.TrimSpace(to)
	content = strings.TrimSpace(content)
	if to == "" {
		return protocol.Command{}, nil, ErrEmptyRecipient
	}
	if content == "" {
		return protocol.Command{}, nil, ErrEmptyContent
	}
	if b.store.Role() == state.RoleStudent &&
		to != state.InstructorID &&
		!b.store.PrivateMessagingEnabled() {
		return protocol.Command{}, nil, ErrWhispersDisabled
	}

	entries := b.store.EchoWhisper(to, content)
	return protocol.Command{
		Type:    protocol.CommandWhisper,
		To:      to,
		Content: content,
	}, entries, nil
}

// Broadcast resolves the audience with a fixed table, evaluated in this
// exact order, current room as the default:
//
//	breakoutOnly -> BREAKOUT_BROADCAST
//	main         -> BROADCAST_MAIN
//	global       -> BROADCAST_ALL
//	anything else -> BROADCAST_CURRENT_ROOM (carries the current room id)
//
// The table does not consult the current room: selecting breakoutOnly
// while standing in main still broadcasts breakout-only.
func (b *Builder) Broadcast(scope BroadcastScope, content string) (protocol.Command, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return protocol.Command{}, ErrEmptyContent
	}

	switch scope {
	case ScopeBreakoutOnly:
		return protocol.Command{
			Type:    protocol.CommandBroadcastBreakoutOnly,
			Content: content,
		}, nil
	case ScopeMain:
		return protocol.Command{
			Type:    protocol.CommandBroadcastMain,
			Content: content,
		}, nil
	case ScopeGlobal:
		return protocol.Command{
			Type:    protocol.CommandBroadcastAll,
			Content: content,
		}, nil
	default:
		return protocol.Command{
			Type:    protocol.CommandBroadcastCurrentRoom,
			Content: content,
			RoomID:  b.store.CurrentRoom(),
		}, nil
	}
}

// CreateMainRoom asks the relay to (re)establish the main room.
func (b *Builder) CreateMainRoom() (protocol.Command, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, ErrNotInstructor
	}
	return protocol.Command{Type: protocol.CommandCreateMainRoom}, nil
}

// CreateBreakout asks the relay to open a breakout room.
func (b *Builder) CreateBreakout(roomID string) (protocol.Command, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, ErrNotInstructor
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return protocol.Command{}, ErrEmptyRoomID
	}
	return protocol.Command{Type: protocol.CommandCreateBreakout, RoomID: roomID}, nil
}

// CloseBreakout asks the relay to close a breakout room and forgets it
// locally. The room's log stays readable.
func (b *Builder) CloseBreakout(roomID string) (protocol.Command, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, ErrNotInstructor
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return protocol.Command{}, ErrEmptyRoomID
	}
	b.store.EchoCloseBreakout(roomID)
	return protocol.Command{Type: protocol.CommandCloseBreakout, RoomID: roomID}, nil
}

// MoveToBreakout asks the relay to move a student into a breakout room.
func (b *Builder) MoveToBreakout(userID, roomID string) (protocol.Command, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, ErrNotInstructor
	}
	userID = strings.TrimSpace(userID)
	roomID = strings.TrimSpace(roomID)
	if userID == "" {
		return protocol.Command{}, ErrEmptyUserID
	}
	if roomID == "" {
		return protocol.Command{}, ErrEmptyRoomID
	}
	return protocol.Command{
		Type:   protocol.CommandMoveToBreakout,
		UserID: userID,
		RoomID: roomID,
	}, nil
}

// JoinBreakout moves the instructor into a breakout room, echoing the room
// change locally so the view follows immediately.
func (b *Builder) JoinBreakout(roomID string) (protocol.Command, []state.Entry, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, nil, ErrNotInstructor
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return protocol.Command{}, nil, ErrEmptyRoomID
	}
	entries := b.store.EchoJoinRoom(roomID)
	return protocol.Command{Type: protocol.CommandJoinBreakout, RoomID: roomID}, entries, nil
}

// RequestHelp raises the student's hand. The flag stays up until the
// instructor joins this student's room.
func (b *Builder) RequestHelp() (protocol.Command, []state.Entry, error) {
	if b.store.Role() != state.RoleStudent {
		return protocol.Command{}, nil, ErrNotStudent
	}
	if b.store.HelpRequested() {
		return protocol.Command{}, nil, ErrAlreadyRequested
	}
	entries := b.store.EchoHelpRequest()
	return protocol.Command{Type: protocol.CommandHelpRequest}, entries, nil
}

// RequestBreakout asks the instructor for a breakout room. The flag stays
// up until a room change moves this student.
func (b *Builder) RequestBreakout() (protocol.Command, error) {
	if b.store.Role() != state.RoleStudent {
		return protocol.Command{}, ErrNotStudent
	}
	if b.store.BreakoutRequested() {
		return protocol.Command{}, ErrAlreadyRequested
	}
	b.store.EchoBreakoutRequest()
	return protocol.Command{Type: protocol.CommandRequestBreakout}, nil
}

// TogglePrivateMessaging turns student-to-student whispers on or off.
func (b *Builder) TogglePrivateMessaging(enabled bool) (protocol.Command, error) {
	if b.store.Role() != state.RoleInstructor {
		return protocol.Command{}, ErrNotInstructor
	}
	return protocol.Command{
		Type:    protocol.CommandTogglePrivateMessaging,
		Enabled: &enabled,
	}, nil
}
