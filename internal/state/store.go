package state

import (
	"sort"
	"sync"

	"breakout/pkg/protocol"
)

// Store owns the canonical State. There is exactly one writer: the engine
// goroutine, which funnels inbound events through Apply and user intents
// through the echo methods. The lock exists for projector reads, which
// must observe only fully applied reductions.
type Store struct {
	mu    sync.RWMutex
	state *State
}

// NewStore creates a store holding the initial session state for a role.
func NewStore(role Role) *Store {
	return &Store{state: NewState(role)}
}

// Apply reduces one inbound event into the state and returns the log
// entries it appended.
func (st *Store) Apply(ev protocol.Event) []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	return Reduce(st.state, ev)
}

// EchoWhisper records a whisper we just sent, before the relay confirms
// it. At most once per send; the reducer drops the server's copy of our
// own whispers so the entry is never duplicated.
func (st *Store) EchoWhisper(to, content string) []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.state
	p, ok := s.Roster[to]
	if !ok {
		p = &Participant{UserID: to, Role: RoleStudent, RoomID: MainRoomID}
		if to == InstructorID {
			p.Role = RoleInstructor
			p.RoomID = s.InstructorRoom
		}
		s.Roster[to] = p
	}
	s.appendWhisper(p, Message{
		From:    LocalEchoSender,
		To:      to,
		Scope:   ScopeWhisper,
		Content: content,
	})
	return s.drain()
}

// EchoHelpRequest raises our own help flag and drops a confirmation line
// into the current room log.
func (st *Store) EchoHelpRequest() []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.state
	s.HelpRequested = true
	s.appendRoom(s.CurrentRoom, Message{
		From:    SystemSender,
		Scope:   ScopeSystem,
		Content: "Help request sent to instructor.",
	})
	return s.drain()
}

// EchoBreakoutRequest raises our own breakout flag. Cleared again only by
// a room change: entering a breakout, or returning to main.
func (st *Store) EchoBreakoutRequest() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.BreakoutRequested = true
}

// EchoJoinRoom moves us locally the moment a join command is issued. The
// relay's ROOM_CHANGE for the same room reduces to a no-op afterwards.
func (st *Store) EchoJoinRoom(roomID string) []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.applyRoomChange(roomID)
	return st.state.drain()
}

// EchoCloseBreakout forgets a room we asked the relay to close. Its log
// survives for historical display.
func (st *Store) EchoCloseBreakout(roomID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if roomID != MainRoomID {
		delete(st.state.Rooms, roomID)
	}
}

// OpenChat makes a peer the active whisper target and clears their unread
// count. For instructors this is also the acknowledgment that retires the
// peer's help and breakout flags.
func (st *Store) OpenChat(userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.state
	s.ChatTarget = userID
	p, ok := s.Roster[userID]
	if !ok {
		return
	}
	p.UnreadCount = 0
	if s.Role == RoleInstructor {
		p.HelpRequested = false
		p.BreakoutRequested = false
	}
}

// CloseChat clears the active whisper target.
func (st *Store) CloseChat() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.ChatTarget = ""
}

func (s *State) drain() []Entry {
	out := s.appended
	s.appended = nil
	return out
}

// Read-side projections. Everything below returns copies; callers never
// see live state.

func (st *Store) SelfID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.SelfID
}

func (st *Store) Role() Role {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Role
}

func (st *Store) CurrentRoom() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.CurrentRoom
}

func (st *Store) InstructorRoom() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.InstructorRoom
}

func (st *Store) InstructorOnline() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.InstructorOnline
}

func (st *Store) PrivateMessagingEnabled() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.PrivateMessagingEnabled
}

func (st *Store) HelpRequested() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.HelpRequested
}

func (st *Store) BreakoutRequested() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.BreakoutRequested
}

func (st *Store) ChatTarget() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.ChatTarget
}

// Rooms lists the known rooms, sorted, main first.
func (st *Store) Rooms() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	rooms := make([]string, 0, len(st.state.Rooms))
	for id := range st.state.Rooms {
		if id != MainRoomID {
			rooms = append(rooms, id)
		}
	}
	sort.Strings(rooms)
	if st.state.Rooms[MainRoomID] {
		rooms = append([]string{MainRoomID}, rooms...)
	}
	return rooms
}

// RoomLog returns the log for one room (or GlobalLogID) in append order.
func (st *Store) RoomLog(key string) []Message {
	st.mu.RLock()
	defer st.mu.RUnlock()

	src := st.state.Logs[key]
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// Whispers returns the whisper history with one peer in append order.
func (st *Store) Whispers(userID string) []Message {
	st.mu.RLock()
	defer st.mu.RUnlock()

	p, ok := st.state.Roster[userID]
	if !ok {
		return nil
	}
	out := make([]Message, len(p.Messages))
	copy(out, p.Messages)
	return out
}

// Participant returns a copy of one roster member.
func (st *Store) Participant(userID string) (Participant, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	p, ok := st.state.Roster[userID]
	if !ok {
		return Participant{}, false
	}
	return copyParticipant(p), true
}

// Participants returns the roster sorted by user id.
func (st *Store) Participants() []Participant {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]Participant, 0, len(st.state.Roster))
	for _, p := range st.state.Roster {
		out = append(out, copyParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Occupants lists who is currently in the given room, sorted by user id.
func (st *Store) Occupants(roomID string) []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []string
	for _, p := range st.state.Roster {
		if p.RoomID == roomID {
			out = append(out, p.UserID)
		}
	}
	sort.Strings(out)
	return out
}

func copyParticipant(p *Participant) Participant {
	out := *p
	out.Messages = make([]Message, len(p.Messages))
	copy(out.Messages, p.Messages)
	return out
}
