package state

import (
	"log"
	"sort"

	"github.com/google/uuid"

	"breakout/pkg/protocol"
)

// Reduce applies one inbound event to the state and returns the log
// entries the event produced. It is total over the protocol vocabulary:
// every variant is handled, unrecognized kinds degrade to a system log
// entry, and malformed references degrade to a logged no-op. It never
// fails and must never panic; the session outlives any single event.
func Reduce(s *State, ev protocol.Event) []Entry {
	switch e := ev.(type) {
	case protocol.IdentityAssigned:
		// Identity is assigned once; the relay never reissues it.
		if s.SelfID == "" {
			s.SelfID = e.UserID
		}

	case protocol.RoomChanged:
		s.applyRoomChange(e.RoomID)

	case protocol.InstructorRoomChanged:
		s.applyInstructorRoomChange(e.RoomID)

	case protocol.RosterSnapshot:
		s.mergeRoster(e.Students)

	case protocol.Acknowledgment:
		content := e.Message
		if content == "" {
			content = "Acknowledgment received"
		}
		s.appendRoom(s.CurrentRoom, Message{
			From:    SystemSender,
			Scope:   ScopeSystem,
			Content: content,
		})

	case protocol.ServerError:
		content := e.Message
		if content == "" {
			content = "An unknown error occurred"
		}
		s.appendRoom(s.CurrentRoom, Message{
			From:    SystemSender,
			Scope:   ScopeError,
			Content: content,
		})

	case protocol.Whisper:
		s.applyWhisper(e.From, e.Content)

	case protocol.MainBroadcast:
		s.appendRoom(MainRoomID, Message{
			From:    e.From,
			Scope:   ScopeMain,
			Content: e.Content,
		})

	case protocol.BreakoutBroadcast:
		room := e.RoomID
		if room == "" {
			room = MainRoomID
		}
		s.appendRoom(room, Message{
			From:    e.From,
			Scope:   ScopeBreakout,
			Content: e.Content,
		})

	case protocol.BreakoutOnlyBroadcast:
		s.applyBreakoutOnly(e.From, e.Content)

	case protocol.GlobalBroadcast:
		s.applyGlobal(e.From, e.Content)

	case protocol.HelpRequested:
		if p, ok := s.Roster[e.UserID]; ok {
			p.HelpRequested = true
		} else {
			log.Printf("help request for unknown participant %q ignored", e.UserID)
		}

	case protocol.BreakoutRequested:
		if p, ok := s.Roster[e.UserID]; ok {
			p.BreakoutRequested = true
		} else {
			log.Printf("breakout request for unknown participant %q ignored", e.UserID)
		}

	case protocol.PrivateMessagingStatus:
		s.PrivateMessagingEnabled = e.Enabled

	case protocol.StudentMessage:
		s.appendRoom(MainRoomID, Message{
			From:    e.From,
			Scope:   ScopeMain,
			Content: e.Content,
		})

	case protocol.InstructorStatus:
		s.InstructorOnline = e.Connected

	case protocol.UnknownEvent:
		s.appendRoom(s.CurrentRoom, Message{
			From:    SystemSender,
			Scope:   ScopeSystem,
			Content: string(e.Raw),
		})

	default:
		// Future variants added to the protocol package land here until
		// the reducer learns them.
		s.appendRoom(s.CurrentRoom, Message{
			From:    SystemSender,
			Scope:   ScopeSystem,
			Content: "unhandled event: " + protocol.Kind(ev),
		})
	}

	out := s.appended
	s.appended = nil
	return out
}

// appendRoom appends to a room (or global) log, assigning the entry's id
// and per-log sequence. Referencing a room brings it into existence.
func (s *State) appendRoom(key string, m Message) {
	if key == "" {
		key = MainRoomID
	}
	if key != GlobalLogID {
		s.Rooms[key] = true
		m.RoomID = key
	}
	s.seq[key]++
	m.ID = uuid.New().String()
	m.Sequence = s.seq[key]
	s.Logs[key] = append(s.Logs[key], m)
	s.appended = append(s.appended, Entry{Log: key, Message: m})
}

// appendWhisper appends to one participant's whisper history.
func (s *State) appendWhisper(p *Participant, m Message) {
	key := WhisperLog(p.UserID)
	s.seq[key]++
	m.ID = uuid.New().String()
	m.Sequence = s.seq[key]
	p.Messages = append(p.Messages, m)
	s.appended = append(s.appended, Entry{Log: key, Message: m})
}

func (s *State) applyRoomChange(roomID string) {
	if roomID == "" {
		log.Printf("room change without a room id ignored")
		return
	}
	s.CurrentRoom = roomID
	s.roomConfirmed = true
	s.Rooms[roomID] = true
	if p, ok := s.Roster[s.SelfID]; ok {
		p.RoomID = roomID
	}
	// Returning to main is the room change that retires a pending
	// breakout request.
	if roomID == MainRoomID {
		s.BreakoutRequested = false
	}
	s.flushPending(roomID)
}

func (s *State) applyInstructorRoomChange(roomID string) {
	if roomID == "" {
		log.Printf("instructor room change without a room id ignored")
		return
	}
	s.InstructorRoom = roomID
	s.Rooms[roomID] = true
	if p, ok := s.Roster[InstructorID]; ok {
		p.RoomID = roomID
	}
	// The instructor arriving in our room answers an outstanding help
	// request. Leaving again does not raise it back.
	if roomID == s.CurrentRoom {
		s.HelpRequested = false
	}
}

// flushPending delivers queued messages for a room that just became known,
// in their original arrival order, exactly once.
func (s *State) flushPending(roomID string) {
	queued := s.pending[""]
	queued = append(queued, s.pending[roomID]...)
	if len(queued) == 0 {
		return
	}
	delete(s.pending, "")
	delete(s.pending, roomID)
	for _, m := range queued {
		s.appendRoom(roomID, m)
	}
}

func (s *State) applyWhisper(from, content string) {
	if from == "" {
		log.Printf("whisper without a sender ignored")
		return
	}
	// Our own whisper coming back would duplicate the local echo the
	// command builder already recorded.
	if from == s.SelfID || from == LocalEchoSender {
		return
	}
	p, ok := s.Roster[from]
	if !ok {
		p = &Participant{UserID: from, Role: RoleStudent, RoomID: MainRoomID}
		if from == InstructorID {
			p.Role = RoleInstructor
			p.RoomID = s.InstructorRoom
		}
		s.Roster[from] = p
	}
	s.appendWhisper(p, Message{
		From:    from,
		To:      s.SelfID,
		Scope:   ScopeWhisper,
		Content: content,
	})
	if s.ChatTarget == from {
		p.UnreadCount = 0
	} else {
		p.UnreadCount++
	}
}

func (s *State) applyBreakoutOnly(from, content string) {
	m := Message{
		From:    from,
		Scope:   ScopeBreakoutOnly,
		Content: content,
	}
	if s.roomConfirmed {
		s.appendRoom(s.CurrentRoom, m)
		return
	}
	// Room not confirmed yet: hold the message until the first room
	// change tells us where it belongs.
	s.pending[""] = append(s.pending[""], m)
}

// applyGlobal appends the same message to every log that exists at
// delivery time, plus the dedicated global log.
func (s *State) applyGlobal(from, content string) {
	keys := make([]string, 0, len(s.Logs))
	for key := range s.Logs {
		if key != GlobalLogID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		s.appendRoom(key, Message{
			From:    from,
			Scope:   ScopeGlobal,
			Content: content,
		})
	}
	s.appendRoom(GlobalLogID, Message{
		From:    from,
		Scope:   ScopeGlobal,
		Content: content,
	})
}

// mergeRoster reconciles an authoritative snapshot with locally accumulated
// per-peer state. Known entries keep their whisper history, unread count,
// and request flags; new entries get defaults; entries the snapshot omits
// are dropped. Applying the same snapshot twice is a no-op.
func (s *State) mergeRoster(entries []protocol.RosterEntry) {
	next := make(map[string]*Participant, len(entries)+1)
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		room := e.RoomID
		if room == "" {
			room = MainRoomID
		}
		if prev, ok := s.Roster[e.UserID]; ok {
			prev.RoomID = room
			next[e.UserID] = prev
			continue
		}
		next[e.UserID] = &Participant{
			UserID: e.UserID,
			Role:   RoleStudent,
			RoomID: room,
		}
	}
	// The student snapshot only lists students; the instructor peer is
	// carried across merges.
	if inst, ok := s.Roster[InstructorID]; ok {
		if _, listed := next[InstructorID]; !listed {
			next[InstructorID] = inst
		}
	}
	s.Roster = next
}
