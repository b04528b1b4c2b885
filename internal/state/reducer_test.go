package state

import (
	"reflect"
	"testing"

	"breakout/pkg/protocol"
)

func applyAll(t *testing.T, st *Store, events ...protocol.Event) {
	t.Helper()
	for _, ev := range events {
		st.Apply(ev)
	}
}

func TestReduce_IdentityAssignedOnce(t *testing.T) {
	st := NewStore(RoleStudent)

	st.Apply(protocol.IdentityAssigned{UserID: "student1"})
	if got := st.SelfID(); got != "student1" {
		t.Fatalf("SelfID = %q, want student1", got)
	}

	// The relay never reissues identity; a stray second assignment must
	// not take effect.
	st.Apply(protocol.IdentityAssigned{UserID: "student9"})
	if got := st.SelfID(); got != "student1" {
		t.Fatalf("SelfID after second assignment = %q, want student1", got)
	}
}

func TestReduce_RosterMergePreservesLocalState(t *testing.T) {
	st := NewStore(RoleInstructor)

	snapshot := protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "alice", RoomID: "main"},
		{UserID: "bob", RoomID: "main"},
	}}
	st.Apply(snapshot)

	// Accumulate ephemeral state for alice.
	applyAll(t, st,
		protocol.Whisper{From: "alice", Content: "hi"},
		protocol.Whisper{From: "alice", Content: "are you there"},
		protocol.HelpRequested{UserID: "alice"},
		protocol.BreakoutRequested{UserID: "alice"},
	)

	// A fresh snapshot listing alice must keep everything local.
	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "alice", RoomID: "r1"},
		{UserID: "carol", RoomID: "main"},
	}})

	alice, ok := st.Participant("alice")
	if !ok {
		t.Fatal("alice missing after merge")
	}
	if len(alice.Messages) != 2 {
		t.Errorf("alice messages = %d, want 2", len(alice.Messages))
	}
	if alice.UnreadCount != 2 {
		t.Errorf("alice unread = %d, want 2", alice.UnreadCount)
	}
	if !alice.HelpRequested || !alice.BreakoutRequested {
		t.Errorf("alice flags lost in merge: help=%v breakout=%v", alice.HelpRequested, alice.BreakoutRequested)
	}
	if alice.RoomID != "r1" {
		t.Errorf("alice room = %q, want r1", alice.RoomID)
	}

	if _, ok := st.Participant("bob"); ok {
		t.Error("bob should be dropped by the snapshot that omits him")
	}
	carol, ok := st.Participant("carol")
	if !ok {
		t.Fatal("carol missing after merge")
	}
	if carol.UnreadCount != 0 || len(carol.Messages) != 0 || carol.HelpRequested {
		t.Errorf("carol should have defaults, got %+v", carol)
	}
}

func TestReduce_RosterMergeIdempotent(t *testing.T) {
	st := NewStore(RoleInstructor)
	snapshot := protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "alice", RoomID: "main"},
		{UserID: "bob", RoomID: "r1"},
	}}

	st.Apply(snapshot)
	st.Apply(protocol.Whisper{From: "alice", Content: "hello"})
	before := st.Participants()

	st.Apply(snapshot)
	after := st.Participants()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("second identical snapshot changed roster:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestReduce_RosterKeepsInstructorPeer(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.Whisper{From: InstructorID, Content: "welcome"})

	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "student2", RoomID: "main"},
	}})

	inst, ok := st.Participant(InstructorID)
	if !ok {
		t.Fatal("instructor peer dropped by student roster snapshot")
	}
	if len(inst.Messages) != 1 {
		t.Errorf("instructor whisper history = %d entries, want 1", len(inst.Messages))
	}
}

func TestReduce_WhisperUnreadCounting(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.IdentityAssigned{UserID: "student1"})

	// Three whispers while bob's chat is not open.
	applyAll(t, st,
		protocol.Whisper{From: "bob", Content: "one"},
		protocol.Whisper{From: "bob", Content: "two"},
		protocol.Whisper{From: "bob", Content: "three"},
	)
	bob, _ := st.Participant("bob")
	if bob.UnreadCount != 3 {
		t.Fatalf("unread = %d, want 3", bob.UnreadCount)
	}

	// Opening the chat resets to zero.
	st.OpenChat("bob")
	bob, _ = st.Participant("bob")
	if bob.UnreadCount != 0 {
		t.Fatalf("unread after open = %d, want 0", bob.UnreadCount)
	}

	// While the chat is open, arrivals stay read.
	st.Apply(protocol.Whisper{From: "bob", Content: "four"})
	bob, _ = st.Participant("bob")
	if bob.UnreadCount != 0 {
		t.Errorf("unread while chat open = %d, want 0", bob.UnreadCount)
	}

	// Whispers from someone else still count.
	st.Apply(protocol.Whisper{From: "carol", Content: "psst"})
	carol, _ := st.Participant("carol")
	if carol.UnreadCount != 1 {
		t.Errorf("carol unread = %d, want 1", carol.UnreadCount)
	}

	if got := len(mustParticipant(t, st, "bob").Messages); got != 4 {
		t.Errorf("bob history = %d entries, want 4", got)
	}
}

func TestReduce_WhisperFromUnknownCreatesParticipant(t *testing.T) {
	st := NewStore(RoleInstructor)

	st.Apply(protocol.Whisper{From: "student7", Content: "help me"})

	p, ok := st.Participant("student7")
	if !ok {
		t.Fatal("whisper from unknown sender should create the participant")
	}
	if p.Role != RoleStudent || p.UnreadCount != 1 || len(p.Messages) != 1 {
		t.Errorf("on-demand participant = %+v", p)
	}
}

func TestReduce_WhisperFromSelfIgnored(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.IdentityAssigned{UserID: "student1"})
	st.EchoWhisper("bob", "hi bob")

	// The relay echoing our own whisper back must not duplicate the
	// local echo.
	st.Apply(protocol.Whisper{From: "student1", Content: "hi bob"})

	bob := mustParticipant(t, st, "bob")
	if len(bob.Messages) != 1 {
		t.Fatalf("bob history = %d entries, want 1 (echo only)", len(bob.Messages))
	}
	if bob.Messages[0].From != LocalEchoSender {
		t.Errorf("history entry from %q, want %q", bob.Messages[0].From, LocalEchoSender)
	}
}

func TestReduce_GlobalBroadcastFanOut(t *testing.T) {
	st := NewStore(RoleStudent)
	// Seed two room logs.
	applyAll(t, st,
		protocol.MainBroadcast{From: "alice", Content: "hello main"},
		protocol.BreakoutBroadcast{From: "bob", Content: "hello r1", RoomID: "r1"},
	)

	st.Apply(protocol.GlobalBroadcast{From: InstructorID, Content: "announcement"})

	for _, key := range []string{MainRoomID, "r1", GlobalLogID} {
		logMsgs := st.RoomLog(key)
		if len(logMsgs) == 0 {
			t.Fatalf("log %q empty after global broadcast", key)
		}
		last := logMsgs[len(logMsgs)-1]
		if last.Scope != ScopeGlobal || last.Content != "announcement" {
			t.Errorf("log %q last entry = %+v, want the announcement", key, last)
		}
	}

	// A second global broadcast lands in the global log once, not twice.
	st.Apply(protocol.GlobalBroadcast{From: InstructorID, Content: "again"})
	global := st.RoomLog(GlobalLogID)
	if len(global) != 2 {
		t.Errorf("global log = %d entries, want 2", len(global))
	}
}

func TestReduce_BreakoutOnlyBufferedUntilRoomKnown(t *testing.T) {
	st := NewStore(RoleStudent)

	// Delivered before any ROOM_CHANGE: queued, not logged.
	applyAll(t, st,
		protocol.BreakoutOnlyBroadcast{From: InstructorID, Content: "first"},
		protocol.BreakoutOnlyBroadcast{From: InstructorID, Content: "second"},
	)
	for _, room := range st.Rooms() {
		if n := len(st.RoomLog(room)); n != 0 {
			t.Fatalf("log %q has %d entries before room confirmation", room, n)
		}
	}

	// First room change flushes the queue into the new room, in order.
	st.Apply(protocol.RoomChanged{RoomID: "r1"})
	logMsgs := st.RoomLog("r1")
	if len(logMsgs) != 2 {
		t.Fatalf("r1 log = %d entries after flush, want 2", len(logMsgs))
	}
	if logMsgs[0].Content != "first" || logMsgs[1].Content != "second" {
		t.Errorf("flush order wrong: %q then %q", logMsgs[0].Content, logMsgs[1].Content)
	}

	// A later room change must not re-deliver.
	st.Apply(protocol.RoomChanged{RoomID: "r2"})
	if n := len(st.RoomLog("r2")); n != 0 {
		t.Errorf("r2 log = %d entries, want 0 (no re-delivery)", n)
	}
	if n := len(st.RoomLog("r1")); n != 2 {
		t.Errorf("r1 log = %d entries, want 2 (exactly once)", n)
	}
}

func TestReduce_BreakoutOnlyDirectAfterRoomConfirmed(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.RoomChanged{RoomID: "r1"})

	st.Apply(protocol.BreakoutOnlyBroadcast{From: InstructorID, Content: "now"})

	logMsgs := st.RoomLog("r1")
	if len(logMsgs) != 1 || logMsgs[0].Scope != ScopeBreakoutOnly {
		t.Fatalf("r1 log = %+v, want one breakout-only entry", logMsgs)
	}
}

func TestReduce_BreakoutBroadcastRoutesToNamedRoom(t *testing.T) {
	st := NewStore(RoleInstructor)
	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "A", RoomID: "main"},
		{UserID: "B", RoomID: "main"},
	}})
	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "A", RoomID: "r1"},
		{UserID: "B", RoomID: "main"},
	}})

	st.Apply(protocol.BreakoutBroadcast{From: "A", Content: "hi", RoomID: "r1"})

	if n := len(st.RoomLog("r1")); n != 1 {
		t.Errorf("r1 log = %d entries, want 1", n)
	}
	if n := len(st.RoomLog(MainRoomID)); n != 0 {
		t.Errorf("main log = %d entries, want 0", n)
	}
}

func TestReduce_BreakoutBroadcastDefaultsToMain(t *testing.T) {
	st := NewStore(RoleInstructor)
	st.Apply(protocol.BreakoutBroadcast{From: "A", Content: "hi"})
	if n := len(st.RoomLog(MainRoomID)); n != 1 {
		t.Errorf("main log = %d entries, want 1", n)
	}
}

func TestReduce_RoomChangeToMainClearsBreakoutRequested(t *testing.T) {
	st := NewStore(RoleStudent)
	st.EchoBreakoutRequest()
	if !st.BreakoutRequested() {
		t.Fatal("breakout flag not set by echo")
	}

	// Moving into a breakout keeps other state; returning to main
	// retires the request.
	st.Apply(protocol.RoomChanged{RoomID: "r1"})
	st.Apply(protocol.RoomChanged{RoomID: MainRoomID})
	if st.BreakoutRequested() {
		t.Error("breakout flag should clear on returning to main")
	}
}

func TestReduce_InstructorRoomChange(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.RoomChanged{RoomID: "r1"})
	st.EchoHelpRequest()
	if !st.HelpRequested() {
		t.Fatal("help flag not set by echo")
	}

	// Instructor somewhere else: flag stays up.
	st.Apply(protocol.InstructorRoomChanged{RoomID: "r2"})
	if !st.HelpRequested() {
		t.Error("help flag must not clear while instructor is elsewhere")
	}
	if got := st.InstructorRoom(); got != "r2" {
		t.Errorf("instructor room = %q, want r2", got)
	}

	// Instructor joins our room: the request is answered.
	st.Apply(protocol.InstructorRoomChanged{RoomID: "r1"})
	if st.HelpRequested() {
		t.Error("help flag should clear when instructor joins our room")
	}

	// Leaving again does not raise it back.
	st.Apply(protocol.InstructorRoomChanged{RoomID: MainRoomID})
	if st.HelpRequested() {
		t.Error("help flag should stay cleared")
	}
}

func TestReduce_FlagsUntouchedByUnrelatedEvents(t *testing.T) {
	st := NewStore(RoleInstructor)
	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "alice", RoomID: "main"},
	}})
	applyAll(t, st,
		protocol.HelpRequested{UserID: "alice"},
		protocol.BreakoutRequested{UserID: "alice"},
	)

	// None of these touch request flags.
	applyAll(t, st,
		protocol.MainBroadcast{From: "alice", Content: "x"},
		protocol.GlobalBroadcast{From: InstructorID, Content: "y"},
		protocol.Acknowledgment{Message: "ok"},
		protocol.ServerError{Message: "boom"},
		protocol.Whisper{From: "alice", Content: "z"},
		protocol.PrivateMessagingStatus{Enabled: false},
		protocol.UnknownEvent{Type: "FUTURE_THING", Raw: []byte(`{"type":"FUTURE_THING"}`)},
	)

	alice := mustParticipant(t, st, "alice")
	if !alice.HelpRequested || !alice.BreakoutRequested {
		t.Errorf("flags changed by unrelated events: %+v", alice)
	}
}

func TestReduce_AckAndErrorAppendToCurrentRoom(t *testing.T) {
	st := NewStore(RoleInstructor)
	st.Apply(protocol.RoomChanged{RoomID: "r1"})

	st.Apply(protocol.Acknowledgment{Message: "Breakout room r1 created"})
	st.Apply(protocol.ServerError{Message: "student9 not found"})
	st.Apply(protocol.Acknowledgment{})

	logMsgs := st.RoomLog("r1")
	if len(logMsgs) != 3 {
		t.Fatalf("r1 log = %d entries, want 3", len(logMsgs))
	}
	if logMsgs[0].Scope != ScopeSystem || logMsgs[0].Content != "Breakout room r1 created" {
		t.Errorf("ack entry = %+v", logMsgs[0])
	}
	if logMsgs[1].Scope != ScopeError || logMsgs[1].Content != "student9 not found" {
		t.Errorf("error entry = %+v", logMsgs[1])
	}
	if logMsgs[2].Content != "Acknowledgment received" {
		t.Errorf("empty ack entry content = %q", logMsgs[2].Content)
	}
}

func TestReduce_UnknownEventAppendsSystemEntryOnly(t *testing.T) {
	st := NewStore(RoleStudent)
	st.Apply(protocol.RosterSnapshot{Students: []protocol.RosterEntry{
		{UserID: "bob", RoomID: "main"},
	}})
	rosterBefore := st.Participants()

	raw := []byte(`{"type":"WHISPER_ACK","message":"Whisper sent to bob"}`)
	st.Apply(protocol.UnknownEvent{Type: "WHISPER_ACK", Raw: raw})

	logMsgs := st.RoomLog(MainRoomID)
	if len(logMsgs) != 1 {
		t.Fatalf("main log = %d entries, want 1", len(logMsgs))
	}
	if logMsgs[0].Scope != ScopeSystem || logMsgs[0].Content != string(raw) {
		t.Errorf("unknown event entry = %+v", logMsgs[0])
	}
	if !reflect.DeepEqual(rosterBefore, st.Participants()) {
		t.Error("unknown event changed the roster")
	}
}

func TestReduce_DegradedInputsAreNoOps(t *testing.T) {
	st := NewStore(RoleStudent)

	// None of these may panic or corrupt state.
	applyAll(t, st,
		protocol.RoomChanged{},
		protocol.InstructorRoomChanged{},
		protocol.Whisper{Content: "no sender"},
		protocol.HelpRequested{UserID: "ghost"},
		protocol.BreakoutRequested{UserID: "ghost"},
		protocol.RosterSnapshot{Students: []protocol.RosterEntry{{UserID: ""}}},
	)

	if got := st.CurrentRoom(); got != MainRoomID {
		t.Errorf("current room = %q, want main", got)
	}
	// Only the seeded instructor peer remains.
	if got := len(st.Participants()); got != 1 {
		t.Errorf("roster size = %d, want 1", got)
	}
}

func TestReduce_SequencesMonotonicPerLog(t *testing.T) {
	st := NewStore(RoleStudent)
	applyAll(t, st,
		protocol.MainBroadcast{From: "a", Content: "1"},
		protocol.BreakoutBroadcast{From: "b", Content: "2", RoomID: "r1"},
		protocol.MainBroadcast{From: "a", Content: "3"},
		protocol.MainBroadcast{From: "a", Content: "4"},
	)

	main := st.RoomLog(MainRoomID)
	for i, m := range main {
		if m.Sequence != uint64(i+1) {
			t.Errorf("main[%d].Sequence = %d, want %d", i, m.Sequence, i+1)
		}
	}
	r1 := st.RoomLog("r1")
	if len(r1) != 1 || r1[0].Sequence != 1 {
		t.Errorf("r1 sequences = %+v, want a single entry at 1", r1)
	}
}

func TestReduce_StatusEvents(t *testing.T) {
	st := NewStore(RoleStudent)

	st.Apply(protocol.PrivateMessagingStatus{Enabled: false})
	if st.PrivateMessagingEnabled() {
		t.Error("private messaging should be disabled")
	}

	st.Apply(protocol.InstructorStatus{Connected: false})
	if st.InstructorOnline() {
		t.Error("instructor should be offline")
	}
	st.Apply(protocol.InstructorStatus{Connected: true})
	if !st.InstructorOnline() {
		t.Error("instructor should be back online")
	}
}

func TestReduce_StudentMessageLandsInMainLog(t *testing.T) {
	st := NewStore(RoleInstructor)
	st.Apply(protocol.RoomChanged{RoomID: "r1"})

	st.Apply(protocol.StudentMessage{From: "student2", Content: "question"})

	main := st.RoomLog(MainRoomID)
	if len(main) != 1 || main[0].From != "student2" {
		t.Fatalf("main log = %+v, want the student message", main)
	}
}

func mustParticipant(t *testing.T, st *Store, userID string) Participant {
	t.Helper()
	p, ok := st.Participant(userID)
	if !ok {
		t.Fatalf("participant %q not found", userID)
	}
	return p
}
