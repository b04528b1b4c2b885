package state

// Role identifies which side of the classroom this client is on.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Scope classifies the audience of a log entry.
type Scope string

const (
	ScopeWhisper      Scope = "whisper"
	ScopeMain         Scope = "main"
	ScopeBreakout     Scope = "breakout"
	ScopeBreakoutOnly Scope = "breakoutOnly"
	ScopeGlobal       Scope = "global"
	ScopeSystem       Scope = "system"
	ScopeError        Scope = "error"
)

const (
	// MainRoomID is the room every participant starts in.
	MainRoomID = "main"
	// GlobalLogID keys the log that accumulates session-wide broadcasts.
	GlobalLogID = "global"
	// InstructorID is the fixed identity the relay uses for the instructor.
	InstructorID = "Instructor"
	// LocalEchoSender marks a whisper we recorded locally before the relay
	// saw it.
	LocalEchoSender = "Me"
	// SystemSender marks entries generated by the engine or the relay
	// rather than a participant.
	SystemSender = "System"
)

// Message is one immutable entry in a room log or a whisper history.
// Sequence is monotonic per log and assigned at append time.
type Message struct {
	ID       string
	From     string
	To       string // empty means broadcast
	Scope    Scope
	RoomID   string // empty for global and whisper entries
	Content  string
	Sequence uint64
}

// Participant is one roster member plus the ephemeral per-peer state this
// client accumulates about them. A participant survives roster merges in
// place and is dropped only when a snapshot omits it.
type Participant struct {
	UserID            string
	Role              Role
	RoomID            string
	Messages          []Message // whisper exchanges with this client
	UnreadCount       int
	HelpRequested     bool
	BreakoutRequested bool
}

// Entry is one log append witnessed during a reduction or an echo. Log is
// the log key: a room id, GlobalLogID, or WhisperLog(peer).
type Entry struct {
	Log     string
	Message Message
}

// WhisperLog returns the log key for whisper history with one peer.
func WhisperLog(userID string) string {
	return "whisper:" + userID
}

// State is the single canonical session model. It is owned by a Store and
// must only be mutated through Reduce or the Store's echo methods.
type State struct {
	SelfID         string
	Role           Role
	CurrentRoom    string
	InstructorRoom string

	// InstructorOnline tracks the relay's instructor-status pushes.
	// Starts true: the student endpoint only reports changes.
	InstructorOnline bool

	Rooms  map[string]bool
	Roster map[string]*Participant
	Logs   map[string][]Message

	PrivateMessagingEnabled bool

	// ChatTarget is the peer whose whisper pane is open, if any. Whispers
	// from the open target do not accumulate unread counts.
	ChatTarget string

	// Self request flags, meaningful for students.
	HelpRequested     bool
	BreakoutRequested bool

	// roomConfirmed flips on the first ROOM_CHANGE. Until then the current
	// room is only an assumption and breakout-only traffic is buffered.
	roomConfirmed bool

	// pending queues messages whose destination room is not yet known,
	// keyed by room id with "" meaning "whatever room is confirmed next".
	// Flushed FIFO exactly once when the room becomes known.
	pending map[string][]Message

	seq      map[string]uint64
	appended []Entry
}

// NewState returns the initial session model: in main, whispers enabled,
// empty logs. Students start with an instructor peer in the roster so the
// whisper pane has somewhere to go before the first snapshot.
func NewState(role Role) *State {
	s := &State{
		Role:                    role,
		CurrentRoom:             MainRoomID,
		InstructorRoom:          MainRoomID,
		InstructorOnline:        true,
		Rooms:                   map[string]bool{MainRoomID: true},
		Roster:                  make(map[string]*Participant),
		Logs:                    make(map[string][]Message),
		PrivateMessagingEnabled: true,
		pending:                 make(map[string][]Message),
		seq:                     make(map[string]uint64),
	}
	if role == RoleStudent {
		s.Roster[InstructorID] = &Participant{
			UserID: InstructorID,
			Role:   RoleInstructor,
			RoomID: MainRoomID,
		}
	}
	return s
}
