package protocol

// Inbound event type tags, exactly as the relay writes them on the wire.
const (
	EventAssignID               = "ASSIGN_ID"
	EventRoomChange             = "ROOM_CHANGE"
	EventInstructorRoomChange   = "INSTRUCTOR_ROOM_CHANGE"
	EventStudentList            = "STUDENT_LIST"
	EventAck                    = "ACK"
	EventError                  = "ERROR"
	EventWhisper                = "WHISPER"
	EventMainBroadcast          = "MAIN_BROADCAST"
	EventBreakoutBroadcast      = "BREAKOUT_BROADCAST"
	EventBreakoutOnlyBroadcast  = "BREAKOUT_ONLY_BROADCAST"
	EventGlobalBroadcast        = "GLOBAL_BROADCAST"
	EventHelpRequest            = "HELP_REQUEST"
	EventBreakoutRequest        = "BREAKOUT_REQUEST"
	EventPrivateMessagingStatus = "PRIVATE_MESSAGING_STATUS"
	EventStudentMessage         = "STUDENT_MESSAGE"
	EventInstructorStatus       = "INSTRUCTOR_STATUS"
)

// Event is the closed set of server pushes the session engine understands.
// DecodeEvent maps every unrecognized tag to UnknownEvent, so consumers
// switching on the concrete type must still carry a default arm.
type Event interface {
	eventKind() string
}

// IdentityAssigned carries the user id the relay picked for this client.
// Sent once, to students only.
type IdentityAssigned struct {
	UserID string
}

// RoomChanged moves this client to a new room.
type RoomChanged struct {
	RoomID string
}

// InstructorRoomChanged reports where the instructor currently is.
type InstructorRoomChanged struct {
	RoomID string
}

// RosterEntry is one row of an authoritative roster snapshot.
type RosterEntry struct {
	UserID string `json:"userId"`
	RoomID string `json:"room"`
}

// RosterSnapshot replaces the known participant list.
type RosterSnapshot struct {
	Students []RosterEntry
}

// Acknowledgment is the relay's generic confirmation of an earlier command.
// It carries no correlation id; it is logged, not matched.
type Acknowledgment struct {
	Message string
}

// ServerError is a non-fatal error reported by the relay.
type ServerError struct {
	Message string
}

// Whisper is a private message addressed to this client.
type Whisper struct {
	From    string
	Content string
}

// MainBroadcast is a message fanned out to the main room.
type MainBroadcast struct {
	From    string
	Content string
}

// BreakoutBroadcast is a message fanned out inside one breakout room.
// RoomID may be empty; the reducer defaults it to the main room.
type BreakoutBroadcast struct {
	From    string
	Content string
	RoomID  string
}

// BreakoutOnlyBroadcast is a message fanned out to every breakout room,
// skipping the main room. It never names a room; delivery is resolved
// against the receiver's current room.
type BreakoutOnlyBroadcast struct {
	From    string
	Content string
}

// GlobalBroadcast is a message fanned out to every connected participant.
type GlobalBroadcast struct {
	From    string
	Content string
}

// HelpRequested reports that a student raised their hand.
type HelpRequested struct {
	UserID string
}

// BreakoutRequested reports that a student asked for a breakout room.
type BreakoutRequested struct {
	UserID string
}

// PrivateMessagingStatus toggles student-to-student whispers.
type PrivateMessagingStatus struct {
	Enabled bool
}

// StudentMessage is the instructor-side copy of a student's main-room
// broadcast.
type StudentMessage struct {
	From    string
	Content string
}

// InstructorStatus reports whether an instructor is connected.
type InstructorStatus struct {
	Connected bool
}

// UnknownEvent preserves a payload whose tag this build does not know.
// Raw holds the verbatim body so it can be surfaced rather than dropped.
type UnknownEvent struct {
	Type string
	Raw  []byte
}

func (IdentityAssigned) eventKind() string       { return EventAssignID }
func (RoomChanged) eventKind() string            { return EventRoomChange }
func (InstructorRoomChanged) eventKind() string  { return EventInstructorRoomChange }
func (RosterSnapshot) eventKind() string         { return EventStudentList }
func (Acknowledgment) eventKind() string         { return EventAck }
func (ServerError) eventKind() string            { return EventError }
func (Whisper) eventKind() string                { return EventWhisper }
func (MainBroadcast) eventKind() string          { return EventMainBroadcast }
func (BreakoutBroadcast) eventKind() string      { return EventBreakoutBroadcast }
func (BreakoutOnlyBroadcast) eventKind() string  { return EventBreakoutOnlyBroadcast }
func (GlobalBroadcast) eventKind() string        { return EventGlobalBroadcast }
func (HelpRequested) eventKind() string          { return EventHelpRequest }
func (BreakoutRequested) eventKind() string      { return EventBreakoutRequest }
func (PrivateMessagingStatus) eventKind() string { return EventPrivateMessagingStatus }
func (StudentMessage) eventKind() string         { return EventStudentMessage }
func (InstructorStatus) eventKind() string       { return EventInstructorStatus }
func (u UnknownEvent) eventKind() string         { return u.Type }

// Kind returns the wire tag of any decoded event.
func Kind(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventKind()
}
