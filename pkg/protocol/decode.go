package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the flat superset of all inbound payload fields. The relay
// never nests; unknown fields are ignored by json.Unmarshal, which is what
// forward compatibility requires here.
type envelope struct {
	Type      string        `json:"type"`
	UserID    string        `json:"userId"`
	RoomID    string        `json:"roomId"`
	From      string        `json:"from"`
	Content   string        `json:"content"`
	Message   string        `json:"message"`
	Enabled   bool          `json:"enabled"`
	Connected bool          `json:"connected"`
	Students  []RosterEntry `json:"students"`
}

// DecodeEvent turns one raw channel frame into a typed event. An
// undecodable body or a missing type tag yields ErrMalformedPayload; an
// intact body with an unrecognized tag yields UnknownEvent, never an error.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformedPayload)
	}

	switch env.Type {
	case EventAssignID:
		return IdentityAssigned{UserID: env.UserID}, nil
	case EventRoomChange:
		return RoomChanged{RoomID: env.RoomID}, nil
	case EventInstructorRoomChange:
		return InstructorRoomChanged{RoomID: env.RoomID}, nil
	case EventStudentList:
		return RosterSnapshot{Students: env.Students}, nil
	case EventAck:
		return Acknowledgment{Message: env.Message}, nil
	case EventError:
		return ServerError{Message: env.Message}, nil
	case EventWhisper:
		return Whisper{From: env.From, Content: env.Content}, nil
	case EventMainBroadcast:
		return MainBroadcast{From: env.From, Content: env.Content}, nil
	case EventBreakoutBroadcast:
		return BreakoutBroadcast{From: env.From, Content: env.Content, RoomID: env.RoomID}, nil
	case EventBreakoutOnlyBroadcast:
		return BreakoutOnlyBroadcast{From: env.From, Content: env.Content}, nil
	case EventGlobalBroadcast:
		return GlobalBroadcast{From: env.From, Content: env.Content}, nil
	case EventHelpRequest:
		return HelpRequested{UserID: env.UserID}, nil
	case EventBreakoutRequest:
		return BreakoutRequested{UserID: env.UserID}, nil
	case EventPrivateMessagingStatus:
		return PrivateMessagingStatus{Enabled: env.Enabled}, nil
	case EventStudentMessage:
		return StudentMessage{From: env.From, Content: env.Content}, nil
	case EventInstructorStatus:
		return InstructorStatus{Connected: env.Connected}, nil
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return UnknownEvent{Type: env.Type, Raw: raw}, nil
	}
}
