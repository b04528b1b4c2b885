package protocol

import "encoding/json"

// Outbound command type tags. BREAKOUT_BROADCAST doubles as the inbound
// tag; on the way out it means "every breakout room, not main".
const (
	CommandCreateMainRoom         = "CREATE_MAIN_ROOM"
	CommandCreateBreakout         = "CREATE_BREAKOUT"
	CommandCloseBreakout          = "CLOSE_BREAKOUT"
	CommandMoveToBreakout         = "MOVE_TO_BREAKOUT"
	CommandJoinBreakout           = "JOIN_BREAKOUT"
	CommandWhisper                = "WHISPER"
	CommandBroadcastMain          = "BROADCAST_MAIN"
	CommandBroadcastAll           = "BROADCAST_ALL"
	CommandBroadcastCurrentRoom   = "BROADCAST_CURRENT_ROOM"
	CommandBroadcastBreakoutOnly  = "BREAKOUT_BROADCAST"
	CommandRequestBreakout        = "REQUEST_BREAKOUT"
	CommandHelpRequest            = "HELP_REQUEST"
	CommandTogglePrivateMessaging = "TOGGLE_PRIVATE_MESSAGING"
)

// Command is one outbound payload. Flat and field-named like the inbound
// side; fields that do not apply to a given type stay zero and are omitted.
type Command struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	UserID  string `json:"userId,omitempty"`
	To      string `json:"to,omitempty"`
	Content string `json:"content,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Encode renders the command as a channel frame.
func (c Command) Encode() ([]byte, error) {
	if c.Type == "" {
		return nil, ErrMissingCommandType
	}
	return json.Marshal(c)
}
