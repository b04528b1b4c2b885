package tui

import (
	"strings"

	"breakout/internal/command"
)

// intentKind tags what the composer input asked for.
type intentKind int

const (
	intentSay intentKind = iota // plain text into the active pane
	intentWhisper
	intentScope
	intentOpenChat
	intentCloseChat
	intentShowRoom
	intentCreateMain
	intentCreateBreakout
	intentCloseBreakout
	intentMoveStudent
	intentJoinBreakout
	intentRequestHelp
	intentRequestBreakout
	intentTogglePM
	intentQuit
	intentInvalid
)

// intent is one parsed composer line.
type intent struct {
	kind    intentKind
	target  string // user or room, depending on kind
	room    string
	content string
	scope   command.BroadcastScope
	enabled bool
}

// parseIntent interprets a composer line. Lines starting with "/" are
// commands; everything else is a message for the active pane.
func parseIntent(line string) intent {
	line = strings.TrimSpace(line)
	if line == "" {
		return intent{kind: intentInvalid}
	}
	if !strings.HasPrefix(line, "/") {
		return intent{kind: intentSay, content: line}
	}

	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch verb {
	case "/w", "/whisper":
		if len(fields) < 3 {
			return intent{kind: intentInvalid}
		}
		return intent{
			kind:    intentWhisper,
			target:  fields[1],
			content: strings.TrimSpace(strings.TrimPrefix(rest, fields[1])),
		}
	case "/scope":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		switch strings.ToLower(fields[1]) {
		case "main":
			return intent{kind: intentScope, scope: command.ScopeMain}
		case "global", "all":
			return intent{kind: intentScope, scope: command.ScopeGlobal}
		case "breakout", "breakoutonly":
			return intent{kind: intentScope, scope: command.ScopeBreakoutOnly}
		case "room", "currentroom":
			return intent{kind: intentScope, scope: command.ScopeCurrentRoom}
		}
		return intent{kind: intentInvalid}
	case "/chat":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentOpenChat, target: fields[1]}
	case "/back":
		return intent{kind: intentCloseChat}
	case "/room":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentShowRoom, room: fields[1]}
	case "/mainroom":
		return intent{kind: intentCreateMain}
	case "/create":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentCreateBreakout, room: fields[1]}
	case "/close":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentCloseBreakout, room: fields[1]}
	case "/move":
		if len(fields) != 3 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentMoveStudent, target: fields[1], room: fields[2]}
	case "/join":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		return intent{kind: intentJoinBreakout, room: fields[1]}
	case "/help":
		return intent{kind: intentRequestHelp}
	case "/breakout":
		return intent{kind: intentRequestBreakout}
	case "/pm":
		if len(fields) != 2 {
			return intent{kind: intentInvalid}
		}
		switch strings.ToLower(fields[1]) {
		case "on":
			return intent{kind: intentTogglePM, enabled: true}
		case "off":
			return intent{kind: intentTogglePM, enabled: false}
		}
		return intent{kind: intentInvalid}
	case "/quit", "/q":
		return intent{kind: intentQuit}
	default:
		return intent{kind: intentInvalid}
	}
}
