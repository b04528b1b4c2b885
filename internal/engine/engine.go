// Package engine runs the session: one goroutine consumes inbound events
// in arrival order and applies them to the store, while user intents are
// validated, echoed, and sent out through the same engine. No two
// reductions ever run concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"breakout/internal/command"
	"breakout/internal/state"
	"breakout/pkg/interfaces"
	"breakout/pkg/protocol"
)

// Transcripts is the sink that mirrors appended log entries. Implemented
// by the archive package; nil disables mirroring.
type Transcripts interface {
	Append(ctx context.Context, logKey string, m state.Message) error
	Close() error
}

// Engine wires the channel, the reducer-owned store, the command builder,
// and the transcript mirror together.
type Engine struct {
	channel    interfaces.Channel
	store      *state.Store
	builder    *command.Builder
	transcript Transcripts
	updates    chan struct{}
}

// New creates an engine. transcript may be nil.
func New(channel interfaces.Channel, store *state.Store, transcript Transcripts) *Engine {
	return &Engine{
		channel:    channel,
		store:      store,
		builder:    command.NewBuilder(store),
		transcript: transcript,
		updates:    make(chan struct{}, 1),
	}
}

// Store exposes the read model for projectors.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Updates signals after every fully applied state change. Notifications
// coalesce; a reader sees at least one signal per batch of changes.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Run consumes the channel until it closes. Malformed payloads are logged
// and dropped; everything else reduces into the store. The returned error
// is the terminal condition: interfaces.ErrChannelClosed, or the context's
// error when the caller cancelled.
func (e *Engine) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = e.channel.Close() })
	defer stop()

	for {
		ev, err := e.channel.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedPayload) {
				log.Printf("dropping malformed event: %v", err)
				continue
			}
			e.notify()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, interfaces.ErrChannelClosed) {
				return err
			}
			return fmt.Errorf("%w: %v", interfaces.ErrChannelClosed, err)
		}

		entries := e.store.Apply(ev)
		e.mirror(ctx, entries)
		e.notify()
	}
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// mirror forwards appended entries to the transcript sink. Archive
// trouble is logged and swallowed; it must never disturb the session.
func (e *Engine) mirror(ctx context.Context, entries []state.Entry) {
	if e.transcript == nil {
		return
	}
	for _, entry := range entries {
		if err := e.transcript.Append(ctx, entry.Log, entry.Message); err != nil {
			log.Printf("transcript append failed for %s: %v", entry.Log, err)
		}
	}
}

// dispatch sends a built command, mirroring any optimistic echoes first.
// A validation error suppresses the send entirely.
func (e *Engine) dispatch(cmd protocol.Command, entries []state.Entry, err error) error {
	if err != nil {
		return err
	}
	e.mirror(context.Background(), entries)
	e.notify()
	return e.channel.Send(cmd)
}

// Compose sends a message intent: whisper when recipient is set,
// otherwise a broadcast resolved by the scope table.
func (e *Engine) Compose(recipient string, scope command.BroadcastScope, content string) error {
	return e.dispatch(e.builder.Compose(recipient, scope, content))
}

// Whisper sends a private message with a local echo.
func (e *Engine) Whisper(to, content string) error {
	return e.dispatch(e.builder.Whisper(to, content))
}

// Broadcast sends to the audience the scope table resolves.
func (e *Engine) Broadcast(scope command.BroadcastScope, content string) error {
	cmd, err := e.builder.Broadcast(scope, content)
	return e.dispatch(cmd, nil, err)
}

// CreateMainRoom (instructor) re-establishes the main room.
func (e *Engine) CreateMainRoom() error {
	cmd, err := e.builder.CreateMainRoom()
	return e.dispatch(cmd, nil, err)
}

// CreateBreakout (instructor) opens a breakout room.
func (e *Engine) CreateBreakout(roomID string) error {
	cmd, err := e.builder.CreateBreakout(roomID)
	return e.dispatch(cmd, nil, err)
}

// CloseBreakout (instructor) closes a breakout room.
func (e *Engine) CloseBreakout(roomID string) error {
	cmd, err := e.builder.CloseBreakout(roomID)
	return e.dispatch(cmd, nil, err)
}

// MoveToBreakout (instructor) moves a student into a breakout room.
func (e *Engine) MoveToBreakout(userID, roomID string) error {
	cmd, err := e.builder.MoveToBreakout(userID, roomID)
	return e.dispatch(cmd, nil, err)
}

// JoinBreakout (instructor) moves this client into a breakout room.
func (e *Engine) JoinBreakout(roomID string) error {
	return e.dispatch(e.builder.JoinBreakout(roomID))
}

// RequestHelp (student) raises a hand.
func (e *Engine) RequestHelp() error {
	return e.dispatch(e.builder.RequestHelp())
}

// RequestBreakout (student) asks for a breakout room.
func (e *Engine) RequestBreakout() error {
	cmd, err := e.builder.RequestBreakout()
	return e.dispatch(cmd, nil, err)
}

// TogglePrivateMessaging (instructor) gates student whispers.
func (e *Engine) TogglePrivateMessaging(enabled bool) error {
	cmd, err := e.builder.TogglePrivateMessaging(enabled)
	return e.dispatch(cmd, nil, err)
}

// OpenChat makes a peer the active whisper target.
func (e *Engine) OpenChat(userID string) {
	e.store.OpenChat(userID)
	e.notify()
}

// CloseChat clears the active whisper target.
func (e *Engine) CloseChat() {
	e.store.CloseChat()
	e.notify()
}
