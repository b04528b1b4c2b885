// Package transport wraps one gorilla/websocket connection as the
// session's duplex channel. Writes are serialized through a single writer
// goroutine; reads happen on the caller's goroutine, one event at a time,
// in arrival order. Closure is reported, never retried here.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"breakout/pkg/interfaces"
	"breakout/pkg/protocol"
)

// Options tune a channel. Zero values fall back to the defaults below.
type Options struct {
	WriteTimeout time.Duration
	SendBuffer   int
}

const (
	defaultWriteTimeout = 5 * time.Second
	defaultSendBuffer   = 100
)

// Channel implements interfaces.Channel over a websocket connection.
type Channel struct {
	conn         *websocket.Conn
	writeCh      chan []byte
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// Dial connects to the relay endpoint and wraps the connection.
func Dial(ctx context.Context, url string, opts Options) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewChannel(conn, opts), nil
}

// NewChannel wraps an established websocket connection and starts the
// writer goroutine.
func NewChannel(conn *websocket.Conn, opts Options) *Channel {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		conn:         conn,
		writeCh:      make(chan []byte, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	go c.writeLoop()
	return c
}

// writeLoop is the single writer. Gorilla connections do not tolerate
// concurrent writers, so every frame funnels through here.
func (c *Channel) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues one command for the writer goroutine. Fire-and-forget: a
// nil return means queued, not delivered.
func (c *Channel) Send(cmd protocol.Command) error {
	data, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	select {
	case <-c.ctx.Done():
		return interfaces.ErrChannelClosed
	default:
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return interfaces.ErrChannelClosed
	}
}

// Receive blocks for the next inbound frame and decodes it. A frame that
// fails to decode returns protocol.ErrMalformedPayload with the channel
// still usable. A transport failure closes the channel and returns
// interfaces.ErrChannelClosed; that condition is terminal.
func (c *Channel) Receive() (protocol.Event, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %v", interfaces.ErrChannelClosed, err)
	}
	return protocol.DecodeEvent(data)
}

// Close tears the connection down. Safe to call more than once; queued
// but unwritten frames are discarded.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}
