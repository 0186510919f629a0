package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

var (
	// ErrSendQueueFull is returned by a connection whose peer stopped
	// reading.
	ErrSendQueueFull = errors.New("channel: send queue full")

	// ErrConnClosed is returned when sending to a connection that has
	// finished serving.
	ErrConnClosed = errors.New("channel: connection closed")
)

// wsConn is a Sender writing text frames to a WebSocket from its own
// goroutine, so the host thread never waits on the network.
type wsConn struct {
	ws   *websocket.Conn
	out  chan []byte
	done chan struct{}
}

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *wsConn) writeLoop(ctx context.Context, timeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := c.ws.Write(wctx, websocket.MessageText, f)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// Serve attaches ws to the channel and relays frames until ctx is done or
// the peer goes away. Every text frame is a call handled on the host
// thread; replies and events are written back as text frames. A normal
// close by the peer returns nil.
func (ch *Channel) Serve(ctx context.Context, ws *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &wsConn{
		ws:   ws,
		out:  make(chan []byte, ch.opts.sendQueue),
		done: make(chan struct{}),
	}
	detach := ch.Attach(c)
	defer detach()
	defer close(c.done)

	go func() {
		if err := c.writeLoop(ctx, ch.opts.writeTimeout); err != nil {
			ch.logger().Warn("channel: write failed, closing connection", "err", err)
			ws.Close(websocket.StatusInternalError, "write failed")
			cancel()
		}
	}()

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("channel: read: %w", err)
		}
		if typ != websocket.MessageText {
			ch.logger().Warn("channel: ignoring non-text frame", "type", typ)
			continue
		}
		if !ch.Post(data, c) {
			ws.Close(websocket.StatusGoingAway, "shutting down")
			return ErrHostClosed
		}
	}
}
