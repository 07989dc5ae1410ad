// Package client talks to a conepose server over WebSocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// ErrClosed is returned for calls on a closed client or one whose
// connection dropped.
var ErrClosed = errors.New("client closed")

// Client is an estimate session. It is safe for concurrent use; replies are
// matched to requests by ID.
type Client struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *protocol.Message
	err     error

	done chan struct{}
}

// Dial opens an estimate session at url, e.g. ws://host:8090/ws/estimate.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		ws:      ws,
		pending: make(map[string]chan *protocol.Message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("ignoring unparseable server message", "error", err)
			continue
		}

		id := replyID(msg)
		c.mu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()

		if ok {
			ch <- msg
		} else {
			log.Debug("unmatched server message", "type", msg.Type, "id", id)
		}
	}
}

func replyID(msg *protocol.Message) string {
	switch msg.Type {
	case protocol.TypeResult:
		if r, err := msg.GetResultData(); err == nil {
			return r.ID
		}
	case protocol.TypePong:
		if p, err := msg.GetPongData(); err == nil {
			return p.ID
		}
	}
	return ""
}

// fail records the first connection error and releases every waiter.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// roundTrip sends msg and waits for the reply tagged id.
func (c *Client) roundTrip(ctx context.Context, id string, msg *protocol.Message) (*protocol.Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return nil, err
	}

	ch := make(chan *protocol.Message, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.wsMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.wsMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("send: %w", err)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return reply, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Estimate asks the server for one cone position. An unsolvable box is not
// an error: the result comes back with Found false and a Reason.
func (c *Client) Estimate(ctx context.Context, left, right int, heading float64) (protocol.ResultData, error) {
	msg, err := protocol.NewEstimateMessage(left, right, heading)
	if err != nil {
		return protocol.ResultData{}, err
	}
	req, err := msg.GetEstimateRequest()
	if err != nil {
		return protocol.ResultData{}, err
	}

	reply, err := c.roundTrip(ctx, req.ID, msg)
	if err != nil {
		return protocol.ResultData{}, err
	}
	result, err := reply.GetResultData()
	if err != nil {
		return protocol.ResultData{}, fmt.Errorf("decode result: %w", err)
	}
	return *result, nil
}

// Ping measures the round trip to the server.
func (c *Client) Ping(ctx context.Context, id string) (time.Duration, error) {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	if _, err := c.roundTrip(ctx, id, msg); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Close closes the connection and waits for the read loop to stop.
func (c *Client) Close() error {
	c.wsMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wsMu.Unlock()

	err := c.ws.Close()
	<-c.done
	return err
}

// Watch streams every result broadcast at url (…/ws/results) to fn until
// ctx is cancelled or the connection drops.
func Watch(ctx context.Context, url string, fn func(protocol.ResultData)) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeResult {
			continue
		}
		if result, err := msg.GetResultData(); err == nil {
			fn(*result)
		}
	}
}
