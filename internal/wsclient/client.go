// Package wsclient is the operator-side WebSocket client: it dials a
// telemetry fan-out endpoint, streams decoded frames to a handler, and
// reconnects with exponential backoff on any read/dial failure. Grounded
// on ctl.Watch (gorilla websocket.DefaultDialer, signal-driven disconnect
// via WriteControl), generalized into a reusable library instead of a
// one-shot CLI command.
package wsclient

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Handler is invoked once per inbound frame, in order, from the single
// read loop goroutine Run owns.
type Handler func(raw []byte)

// Client streams frames from a telemetry fan-out endpoint, reconnecting
// automatically until its context is cancelled.
type Client struct {
	url    string
	logger *log.Logger
	dialer *websocket.Dialer
}

// New constructs a client for the given ws:// or wss:// URL. rawURL may
// also be given as http(s):// and is rewritten to the matching ws(s)://
// scheme, matching ctl.Watch's convenience behavior.
func New(rawURL string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("wsclient: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("wsclient: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "", 0)
	}
	return &Client{url: u.String(), logger: logger, dialer: websocket.DefaultDialer}, nil
}

// backoffDelay implements sleep = min(2^min(attempt,3), 8) seconds,
// starting at 1s on the first retry (attempt == 0).
func backoffDelay(attempt int) time.Duration {
	shift := attempt
	if shift > 3 {
		shift = 3
	}
	seconds := 1 << shift
	if seconds > 8 {
		seconds = 8
	}
	return time.Duration(seconds) * time.Second
}

// Run connects and streams frames to handle until ctx is cancelled. A
// dial failure or a lost connection triggers a reconnect after an
// exponentially increasing backoff, reset to zero after any connection
// that delivers at least one frame successfully. Run only returns when
// ctx is done.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		framesRead, err := c.runOnce(ctx, handle)
		elapsed := time.Since(start)

		if err == nil {
			c.logger.Printf("wsclient: disconnected after %s, %d frames, closing by request", elapsed, framesRead)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Printf("wsclient: connection attempt failed after %s (%d frames): %v", elapsed, framesRead, err)
		if framesRead > 0 {
			attempt = 0
		}
		delay := backoffDelay(attempt)
		attempt++

		c.logger.Printf("wsclient: reconnecting in %s (attempt %d)", delay, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runOnce dials once and reads frames until the connection ends or ctx is
// cancelled. It returns a nil error only after ctx was cancelled; any
// close from the server side, clean or not, comes back as a read error,
// and Run then reconnects.
func (c *Client) runOnce(ctx context.Context, handle Handler) (int, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		close(closed)
	}()

	frames := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-closed:
				return frames, nil
			default:
				return frames, fmt.Errorf("read: %w", err)
			}
		}
		frames++
		handle(msg)
	}
}
