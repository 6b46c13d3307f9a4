// Package wsclient is a minimal reconnecting client for the yuchat presence
// channel. Abnormal closures retry with exponential backoff; a clean server
// close ends the session.
package wsclient

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	maxAttempts    = 5
)

// ErrGaveUp is returned after the retry budget is exhausted.
var ErrGaveUp = errors.New("wsclient: retry attempts exhausted")

// Backoff returns the delay before the given retry attempt (0-based):
// 1s, 2s, 4s, ... capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := initialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

type Client struct {
	URL       string
	Token     string
	OnMessage func([]byte)

	Dialer *websocket.Dialer
}

// Run connects and reads envelopes until the context is cancelled or the
// server closes cleanly. Each abnormal closure consumes one retry attempt;
// the counter resets after a successful (re)connect.
func (c *Client) Run(ctx context.Context) error {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	attempt := 0
	for {
		conn, _, err := dialer.DialContext(ctx, c.dialURL(), nil)
		if err == nil {
			attempt = 0
			clean, _ := c.readLoop(ctx, conn)
			if clean || ctx.Err() != nil {
				return ctx.Err()
			}
		}

		attempt++
		if attempt > maxAttempts {
			return ErrGaveUp
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(attempt - 1)):
		}
	}
}

func (c *Client) dialURL() string {
	if c.Token == "" {
		return c.URL
	}
	sep := "?"
	for i := 0; i < len(c.URL); i++ {
		if c.URL[i] == '?' {
			sep = "&"
			break
		}
	}
	return c.URL + sep + "token=" + c.Token
}

// readLoop returns clean=true on a normal closure (code 1000), which must
// not trigger a retry.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) (clean bool, err error) {
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}
		if c.OnMessage != nil {
			c.OnMessage(b)
		}
	}
}
