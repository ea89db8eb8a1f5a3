package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/garcia/facebook-api/internal/domain"
)

// Watch streams post change events to fn until the context is cancelled. It
// automatically reconnects after transient errors; events published while
// disconnected are not replayed.
func (c *Client) Watch(ctx context.Context, fn func(domain.PostEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.watch(ctx, fn); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("post stream error, reconnecting", "error", err, "delay", c.reconnectDelay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.reconnectDelay):
				}
			}
		}
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/posts/stream"
	return u.String(), nil
}

func (c *Client) watch(ctx context.Context, fn func(domain.PostEvent)) error {
	wsURL, err := c.streamURL()
	if err != nil {
		return err
	}
	c.logger.Info("connecting to post stream", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	c.logger.Info("connected to post stream")

	// ReadMessage does not observe ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var received int64
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message (after %d events): %w", received, err)
		}

		var event domain.PostEvent
		if err := json.Unmarshal(message, &event); err != nil {
			c.logger.Error("failed to parse event", "error", err)
			continue
		}
		received++
		fn(event)
	}
}
