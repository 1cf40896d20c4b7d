package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/larasedova/alpina-gpt-builder/internal/transport/ws"
)

// Client is a live chat websocket client bound to one (bot, session) pair.
type Client struct {
	conn    *websocket.Conn
	done    chan struct{}
	counter atomic.Int64
}

// Dial connects to the live chat endpoint at addr.
func Dial(addr string, botID int64, userSession string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	q := u.Query()
	q.Set("bot_id", strconv.FormatInt(botID, 10))
	if userSession != "" {
		q.Set("user_session", userSession)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn, done: make(chan struct{})}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// Send sends a turn or chat frame. A nil message advances the scenario
// without input and is only valid for turns.
func (c *Client) Send(frameType string, message *string) (string, error) {
	requestID := fmt.Sprintf("req_%d", c.counter.Add(1))
	frame := ws.InboundFrame{
		BaseFrame: ws.BaseFrame{Type: frameType, Ts: time.Now().UnixMilli(), RequestID: requestID},
		Message:   message,
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}
	return requestID, nil
}

// Read blocks for the next frame and renders it as a single line.
func (c *Client) Read() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return render(data)
}

func render(data []byte) (string, error) {
	var base ws.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		return "", fmt.Errorf("unmarshal frame: %w", err)
	}

	switch base.Type {
	case ws.TypeTurnResult:
		var f ws.TurnResultFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return "", err
		}
		line := "bot: " + f.Response
		switch {
		case f.WaitForInput:
			line += "  (waiting for your answer)"
		case f.Completed:
			line += "  (scenario completed)"
		}
		return line, nil
	case ws.TypeChatResult:
		var f ws.ChatResultFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return "", err
		}
		if f.TokensUsed != nil {
			return fmt.Sprintf("bot: %s  [%d tokens]", f.Response, *f.TokensUsed), nil
		}
		return "bot: " + f.Response, nil
	case ws.TypeError:
		var f ws.ErrorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return "", err
		}
		return fmt.Sprintf("error [%s]: %s", f.Code, f.Message), nil
	default:
		return fmt.Sprintf("[%s] %s", base.Type, string(data)), nil
	}
}
