// Package deepgram implements the recognition contract on top of Deepgram's
// live-listen websocket API.
package deepgram

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/voco-dev/voco/core/recognition"
)

// Client is a live recognizer backed by a Deepgram listen websocket. One
// Listen call corresponds to one listening session; the session ends when
// Deepgram reports the utterance complete or Stop is called.
type Client struct {
	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time

	// results accumulates the current session's results in utterance order.
	// The tail result is replaced in place while it is interim.
	results       []recognition.Result
	interimOpen   bool
	sawTranscript bool
	resultsMu     sync.Mutex
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("no active listening session")
	}

	c.lastMsgTs = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *Client) sendSilence(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *Client) sendKeepAlive() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}

	if err := c.conn.WriteJSON(
		struct {
			Type string `json:"type"`
		}{
			Type: "KeepAlive",
		}); err != nil {
		log.Println("Failed to write to deepgram client", "error", err)
	}
}

// Stop ends the active listening session without waiting for a final result.
// It is safe to call when no session is active.
func (c *Client) Stop() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		if err := c.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to close deepgram stream through websocket: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close deepgram websocket: %w", err)
		}
	}
	return nil
}

func (c *Client) resetSession() {
	c.resultsMu.Lock()
	c.results = nil
	c.interimOpen = false
	c.sawTranscript = false
	c.resultsMu.Unlock()
}
