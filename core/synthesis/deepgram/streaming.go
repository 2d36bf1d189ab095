package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/voco-dev/voco/core/audio"
	"github.com/voco-dev/voco/core/synthesis"
)

type speakMsg struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = speakMsg{Type: "Flush"}
	clearMsg = speakMsg{Type: "Clear"}
	closeMsg = speakMsg{Type: "Close"}
)

// Speak renders one utterance, streaming audio chunks to the configured
// audio callback. It blocks until the utterance has been fully synthesized
// or ctx is cancelled; cancellation clears any queued synthesis.
func (c *Client) Speak(ctx context.Context, text string, opts ...synthesis.SpeakOption) error {
	options, err := c.speakOptions(opts)
	if err != nil {
		return err
	}

	conn, err := connectWebsocket(options.Voice, options.EncodingInfo)
	if err != nil {
		// The REST endpoint needs no long-lived socket, so use it as the
		// fallback path when the websocket cannot be established.
		return c.speakOnce(ctx, text, options)
	}

	done := make(chan error, 1)
	go readSpeechFrames(conn, options, done)

	for _, msg := range []speakMsg{{Type: "Speak", Text: text}, flushMsg} {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return fmt.Errorf("failed to send text to deepgram: %w", err)
		}
	}

	select {
	case err := <-done:
		_ = conn.WriteJSON(closeMsg)
		conn.Close()
		if err != nil {
			options.ErrorCallback(err)
			return fmt.Errorf("failed to synthesize speech: %w", err)
		}
		return nil
	case <-ctx.Done():
		_ = conn.WriteJSON(clearMsg)
		_ = conn.WriteJSON(closeMsg)
		conn.Close()
		return ctx.Err()
	}
}

func readSpeechFrames(conn *websocket.Conn, options synthesis.SpeakOptions, done chan<- error) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				done <- fmt.Errorf("websocket read failed: %w", err)
				return
			}
			done <- nil
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			options.AudioCallback(msg)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				log.Printf("Failed to unmarshal deepgram message: %v", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				// All audio for the flushed text has been delivered.
				done <- nil
				return
			case "Warning":
				log.Printf("Deepgram speak warning: %s", msg)
			}
		}
	}
}

func connectWebsocket(voice synthesis.Voice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", voice.Model)
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.Dial(
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
