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
	"strings"
	"time"

	"github.com/gorilla/websocket"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/voco-dev/voco/core/audio"
	"github.com/voco-dev/voco/core/recognition"
)

// Listen opens a listening session. Callbacks registered through opts are
// invoked from the connection's read goroutine until the session ends.
func (c *Client) Listen(ctx context.Context, opts ...recognition.ListenOption) error {
	options := &recognition.ListenOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := connectWebsocket(connectionOptions{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),
		language:   options.Language,

		detectSpeechStart: options.SpeechStartedCallback != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	c.resetSession()
	c.connMu.Lock()
	c.conn = conn
	c.lastMsgTs = time.Now()
	c.connMu.Unlock()

	go c.readAndProcessMessages(ctx, conn, *options)

	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
	language   string

	detectSpeechStart bool
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	if options.language != "" {
		queryParams.Set("language", options.language)
	}
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	if options.detectSpeechStart {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (c *Client) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options recognition.ListenOptions) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go c.generateSilence(silenceCtx, options.EncodingInfo)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			active := c.detachConn(conn)
			conn.Close()
			if err.Error() != "websocket: close 1000 (normal)" {
				log.Println("Failed to read deepgram websocket message", "error", err)
				if active && options.ErrorCallback != nil {
					options.ErrorCallback("network", fmt.Sprintf("recognition stream failed: %v", err))
				}
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			c.processMessage(msg, options)
		}
	}
}

// detachConn clears the stored connection if it is still the one served by
// this read loop. It reports whether the session was still considered active.
func (c *Client) detachConn(conn *websocket.Conn) bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == conn {
		c.conn = nil
		return true
	}
	return false
}

func (c *Client) processMessage(msg []byte, options recognition.ListenOptions) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Println("Failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if batch, ok := c.appendResult(msgResp); ok && options.ResultCallback != nil {
			options.ResultCallback(batch)
		}

		if msgResp.IsFinal && msgResp.SpeechFinal {
			c.endSession(options)
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		c.endSession(options)

	case api.TypeSpeechStartedResponse:
		var msgResp api.SpeechStartedResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}

	// TypeErrorResponse is re-exported from the SDK's common interfaces
	// package as a different defined type, so it needs an explicit
	// conversion to land in this switch.
	case api.TypeResponse(api.TypeErrorResponse):
		var msgResp struct {
			ErrCode     string `json:"err_code"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			log.Println("Failed to unmarshal deepgram message", err)
			return
		}

		if options.ErrorCallback != nil {
			options.ErrorCallback(mapErrorCode(msgResp.ErrCode), msgResp.Description)
		}
	}
}

// appendResult folds one Deepgram message into the session's result list.
// Interim messages replace the open tail result; final messages seal it.
func (c *Client) appendResult(msgResp api.MessageResponse) (recognition.Batch, bool) {
	if len(msgResp.Channel.Alternatives) == 0 {
		return recognition.Batch{}, false
	}

	alternatives := make([]recognition.Alternative, 0, len(msgResp.Channel.Alternatives))
	for _, alternative := range msgResp.Channel.Alternatives {
		alternatives = append(alternatives, recognition.Alternative{
			Transcript: alternative.Transcript,
			Confidence: alternative.Confidence,
		})
	}

	result := recognition.Result{Alternatives: alternatives, IsFinal: msgResp.IsFinal}
	if strings.TrimSpace(result.Top()) == "" && !msgResp.IsFinal {
		return recognition.Batch{}, false
	}

	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()

	if c.interimOpen {
		c.results[len(c.results)-1] = result
	} else {
		c.results = append(c.results, result)
	}
	c.interimOpen = !msgResp.IsFinal
	if strings.TrimSpace(result.Top()) != "" {
		c.sawTranscript = true
	}

	results := make([]recognition.Result, len(c.results))
	copy(results, c.results)
	return recognition.Batch{Results: results, StartIndex: len(results) - 1}, true
}

func (c *Client) endSession(options recognition.ListenOptions) {
	c.resultsMu.Lock()
	sawTranscript := c.sawTranscript
	c.results = nil
	c.interimOpen = false
	c.sawTranscript = false
	c.resultsMu.Unlock()

	if !sawTranscript && options.ErrorCallback != nil {
		options.ErrorCallback("no-speech", "no speech was detected before the utterance ended")
	}
	if options.EndCallback != nil {
		options.EndCallback()
	}
	if err := c.Stop(); err != nil {
		log.Println("Failed to stop deepgram stream", "error", err)
	}
}

func (c *Client) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const durationMs = 50
	const millisecondsPerSecond = 1000
	ticker := time.NewTicker(durationMs * time.Millisecond)

	chunk := make([]byte, encoding.SampleRate*encoding.Format.ByteSize()*durationMs/millisecondsPerSecond)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	var state = silenceGeneratorStateWaiting
	var firstSilenceTime time.Time
	var lastKeepAliveTime time.Time
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-ticker.C:
			switch state {
			case silenceGeneratorStateWaiting:
				if time.Since(c.lastMsgTs).Milliseconds() > durationMs {
					state = silenceGeneratorStateSilence
					firstSilenceTime = time.Now()
					continue
				}

			case silenceGeneratorStateSilence:
				if time.Since(c.lastMsgTs).Milliseconds() < durationMs {
					state = silenceGeneratorStateWaiting
					continue
				}
				if time.Since(firstSilenceTime).Milliseconds() >= 1000 {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = time.Now()
					continue
				}

				if err := c.sendSilence(chunk); err != nil {
					log.Println("Sending silence audio error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if time.Since(c.lastMsgTs).Milliseconds() < durationMs {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(lastKeepAliveTime).Seconds() >= 5 {
					lastKeepAliveTime = time.Now()
					c.sendKeepAlive()
				}
			}
		}
	}
}

// mapErrorCode normalizes Deepgram error codes into the platform error signal
// strings the speech engine's taxonomy understands.
func mapErrorCode(code string) string {
	switch strings.ToUpper(code) {
	case "INVALID_AUTH", "INSUFFICIENT_PERMISSIONS":
		return "permission-denied"
	case "NET-0000", "NET-0001", "TIMEOUT":
		return "network"
	default:
		if code == "" {
			return "unknown"
		}
		return strings.ToLower(code)
	}
}
