package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voco-dev/voco/core/synthesis"
)

const speechChunkSize = 4096

// speakOnce synthesizes the whole utterance with a single REST request and
// replays the response body to the audio callback in chunks.
func (c *Client) speakOnce(ctx context.Context, text string, options synthesis.SpeakOptions) error {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return fmt.Errorf("deepgram api key not found")
	}

	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal speak request: %w", err)
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	urlValues.Set("model", options.Voice.Model)
	urlValues.Set("container", "none")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		(&url.URL{
			Scheme: "https",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	resp, err := client.Do(req)
	if err != nil {
		options.ErrorCallback(err)
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("deepgram speak returned status %d", resp.StatusCode)
		options.ErrorCallback(err)
		return err
	}

	chunk := make([]byte, speechChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			options.AudioCallback(chunk[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			options.ErrorCallback(err)
			return fmt.Errorf("failed to read synthesized speech: %w", err)
		}
	}
}
