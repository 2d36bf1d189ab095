// Package deepgram implements the synthesis contract on top of Deepgram's
// speak API. Utterances are streamed over a websocket; if the socket cannot
// be established the client falls back to one-shot REST synthesis.
package deepgram

import (
	"fmt"
	"slices"

	"github.com/jinzhu/copier"

	"github.com/voco-dev/voco/core/audio"
	"github.com/voco-dev/voco/core/synthesis"
)

type deepgramVoice string

const (
	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceHelena    deepgramVoice = "aura-2-helena-en"
	VoiceApollo    deepgramVoice = "aura-2-apollo-en"
	VoiceArcas     deepgramVoice = "aura-2-arcas-en"
	VoiceOrion     deepgramVoice = "aura-2-orion-en"
)

const defaultVoice = VoiceThalia

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceThalia, VoiceAndromeda, VoiceHelena,
		VoiceApollo, VoiceArcas, VoiceOrion,
	}
}

// Client synthesizes speech through Deepgram. It is safe for use by a single
// speech engine; utterance-level serialization is the engine's concern.
type Client struct {
	defaults synthesis.SpeakOptions
}

func NewClient(voice synthesis.Voice) (*Client, error) {
	if voice.Model == "" {
		voice.Model = string(defaultVoice)
	}
	if !slices.Contains(GetAvailableVoices(), deepgramVoice(voice.Model)) {
		return nil, fmt.Errorf("invalid voice")
	}

	return &Client{
		defaults: synthesis.SpeakOptions{
			Voice:        voice,
			EncodingInfo: audio.GetDefaultEncodingInfo(),
		},
	}, nil
}

// speakOptions clones the client defaults and applies per-utterance options
// on top of the copy.
func (c *Client) speakOptions(opts []synthesis.SpeakOption) (synthesis.SpeakOptions, error) {
	var options synthesis.SpeakOptions
	if err := copier.Copy(&options, &c.defaults); err != nil {
		return options, fmt.Errorf("failed to copy default speak options: %w", err)
	}

	for _, opt := range opts {
		opt(&options)
	}
	if options.AudioCallback == nil {
		options.AudioCallback = func([]byte) {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}
	return options, nil
}
