package deepgram

import (
	"fmt"

	"github.com/voco-dev/voco/core/audio"
)

type encodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

const (
	encodingLinear16 encodingFormat = "linear16"
	encodingALaw     encodingFormat = "alaw"
	encodingMulaw    encodingFormat = "mulaw"
)

func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	deepgramEncoding := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		deepgramEncoding.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate")
	}

	switch encoding.Format {
	case audio.FormatLinear16:
		deepgramEncoding.Format = encodingLinear16
	case audio.FormatALaw:
		deepgramEncoding.Format = encodingALaw
		if deepgramEncoding.SampleRate != 8000 {
			return nil, fmt.Errorf("unsupported sample rate for alaw encoding")
		}
	case audio.FormatMulaw:
		deepgramEncoding.Format = encodingMulaw
		if deepgramEncoding.SampleRate != 8000 {
			return nil, fmt.Errorf("unsupported sample rate for mulaw encoding")
		}
	default:
		return nil, fmt.Errorf("unsupported encoding")
	}

	return &deepgramEncoding, nil
}
