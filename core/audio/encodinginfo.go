package audio

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: Format(DefaultFormat)}
}

// EncodingInfo describes the raw audio stream exchanged between capture
// devices, recognizers and synthesizers.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// SilenceValue returns the byte that encodes silence for the format, used
// when padding a live stream that has no capture input.
func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	case FormatLinear16:
		return 0
	}

	return 0
}

type Format string

func (f Format) Name() string {
	return string(f)
}

func (f Format) ByteSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return -1
}

const (
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
	FormatLinear16 Format = "linear16"
)
