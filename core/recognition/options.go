package recognition

import "github.com/voco-dev/voco/core/audio"

type ListenOptions struct {
	// ResultCallback is called once per recognizer callback with the batch of
	// results for the current listening session.
	ResultCallback func(batch Batch)
	// ErrorCallback is called when the recognizer reports an error during an
	// active session. The code is the platform's error signal string.
	ErrorCallback func(code string, message string)
	// EndCallback is called when capture ends naturally, e.g. on the
	// recognizer's silence timeout.
	EndCallback func()
	// SpeechStartedCallback is called when the recognizer detects the start
	// of speech activity.
	SpeechStartedCallback func()

	Language     string
	EncodingInfo audio.EncodingInfo
}

type ListenOption func(*ListenOptions)

func WithResultCallback(callback func(batch Batch)) ListenOption {
	return func(o *ListenOptions) {
		o.ResultCallback = callback
	}
}

func WithErrorCallback(callback func(code string, message string)) ListenOption {
	return func(o *ListenOptions) {
		o.ErrorCallback = callback
	}
}

func WithEndCallback(callback func()) ListenOption {
	return func(o *ListenOptions) {
		o.EndCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) ListenOption {
	return func(o *ListenOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithLanguage(language string) ListenOption {
	return func(o *ListenOptions) {
		o.Language = language
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ListenOption {
	return func(o *ListenOptions) {
		o.EncodingInfo = encodingInfo
	}
}
