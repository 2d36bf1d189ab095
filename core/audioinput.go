package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"
)

// audioInput is the capture facade used to normalize microphone wiring. It
// is nil-client safe: recognizer adapters that source their own audio need
// no capture client at all.
type audioInput struct {
	client AudioInput

	isCapturing atomic.Bool

	// onAudio receives captured chunks while capture is running.
	onAudio func(audio []byte)
}

func newAudioInput(client AudioInput, onAudio func(audio []byte)) *audioInput {
	if onAudio == nil {
		onAudio = func([]byte) {}
	}
	return &audioInput{client: client, onAudio: onAudio}
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.client != nil }

func (a *audioInput) StartCapture(ctx context.Context) error {
	if !a.IsConfigured() {
		return nil
	}
	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if err := a.client.StartCapture(ctx, a.onAudio); err != nil {
		a.isCapturing.Store(false)
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	return nil
}

func (a *audioInput) StopCapture() error {
	if !a.IsConfigured() {
		return nil
	}
	if !a.isCapturing.CompareAndSwap(true, false) {
		return nil
	}

	if err := a.client.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}
	return nil
}

func (a *audioInput) Close() error {
	if !a.IsConfigured() {
		return nil
	}

	stopErr := a.StopCapture()

	switch c := a.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(context.Background()); err != nil {
			return fmt.Errorf("failed to close audio input client: %w", err)
		}
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close audio input client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return stopErr
}
