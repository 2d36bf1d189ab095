// Package portaudio provides microphone capture and speaker playback on top
// of PortAudio, as an alternative to the miniaudio backend.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/voco-dev/voco/core/audio"
)

type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16

	mu        sync.Mutex
	capturing bool
	stop      chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// StartCapture reads microphone frames until StopCapture or ctx ends.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()
		return nil
	}
	c.capturing = true
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			default:
				if err := c.stream.Read(); err != nil {
					continue
				}

				audioBuffer := bytes.Buffer{}
				_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
				onAudio(audioBuffer.Bytes())
			}
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capturing {
		return nil
	}
	c.capturing = false
	close(c.stop)
	return nil
}

// SendAudio queues synthesized audio for playback, writing it to the stream
// in buffer-sized chunks and keeping the remainder for the next call.
func (c *Client) SendAudio(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bufferSize := c.bufferSize * 2

	buffered := append(c.leftoverAudio, chunk...)
	for i := 0; ; i++ {
		if (i+1)*bufferSize > len(buffered) {
			c.leftoverAudio = make([]byte, len(buffered)-i*bufferSize)
			copy(c.leftoverAudio, buffered[i*bufferSize:])
			break
		}

		_ = binary.Read(bytes.NewBuffer(buffered[i*bufferSize:(i+1)*bufferSize]), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}

	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leftoverAudio = nil
}

func (c *Client) Close() {
	_ = c.StopCapture()
	c.stream.Close()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.FormatLinear16,
	}
}
