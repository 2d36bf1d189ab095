// Command voco is a terminal front end for the voice conversation core: a
// status indicator, the conversation log, the live interim transcript and a
// text input fallback.
package main

import (
	"fmt"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	orchestration "github.com/voco-dev/voco/core"
	"github.com/voco-dev/voco/core/audio/miniaudio"
	"github.com/voco-dev/voco/core/audio/portaudio"
	"github.com/voco-dev/voco/core/events"
	recodeepgram "github.com/voco-dev/voco/core/recognition/deepgram"
	"github.com/voco-dev/voco/core/respond"
	"github.com/voco-dev/voco/core/synthesis"
	syndeepgram "github.com/voco-dev/voco/core/synthesis/deepgram"
)

const portaudioBufferSize = 480

func main() {
	_ = godotenv.Load()

	language := pflag.String("language", "en-US", "recognition language tag")
	voiceModel := pflag.String("voice", synthesis.DefaultVoiceModel, "synthesis voice model")
	rate := pflag.Float64("rate", 1.0, "synthesis rate multiplier")
	pitch := pflag.Float64("pitch", 1.0, "synthesis pitch multiplier")
	thinkingDelay := pflag.Duration("thinking-delay", orchestration.DefaultThinkingDelay, "artificial pause before replying")
	audioBackend := pflag.String("audio", "miniaudio", "audio backend: miniaudio, portaudio or none")
	assistantName := pflag.String("name", respond.DefaultAssistantName, "the assistant's name")
	textOnly := pflag.Bool("text-only", false, "disable voice input and output")
	pflag.Parse()

	opts := []orchestration.OrchestratorOption{
		orchestration.WithLanguage(*language),
		orchestration.WithThinkingDelay(*thinkingDelay),
		orchestration.WithResponder(respond.NewGenerator(respond.WithAssistantName(*assistantName))),
	}

	var closeAudio func()
	_, hasKey := os.LookupEnv("DEEPGRAM_API_KEY")
	if !*textOnly && hasKey {
		opts = append(opts, orchestration.WithRecognizer(recodeepgram.NewClient()))

		synthesizer, err := syndeepgram.NewClient(synthesis.Voice{
			Model: *voiceModel,
			Rate:  *rate,
			Pitch: *pitch,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid voice configuration: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, orchestration.WithSynthesizer(synthesizer))

		audioOpts, cleanup, err := audioOptions(*audioBackend)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set up audio: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, audioOpts...)
		closeAudio = cleanup
	}

	// The orchestrator is built before the program, so events that fire
	// during construction are dropped until the program is in place.
	var program atomic.Pointer[tea.Program]
	opts = append(opts, orchestration.WithEventHandler(func(event events.Event) {
		if p := program.Load(); p != nil {
			p.Send(orchestratorEvent{event})
		}
	}))

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer orchestrator.Close()
	if closeAudio != nil {
		defer closeAudio()
	}

	program.Store(tea.NewProgram(newModel(orchestrator), tea.WithAltScreen()))
	if _, err := program.Load().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run ui: %v\n", err)
		os.Exit(1)
	}
}

func audioOptions(backend string) ([]orchestration.OrchestratorOption, func(), error) {
	switch backend {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioInput(client),
			orchestration.WithAudioOutput(client),
		}, client.Close, nil
	case "portaudio":
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return nil, nil, err
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioInput(client),
			orchestration.WithAudioOutput(client),
		}, client.Close, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// orchestratorEvent wraps a core event for delivery into the UI loop.
type orchestratorEvent struct {
	event events.Event
}
