package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/audio/miniaudio"
	"github.com/koscakluka/ema-live/core/events"
	sttdeepgram "github.com/koscakluka/ema-live/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-live/core/texttospeech/deepgram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const eventFeedCapacity = 64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a spoken conversation",
	RunE:  runAgent,
}

func init() {
	runCmd.Flags().String("voice", "", "Synthesizer voice name, e.g. luna")
	runCmd.Flags().String("instructions", "", "System instructions for the language model")
	runCmd.Flags().Duration("silence-threshold", orchestration.DefaultSilenceThreshold, "Silence that ends a turn")
	runCmd.Flags().Duration("speaking-poll-interval", orchestration.DefaultSpeakingPollInterval, "How often speech playback is checked")
	runCmd.Flags().String("language", orchestration.DefaultLanguage, "Recognition language")
	runCmd.Flags().Bool("interim-interruptions", false, "Interrupt speech on interim results too")
	runCmd.Flags().Duration("endpointing", 300*time.Millisecond, "Silence Deepgram waits for before finalizing a segment")
	runCmd.Flags().String("log-file", "ema-live.log", "File logs are written to while the conversation is shown")
	runCmd.Flags().Int("capture-sample-rate", audio.DefaultSampleRate, "Microphone sample rate sent to recognition")
	runCmd.Flags().Int("playback-sample-rate", 24000, "Sample rate synthesized speech is requested and played at")

	for _, name := range []string{
		"voice", "instructions", "silence-threshold", "speaking-poll-interval", "language",
		"interim-interruptions", "endpointing", "log-file", "capture-sample-rate", "playback-sample-rate",
	} {
		_ = viper.BindPFlag(configKey(name), runCmd.Flags().Lookup(name))
	}
}

func runAgent(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logFile, err := os.OpenFile(viper.GetString("log_file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger, err := newLogger(logFile)
	if err != nil {
		return err
	}

	apiKey := deepgramAPIKey()
	if apiKey == "" {
		return sttdeepgram.ErrMissingAPIKey
	}

	model, err := newLanguageModel()
	if err != nil {
		return err
	}

	client, err := miniaudio.NewClient(
		miniaudio.WithCaptureSampleRate(viper.GetInt("capture_sample_rate")),
		miniaudio.WithPlaybackSampleRate(viper.GetInt("playback_sample_rate")),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	recognizer := sttdeepgram.NewRecognizer(
		sttdeepgram.WithAPIKey(apiKey),
		sttdeepgram.WithEndpointing(viper.GetDuration("endpointing")),
	)
	synthesizer := ttsdeepgram.NewSynthesizer(
		ttsdeepgram.WithAPIKey(apiKey),
		ttsdeepgram.WithAudioOutput(client),
	)

	agent, err := orchestration.NewAgent(ctx,
		orchestration.WithRecognizer(recognizer),
		orchestration.WithSynthesizer(synthesizer),
		orchestration.WithLanguageModel(model),
		orchestration.WithInstructions(viper.GetString("instructions")),
		orchestration.WithSilenceThreshold(viper.GetDuration("silence_threshold")),
		orchestration.WithSpeakingPollInterval(viper.GetDuration("speaking_poll_interval")),
		orchestration.WithVoice(viper.GetString("voice")),
		orchestration.WithLanguage(viper.GetString("language")),
		orchestration.WithRecognitionEncoding(client.CaptureEncodingInfo()),
		orchestration.WithInterimInterruptions(viper.GetBool("interim_interruptions")),
		orchestration.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	feed := make(chan events.Event, eventFeedCapacity)
	quit := make(chan struct{})
	forward := func(event events.Event) {
		select {
		case feed <- event:
		case <-quit:
		}
	}
	for _, kind := range []events.Kind{
		events.KindStart, events.KindStop, events.KindError,
		events.KindUser, events.KindAssistant, events.KindSpeaking,
	} {
		agent.Subscribe(kind, forward)
	}

	if err := client.StartCapture(ctx, func(chunk []byte) {
		if err := recognizer.SendAudio(chunk); err != nil && !errors.Is(err, sttdeepgram.ErrNotRecognizing) {
			logger.Warn("failed to send audio to recognizer", "error", err)
		}
	}); err != nil {
		return err
	}
	defer func() {
		if err := client.StopCapture(); err != nil {
			logger.Warn("failed to stop capture", "error", err)
		}
	}()

	go func() {
		if err := agent.Start(ctx); err != nil {
			logger.Error("failed to start agent", "error", err)
		}
	}()

	program := tea.NewProgram(
		newTranscriptModel(feed, "ema · "+viper.GetString("llm")),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, runErr := program.Run()
	close(quit)
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}

	return errors.Join(runErr, agent.Stop())
}
