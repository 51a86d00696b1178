package main

import (
	"context"
	"fmt"
	"io"
	"time"

	orchestration "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/llms"
	sttdeepgram "github.com/koscakluka/ema-live/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-live/core/texttospeech/deepgram"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether recognition, synthesis and the language model are ready",
	Long: "Check whether recognition, synthesis and the language model are ready.\n" +
		"A model that has to be downloaded first is downloaded before the command returns.",
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().Duration("interval", 2*time.Second, "Time between progress reports while the model downloads")
}

func runProbe(cmd *cobra.Command, _ []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")

	model, err := newLanguageModel()
	if err != nil {
		return err
	}

	capabilities := orchestration.Capabilities{LanguageModel: model}
	if apiKey := deepgramAPIKey(); apiKey != "" {
		capabilities.Recognizer = sttdeepgram.NewRecognizer(sttdeepgram.WithAPIKey(apiKey))
		capabilities.Synthesizer = ttsdeepgram.NewSynthesizer(ttsdeepgram.WithAPIKey(apiKey))
	}

	return probe(cmd.Context(), cmd.OutOrStdout(), capabilities, interval)
}

// probe prints the availability of capabilities. While a download it
// started is running it keeps reporting, since exiting would abort it.
func probe(ctx context.Context, w io.Writer, capabilities orchestration.Capabilities, interval time.Duration) error {
	warmedUp := make(chan error, 1)
	onWarmUp := orchestration.WithWarmUpDone(func(err error) { warmedUp <- err })

	for {
		availability, err := orchestration.Available(ctx, capabilities, onWarmUp)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, availabilityStyle(availability).Render(availability.String()))

		if availability != llms.AvailabilityDownloading {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-warmedUp:
			if err != nil {
				return fmt.Errorf("failed to download language model: %w", err)
			}
		case <-time.After(interval):
		}
	}
}
