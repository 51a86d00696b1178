package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ema-live",
	Short: "Talk to a language model through your microphone and speakers",
	Long: `ema-live listens to the microphone, transcribes speech with Deepgram,
sends every finished turn to a language model and speaks the reply back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("llm", "openai", "Language model provider: openai, ollama or groq")
	rootCmd.PersistentFlags().String("model", "", "Language model name, provider default if empty")
	rootCmd.PersistentFlags().String("deepgram-api-key", "", "Deepgram API key (defaults to DEEPGRAM_API_KEY)")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	rootCmd.PersistentFlags().String("groq-api-key", "", "Groq API key (defaults to GROQ_API_KEY)")
	rootCmd.PersistentFlags().String("ollama-host", "", "Ollama server address (defaults to OLLAMA_HOST)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")

	for _, name := range []string{"llm", "model", "deepgram-api-key", "openai-api-key", "groq-api-key", "ollama-host", "log-level"} {
		_ = viper.BindPFlag(configKey(name), rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() {
	viper.SetEnvPrefix("ema")
	viper.AutomaticEnv()
}

// configKey maps a flag name to the viper key it is bound to, so that
// --deepgram-api-key is also read from EMA_DEEPGRAM_API_KEY.
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error("ema-live failed", "error", err)
		os.Exit(1)
	}
}
