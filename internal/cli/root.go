package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mgpai22/verbatim/internal/config"
	"github.com/mgpai22/verbatim/internal/logging"
	"github.com/spf13/cobra"
)

// ErrInvalidTranscript is returned when a report has errors, so the process
// exits non-zero.
var ErrInvalidTranscript = errors.New("transcript failed validation")

// config file picked up from the working directory when --config is not set
const defaultConfigFile = "verbatim.yaml"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "verbatim",
	Short: "Quality checks and alignment for speaker-labelled transcripts",
	Long: `Verbatim checks timestamped, speaker-labelled transcript segments for
structural problems (overlaps, gaps, missing speakers, durations that do not
add up) and drives an LLM-assisted workflow to draft, correct and align
verbatim transcripts against the audio.

API keys are read from the config file or from GEMINI_API_KEY(S),
OPENAI_API_KEY(S) and ANTHROPIC_API_KEY(S); a .env file in the working
directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(".env"); err != nil {
			return err
		}

		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if language, _ := cmd.Flags().GetString("language"); language != "" {
			cfg.Workflow.Language = language
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Config file (default ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code of the recording (e.g., en, es, fr)")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		return config.Load(path)
	}

	c := config.Default()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return c, nil
}
