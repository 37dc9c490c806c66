package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/verbatim/internal/workflow"
	"github.com/spf13/cobra"
)

const draftSuffix = ".draft.txt"

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [media_file]",
	Short: "Write a verbatim draft transcript of an audio or video file",
	Long: `Draft a verbatim transcript (fillers, repetitions and false starts kept,
one "Speaker X:" line per turn) with the configured model.

Video files are reduced to a compressed mono audio track first, and long
recordings are split and drafted in parallel. Correct the draft by hand,
then turn it into timestamped segments with the align command.

Examples:
  verbatim transcribe interview.mp4
  verbatim transcribe podcast.mp3 -o podcast.txt --language es`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx, stop := signalContext(cmd)
	defer stop()

	if err := checkMedia(mediaPath); err != nil {
		return err
	}
	out := outputPath(cmd, mediaPath, draftSuffix)

	dir, cleanup, err := workDir()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := newPipeline(dir, stages{draft: true, thresholds: cfg.Validation})
	if err != nil {
		return err
	}

	logger.Infow("Transcribing",
		"input", mediaPath,
		"output", out,
		"provider", cfg.LLM.Provider,
	)

	it := workflow.NewItem(mediaPath)
	if err := p.Transcribe(ctx, it); err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if err := writeOutput(out, []byte(it.Draft+"\n")); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(out)
	fmt.Fprintf(cmd.OutOrStdout(), "Draft written: %s\n", absOutput)
	return nil
}
