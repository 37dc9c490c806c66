package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mgpai22/verbatim/internal/report"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/workflow"
	"github.com/spf13/cobra"
)

const segmentsSuffix = ".segments.json"

var alignCmd = &cobra.Command{
	Use:   "align [media_file]",
	Short: "Turn a corrected transcript into timestamped segments",
	Long: `Align corrected transcript text with the recording. The model returns
timestamped, speaker-labelled segments, which are validated and written as
segment JSON.

Without --text the draft written by the transcribe command is used.

Examples:
  verbatim align interview.mp4 --text interview.corrected.txt
  verbatim align interview.mp4 -o interview.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAlign,
}

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().
		StringP("text", "t", "", "Corrected transcript (default <media>"+draftSuffix+")")
	alignCmd.Flags().
		StringP("format", "f", "text", "Report format (text, json)")
	addThresholdFlags(alignCmd)
}

func runAlign(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx, stop := signalContext(cmd)
	defer stop()

	if err := checkMedia(mediaPath); err != nil {
		return err
	}
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	thresholds, err := thresholdsFromFlags(cmd)
	if err != nil {
		return err
	}

	textPath, _ := cmd.Flags().GetString("text")
	if textPath == "" {
		textPath = defaultDraftPath(mediaPath)
	}
	text, err := os.ReadFile(textPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no transcript at %s: run transcribe first or pass --text", textPath)
		}
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	out := outputPath(cmd, mediaPath, segmentsSuffix)

	dir, cleanup, err := workDir()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := newPipeline(dir, stages{align: true, thresholds: thresholds})
	if err != nil {
		return err
	}

	it := workflow.NewItem(mediaPath)
	if err := p.LoadDraft(it, string(text)); err != nil {
		return fmt.Errorf("%s: %w", textPath, err)
	}

	logger.Infow("Aligning", "media", mediaPath, "text", textPath, "output", out)
	if err := p.Align(ctx, it); err != nil {
		return fmt.Errorf("alignment failed: %w", err)
	}

	data, err := segment.Marshal(it.Aligned)
	if err != nil {
		return err
	}
	if err := writeOutput(out, data); err != nil {
		return err
	}
	logger.Infow("Segments written", "output", out, "segments", len(it.Aligned.Segments))

	return writeReport(cmd.OutOrStdout(), format, report.Result{Source: out, Report: it.AlignedReport})
}

// draft location used by transcribe when no --output was given
func defaultDraftPath(mediaPath string) string {
	return derivedPath(mediaPath, draftSuffix)
}
