package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mgpai22/verbatim/internal/audio"
	"github.com/mgpai22/verbatim/internal/report"
	"github.com/mgpai22/verbatim/internal/validate"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [segments.json|subtitles.srt]",
	Short: "Check transcript segments for structural problems",
	Long: `Validate a segment JSON document (an array of segments, or an object with
a segments array and optional num_speakers/duration) or an SRT/WebVTT file.

The report lists errors (missing or invalid timestamps, non-positive
durations, overlaps, missing speaker labels, speaker count mismatches) and
warnings (unrealistic durations, gaps, trailing uncovered audio, a single
speaker). The command exits non-zero when any error is found.

Examples:
  verbatim validate talk.json
  verbatim validate talk.json --audio talk.mp3
  verbatim validate talk.srt --duration 1834.2 --format json
  verbatim validate talk.json --gap-threshold 3 --overlap-tolerance 0.1`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().
		StringP("audio", "a", "", "Audio or video file the transcript belongs to; its duration is probed")
	validateCmd.Flags().
		Float64P("duration", "d", 0, "Known audio duration in seconds (overrides --audio)")
	validateCmd.Flags().
		StringP("format", "f", "text", "Report format (text, json)")
	addThresholdFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
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

	known, err := knownDuration(ctx, cmd)
	if err != nil {
		return err
	}

	r, err := checkFile(path, validate.New(thresholds), known)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), format, report.Result{Source: path, Report: r})
}

// knownDuration reads --duration, or probes --audio when given.
func knownDuration(ctx context.Context, cmd *cobra.Command) (*float64, error) {
	if cmd.Flags().Changed("duration") {
		d, _ := cmd.Flags().GetFloat64("duration")
		if d <= 0 {
			return nil, fmt.Errorf("--duration must be positive, got %v", d)
		}
		return &d, nil
	}

	audioPath, _ := cmd.Flags().GetString("audio")
	if audioPath == "" {
		return nil, nil
	}
	if err := checkMedia(audioPath); err != nil {
		return nil, err
	}
	d, err := audio.GetDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio duration: %w", err)
	}
	logger.Debugw("probed audio", "file", audioPath, "duration", d)
	return &d, nil
}

func checkFile(path string, v *validate.Validator, known *float64) (*validate.Report, error) {
	doc, err := loadSegments(path)
	if err != nil {
		return nil, err
	}
	r := v.Validate(doc.Segments, validate.Options{
		KnownAudioDuration: known,
		Header:             doc.Header,
	})
	logger.Debugw("validated",
		"file", path,
		"segments", r.Stats.SegmentCount,
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
	)
	return r, nil
}

// writeReport renders res and turns an invalid report into
// ErrInvalidTranscript.
func writeReport(w io.Writer, format report.Format, res report.Result) error {
	if err := report.Write(w, format, res); err != nil {
		return err
	}
	if res.Report != nil && !res.Report.IsValid {
		return ErrInvalidTranscript
	}
	return nil
}
