package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgpai22/verbatim/internal/report"
	"github.com/mgpai22/verbatim/internal/validate"
	"github.com/mgpai22/verbatim/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [segments.json|subtitles.srt]",
	Short: "Re-validate a transcript every time it is saved",
	Long: `Validate the file once, then again after every change until interrupted.
Useful while correcting a transcript in an editor.

Examples:
  verbatim watch talk.json
  verbatim watch talk.json --duration 1834.2 --debounce 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().
		StringP("audio", "a", "", "Audio or video file the transcript belongs to; its duration is probed once")
	watchCmd.Flags().
		Float64P("duration", "d", 0, "Known audio duration in seconds (overrides --audio)")
	watchCmd.Flags().
		StringP("format", "f", "text", "Report format (text, json)")
	watchCmd.Flags().
		Duration("debounce", watcher.DefaultDebounce, "Quiet period after a change before re-validating")
	addThresholdFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, stop := signalContext(cmd)
	defer stop()

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
	debounce, _ := cmd.Flags().GetDuration("debounce")

	v := validate.New(thresholds)
	out := cmd.OutOrStdout()

	check := func(ctx context.Context, path string) error {
		r, err := checkFile(path, v, known)
		if err != nil {
			// half-saved files are common while editing
			fmt.Fprintf(out, "%s: %v\n\n", path, err)
			return err
		}
		if err := report.Write(out, format, report.Result{Source: path, Report: r}); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return nil
	}

	_ = check(ctx, path)

	w, err := watcher.New(path, debounce, check, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
