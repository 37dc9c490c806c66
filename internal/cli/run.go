package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mgpai22/verbatim/internal/report"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/subtitle"
	"github.com/mgpai22/verbatim/internal/workflow"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [media_file...]",
	Short: "Draft, align and validate several recordings in parallel",
	Long: `Take each recording through the whole workflow: validate an existing
<media>.segments.json when there is one (with the acoustic audit when --audit
is set), draft a verbatim transcript, align it into segments and validate
the result. Existing segments with validation errors stop their recording
at READY until they are fixed. Recordings are processed in parallel (workflow.concurrency in
the config); one failing does not stop the others.

Examples:
  verbatim run a.mp4 b.mp4 c.mp3
  verbatim run *.wav --subtitles srt --audit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().
		Bool("audit", false, "Audit existing segments acoustically before redrafting")
	runCmd.Flags().
		StringP("subtitles", "s", "", "Also export subtitles in this format (srt, vtt, ass)")
	runCmd.Flags().
		Int("concurrency", 0, "Recordings processed at once (default from config)")
	addThresholdFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return errors.New("--output is ambiguous with several inputs; set workflow.output_dir in the config instead")
	}
	for _, m := range args {
		if err := checkMedia(m); err != nil {
			return err
		}
	}

	var subFormat subtitle.Format
	if s, _ := cmd.Flags().GetString("subtitles"); s != "" {
		f, err := subtitle.ParseFormat(s)
		if err != nil {
			return err
		}
		subFormat = f
	}
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		cfg.Workflow.Concurrency = c
	}
	thresholds, err := thresholdsFromFlags(cmd)
	if err != nil {
		return err
	}
	audit, _ := cmd.Flags().GetBool("audit")

	dir, cleanup, err := workDir()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := newPipeline(dir, stages{audit: audit, draft: true, align: true, thresholds: thresholds})
	if err != nil {
		return err
	}

	items := make([]*workflow.Item, 0, len(args))
	for _, m := range args {
		it := workflow.NewItem(m)
		existing := derivedPath(m, segmentsSuffix)
		if _, err := os.Stat(existing); err == nil {
			doc, err := loadSegments(existing)
			if err != nil {
				return err
			}
			it.Segments = doc
			logger.Debugw("found existing segments", "media", m, "segments", existing)
		}
		items = append(items, it)
	}

	logger.Infow("Running workflow", "items", len(items), "concurrency", cfg.Workflow.Concurrency)
	runErr := p.RunAll(ctx, items)
	if errors.Is(runErr, workflow.ErrBlockingFindings) {
		runErr = errors.Join(runErr, ErrInvalidTranscript)
	}

	for _, it := range items {
		if it.Status() != workflow.StatusCompleted {
			continue
		}
		if err := saveResults(it, subFormat); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("%s: %w", it.MediaPath, err))
		}
	}

	if err := printSummary(cmd, items); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func saveResults(it *workflow.Item, subFormat subtitle.Format) error {
	if err := writeOutput(derivedPath(it.MediaPath, draftSuffix), []byte(it.Text()+"\n")); err != nil {
		return err
	}

	data, err := segment.Marshal(it.Aligned)
	if err != nil {
		return err
	}
	if err := writeOutput(derivedPath(it.MediaPath, segmentsSuffix), data); err != nil {
		return err
	}

	if subFormat == "" {
		return nil
	}
	return exportSubtitles(it.Aligned.Segments, subFormat,
		derivedPath(it.MediaPath, subtitle.GetExtensionForFormat(subFormat)))
}

func printSummary(cmd *cobra.Command, items []*workflow.Item) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		segments, errs, warns := "-", "-", "-"
		r := it.AlignedReport
		if r == nil {
			// blocked items stop with only the report of their existing segments
			r = it.Report
		}
		if r != nil {
			segments = strconv.Itoa(r.Stats.SegmentCount)
			errs = strconv.Itoa(len(r.Errors))
			warns = strconv.Itoa(len(r.Warnings))
		}
		rows = append(rows, []string{it.MediaPath, string(it.Status()), segments, errs, warns})
	}
	return report.Table(cmd.OutOrStdout(),
		[]string{"MEDIA", "STATUS", "SEGMENTS", "ERRORS", "WARNINGS"}, rows)
}
