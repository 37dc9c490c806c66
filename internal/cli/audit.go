package cli

import (
	"fmt"

	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/report"
	"github.com/mgpai22/verbatim/internal/workflow"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit [media_file] [segments.json|subtitles.srt]",
	Short: "Validate segments and have a model listen for problems the timestamps can't show",
	Long: `Run the deterministic validation, then a two-pass acoustic audit: the
configured audio model listens to the recording and proposes claims
(misheard words, wrong speaker, missing speech), and a reviewer model checks
those claims against the transcript and the deterministic report.

Each upheld claim is marked corroborated, disputed or unverifiable against
the deterministic findings.

Examples:
  verbatim audit talk.mp4 talk.json
  verbatim audit talk.mp3 talk.srt --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().
		StringP("format", "f", "text", "Report format (text, json)")
	auditCmd.Flags().
		Bool("no-review", false, "Skip the reviewer pass and uphold every proposed claim")
	addThresholdFlags(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	mediaPath, segmentsPath := args[0], args[1]
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

	doc, err := loadSegments(segmentsPath)
	if err != nil {
		return err
	}

	dir, cleanup, err := workDir()
	if err != nil {
		return err
	}
	defer cleanup()

	noReview, _ := cmd.Flags().GetBool("no-review")
	p, err := newPipeline(dir, stages{audit: true, noReview: noReview, thresholds: thresholds})
	if err != nil {
		return err
	}

	it := workflow.NewItem(mediaPath)
	it.Segments = doc

	logger.Infow("Auditing transcript",
		"media", mediaPath,
		"segments", len(doc.Segments),
		"provider", cfg.LLM.Provider,
		"reviewer", cfg.LLM.ReviewerProvider,
	)
	if err := p.Validate(ctx, it); err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	res := report.Result{Source: segmentsPath, Report: it.Report}
	if it.Audit != nil {
		res.Claims = it.Audit.Claims
		if len(res.Claims) > 0 && !it.Audit.Reviewed {
			logger.Warnw("claims were not reviewed; every proposed claim is upheld")
		}
		logger.Infow("Audit complete", "claims", len(res.Claims), "upheld", upheld(res.Claims))
	}
	return writeReport(cmd.OutOrStdout(), format, res)
}

func upheld(claims []agent.Claim) int {
	n := 0
	for _, c := range claims {
		if c.Upheld {
			n++
		}
	}
	return n
}
