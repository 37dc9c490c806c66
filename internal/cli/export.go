package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/subtitle"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [segments.json]",
	Short: "Export transcript segments as subtitles",
	Long: `Write segments as SRT, WebVTT or ASS subtitles. Speakers are kept: a
"Name: " prefix in SRT, a <v Name> voice span in WebVTT and the Name field
in ASS. Long segments are split and wrapped to two lines.

Segments without usable timestamps or text are skipped.

Examples:
  verbatim export talk.json
  verbatim export talk.json --format vtt -o talk.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass)")
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return fmt.Errorf("unsupported format %q: use srt, vtt, or ass", formatStr)
	}

	doc, err := loadSegments(path)
	if err != nil {
		return err
	}

	out := outputPath(cmd, path, subtitle.GetExtensionForFormat(format))
	if err := exportSubtitles(doc.Segments, format, out); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(out)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles written: %s\n", absOutput)
	return nil
}

func exportSubtitles(segments []segment.Segment, format subtitle.Format, out string) error {
	subs, skipped := subtitle.NewGenerator().Generate(segments)
	if skipped > 0 {
		logger.Warnw("skipped segments without usable timing or text", "count", skipped)
	}
	subs.Format = format

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return fmt.Errorf("failed to create subtitle writer: %w", err)
	}
	if err := writer.Write(subs, out); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	logger.Infow("Subtitles exported", "output", out, "entries", len(subs.Entries))
	return nil
}
