package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/verbatim/internal/audio"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [media_file]",
	Short: "Extract the compressed audio track the models listen to",
	Long: `Convert an audio or video file into the compact audio uploaded to models
(mono 16 kHz mp3 by default) and print its duration. Pass the duration to
validate --duration to skip probing on every run.

Supported output formats: mp3, aac.

Examples:
  verbatim extract video.mp4
  verbatim extract video.mp4 -o audio.mp3
  verbatim extract talk.wav --format aac --bitrate 96k`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	d := audio.DefaultOptions()
	extractCmd.Flags().
		StringP("format", "f", d.Format, "Output audio format (mp3, aac)")
	extractCmd.Flags().
		IntP("sample-rate", "r", d.SampleRate, "Sample rate in Hz (e.g., 16000, 44100, 48000)")
	extractCmd.Flags().
		Int("channels", d.Channels, "Number of audio channels (1=mono, 2=stereo)")
	extractCmd.Flags().
		StringP("bitrate", "b", d.Bitrate, "Bitrate (e.g., 64k, 128k)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx, stop := signalContext(cmd)
	defer stop()

	if err := checkMedia(mediaPath); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	bitrate, _ := cmd.Flags().GetString("bitrate")

	if format != "mp3" && format != "aac" {
		return fmt.Errorf("invalid format %q: supported formats are mp3, aac", format)
	}
	if channels < 1 || channels > 2 {
		return fmt.Errorf("invalid channel count %d: use 1 or 2", channels)
	}

	opts := audio.Options{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
	}
	out := outputPath(cmd, mediaPath, "."+format)
	if filepath.Clean(out) == filepath.Clean(mediaPath) {
		out = audio.OutputPath(mediaPath, filepath.Dir(mediaPath), opts)
	}

	logger.Infow("Extracting audio",
		"input", mediaPath,
		"output", out,
		"format", format,
		"sample_rate", sampleRate,
		"channels", channels,
	)

	if err := audio.Convert(ctx, mediaPath, out, opts); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	duration, err := audio.GetDuration(ctx, out)
	if err != nil {
		return fmt.Errorf("failed to get audio duration: %w", err)
	}

	absOutput, _ := filepath.Abs(out)
	fmt.Fprintf(cmd.OutOrStdout(), "Audio extracted: %s\n", absOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  Duration: %.3fs\n", duration)
	return nil
}
