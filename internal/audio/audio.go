package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	ffmpegbin "github.com/mgpai22/verbatim/internal/ffmpeg"
)

// a slice of a longer recording
type Chunk struct {
	Path  string
	Index int
	Start float64 // seconds from the start of the source
	End   float64
}

// settings for the audio handed to models
type Options struct {
	Format     string // mp3 or aac
	SampleRate int    // Hz
	Channels   int    // 1=mono, 2=stereo
	Bitrate    string // e.g. "64k"
}

// mono 16 kHz mp3; small enough to upload, plenty for speech
func DefaultOptions() Options {
	return Options{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetDuration returns the length of an audio or video file in seconds.
func GetDuration(ctx context.Context, filePath string) (float64, error) {
	if _, err := os.Stat(filePath); err != nil {
		return 0, fmt.Errorf("file not found: %s", filePath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(out.Bytes())
}

func parseProbe(data []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}
	return seconds, nil
}

// Convert re-encodes inputPath (audio or video) to outputPath using opts.
// Video streams are dropped.
func Convert(
	ctx context.Context,
	inputPath, outputPath string,
	opts Options,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	err = ffmpeg.Input(inputPath).
		Output(outputPath, convertArgs(opts)).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("audio conversion failed: %w", err)
	}

	return nil
}

func convertArgs(opts Options) ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": opts.SampleRate,
		"ac": opts.Channels,
	}

	switch opts.Format {
	case "aac":
		kwargs["acodec"] = "aac"
	default:
		kwargs["acodec"] = "libmp3lame"
	}
	if opts.Bitrate != "" {
		kwargs["b:a"] = opts.Bitrate
	}
	return kwargs
}

// OutputPath names the converted copy of mediaPath inside dir.
func OutputPath(mediaPath, dir string, opts Options) string {
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	format := opts.Format
	if format == "" {
		format = "mp3"
	}
	return filepath.Join(dir, base+".verbatim."+format)
}

// PlanChunks cuts total seconds into consecutive windows of length seconds.
// The last window is shorter when length does not divide total.
func PlanChunks(total, length float64) []Chunk {
	if total <= 0 || length <= 0 {
		return nil
	}
	var chunks []Chunk
	for i := 0; ; i++ {
		start := float64(i) * length
		if start >= total {
			break
		}
		end := start + length
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{Index: i, Start: start, End: end})
	}
	return chunks
}

// Split cuts audioPath into chunks of length seconds in outputDir, running
// up to concurrency ffmpeg processes at once (10 when not positive).
func Split(
	ctx context.Context,
	audioPath string,
	length float64,
	outputDir string,
	concurrency int,
) ([]Chunk, error) {
	if length <= 0 {
		return nil, fmt.Errorf("chunk length must be positive, got %v", length)
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	total, err := GetDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	ext := filepath.Ext(audioPath)

	plan := PlanChunks(total, length)

	var (
		mu     sync.Mutex
		chunks []Chunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, c := range plan {
		c.Path = filepath.Join(outputDir, fmt.Sprintf("%s_chunk_%03d%s", base, c.Index, ext))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			kwargs := ffmpeg.KwArgs{
				"ss": c.Start,
				"t":  c.End - c.Start,
				"c":  "copy",
			}
			err := ffmpeg.Input(audioPath).
				Output(c.Path, kwargs).
				OverWriteOutput().
				SetFfmpegPath(ffmpegPath).
				Run()
			if err != nil {
				return fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
			}

			mu.Lock()
			chunks = append(chunks, c)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = Cleanup(chunks)
		return nil, err
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// removes all chunk files
func Cleanup(chunks []Chunk) error {
	var lastErr error
	for _, c := range chunks {
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}

var (
	videoExts = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
		".mpeg": true, ".mpg": true, ".3gp": true,
	}
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".aac": true, ".flac": true,
		".ogg": true, ".m4a": true, ".wma": true, ".aiff": true,
		".opus": true,
	}
)

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
