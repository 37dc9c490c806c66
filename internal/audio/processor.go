package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Processor prepares media for model calls: converts it into Dir, probes
// durations and splits long recordings.
type Processor struct {
	Dir     string
	Options Options
	// recordings longer than this are split before drafting; 0 disables
	ChunkLength float64
	Concurrency int
}

func NewProcessor(dir string) *Processor {
	return &Processor{
		Dir:         dir,
		Options:     DefaultOptions(),
		ChunkLength: 20 * 60,
		Concurrency: 4,
	}
}

// Prepare converts mediaPath to the upload format and returns the new path.
// An existing conversion newer than the source is reused.
func (p *Processor) Prepare(ctx context.Context, mediaPath string) (string, error) {
	if !IsMediaFile(mediaPath) {
		return "", fmt.Errorf("not an audio or video file: %s", mediaPath)
	}

	out := OutputPath(mediaPath, p.Dir, p.Options)
	if fresh(out, mediaPath) {
		return out, nil
	}

	if err := Convert(ctx, mediaPath, out, p.Options); err != nil {
		return "", err
	}
	return out, nil
}

func (p *Processor) Duration(ctx context.Context, path string) (float64, error) {
	return GetDuration(ctx, path)
}

// Split returns the chunks of audioPath, or a single chunk covering the
// whole file when it is short enough.
func (p *Processor) Split(ctx context.Context, audioPath string) ([]Chunk, error) {
	total, err := GetDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if p.ChunkLength <= 0 || total <= p.ChunkLength {
		return []Chunk{{Path: audioPath, Start: 0, End: total}}, nil
	}

	dir := filepath.Join(p.Dir, "chunks")
	return Split(ctx, audioPath, p.ChunkLength, dir, p.Concurrency)
}

func fresh(out, src string) bool {
	o, err := os.Stat(out)
	if err != nil {
		return false
	}
	s, err := os.Stat(src)
	if err != nil {
		return false
	}
	return o.Size() > 0 && !o.ModTime().Before(s.ModTime())
}
