package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name   string
		total  float64
		length float64
		want   []Chunk
	}{
		{"exact", 20, 10, []Chunk{{Index: 0, Start: 0, End: 10}, {Index: 1, Start: 10, End: 20}}},
		{"short tail", 25, 10, []Chunk{{Index: 0, Start: 0, End: 10}, {Index: 1, Start: 10, End: 20}, {Index: 2, Start: 20, End: 25}}},
		{"shorter than one chunk", 4, 10, []Chunk{{Index: 0, Start: 0, End: 4}}},
		{"empty", 0, 10, nil},
		{"bad length", 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanChunks(tt.total, tt.length))
		})
	}
}

func TestParseProbe(t *testing.T) {
	got, err := parseProbe([]byte(`{"format": {"duration": "12.480000"}}`))
	require.NoError(t, err)
	assert.InDelta(t, 12.48, got, 1e-9)

	_, err = parseProbe([]byte(`{"format": {}}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestMediaKinds(t *testing.T) {
	tests := []struct {
		path  string
		audio bool
		video bool
	}{
		{"talk.MP3", true, false},
		{"call.opus", true, false},
		{"meeting.mkv", false, true},
		{"notes.json", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.audio, IsAudioFile(tt.path))
			assert.Equal(t, tt.video, IsVideoFile(tt.path))
			assert.Equal(t, tt.audio || tt.video, IsMediaFile(tt.path))
		})
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("work", "meeting.verbatim.mp3"), OutputPath("/in/meeting.mkv", "work", DefaultOptions()))
	assert.Equal(t, filepath.Join("work", "a.verbatim.aac"), OutputPath("a.wav", "work", Options{Format: "aac"}))
}

func TestConvertArgs(t *testing.T) {
	args := convertArgs(DefaultOptions())
	assert.Equal(t, "libmp3lame", args["acodec"])
	assert.Equal(t, 16000, args["ar"])
	assert.Equal(t, 1, args["ac"])
	assert.Equal(t, "64k", args["b:a"])
	assert.Contains(t, args, "vn")
}

func TestPrepareReusesFreshConversion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "talk.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o644))

	p := NewProcessor(filepath.Join(dir, "work"))
	out := OutputPath(src, p.Dir, p.Options)
	require.NoError(t, os.MkdirAll(p.Dir, 0o755))
	require.NoError(t, os.WriteFile(out, []byte("ID3"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(out, later, later))

	got, err := p.Prepare(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestPrepareRejectsNonMedia(t *testing.T) {
	_, err := NewProcessor(t.TempDir()).Prepare(context.Background(), "segments.json")
	assert.Error(t, err)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a_chunk_000.mp3")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	err := Cleanup([]Chunk{{Path: a}, {Path: filepath.Join(dir, "gone.mp3")}})
	require.NoError(t, err)
	_, statErr := os.Stat(a)
	assert.True(t, os.IsNotExist(statErr))
}
