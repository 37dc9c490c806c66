package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

const (
	envFFmpeg  = "VERBATIM_FFMPEG_PATH"
	envFFprobe = "VERBATIM_FFPROBE_PATH"
)

var ErrNotFound = errors.New("ffmpeg binaries not found")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure resolves the ffmpeg and ffprobe binaries once per process.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = resolve()
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

// env overrides win, then PATH
func resolve() (BinaryPaths, error) {
	ffmpegPath, err := lookup(envFFmpeg, "ffmpeg")
	if err != nil {
		return BinaryPaths{}, err
	}
	ffprobePath, err := lookup(envFFprobe, "ffprobe")
	if err != nil {
		return BinaryPaths{}, err
	}
	return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func lookup(env, name string) (string, error) {
	if p := os.Getenv(env); p != "" {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("%s=%s: %w", env, p, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s=%s is a directory", env, p)
		}
		return p, nil
	}

	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH (set %s)", ErrNotFound, name, env)
	}
	return found, nil
}
