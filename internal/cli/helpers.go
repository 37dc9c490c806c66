package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/audio"
	"github.com/mgpai22/verbatim/internal/llm"
	"github.com/mgpai22/verbatim/internal/retry"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/subtitle"
	"github.com/mgpai22/verbatim/internal/validate"
	"github.com/mgpai22/verbatim/internal/workflow"
	"github.com/spf13/cobra"
)

// loadSegments reads a segment JSON document, or an SRT/WebVTT file whose
// cues become segments.
func loadSegments(path string) (*segment.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt":
		sub, err := subtitle.Read(path)
		if err != nil {
			return nil, err
		}
		return &segment.Document{Segments: subtitle.ToSegments(sub)}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segments: %w", err)
	}
	doc, err := segment.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func addThresholdFlags(cmd *cobra.Command) {
	d := validate.DefaultThresholds()
	cmd.Flags().
		Float64("overlap-tolerance", d.OverlapTolerance, "Seconds two segments may overlap before it is an error")
	cmd.Flags().
		Float64("gap-threshold", d.GapThreshold, "Silence in seconds between segments that suggests a missing segment")
	cmd.Flags().
		Float64("min-duration", d.MinDuration, "Segments shorter than this many seconds are flagged")
	cmd.Flags().
		Float64("trailing-gap", d.TrailingGap, "Uncovered seconds at the end of the audio that suggest a missing segment")
}

// thresholds from the config, overridden by any flag set on the command line
func thresholdsFromFlags(cmd *cobra.Command) (validate.Thresholds, error) {
	t := cfg.Validation
	overrides := map[string]*float64{
		"overlap-tolerance": &t.OverlapTolerance,
		"gap-threshold":     &t.GapThreshold,
		"min-duration":      &t.MinDuration,
		"trailing-gap":      &t.TrailingGap,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			v, err := cmd.Flags().GetFloat64(name)
			if err != nil {
				return t, err
			}
			*dst = v
		}
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func retryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		RateLimitDelay: cfg.Retry.RateLimitDelay,
	}
}

// newModel builds a key-rotating client for provider using every key the
// config and environment provide.
func newModel(provider, model string) (*llm.Rotating, error) {
	p, err := llm.ParseProvider(provider)
	if err != nil {
		return nil, err
	}

	keys := cfg.APIKeys(string(p))
	if len(keys) == 0 {
		env := strings.ToUpper(string(p))
		return nil, fmt.Errorf(
			"no API key for %s: set %s_API_KEY, %s_API_KEYS or llm.api_keys.%s in the config",
			p, env, env, p,
		)
	}

	opts := llm.Options{Model: model, Temperature: cfg.LLM.Temperature}
	return llm.NewRotating(p, keys, opts, retryPolicy(), logger)
}

// the model that listens to audio: drafts, alignment and the audit's first pass
func newListener() (*llm.Rotating, error) {
	return newModel(cfg.LLM.Provider, cfg.LLM.Model)
}

func requireAudio(m *llm.Rotating, purpose string) error {
	if !m.SupportsAudio() {
		return fmt.Errorf("%s needs an audio-capable provider; %s is text-only (set llm.provider to gemini)",
			purpose, m.Provider())
	}
	return nil
}

type stages struct {
	audit      bool
	noReview   bool
	draft      bool
	align      bool
	thresholds validate.Thresholds
}

// newPipeline wires the collaborators the requested stages need. Converted
// audio goes to workDir.
func newPipeline(workDir string, s stages) (*workflow.Pipeline, error) {
	wcfg := workflow.Config{
		Validator:   validate.New(s.thresholds),
		Concurrency: cfg.Workflow.Concurrency,
		Logger:      logger,
	}

	proc := audio.NewProcessor(workDir)
	proc.Concurrency = cfg.Workflow.Concurrency
	wcfg.Audio = proc

	if !s.audit && !s.draft && !s.align {
		return workflow.New(wcfg), nil
	}

	listener, err := newListener()
	if err != nil {
		return nil, err
	}

	if s.audit {
		if err := requireAudio(listener, "the acoustic audit"); err != nil {
			return nil, err
		}
		var reviewer llm.Model
		if !s.noReview {
			r, err := newModel(cfg.LLM.ReviewerProvider, cfg.LLM.ReviewerModel)
			if err != nil {
				return nil, fmt.Errorf("reviewer: %w", err)
			}
			reviewer = r
		}
		wcfg.Auditor = agent.NewAuditor(listener, reviewer, logger)
	}
	if s.draft {
		if !listener.SupportsAudio() && !listener.CanTranscribe() {
			return nil, fmt.Errorf("%s cannot transcribe audio", listener.Provider())
		}
		wcfg.Transcriber = agent.NewDrafter(listener, agent.DraftOptions{Language: cfg.Workflow.Language})
	}
	if s.align {
		if err := requireAudio(listener, "alignment"); err != nil {
			return nil, err
		}
		wcfg.Aligner = agent.NewAligner(listener)
	}

	return workflow.New(wcfg), nil
}

// workDir returns the configured output directory, or a temporary one that
// cleanup removes.
func workDir() (string, func(), error) {
	if dir := cfg.Workflow.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		return dir, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "verbatim-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// outputPath is the --output flag when given, otherwise source with its
// extension replaced by suffix, placed in the output directory if one is
// configured.
func outputPath(cmd *cobra.Command, source, suffix string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return derivedPath(source, suffix)
}

func derivedPath(source, suffix string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	if dir := cfg.Workflow.OutputDir; dir != "" {
		base = filepath.Join(dir, filepath.Base(base))
	}
	return base + suffix
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func checkMedia(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if !audio.IsMediaFile(path) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(path))
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
