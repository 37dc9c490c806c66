package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/audio"
	"github.com/mgpai22/verbatim/internal/logging"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/validate"
	"golang.org/x/sync/errgroup"
)

type Auditor interface {
	Audit(
		ctx context.Context,
		audioPath string,
		doc *segment.Document,
		report *validate.Report,
	) (*agent.AuditResult, error)
}

type Transcriber interface {
	Draft(ctx context.Context, audioPath string) (string, error)
}

type Aligner interface {
	Align(ctx context.Context, audioPath, text string) (*segment.Document, error)
}

type AudioSource interface {
	Prepare(ctx context.Context, mediaPath string) (string, error)
	Duration(ctx context.Context, path string) (float64, error)
	Split(ctx context.Context, audioPath string) ([]audio.Chunk, error)
}

// Config wires the collaborators of a Pipeline. Only Validator is required;
// steps whose collaborator is nil refuse to start.
type Config struct {
	Validator   *validate.Validator
	Audio       AudioSource
	Auditor     Auditor
	Transcriber Transcriber
	Aligner     Aligner
	// items processed at once by RunAll, and chunks drafted at once per item
	Concurrency int
	Logger      *logging.Logger
}

type Pipeline struct {
	cfg    Config
	logger *logging.Logger
}

func New(cfg Config) *Pipeline {
	if cfg.Validator == nil {
		cfg.Validator = validate.New(validate.DefaultThresholds())
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Validate checks the item's segments against its audio: the deterministic
// report always, the acoustic audit when an Auditor is configured.
func (p *Pipeline) Validate(ctx context.Context, it *Item) error {
	if err := it.acquire(); err != nil {
		return err
	}
	defer it.release()

	if it.Segments == nil {
		return fmt.Errorf("item %s has no segments to validate", it.ID)
	}
	if err := p.move(it, StatusValidating); err != nil {
		return err
	}

	if it.MediaPath != "" {
		if err := p.ensureAudio(ctx, it); err != nil {
			return p.fail(it, err)
		}
	}

	it.Report = p.cfg.Validator.Validate(it.Segments.Segments, validate.Options{
		KnownAudioDuration: it.Duration,
		Header:             it.Segments.Header,
	})
	p.logger.Infow("validated",
		"item", it.ID,
		"valid", it.Report.IsValid,
		"errors", len(it.Report.Errors),
		"warnings", len(it.Report.Warnings),
	)

	if p.cfg.Auditor != nil && it.AudioPath != "" {
		result, err := p.cfg.Auditor.Audit(ctx, it.AudioPath, it.Segments, it.Report)
		if err != nil {
			return p.fail(it, fmt.Errorf("audit failed: %w", err))
		}
		it.Audit = result
	}

	return p.succeed(it, StatusReady)
}

// Transcribe produces a verbatim draft. Long recordings are split and the
// chunks drafted in parallel.
func (p *Pipeline) Transcribe(ctx context.Context, it *Item) error {
	if p.cfg.Transcriber == nil || p.cfg.Audio == nil {
		return errors.New("transcription is not configured")
	}
	if err := it.acquire(); err != nil {
		return err
	}
	defer it.release()

	if err := p.blocked(it); err != nil {
		return err
	}
	if err := p.move(it, StatusTranscribing); err != nil {
		return err
	}

	if err := p.ensureAudio(ctx, it); err != nil {
		return p.fail(it, err)
	}

	draft, err := p.draft(ctx, it)
	if err != nil {
		return p.fail(it, err)
	}
	it.Draft = draft
	it.Corrected = ""

	return p.succeed(it, StatusTextReady)
}

// LoadDraft stands in for Transcribe with text produced elsewhere, such as a
// draft saved by an earlier run and edited by hand.
func (p *Pipeline) LoadDraft(it *Item, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("draft text is empty")
	}
	if err := it.acquire(); err != nil {
		return err
	}
	defer it.release()

	if err := p.blocked(it); err != nil {
		return err
	}
	if err := p.move(it, StatusTranscribing); err != nil {
		return err
	}
	it.Draft = text
	it.Corrected = ""
	p.logger.Debugw("draft loaded", "item", it.ID, "chars", len(text))

	return p.succeed(it, StatusTextReady)
}

func (p *Pipeline) draft(ctx context.Context, it *Item) (string, error) {
	chunks, err := p.cfg.Audio.Split(ctx, it.AudioPath)
	if err != nil {
		return "", fmt.Errorf("failed to split audio: %w", err)
	}
	if len(chunks) > 1 {
		defer audio.Cleanup(chunks)
		p.logger.Debugw("drafting in chunks", "item", it.ID, "chunks", len(chunks))
	}

	texts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, c := range chunks {
		g.Go(func() error {
			text, err := p.cfg.Transcriber.Draft(gctx, c.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", c.Index, err)
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(texts, "\n"), nil
}

// Align turns the corrected text (or the draft when nothing was corrected)
// into timestamped segments and validates them.
func (p *Pipeline) Align(ctx context.Context, it *Item) error {
	if p.cfg.Aligner == nil || p.cfg.Audio == nil {
		return errors.New("alignment is not configured")
	}
	if err := it.acquire(); err != nil {
		return err
	}
	defer it.release()

	if err := p.move(it, StatusAligning); err != nil {
		return err
	}

	if err := p.ensureAudio(ctx, it); err != nil {
		return p.fail(it, err)
	}

	doc, err := p.cfg.Aligner.Align(ctx, it.AudioPath, it.Text())
	if err != nil {
		return p.fail(it, err)
	}
	it.Aligned = doc
	it.AlignedReport = p.cfg.Validator.Validate(doc.Segments, validate.Options{
		KnownAudioDuration: it.Duration,
		Header:             doc.Header,
	})
	p.logger.Infow("aligned",
		"item", it.ID,
		"segments", len(doc.Segments),
		"valid", it.AlignedReport.IsValid,
	)

	return p.succeed(it, StatusCompleted)
}

// Run takes an item through every step it is ready for: validation when it
// has segments, then drafting and alignment. Validation errors stop it at
// READY with ErrBlockingFindings.
func (p *Pipeline) Run(ctx context.Context, it *Item) error {
	if it.Status() == StatusError {
		if err := p.Reset(it); err != nil {
			return err
		}
	}

	// a draft that is already waiting goes straight to alignment
	if it.Status() != StatusTextReady {
		if it.Segments != nil {
			if err := p.Validate(ctx, it); err != nil {
				return err
			}
		}
		if err := p.Transcribe(ctx, it); err != nil {
			return err
		}
	}
	return p.Align(ctx, it)
}

// RunAll runs independent items in parallel. One item failing does not stop
// the others; the failures are joined.
func (p *Pipeline) RunAll(ctx context.Context, items []*Item) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for _, it := range items {
		g.Go(func() error {
			if err := p.Run(ctx, it); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", it.MediaPath, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Reset returns a failed item to IDLE.
func (p *Pipeline) Reset(it *Item) error {
	if err := it.acquire(); err != nil {
		return err
	}
	defer it.release()

	if err := p.move(it, StatusIdle); err != nil {
		return err
	}
	it.Err = nil
	return nil
}

func (p *Pipeline) ensureAudio(ctx context.Context, it *Item) error {
	if it.AudioPath != "" {
		return nil
	}
	if p.cfg.Audio == nil {
		return errors.New("audio processing is not configured")
	}

	path, err := p.cfg.Audio.Prepare(ctx, it.MediaPath)
	if err != nil {
		return fmt.Errorf("failed to prepare audio: %w", err)
	}
	it.AudioPath = path

	if d, err := p.cfg.Audio.Duration(ctx, path); err != nil {
		p.logger.Warnw("could not read audio duration", "item", it.ID, "error", err)
	} else {
		it.Duration = &d
	}
	return nil
}

// a READY item only moves on when its report has no errors
func (p *Pipeline) blocked(it *Item) error {
	if it.Status() != StatusReady || it.Report == nil || it.Report.IsValid {
		return nil
	}
	codes := make([]string, 0, len(it.Report.Errors))
	for _, f := range it.Report.Errors {
		codes = append(codes, string(f.Code))
	}
	p.logger.Warnw("blocked by validation errors", "item", it.ID, "errors", len(codes))
	return fmt.Errorf("item %s: %w: %s", it.ID, ErrBlockingFindings, strings.Join(codes, ", "))
}

func (p *Pipeline) move(it *Item, to Status) error {
	from := it.Status()
	if err := it.moveTo(to); err != nil {
		return err
	}
	p.logger.Debugw("status", "item", it.ID, "from", from, "to", to)
	return nil
}

func (p *Pipeline) succeed(it *Item, to Status) error {
	it.Err = nil
	return p.move(it, to)
}

func (p *Pipeline) fail(it *Item, err error) error {
	it.Err = err
	if moveErr := p.move(it, StatusError); moveErr != nil {
		return errors.Join(err, moveErr)
	}
	p.logger.Errorw("step failed", "item", it.ID, "error", err)
	return err
}
