package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/verbatim/internal/llm"
	"github.com/mgpai22/verbatim/internal/segment"
)

// optional interface for transcribers that only sometimes have a
// speech-to-text endpoint (a key-rotating wrapper, say)
type transcribeCapable interface {
	CanTranscribe() bool
}

type DraftOptions struct {
	Language string
	Prompt   string // extra instructions appended to the draft prompt
}

// Drafter produces a verbatim draft transcript of an audio file.
type Drafter struct {
	model llm.Model
	opts  DraftOptions
}

func NewDrafter(model llm.Model, opts DraftOptions) *Drafter {
	return &Drafter{model: model, opts: opts}
}

// Draft uses the model's speech-to-text endpoint when it has one, otherwise
// an audio-capable generate call.
func (d *Drafter) Draft(ctx context.Context, audioPath string) (string, error) {
	if t, ok := d.model.(llm.AudioTranscriber); ok && canTranscribe(d.model) {
		text, err := t.TranscribeAudio(ctx, audioPath, d.opts.Language)
		if err != nil {
			return "", fmt.Errorf("transcription failed: %w", err)
		}
		return text, nil
	}

	if !d.model.SupportsAudio() {
		return "", llm.ErrAudioUnsupported
	}

	text, err := d.model.Generate(ctx, llm.Request{
		Prompt:    buildDraftPrompt(d.opts.Language, d.opts.Prompt),
		AudioPath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("draft failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("draft is empty")
	}
	return text, nil
}

func canTranscribe(m llm.Model) bool {
	if c, ok := m.(transcribeCapable); ok {
		return c.CanTranscribe()
	}
	return true
}

// Aligner force-aligns corrected transcript text to audio, producing
// timestamped segments.
type Aligner struct {
	model llm.Model
}

func NewAligner(model llm.Model) *Aligner {
	return &Aligner{model: model}
}

func (a *Aligner) Align(ctx context.Context, audioPath, text string) (*segment.Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("transcript text is empty")
	}
	if !a.model.SupportsAudio() {
		return nil, llm.ErrAudioUnsupported
	}

	reply, err := a.model.Generate(ctx, llm.Request{
		Prompt:    buildAlignPrompt(text),
		AudioPath: audioPath,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("alignment failed: %w", err)
	}

	doc, err := segment.ParseModelOutput(llm.CleanJSON(reply))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aligned segments: %w (response: %s)", err, truncateString(reply, 200))
	}
	return doc, nil
}
