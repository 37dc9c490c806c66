package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/audio"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	tick    = time.Millisecond
)

type fakeAudio struct {
	duration float64
	chunks   int
	fail     error
}

func (f *fakeAudio) Prepare(ctx context.Context, mediaPath string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return mediaPath + ".mp3", nil
}

func (f *fakeAudio) Duration(ctx context.Context, path string) (float64, error) {
	return f.duration, nil
}

func (f *fakeAudio) Split(ctx context.Context, audioPath string) ([]audio.Chunk, error) {
	n := f.chunks
	if n == 0 {
		n = 1
	}
	out := make([]audio.Chunk, n)
	for i := range out {
		out[i] = audio.Chunk{Path: audioPath, Index: i}
	}
	return out, nil
}

type fakeTranscriber struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTranscriber) Draft(ctx context.Context, audioPath string) (string, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if n > 1 {
		return "and more", nil
	}
	return "um hello", nil
}

type fakeAligner struct {
	gotText string
	block   chan struct{}
}

func (f *fakeAligner) Align(ctx context.Context, audioPath, text string) (*segment.Document, error) {
	if f.block != nil {
		<-f.block
	}
	f.gotText = text
	return &segment.Document{Segments: []segment.Segment{
		segment.New(0, 2, "A", "um"),
		segment.New(2, 4, "B", "hello"),
	}}, nil
}

type fakeAuditor struct{ calls int }

func (f *fakeAuditor) Audit(ctx context.Context, audioPath string, doc *segment.Document, report *validate.Report) (*agent.AuditResult, error) {
	f.calls++
	return &agent.AuditResult{Claims: agent.Reconcile(report, []agent.Claim{{Code: "MisheardWords", Upheld: true}})}, nil
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusIdle, StatusValidating, true},
		{StatusIdle, StatusTranscribing, true},
		{StatusIdle, StatusAligning, false},
		{StatusValidating, StatusReady, true},
		{StatusReady, StatusTranscribing, true},
		{StatusReady, StatusValidating, true},
		{StatusTranscribing, StatusTextReady, true},
		{StatusTextReady, StatusAligning, true},
		{StatusTextReady, StatusTranscribing, true},
		{StatusAligning, StatusCompleted, true},
		{StatusCompleted, StatusValidating, true},
		{StatusCompleted, StatusIdle, false},
		{StatusError, StatusIdle, true},
		{StatusError, StatusValidating, true},
		{StatusError, StatusCompleted, false},
		{StatusReady, StatusCompleted, false},
		{Status("BOGUS"), StatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}

	for s := range transitions {
		assert.True(t, s.CanTransition(StatusError), "%s -> ERROR", s)
	}

	assert.True(t, StatusAligning.InProgress())
	assert.False(t, StatusTextReady.InProgress())
	assert.False(t, StatusError.InProgress())
}

func TestValidateStep(t *testing.T) {
	auditor := &fakeAuditor{}
	p := New(Config{Audio: &fakeAudio{duration: 30}, Auditor: auditor})

	it := NewItem("talk.wav")
	it.Segments = &segment.Document{Segments: []segment.Segment{
		segment.New(0, 5, "A", "hi"),
		segment.New(5, 10, "B", "hey"),
	}}

	require.NoError(t, p.Validate(context.Background(), it))
	assert.Equal(t, StatusReady, it.Status())
	require.NotNil(t, it.Report)
	assert.True(t, it.Report.Has(validate.CodeTrailingMissingSegment))
	assert.Equal(t, "talk.wav.mp3", it.AudioPath)
	assert.Equal(t, 1, auditor.calls)
	require.NotNil(t, it.Audit)
	assert.Equal(t, agent.VerdictUnverifiable, it.Audit.Claims[0].Verdict)

	history := it.History()
	require.Len(t, history, 2)
	assert.Equal(t, StatusIdle, history[0].From)
	assert.Equal(t, StatusReady, history[1].To)
}

func TestValidateWithoutMedia(t *testing.T) {
	p := New(Config{})
	it := NewItem("")
	it.Segments = &segment.Document{Segments: []segment.Segment{segment.New(0, 1, "A", "x")}}

	require.NoError(t, p.Validate(context.Background(), it))
	assert.Nil(t, it.Report.Stats.DeclaredDuration)
}

func TestValidateNeedsSegments(t *testing.T) {
	it := NewItem("talk.wav")
	err := New(Config{}).Validate(context.Background(), it)
	assert.Error(t, err)
	assert.Equal(t, StatusIdle, it.Status())
}

func TestRunFullWorkflow(t *testing.T) {
	aligner := &fakeAligner{}
	transcriber := &fakeTranscriber{}
	p := New(Config{Audio: &fakeAudio{duration: 4, chunks: 2}, Transcriber: transcriber, Aligner: aligner})

	it := NewItem("talk.wav")
	require.NoError(t, p.Run(context.Background(), it))

	assert.Equal(t, StatusCompleted, it.Status())
	assert.Equal(t, int32(2), transcriber.calls.Load())
	assert.Contains(t, it.Draft, "um hello")
	assert.Contains(t, it.Draft, "and more")
	assert.Equal(t, it.Draft, aligner.gotText)
	require.NotNil(t, it.AlignedReport)
	assert.True(t, it.AlignedReport.IsValid)
}

func TestValidationErrorsBlockDrafting(t *testing.T) {
	transcriber := &fakeTranscriber{}
	aligner := &fakeAligner{}
	p := New(Config{Audio: &fakeAudio{duration: 10}, Transcriber: transcriber, Aligner: aligner})
	ctx := context.Background()

	it := NewItem("talk.wav")
	it.Segments = &segment.Document{Segments: []segment.Segment{
		segment.New(0, 5, "A", "hi"),
		segment.New(4, 10, "B", "hey"),
	}}

	err := p.Run(ctx, it)
	require.ErrorIs(t, err, ErrBlockingFindings)
	assert.Contains(t, err.Error(), string(validate.CodeTimestampOverlap))
	assert.Equal(t, StatusReady, it.Status())
	assert.False(t, it.Report.IsValid)
	assert.Nil(t, it.Aligned)
	assert.Equal(t, int32(0), transcriber.calls.Load())
	assert.Empty(t, aligner.gotText)

	assert.ErrorIs(t, p.Transcribe(ctx, it), ErrBlockingFindings)
	assert.ErrorIs(t, p.LoadDraft(it, "Speaker A: hi"), ErrBlockingFindings)
	assert.Equal(t, StatusReady, it.Status())

	// fixed segments clear the way
	it.Segments.Segments[1] = segment.New(5, 10, "B", "hey")
	require.NoError(t, p.Run(ctx, it))
	assert.Equal(t, StatusCompleted, it.Status())
	assert.True(t, it.Report.IsValid)
}

func TestAlignUsesCorrectedText(t *testing.T) {
	aligner := &fakeAligner{}
	p := New(Config{Audio: &fakeAudio{}, Transcriber: &fakeTranscriber{}, Aligner: aligner})
	it := NewItem("talk.wav")
	ctx := context.Background()

	require.Error(t, it.SetCorrected("too early"))
	require.NoError(t, p.Transcribe(ctx, it))
	require.NoError(t, it.SetCorrected("Speaker A: um hello"))
	require.NoError(t, p.Run(ctx, it))

	assert.Equal(t, "Speaker A: um hello", aligner.gotText)
	assert.Equal(t, StatusCompleted, it.Status())
}

func TestLoadDraftSkipsTranscription(t *testing.T) {
	aligner := &fakeAligner{}
	transcriber := &fakeTranscriber{}
	p := New(Config{Audio: &fakeAudio{}, Transcriber: transcriber, Aligner: aligner})
	it := NewItem("talk.wav")

	require.Error(t, p.LoadDraft(it, "  "))
	require.NoError(t, p.LoadDraft(it, "Speaker A: edited"))
	assert.Equal(t, StatusTextReady, it.Status())

	require.NoError(t, p.Run(context.Background(), it))
	assert.Equal(t, int32(0), transcriber.calls.Load())
	assert.Equal(t, "Speaker A: edited", aligner.gotText)

	// a completed item can take a new draft and be aligned again
	require.NoError(t, p.LoadDraft(it, "again"))
	assert.Equal(t, StatusTextReady, it.Status())

	it2 := NewItem("talk.wav")
	require.NoError(t, it2.moveTo(StatusValidating))
	assert.Error(t, p.LoadDraft(it2, "text"))
}

func TestIllegalStepReturnsTransitionError(t *testing.T) {
	p := New(Config{Audio: &fakeAudio{}, Aligner: &fakeAligner{}})
	it := NewItem("talk.wav")

	err := p.Align(context.Background(), it)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusIdle, te.From)
	assert.Equal(t, StatusAligning, te.To)
	assert.Equal(t, StatusIdle, it.Status())
}

func TestFailureMovesToError(t *testing.T) {
	boom := errors.New("quota exhausted on every key")
	p := New(Config{Audio: &fakeAudio{}, Transcriber: &fakeTranscriber{err: boom}, Aligner: &fakeAligner{}})
	it := NewItem("talk.wav")

	err := p.Run(context.Background(), it)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, it.Status())
	assert.ErrorIs(t, it.Err, boom)

	require.NoError(t, p.Reset(it))
	assert.Equal(t, StatusIdle, it.Status())
	assert.NoError(t, it.Err)
}

func TestBusyItemRejectsSecondStep(t *testing.T) {
	aligner := &fakeAligner{block: make(chan struct{})}
	p := New(Config{Audio: &fakeAudio{}, Transcriber: &fakeTranscriber{}, Aligner: aligner})
	it := NewItem("talk.wav")
	ctx := context.Background()
	require.NoError(t, p.Transcribe(ctx, it))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, p.Align(ctx, it))
	}()

	require.Eventually(t, func() bool { return it.Status() == StatusAligning }, timeout, tick)
	assert.ErrorIs(t, p.Transcribe(ctx, it), ErrItemBusy)

	close(aligner.block)
	wg.Wait()
	assert.Equal(t, StatusCompleted, it.Status())
}

func TestRunAllIsolatesFailures(t *testing.T) {
	p := New(Config{
		Audio:       &fakeAudio{},
		Transcriber: &fakeTranscriber{},
		Aligner:     &fakeAligner{},
		Concurrency: 2,
	})

	good := NewItem("good.wav")
	bad := NewItem("bad.wav")
	bad.Segments = &segment.Document{Segments: []segment.Segment{segment.New(0, 1, "A", "x")}}
	require.NoError(t, bad.moveTo(StatusValidating))

	err := p.RunAll(context.Background(), []*Item{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.wav")
	assert.Equal(t, StatusCompleted, good.Status())
	assert.NotEqual(t, good.ID, bad.ID)
}
