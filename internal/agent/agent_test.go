package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mgpai22/verbatim/internal/llm"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns canned replies in order and records requests
type scriptedModel struct {
	audio    bool
	replies  []string
	requests []llm.Request
}

func (m *scriptedModel) SupportsAudio() bool { return m.audio }

func (m *scriptedModel) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

type transcribingModel struct {
	scriptedModel
	text string
	lang string
}

func (m *transcribingModel) TranscribeAudio(ctx context.Context, audioPath, language string) (string, error) {
	m.lang = language
	return m.text, nil
}

func overlappingDoc() *segment.Document {
	return &segment.Document{Segments: []segment.Segment{
		segment.New(0, 5, "A", "hello there"),
		segment.New(4, 10, "B", "general kenobi"),
		segment.New(10, 12, "A", "you are a bold one"),
	}}
}

func TestReconcile(t *testing.T) {
	doc := overlappingDoc()
	report := validate.Validate(doc.Segments, validate.Options{})
	require.True(t, report.Has(validate.CodeTimestampOverlap))

	tests := []struct {
		name  string
		claim Claim
		want  Verdict
	}{
		{"same code same segment", Claim{Code: "TimestampOverlap", Segments: []int{2}}, VerdictCorroborated},
		{"same code no segments", Claim{Code: "TimestampOverlap"}, VerdictCorroborated},
		{"same code other segment", Claim{Code: "TimestampOverlap", Segments: []int{3}}, VerdictDisputed},
		{"checkable code not found", Claim{Code: "InvalidDuration", Segments: []int{1}}, VerdictDisputed},
		{"acoustic code", Claim{Code: "MisheardWords", Segments: []int{1}}, VerdictUnverifiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(report, []Claim{tt.claim})
			assert.Equal(t, tt.want, got[0].Verdict)
		})
	}

	t.Run("nil report disputes checkable claims", func(t *testing.T) {
		got := Reconcile(nil, []Claim{{Code: "TimestampOverlap"}})
		assert.Equal(t, VerdictDisputed, got[0].Verdict)
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("fenced array", func(t *testing.T) {
		var claims []Claim
		err := decodeResponse("```json\n[{\"code\":\"MissingSpeech\",\"segments\":[2],\"detail\":\"words lost\"}]\n```", claimsSchema, &claims)
		require.NoError(t, err)
		require.Len(t, claims, 1)
		assert.Equal(t, "MissingSpeech", claims[0].Code)
		assert.Equal(t, []int{2}, claims[0].Segments)
	})

	t.Run("wrapped in object with prose", func(t *testing.T) {
		var claims []Claim
		err := decodeResponse("Here you go: {\"claims\": []} hope it helps", claimsSchema, &claims)
		require.NoError(t, err)
		assert.Empty(t, claims)
	})

	t.Run("schema violation", func(t *testing.T) {
		var claims []Claim
		err := decodeResponse(`[{"code":"lowercase","segments":[0]}]`, claimsSchema, &claims)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.NotEmpty(t, se.Problems)
	})

	t.Run("no json", func(t *testing.T) {
		var claims []Claim
		assert.Error(t, decodeResponse("nothing to see", claimsSchema, &claims))
	})
}

func TestAuditorTwoCalls(t *testing.T) {
	doc := overlappingDoc()
	report := validate.Validate(doc.Segments, validate.Options{})

	listener := &scriptedModel{audio: true, replies: []string{`[
		{"code": "TimestampOverlap", "segments": [1, 2], "detail": "speaker B starts early", "severity": "error"},
		{"code": "MisheardWords", "segments": [2], "detail": "kenobi is 'kenobee'"},
		{"code": "TimestampOverlap", "segments": [3], "detail": "overlaps the next line"}
	]`}}
	reviewer := &scriptedModel{replies: []string{`{"review": [
		{"id": 1, "upheld": true, "reason": "matches the report"},
		{"id": 3, "upheld": false, "reason": "report shows no overlap"}
	]}`}}

	result, err := NewAuditor(listener, reviewer, nil).Audit(context.Background(), "clip.mp3", doc, report)
	require.NoError(t, err)
	require.Len(t, result.Claims, 3)
	assert.True(t, result.Reviewed)

	first, second, third := result.Claims[0], result.Claims[1], result.Claims[2]
	assert.Equal(t, 1, first.ID)
	assert.True(t, first.Upheld)
	assert.Equal(t, VerdictCorroborated, first.Verdict)

	assert.False(t, second.Upheld)
	assert.Equal(t, "not addressed by reviewer", second.ReviewNote)
	assert.Equal(t, VerdictUnverifiable, second.Verdict)

	assert.False(t, third.Upheld)
	assert.Equal(t, VerdictDisputed, third.Verdict)

	require.Len(t, listener.requests, 1)
	assert.Equal(t, "clip.mp3", listener.requests[0].AudioPath)
	require.Len(t, reviewer.requests, 1)
	assert.Empty(t, reviewer.requests[0].AudioPath)
	assert.Contains(t, reviewer.requests[0].Prompt, "TimestampOverlap")

	assert.Equal(t, map[Verdict]int{VerdictCorroborated: 1}, Summary(result.Claims))
}

func TestAuditorWithoutReviewerUpholdsAll(t *testing.T) {
	doc := overlappingDoc()
	listener := &scriptedModel{audio: true, replies: []string{`[{"code":"MissingSpeech","segments":[3],"detail":"a laugh"}]`}}

	result, err := NewAuditor(listener, nil, nil).Audit(context.Background(), "clip.mp3", doc, nil)
	require.NoError(t, err)
	assert.False(t, result.Reviewed)
	require.Len(t, result.Claims, 1)
	assert.True(t, result.Claims[0].Upheld)
}

func TestAuditorNeedsAudioListener(t *testing.T) {
	_, err := NewAuditor(&scriptedModel{}, nil, nil).Audit(context.Background(), "clip.mp3", overlappingDoc(), nil)
	assert.ErrorIs(t, err, llm.ErrAudioUnsupported)
}

func TestDrafter(t *testing.T) {
	t.Run("speech to text endpoint", func(t *testing.T) {
		m := &transcribingModel{text: "um so yeah"}
		got, err := NewDrafter(m, DraftOptions{Language: "en"}).Draft(context.Background(), "a.mp3")
		require.NoError(t, err)
		assert.Equal(t, "um so yeah", got)
		assert.Equal(t, "en", m.lang)
		assert.Empty(t, m.requests)
	})

	t.Run("audio generate", func(t *testing.T) {
		m := &scriptedModel{audio: true, replies: []string{"  Speaker 1: uh hi  \n"}}
		got, err := NewDrafter(m, DraftOptions{Language: "German"}).Draft(context.Background(), "a.mp3")
		require.NoError(t, err)
		assert.Equal(t, "Speaker 1: uh hi", got)
		assert.True(t, strings.Contains(m.requests[0].Prompt, "German"))
	})

	t.Run("text only model", func(t *testing.T) {
		_, err := NewDrafter(&scriptedModel{}, DraftOptions{}).Draft(context.Background(), "a.mp3")
		assert.ErrorIs(t, err, llm.ErrAudioUnsupported)
	})
}

func TestAligner(t *testing.T) {
	m := &scriptedModel{audio: true, replies: []string{"```json\n" + `{"num_speakers": 2, "segments": [
		{"start": 0, "end": 1.5, "speaker": "Speaker 1", "transcription": "uh hi"},
		{"start": 1.5, "end": 3, "speaker": "Speaker 2", "transcription": "hello"}
	]}` + "\n```"}}

	doc, err := NewAligner(m).Align(context.Background(), "a.mp3", "Speaker 1: uh hi\nSpeaker 2: hello")
	require.NoError(t, err)
	require.Len(t, doc.Segments, 2)
	require.NotNil(t, doc.Header)
	assert.Equal(t, 2, *doc.Header.NumSpeakers)
	assert.Equal(t, "Speaker 2", doc.Segments[1].Speaker.Trimmed())
	assert.True(t, m.requests[0].JSON)

	_, err = NewAligner(m).Align(context.Background(), "a.mp3", "   ")
	assert.Error(t, err)
}
