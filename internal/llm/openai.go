package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// implements Model using OpenAI Chat Completions and AudioTranscriber using
// the Audio API
type OpenAIModel struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIModel(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := opts.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &OpenAIModel{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (m *OpenAIModel) SupportsAudio() bool { return false }

func (m *OpenAIModel) Generate(ctx context.Context, req Request) (string, error) {
	if req.AudioPath != "" {
		return "", ErrAudioUnsupported
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    m.model,
	}
	if t := m.options.Temperature; t != nil {
		params.Temperature = openai.Float(*t)
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	text := completion.Choices[0].Message.Content
	if text == "" {
		return "", fmt.Errorf("no text in OpenAI response")
	}
	return text, nil
}

// transcribes an audio file to plain text with whisper-1
func (m *OpenAIModel) TranscribeAudio(ctx context.Context, audioPath, language string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModelWhisper1,
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	result, err := m.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("no text in transcription response")
	}
	return text, nil
}
