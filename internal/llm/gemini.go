package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// implements Model using Google Gemini
type GeminiModel struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiModel(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiModel{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (m *GeminiModel) SupportsAudio() bool { return true }

func (m *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
	}

	if req.AudioPath != "" {
		if _, err := os.Stat(req.AudioPath); err != nil {
			return "", fmt.Errorf("audio file not found: %s", req.AudioPath)
		}

		uploaded, err := m.client.Files.UploadFromPath(ctx, req.AudioPath, nil)
		if err != nil {
			return "", fmt.Errorf("failed to upload audio file: %w", err)
		}
		defer func() {
			_, _ = m.client.Files.Delete(context.WithoutCancel(ctx), uploaded.Name, nil)
		}()

		parts = append(parts, genai.NewPartFromURI(uploaded.URI, uploaded.MIMEType))
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, m.config(req))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return responseText(result)
}

func (m *GeminiModel) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if t := m.options.Temperature; t != nil {
		cfg.Temperature = genai.Ptr(float32(*t))
	}
	return cfg
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var text string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				text += part.Text
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return text, nil
}
