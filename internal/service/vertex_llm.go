package service

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// VertexLLM implements LLM with a Gemini model on Vertex AI.
type VertexLLM struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewVertexLLM creates a Vertex AI Gemini client. credentialsFile may be
// empty to use application default credentials.
func NewVertexLLM(ctx context.Context, projectID, location, modelName, credentialsFile string) (*VertexLLM, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Reports should read the same on every refresh.
	model.SetTemperature(0.2)
	model.SetTopP(0.8)
	model.SetMaxOutputTokens(256)

	return &VertexLLM{client: client, model: model, modelName: modelName}, nil
}

// GenerateResponse returns the text of the first candidate.
func (l *VertexLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	resp, err := l.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response type")
	}
	return sb.String(), nil
}

// Model returns the Gemini model name.
func (l *VertexLLM) Model() string { return l.modelName }

// Close closes the Vertex AI client.
func (l *VertexLLM) Close() error {
	return l.client.Close()
}
