package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// Vertex calls a Gemini model through Vertex AI.
type Vertex struct {
	client *genai.Client
	cfg    Config
}

func NewVertex(ctx context.Context, cfg Config) (*Vertex, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("llm: vertex project and location cannot be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm: vertex model is required")
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Vertex{client: client, cfg: cfg}, nil
}

func (v *Vertex) Name() string { return v.cfg.Model }

func (v *Vertex) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := withTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	model := v.client.GenerativeModel(v.cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (v *Vertex) Close() error {
	return v.client.Close()
}
