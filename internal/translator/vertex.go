package translator

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// Vertex translates with a Gemini model on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewVertex(ctx context.Context, projectID, region, modelName string) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertex: projectID and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &Vertex{client: client, model: model}, nil
}

func (v *Vertex) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(userPrompt(text, sourceLang, targetLang)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return cleanOutput(extractText(resp))
}

func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
