package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Extractor using Google Gemini. Requests may carry their
// own API key; otherwise the key given at construction is used.
type Gemini struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini extractor. apiKey may be empty when every
// request supplies one.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   modelName,
		timeout: 120 * time.Second,
	}, nil
}

// Extract renders the document and asks the model to extract it
func (g *Gemini) Extract(ctx context.Context, req Request) (string, error) {
	key := req.APIKey
	if key == "" {
		key = g.apiKey
	}
	if key == "" {
		return "", fmt.Errorf("gemini api key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	pages, err := renderPages(req.Document, req.ContentType)
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	modelName := req.Model
	if modelName == "" {
		modelName = g.model
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(MaxOutputTokens)
	if req.TopK != nil {
		model.SetTopK(*req.TopK)
	}
	if req.TopP != nil {
		model.SetTopP(*req.TopP)
	}

	system := req.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultUserPrompt
	}

	// genai.ImageData expects the format suffix, and every page is PNG after rendering
	parts := []genai.Part{genai.Text(system), genai.Text(prompt)}
	for _, page := range pages {
		parts = append(parts, genai.ImageData("png", page))
	}

	slog.Info("Calling Gemini", "model", modelName, "pages", len(pages), "json", req.JSON)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close is a no-op; clients are created per request
func (g *Gemini) Close() error {
	return nil
}
