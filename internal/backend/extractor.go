// Package backend is a local extraction service speaking the direct
// transport profile. Documents are stored in a bucket directory, rendered to
// PNG and sent to a vision model.
package backend

import "context"

// Defaults applied when a process request leaves the field unset
const (
	DefaultModel        = "gemini-2.0-flash-001"
	DefaultSystemPrompt = "You are an expert at extracting structured data from documents."
	DefaultUserPrompt   = "Extract all data from this invoice and format it as a clean JSON object. Include all line items."
	MaxOutputTokens     = 60000
)

// Request is one extraction call to a model
type Request struct {
	Document     []byte
	ContentType  string
	Prompt       string
	SystemPrompt string
	// Model overrides the extractor's default when set
	Model       string
	APIKey      string
	Temperature float32
	TopK        *int32
	TopP        *float32
	// JSON asks the model for a JSON document
	JSON bool
}

// Extractor turns a document into model output text
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
	// Close releases resources held by the extractor
	Close() error
}
