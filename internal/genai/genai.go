// Package genai issues prompts to a generative text backend and decodes the
// responses, optionally validating them against a JSON schema.
package genai

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrSchemaValidation marks a response that was not valid JSON or did not
	// satisfy the request schema.
	ErrSchemaValidation = eris.New("genai: response failed schema validation")

	// ErrEmptyResponse marks a response with no usable content.
	ErrEmptyResponse = eris.New("genai: empty response")
)

// Generator is the generative service used by the recommendation pipeline.
// Implementations must be safe for concurrent use. Each call is one attempt.
type Generator interface {
	// Structured sends req and decodes the schema-validated JSON object into out.
	Structured(ctx context.Context, req StructuredRequest, out any) error

	// Text sends req and returns the trimmed free-form response.
	Text(ctx context.Context, req TextRequest) (string, error)
}

// StructuredRequest asks for a JSON object matching Schema.
type StructuredRequest struct {
	// Phase labels the call in logs and metrics (e.g. "affinity").
	Phase  string
	System string
	Prompt string
	Schema *Schema
}

// TextRequest asks for free-form text.
type TextRequest struct {
	Phase  string
	System string
	Prompt string
}
