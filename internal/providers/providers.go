package providers

import (
	"context"
	"errors"

	"github.com/furnicon/furnicon/internal/models"
)

// ErrEmptyResponse is returned when a provider answers without any usable content
var ErrEmptyResponse = errors.New("empty response from provider")

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Images are attached to the prompt for vision-capable models
	Images []models.Image
	// JSON asks the provider to constrain its answer to a single JSON object
	JSON bool
	// Schema further constrains JSON output where the provider supports it
	Schema *Schema
}

// Schema is a provider-neutral description of the expected JSON output
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
