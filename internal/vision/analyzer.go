package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/furnicon/furnicon/internal/gemini"
	"github.com/furnicon/furnicon/internal/images"
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/ollama"
	"github.com/furnicon/furnicon/internal/openai"
	"github.com/furnicon/furnicon/internal/providers"
)

const (
	DefaultMaxEdge     = 1024
	DefaultJPEGQuality = 85
	DefaultTimeout     = 45 * time.Second
)

// NewProvider returns the vision provider registered under name
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "", "gemini":
		return gemini.New(""), nil
	case "openai":
		return openai.New(""), nil
	case "ollama":
		return ollama.New(""), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel returns the model used when none is configured for provider
func DefaultModel(provider string) string {
	switch provider {
	case "", "gemini":
		model := os.Getenv("VISION_MODEL")
		if model == "" {
			return "gemini-2.5-flash"
		}
		return model
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	default:
		return ""
	}
}

// Analyzer asks a vision model to describe a product photo
type Analyzer struct {
	Provider    providers.Provider
	Model       string
	Temperature float64
	MaxEdge     int
	JPEGQuality int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// NewAnalyzer returns an analyzer with default image preparation settings
func NewAnalyzer(provider providers.Provider, model string) *Analyzer {
	return &Analyzer{
		Provider:    provider,
		Model:       model,
		Temperature: 0.1,
		MaxEdge:     DefaultMaxEdge,
		JPEGQuality: DefaultJPEGQuality,
		Timeout:     DefaultTimeout,
	}
}

// Analyze describes the asset. It never fails: any problem is reported as an
// error record whose Category is models.ErrorCategory.
func (a *Analyzer) Analyze(ctx context.Context, asset *models.RawAsset) models.MetadataRecord {
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}

	record, err := a.analyze(ctx, asset)
	if err != nil {
		log.Error("Product analysis failed", "err", err)
		return models.ErrorRecord(err.Error())
	}

	log.Info("Analyzed product",
		"category", record.Category,
		"material", record.Material,
		"specifications", len(record.Specifications))
	return record
}

func (a *Analyzer) analyze(ctx context.Context, asset *models.RawAsset) (models.MetadataRecord, error) {
	if a.Provider == nil {
		return models.MetadataRecord{}, fmt.Errorf("no vision provider configured")
	}
	if asset == nil {
		return models.MetadataRecord{}, fmt.Errorf("no image to analyze")
	}

	maxEdge := a.MaxEdge
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	quality := a.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	prepared, err := images.PrepareForAnalysis(asset, maxEdge, quality)
	if err != nil {
		return models.MetadataRecord{}, fmt.Errorf("failed to prepare image: %w", err)
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	response, err := a.Provider.ExtractText(ctx, providers.Config{
		Model:       a.Model,
		Temperature: a.Temperature,
		Prompt:      buildAnalysisPrompt(),
		Images:      []models.Image{prepared},
		JSON:        true,
		Schema:      analysisSchema(),
	})
	if err != nil {
		return models.MetadataRecord{}, fmt.Errorf("failed to call vision model: %w", err)
	}

	record, err := parseRecord(response)
	if err != nil {
		return models.MetadataRecord{}, fmt.Errorf("failed to parse vision response: %w", err)
	}
	return record, nil
}
