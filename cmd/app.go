package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/furnicon/furnicon/internal/catalog"
	"github.com/furnicon/furnicon/internal/config"
	"github.com/furnicon/furnicon/internal/gemini"
	"github.com/furnicon/furnicon/internal/pipeline"
	"github.com/furnicon/furnicon/internal/variation"
	"github.com/furnicon/furnicon/internal/vision"
	"github.com/spf13/cobra"
)

// app holds the process-wide collaborators shared by every pipeline
type app struct {
	cfg      config.Config
	store    *catalog.Store
	analyzer *vision.Analyzer
	engine   *variation.Engine
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	provider, err := vision.NewProvider(cfg.Vision.Provider)
	if err != nil {
		return nil, err
	}
	model := cfg.Vision.Model
	if model == "" {
		model = vision.DefaultModel(cfg.Vision.Provider)
	}

	analyzer := vision.NewAnalyzer(provider, model)
	analyzer.Temperature = cfg.Vision.Temperature
	analyzer.MaxEdge = cfg.Vision.MaxEdge
	analyzer.JPEGQuality = cfg.Vision.JPEGQuality
	analyzer.Timeout = cfg.Vision.Timeout

	if os.Getenv("GEMINI_API_KEY") == "" {
		slog.Warn("GEMINI_API_KEY is not set; image generation will fall back to the uploaded photo")
	}
	images := gemini.NewImageClient(os.Getenv("GEMINI_API_KEY"), cfg.Generation.ImageModel, cfg.Generation.TextModel)
	if cfg.Generation.AspectRatio != "" {
		images.AspectRatio = cfg.Generation.AspectRatio
	}

	engine := variation.NewEngine(images, variation.Options{
		Views:       cfg.Generation.Views,
		Pacing:      cfg.Generation.Pacing,
		Parallelism: cfg.Generation.Parallelism,
		CallTimeout: cfg.Generation.CallTimeout,
	})

	slog.Debug("Configured collaborators",
		"vision_provider", cfg.Vision.Provider,
		"vision_model", model,
		"image_model", cfg.Generation.ImageModel,
		"text_image_model", cfg.Generation.TextModel,
		"views", len(engine.Views()))

	return &app{
		cfg:      cfg,
		store:    catalog.New(),
		analyzer: analyzer,
		engine:   engine,
	}, nil
}

// newPipeline returns a pipeline publishing into the shared store
func (a *app) newPipeline() *pipeline.Pipeline {
	return pipeline.New(a.analyzer, a.engine, a.store, pipeline.Options{DefaultPrice: a.cfg.DefaultPrice})
}
