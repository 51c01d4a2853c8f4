package variation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/furnicon/furnicon/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// View is one requested alternate angle or detail shot
type View struct {
	Name        string `json:"name" yaml:"name"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// DefaultViews are the three views generated for every product
var DefaultViews = []View{
	{
		Name:        "left side",
		Instruction: "Generate a professional product photo of this object seen from its left side. Studio lighting, white background. High fidelity, photorealistic.",
	},
	{
		Name:        "right side",
		Instruction: "Generate a professional product photo of this object seen from its right side. Studio lighting, white background. High fidelity, photorealistic.",
	},
	{
		Name:        "material close-up",
		Instruction: "Generate a close-up product photo of this object's material and surface texture. Studio lighting, shallow depth of field. High fidelity, photorealistic.",
	},
}

var errNoImage = errors.New("service returned no image")

// Request is one call to an image generation service.
// A nil Source asks for generation from text alone.
type Request struct {
	Instruction string
	Source      *models.Image
	Count       int
}

// Generator is the image generation service contract
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.Image, error)
}

// Options tune the engine
type Options struct {
	Views []View
	// Pacing is the minimum interval between view attempts; zero disables pacing
	Pacing time.Duration
	// Parallelism > 1 runs views concurrently; the pacing limiter is still shared
	Parallelism int
	// CallTimeout bounds each service call; zero means no per-call bound
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Result is the outcome of one batch
type Result struct {
	Images         []models.Image
	Attempts       []models.GenerationAttempt
	SourceFallback bool
}

// Failures returns the attempts that did not produce an image
func (r Result) Failures() []models.GenerationAttempt {
	var out []models.GenerationAttempt
	for _, a := range r.Attempts {
		if !a.Succeeded {
			out = append(out, a)
		}
	}
	return out
}

// Engine turns a source photo into a set of alternate views.
// It is safe for concurrent use; all callers share one pacing limiter.
type Engine struct {
	gen         Generator
	views       []View
	limiter     *rate.Limiter
	parallelism int
	callTimeout time.Duration
	log         *slog.Logger
}

// NewEngine creates an engine around gen
func NewEngine(gen Generator, opts Options) *Engine {
	views := opts.Views
	if len(views) == 0 {
		views = DefaultViews
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pacing), 1)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		gen:         gen,
		views:       views,
		limiter:     limiter,
		parallelism: max(1, opts.Parallelism),
		callTimeout: opts.CallTimeout,
		log:         log,
	}
}

// Views returns the configured target views
func (e *Engine) Views() []View {
	return e.views
}

type viewOutcome struct {
	image    *models.Image
	attempts []models.GenerationAttempt
}

// Generate produces up to one image per view, in view order. It never returns an empty
// image list: when every view fails the source image is returned as the only image.
func (e *Engine) Generate(ctx context.Context, src models.Image, hint string) Result {
	outcomes := make([]viewOutcome, len(e.views))

	if e.parallelism > 1 {
		var g errgroup.Group
		g.SetLimit(e.parallelism)
		for i, v := range e.views {
			g.Go(func() error {
				outcomes[i] = e.runView(ctx, i, v, src, hint)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, v := range e.views {
			outcomes[i] = e.runView(ctx, i, v, src, hint)
		}
	}

	var result Result
	for _, o := range outcomes {
		result.Attempts = append(result.Attempts, o.attempts...)
		if o.image != nil {
			result.Images = append(result.Images, *o.image)
		}
	}

	if len(result.Images) == 0 {
		e.log.Warn("All views failed, falling back to source image", "views", len(e.views))
		result.Images = []models.Image{src}
		result.SourceFallback = true
	}

	e.log.Info("Variation batch finished",
		"views", len(e.views),
		"images", len(result.Images),
		"failed_attempts", len(result.Failures()),
		"source_fallback", result.SourceFallback)
	return result
}

// runView tries the image-conditioned strategy, then the text-conditioned one
func (e *Engine) runView(ctx context.Context, idx int, v View, src models.Image, hint string) viewOutcome {
	var out viewOutcome

	if err := e.limiter.Wait(ctx); err != nil {
		out.attempts = append(out.attempts, models.GenerationAttempt{
			ViewIndex: idx,
			View:      v.Name,
			Strategy:  models.StrategyNone,
			Err:       err.Error(),
		})
		return out
	}

	a := e.attempt(ctx, idx, v, models.StrategyImageConditioned, Request{
		Instruction: v.Instruction,
		Source:      &src,
		Count:       1,
	})
	out.attempts = append(out.attempts, a)
	if a.Succeeded {
		out.image = a.Image
		return out
	}

	b := e.attempt(ctx, idx, v, models.StrategyTextConditioned, Request{
		Instruction: TextPrompt(v, hint),
		Count:       1,
	})
	out.attempts = append(out.attempts, b)
	if b.Succeeded {
		out.image = b.Image
	} else {
		e.log.Warn("View skipped after both strategies failed", "view", v.Name)
	}
	return out
}

func (e *Engine) attempt(ctx context.Context, idx int, v View, strategy models.Strategy, req Request) models.GenerationAttempt {
	a := models.GenerationAttempt{ViewIndex: idx, View: v.Name, Strategy: strategy}

	if err := ctx.Err(); err != nil {
		a.Err = err.Error()
		return a
	}

	callCtx := ctx
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}

	start := time.Now()
	imgs, err := e.gen.Generate(callCtx, req)
	if err == nil {
		err = errNoImage
		for _, img := range imgs {
			if !img.Empty() {
				a.Image = &img
				err = nil
				break
			}
		}
	}

	if err != nil {
		a.Err = err.Error()
		e.log.Warn("Generation strategy failed",
			"view", v.Name,
			"strategy", strategy.String(),
			"duration", time.Since(start),
			"err", err)
		return a
	}

	a.Succeeded = true
	e.log.Debug("Generation strategy succeeded", "view", v.Name, "strategy", strategy.String(), "duration", time.Since(start))
	return a
}

// TextPrompt composes the text-only instruction for a view
func TextPrompt(v View, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return v.Instruction
	}
	return v.Instruction + " Product: " + hint + "."
}
