package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/variation"
)

// DefaultPrice seeds the draft price when the analyzer gives no estimate
const DefaultPrice = 199.99

// Analyzer describes a product photo; failures come back as error records
type Analyzer interface {
	Analyze(ctx context.Context, asset *models.RawAsset) models.MetadataRecord
}

// Generator produces the alternate views of a product photo
type Generator interface {
	Generate(ctx context.Context, src models.Image, hint string) variation.Result
}

// Publisher appends a finished draft to the catalog
type Publisher interface {
	Append(fields models.EntryFields) models.CatalogEntry
}

// Transcript roles
const (
	RoleOperator  = "operator"
	RoleAssistant = "assistant"
)

// Message is one line of the session transcript shown to the operator
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Images  int       `json:"images,omitempty"`
	At      time.Time `json:"at"`
}

// Snapshot is a detached copy of pipeline state for rendering
type Snapshot struct {
	Stage      Stage                `json:"stage"`
	Draft      *models.ProductDraft `json:"draft,omitempty"`
	LastEntry  *models.CatalogEntry `json:"last_entry,omitempty"`
	LastError  string               `json:"last_error,omitempty"`
	Transcript []Message            `json:"transcript"`
}

type Options struct {
	DefaultPrice float64
	Logger       *slog.Logger
}

// Pipeline sequences one operator's ingestion runs. It holds at most one draft.
// The mutex guards state only; vision and generation calls run outside it.
type Pipeline struct {
	analyzer  Analyzer
	generator Generator
	publisher Publisher

	defaultPrice float64
	log          *slog.Logger

	mu         sync.Mutex
	stage      Stage
	draft      *models.ProductDraft
	lastEntry  *models.CatalogEntry
	lastError  string
	transcript []Message
	run        uint64
	cancel     context.CancelFunc
}

func New(analyzer Analyzer, generator Generator, publisher Publisher, opts Options) *Pipeline {
	price := opts.DefaultPrice
	if price <= 0 {
		price = DefaultPrice
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		analyzer:     analyzer,
		generator:    generator,
		publisher:    publisher,
		defaultPrice: price,
		log:          log,
		stage:        StageIdle,
	}
}

// Upload starts a run for asset and processes it synchronously, returning once the
// draft is ready for review. Degraded analysis or generation never fails the run.
func (p *Pipeline) Upload(ctx context.Context, asset *models.RawAsset) (Snapshot, error) {
	if asset == nil || asset.Original.Empty() {
		return p.Snapshot(), errors.New("no image uploaded")
	}

	p.mu.Lock()
	next, err := Next(p.stage, EventUpload)
	if err != nil {
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, err
	}
	p.stage = next
	p.draft = &models.ProductDraft{Asset: asset}
	p.lastError = ""
	p.run++
	run := p.run
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.say(RoleOperator, "Uploaded "+displayName(asset), 1)
	p.mu.Unlock()
	defer cancel()

	p.log.Info("Processing upload", "filename", asset.Filename, "width", asset.Original.Width, "height", asset.Original.Height)

	meta := p.analyzer.Analyze(runCtx, asset)
	hint := meta.Hint()
	result := p.generator.Generate(runCtx, asset.Original, hint)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != run || p.stage != StageProcessing {
		p.log.Info("Discarding result of cancelled run", "filename", asset.Filename)
		return p.snapshotLocked(), ErrRunCancelled
	}

	p.draft.Metadata = meta
	p.draft.Hint = hint
	p.draft.Variations = result.Images
	p.draft.Attempts = result.Attempts
	p.draft.SourceFallback = result.SourceFallback
	p.seedDefaults(p.draft)

	var problems []string
	if meta.Failed() {
		problems = append(problems, "analysis failed: "+meta.Failure)
		p.say(RoleAssistant, "I could not analyze this photo. Please fill in the details yourself.", 0)
	} else {
		p.say(RoleAssistant, describe(meta), 0)
	}

	switch {
	case result.SourceFallback:
		problems = append(problems, "image generation failed for every view, using the original photo")
		p.say(RoleAssistant, "I could not generate any new views, so the original photo will be used.", len(result.Images))
	case skippedViews(result) > 0:
		problems = append(problems, fmt.Sprintf("%d view(s) could not be generated", skippedViews(result)))
		p.say(RoleAssistant, fmt.Sprintf("I generated %d views; %d could not be produced.", len(result.Images), skippedViews(result)), len(result.Images))
	default:
		p.say(RoleAssistant, fmt.Sprintf("I generated %d views of the product.", len(result.Images)), len(result.Images))
	}
	p.lastError = strings.Join(problems, "; ")

	p.stage, _ = Next(p.stage, EventProcessed)
	p.cancel = nil

	p.log.Info("Draft ready for review",
		"category", meta.Category,
		"images", len(result.Images),
		"source_fallback", result.SourceFallback,
		"degraded", p.lastError != "")
	return p.snapshotLocked(), nil
}

// Submit applies the operator's edits and publishes the draft
func (p *Pipeline) Submit(ctx context.Context, edits Edits) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return p.Snapshot(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := Next(p.stage, EventSubmit)
	if err != nil {
		return p.snapshotLocked(), err
	}
	if p.draft == nil {
		return p.snapshotLocked(), &TransitionError{From: p.stage, Event: EventSubmit}
	}

	if err := edits.Validate(); err != nil {
		return p.snapshotLocked(), err
	}
	candidate := p.draft.Clone()
	edits.Apply(candidate)
	if candidate.Title == "" {
		return p.snapshotLocked(), fmt.Errorf("%w: title must not be empty", ErrInvalidEdits)
	}

	entry := p.publisher.Append(candidate.Fields())
	candidate.EntryID = entry.ID
	p.draft = candidate
	p.lastEntry = &entry
	p.stage = next
	p.say(RoleOperator, fmt.Sprintf("Published %q at $%.2f", entry.Title, entry.Price), 0)
	p.say(RoleAssistant, fmt.Sprintf("Catalog entry #%d is live.", entry.ID), len(entry.Variations))

	p.log.Info("Draft published", "entry_id", entry.ID, "title", entry.Title, "price", entry.Price)
	return p.snapshotLocked(), nil
}

// Reset returns to Idle from any stage. An in-flight run is cancelled and its result discarded.
// Published entries are not affected.
func (p *Pipeline) Reset() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	from := p.stage
	p.stage, _ = Next(p.stage, EventReset)
	p.run++
	p.draft = nil
	p.lastError = ""
	p.transcript = nil

	p.log.Debug("Pipeline reset", "from", from.String())
	return p.snapshotLocked()
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

func (p *Pipeline) snapshotLocked() Snapshot {
	snap := Snapshot{
		Stage:      p.stage,
		Draft:      p.draft.Clone(),
		LastError:  p.lastError,
		Transcript: slices.Clone(p.transcript),
	}
	if snap.Transcript == nil {
		snap.Transcript = []Message{}
	}
	if p.lastEntry != nil {
		e := p.lastEntry.Clone()
		snap.LastEntry = &e
	}
	return snap
}

func (p *Pipeline) seedDefaults(d *models.ProductDraft) {
	category := d.Metadata.CategoryOr("Product")
	if d.Metadata.Failed() {
		category = "Product"
	}
	d.Title = "AI " + category
	if !d.Metadata.Failed() {
		d.Description = d.Metadata.Description
	}

	d.Price = p.defaultPrice
	if d.Metadata.PriceEstimate > 0 {
		d.Price = d.Metadata.PriceEstimate
	}
	d.Stock = 0
	d.Specifications = maps.Clone(d.Metadata.Specifications)
	if d.Specifications == nil {
		d.Specifications = map[string]string{}
	}
	d.Tags = slices.Clone(d.Metadata.Tags)
}

func (p *Pipeline) say(role, content string, images int) {
	p.transcript = append(p.transcript, Message{Role: role, Content: content, Images: images, At: time.Now()})
}

func displayName(asset *models.RawAsset) string {
	if asset.Filename == "" {
		return "image"
	}
	return asset.Filename
}

func describe(meta models.MetadataRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This looks like a %s", strings.ToLower(meta.CategoryOr("product")))
	if meta.Material != "" {
		fmt.Fprintf(&b, " made of %s", strings.ToLower(meta.Material))
	}
	b.WriteString(".")
	if meta.Description != "" {
		b.WriteString(" ")
		b.WriteString(meta.Description)
	}
	return b.String()
}

// skippedViews counts views for which neither strategy produced an image
func skippedViews(r variation.Result) int {
	succeeded := make(map[int]bool)
	views := make(map[int]bool)
	for _, a := range r.Attempts {
		views[a.ViewIndex] = true
		if a.Succeeded {
			succeeded[a.ViewIndex] = true
		}
	}
	return len(views) - len(succeeded)
}
