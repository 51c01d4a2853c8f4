package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/furnicon/furnicon/internal/catalog"
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/variation"
)

type fakeAnalyzer struct {
	record models.MetadataRecord
	block  chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, asset *models.RawAsset) models.MetadataRecord {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.ErrorRecord(ctx.Err().Error())
		}
	}
	return f.record.Normalize()
}

type fakeImageService struct {
	fail bool
}

func (f *fakeImageService) Generate(ctx context.Context, req variation.Request) ([]models.Image, error) {
	if f.fail {
		return nil, errors.New("service unavailable")
	}
	return []models.Image{{MIMEType: "image/png", Data: []byte("gen:" + req.Instruction)}}, nil
}

func chairRecord() models.MetadataRecord {
	return models.MetadataRecord{
		Category:       "Chair",
		Description:    "A solid oak chair.",
		Material:       "Oak",
		Specifications: map[string]string{"Material": "Oak"},
	}
}

func photo(name string) *models.RawAsset {
	return &models.RawAsset{
		Filename: name,
		Original: models.Image{MIMEType: "image/png", Data: []byte("photo:" + name), Width: 10, Height: 10},
	}
}

func newPipeline(store *catalog.Store, record models.MetadataRecord, generationFails bool) *Pipeline {
	engine := variation.NewEngine(&fakeImageService{fail: generationFails}, variation.Options{})
	return New(&fakeAnalyzer{record: record}, engine, store, Options{})
}

func ptr[T any](v T) *T { return &v }

func TestNext(t *testing.T) {
	tests := []struct {
		from    Stage
		event   Event
		want    Stage
		wantErr bool
	}{
		{StageIdle, EventUpload, StageProcessing, false},
		{StageProcessing, EventProcessed, StageReview, false},
		{StageProcessing, EventReset, StageIdle, false},
		{StageReview, EventSubmit, StageDone, false},
		{StageReview, EventReset, StageIdle, false},
		{StageDone, EventReset, StageIdle, false},
		{StageIdle, EventReset, StageIdle, false},
		{StageIdle, EventSubmit, StageIdle, true},
		{StageIdle, EventProcessed, StageIdle, true},
		{StageProcessing, EventUpload, StageProcessing, true},
		{StageProcessing, EventSubmit, StageProcessing, true},
		{StageReview, EventUpload, StageReview, true},
		{StageReview, EventProcessed, StageReview, true},
		{StageDone, EventUpload, StageDone, true},
		{StageDone, EventSubmit, StageDone, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.from, tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStageText(t *testing.T) {
	for _, s := range []Stage{StageIdle, StageProcessing, StageReview, StageDone} {
		t.Run(s.String(), func(t *testing.T) {
			text, err := s.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText failed: %v", err)
			}
			var got Stage
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText failed: %v", err)
			}
			if got != s {
				t.Errorf("Expected %s, got %s", s, got)
			}
		})
	}

	var s Stage
	if err := s.UnmarshalText([]byte("published")); err == nil {
		t.Error("Expected error for unknown stage")
	}

	var snap struct {
		Stage Stage `json:"stage"`
	}
	if err := json.Unmarshal([]byte(`{"stage":"review"}`), &snap); err != nil || snap.Stage != StageReview {
		t.Errorf("Expected review from JSON, got %s (err %v)", snap.Stage, err)
	}
}

func TestUploadRejectedOutsideIdle(t *testing.T) {
	p := newPipeline(catalog.New(), chairRecord(), false)

	if _, err := p.Upload(context.Background(), photo("x.png")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	first := p.Snapshot().Draft

	snap, err := p.Upload(context.Background(), photo("y.png"))
	var te *TransitionError
	if !errors.As(err, &te) || te.From != StageReview || te.Event != EventUpload {
		t.Fatalf("Expected transition error from review, got %v", err)
	}
	if snap.Stage != StageReview {
		t.Errorf("Expected stage to remain review, got %s", snap.Stage)
	}
	if snap.Draft.Asset.Filename != first.Asset.Filename {
		t.Errorf("Expected in-flight draft untouched, got %s", snap.Draft.Asset.Filename)
	}
}

func TestUploadRequiresImage(t *testing.T) {
	p := newPipeline(catalog.New(), chairRecord(), false)
	if _, err := p.Upload(context.Background(), &models.RawAsset{}); err == nil {
		t.Error("Expected error for empty upload")
	}
	if p.Stage() != StageIdle {
		t.Errorf("Expected idle, got %s", p.Stage())
	}
}

func TestResetClearsDraftAndBlocksStaleSubmit(t *testing.T) {
	store := catalog.New()
	p := newPipeline(store, chairRecord(), false)

	if _, err := p.Upload(context.Background(), photo("x.png")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	snap := p.Reset()
	if snap.Stage != StageIdle || snap.Draft != nil || len(snap.Transcript) != 0 {
		t.Errorf("Expected clean idle snapshot, got %+v", snap)
	}

	if _, err := p.Submit(context.Background(), Edits{Title: ptr("Stale")}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for submit after reset, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected nothing published, got %d entries", store.Len())
	}
}

func TestResetFromEveryStage(t *testing.T) {
	p := newPipeline(catalog.New(), chairRecord(), false)

	if snap := p.Reset(); snap.Stage != StageIdle {
		t.Errorf("Idle reset: expected idle, got %s", snap.Stage)
	}

	p.Upload(context.Background(), photo("x.png"))
	p.Submit(context.Background(), Edits{})
	if p.Stage() != StageDone {
		t.Fatalf("Expected done, got %s", p.Stage())
	}

	snap := p.Reset()
	if snap.Stage != StageIdle {
		t.Errorf("Done reset: expected idle, got %s", snap.Stage)
	}
	if snap.LastEntry == nil || snap.LastEntry.ID != 1 {
		t.Errorf("Expected last published entry to survive reset, got %+v", snap.LastEntry)
	}
}

func TestResetDuringProcessingDiscardsRun(t *testing.T) {
	store := catalog.New()
	analyzer := &fakeAnalyzer{record: chairRecord(), block: make(chan struct{})}
	p := New(analyzer, variation.NewEngine(&fakeImageService{}, variation.Options{}), store, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := p.Upload(context.Background(), photo("x.png"))
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for p.Stage() != StageProcessing {
		if time.Now().After(deadline) {
			t.Fatal("Pipeline never entered processing")
		}
		time.Sleep(time.Millisecond)
	}

	if snap := p.Reset(); snap.Stage != StageIdle {
		t.Fatalf("Expected idle after reset, got %s", snap.Stage)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrRunCancelled) {
			t.Errorf("Expected ErrRunCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Upload did not return after reset")
	}

	snap := p.Snapshot()
	if snap.Stage != StageIdle || snap.Draft != nil {
		t.Errorf("Expected cancelled run to leave no draft, got %+v", snap)
	}

	// the pipeline is usable again
	analyzer.block = nil
	if _, err := p.Upload(context.Background(), photo("y.png")); err != nil {
		t.Errorf("Upload after reset failed: %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	tests := []struct {
		name      string
		record    models.MetadataRecord
		wantTitle string
		wantPrice float64
	}{
		{name: "category and estimate", record: models.MetadataRecord{Category: "Sofa", PriceEstimate: 899}, wantTitle: "AI Sofa", wantPrice: 899},
		{name: "no estimate", record: models.MetadataRecord{Category: "Lamp"}, wantTitle: "AI Lamp", wantPrice: DefaultPrice},
		{name: "analysis failed", record: models.ErrorRecord("quota exceeded"), wantTitle: "AI Product", wantPrice: DefaultPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(catalog.New(), tt.record, false)
			snap, err := p.Upload(context.Background(), photo("x.png"))
			if err != nil {
				t.Fatalf("Upload failed: %v", err)
			}
			if snap.Draft.Title != tt.wantTitle {
				t.Errorf("Expected title %q, got %q", tt.wantTitle, snap.Draft.Title)
			}
			if snap.Draft.Price != tt.wantPrice {
				t.Errorf("Expected price %v, got %v", tt.wantPrice, snap.Draft.Price)
			}
			if snap.Draft.Specifications == nil {
				t.Error("Expected non-nil specifications")
			}
		})
	}
}

func TestAnalysisFailureIsSoft(t *testing.T) {
	p := newPipeline(catalog.New(), models.ErrorRecord("model timed out"), false)

	snap, err := p.Upload(context.Background(), photo("x.png"))
	if err != nil {
		t.Fatalf("Expected soft failure, got %v", err)
	}
	if snap.Stage != StageReview {
		t.Errorf("Expected review, got %s", snap.Stage)
	}
	if snap.LastError == "" {
		t.Error("Expected LastError to describe the failed analysis")
	}
	if snap.Draft.Hint != "product" {
		t.Errorf("Expected generic hint, got %q", snap.Draft.Hint)
	}
	if len(snap.Draft.Variations) != 3 {
		t.Errorf("Expected generation to proceed, got %d images", len(snap.Draft.Variations))
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		edits Edits
	}{
		{name: "negative price", edits: Edits{Price: ptr(-1.0)}},
		{name: "negative stock", edits: Edits{Stock: ptr(-3)}},
		{name: "blank title", edits: Edits{Title: ptr("   ")}},
		{name: "zero dimension", edits: Edits{Dimensions: &models.Dimensions{Height: 80, Width: 0, Depth: 40}}},
		{name: "NaN price", edits: Edits{Price: ptr(math.NaN())}},
		{name: "infinite price", edits: Edits{Price: ptr(math.Inf(1))}},
		{name: "NaN dimension", edits: Edits{Dimensions: &models.Dimensions{Height: math.NaN(), Width: 45, Depth: 50}}},
		{name: "infinite dimension", edits: Edits{Dimensions: &models.Dimensions{Height: 80, Width: 45, Depth: math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := catalog.New()
			p := newPipeline(store, chairRecord(), false)
			before, _ := p.Upload(context.Background(), photo("x.png"))

			snap, err := p.Submit(context.Background(), tt.edits)
			if !errors.Is(err, ErrInvalidEdits) {
				t.Fatalf("Expected ErrInvalidEdits, got %v", err)
			}
			if snap.Stage != StageReview {
				t.Errorf("Expected stage review, got %s", snap.Stage)
			}
			if snap.Draft.Price != before.Draft.Price || snap.Draft.Title != before.Draft.Title {
				t.Errorf("Expected draft untouched, got %+v", snap.Draft)
			}
			if store.Len() != 0 {
				t.Errorf("Expected nothing published, got %d", store.Len())
			}
		})
	}
}

func TestSubmitSpecificationEdits(t *testing.T) {
	record := chairRecord()
	record.Specifications = map[string]string{"Material": "Oak", "Finish": "Oiled", "Seats": "1"}
	store := catalog.New()
	p := newPipeline(store, record, false)
	p.Upload(context.Background(), photo("x.png"))

	_, err := p.Submit(context.Background(), Edits{
		Specifications: map[string]string{"Material": "Walnut", "Seats": "", "Warranty": "2 years"},
		Dimensions:     &models.Dimensions{Height: 80, Width: 45, Depth: 50},
		Stock:          ptr(4),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	entry, _ := store.Get(1)
	want := map[string]string{"Material": "Walnut", "Finish": "Oiled", "Warranty": "2 years"}
	if len(entry.Specifications) != len(want) {
		t.Errorf("Expected %v, got %v", want, entry.Specifications)
	}
	for k, v := range want {
		if entry.Specifications[k] != v {
			t.Errorf("Expected %s=%q, got %q", k, v, entry.Specifications[k])
		}
	}
	if entry.Stock != 4 || entry.Dimensions.String() != "80x45x50 cm" {
		t.Errorf("Unexpected commercial fields: stock=%d dims=%s", entry.Stock, entry.Dimensions)
	}
	if entry.Title != "AI Chair" {
		t.Errorf("Expected seeded title preserved, got %q", entry.Title)
	}
}

func TestDoubleSubmitPublishesOnce(t *testing.T) {
	store := catalog.New()
	p := newPipeline(store, chairRecord(), false)
	p.Upload(context.Background(), photo("x.png"))

	if _, err := p.Submit(context.Background(), Edits{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := p.Submit(context.Background(), Edits{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected second submit to be rejected, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", store.Len())
	}
}

func TestScenarioPublishOne(t *testing.T) {
	store := catalog.New()
	p := newPipeline(store, chairRecord(), false)

	snap, err := p.Upload(context.Background(), photo("x.png"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if snap.Draft.Metadata.Category != "Chair" || snap.Draft.Metadata.Spec("material", "") != "Oak" {
		t.Errorf("Unexpected metadata: %+v", snap.Draft.Metadata)
	}
	if snap.LastError != "" {
		t.Errorf("Expected no error, got %q", snap.LastError)
	}

	snap, err = p.Submit(context.Background(), Edits{Price: ptr(199.99), Title: ptr("Oak Chair")})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if snap.Stage != StageDone || snap.Draft.EntryID != 1 {
		t.Errorf("Expected done with entry 1, got %s / %d", snap.Stage, snap.Draft.EntryID)
	}

	entries := store.List()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != 1 || e.Title != "Oak Chair" || e.Price != 199.99 || len(e.Variations) != 3 {
		t.Errorf("Unexpected entry: id=%d title=%q price=%v images=%d", e.ID, e.Title, e.Price, len(e.Variations))
	}
	if e.Specifications["Material"] != "Oak" {
		t.Errorf("Expected specs carried to entry, got %v", e.Specifications)
	}
}

func TestScenarioTotalGenerationFailure(t *testing.T) {
	store := catalog.New()
	p := newPipeline(store, chairRecord(), true)

	snap, err := p.Upload(context.Background(), photo("x.png"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !snap.Draft.SourceFallback || snap.LastError == "" {
		t.Errorf("Expected source fallback to be reported, got %+v", snap)
	}

	if _, err := p.Submit(context.Background(), Edits{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	e, _ := store.Get(1)
	if len(e.Variations) != 1 {
		t.Fatalf("Expected exactly one variation, got %d", len(e.Variations))
	}
	if string(e.Variations[0].Data) != string(e.Original.Data) {
		t.Errorf("Expected the original photo as the only variation, got %q", e.Variations[0].Data)
	}
}

func TestScenarioConcurrentOperators(t *testing.T) {
	store := catalog.New()
	operators := []*Pipeline{
		newPipeline(store, chairRecord(), false),
		newPipeline(store, chairRecord(), false),
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(operators))
	for i, p := range operators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Upload(context.Background(), photo(fmt.Sprintf("%d.png", i))); err != nil {
				errs <- err
				return
			}
			if _, err := p.Submit(context.Background(), Edits{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Operator failed: %v", err)
	}

	entries := store.List()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 1 || entries[1].ID != 2 {
		t.Errorf("Expected ids 1 and 2, got %d and %d", entries[0].ID, entries[1].ID)
	}
}

func TestTranscript(t *testing.T) {
	p := newPipeline(catalog.New(), chairRecord(), false)
	p.Upload(context.Background(), photo("x.png"))
	snap, _ := p.Submit(context.Background(), Edits{})

	if len(snap.Transcript) != 5 {
		t.Fatalf("Expected 5 transcript messages, got %d: %+v", len(snap.Transcript), snap.Transcript)
	}
	if snap.Transcript[0].Role != RoleOperator || snap.Transcript[1].Role != RoleAssistant {
		t.Errorf("Unexpected roles: %+v", snap.Transcript)
	}
	if snap.Transcript[2].Images != 3 {
		t.Errorf("Expected generation message to carry 3 images, got %d", snap.Transcript[2].Images)
	}
}
