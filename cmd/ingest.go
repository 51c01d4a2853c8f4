package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/furnicon/furnicon/internal/catalog"
	"github.com/furnicon/furnicon/internal/images"
	"github.com/furnicon/furnicon/internal/manifest"
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ingestJob struct {
	path  string
	edits pipeline.Edits
}

type ingestResult struct {
	path  string
	entry *models.CatalogEntry
	note  string
	err   error
}

func newIngestCmd() *cobra.Command {
	var (
		title, description   string
		price                float64
		stock                int
		height, width, depth float64
		specs                []string
		tags                 []string
		manifestPath         string
		exportPath           string
		outDir               string
		jobs                 int
	)

	cmd := &cobra.Command{
		Use:   "ingest [image...]",
		Short: "Ingest product photos from the command line",
		Long: `Runs each photo through its own pipeline (analysis, view generation, publish)
into one in-memory catalog and prints a summary table.

Commercial fields come from flags, from a JSONL or Parquet manifest, or both; flags win.`,
		Example: `  # Ingest one photo with a price
  furnicon ingest chair.jpg --title "Oak Chair" --price 199.99 --spec Material=Oak

  # Ingest a batch described by a manifest and export the result
  furnicon ingest --manifest batch.jsonl --export catalog.parquet --out ./views`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && manifestPath == "" {
				return fmt.Errorf("no images given: pass image paths or --manifest")
			}

			flagEdits, err := editsFromFlags(cmd, title, description, price, stock, height, width, depth, specs, tags)
			if err != nil {
				return err
			}

			ingestJobs, err := planJobs(args, manifestPath, flagEdits)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			results := runJobs(cmd.Context(), a, ingestJobs, jobs)

			if outDir != "" {
				for _, r := range results {
					if r.entry == nil {
						continue
					}
					if err := writeViews(outDir, *r.entry); err != nil {
						return err
					}
				}
			}

			if exportPath != "" {
				if err := exportCatalog(exportPath, a.store); err != nil {
					return err
				}
				slog.Info("Exported catalog", "path", exportPath, "entries", a.store.Len())
			}

			fmt.Fprintln(cmd.OutOrStdout(), summaryTable(results))

			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed to ingest", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Product title")
	cmd.Flags().StringVar(&description, "description", "", "Product description")
	cmd.Flags().Float64Var(&price, "price", 0, "Price in USD")
	cmd.Flags().IntVar(&stock, "stock", 0, "Units in stock")
	cmd.Flags().Float64Var(&height, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&width, "width", 0, "Width in cm")
	cmd.Flags().Float64Var(&depth, "depth", 0, "Depth in cm")
	cmd.Flags().StringArrayVar(&specs, "spec", nil, "Specification override as name=value (repeatable, empty value removes)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags replacing the suggested ones")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Batch manifest (.jsonl or .parquet)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the catalog to this file (.json, .yaml or .parquet)")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write generated views into")
	cmd.Flags().IntVar(&jobs, "jobs", 1, "Images processed concurrently")

	return cmd
}

func editsFromFlags(cmd *cobra.Command, title, description string, price float64, stock int, height, width, depth float64, specs, tags []string) (pipeline.Edits, error) {
	var e pipeline.Edits
	flags := cmd.Flags()

	if flags.Changed("title") {
		e.Title = &title
	}
	if flags.Changed("description") {
		e.Description = &description
	}
	if flags.Changed("price") {
		e.Price = &price
	}
	if flags.Changed("stock") {
		e.Stock = &stock
	}

	dims := []string{"height", "width", "depth"}
	set := 0
	for _, d := range dims {
		if flags.Changed(d) {
			set++
		}
	}
	switch set {
	case 0:
	case len(dims):
		e.Dimensions = &models.Dimensions{Height: height, Width: width, Depth: depth}
	default:
		return e, fmt.Errorf("--height, --width and --depth must be given together")
	}

	if len(specs) > 0 {
		e.Specifications = make(map[string]string, len(specs))
		for _, s := range specs {
			name, value, ok := strings.Cut(s, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return e, fmt.Errorf("invalid --spec %q, expected name=value", s)
			}
			e.Specifications[strings.TrimSpace(name)] = value
		}
	}
	if flags.Changed("tags") {
		e.Tags = tags
	}

	if err := e.Validate(); err != nil {
		return e, err
	}
	return e, nil
}

// planJobs pairs every image with its edits. Manifest rows supply per-image values and
// flag values override them.
func planJobs(args []string, manifestPath string, flagEdits pipeline.Edits) ([]ingestJob, error) {
	var rows []manifest.Row
	if manifestPath != "" {
		var err error
		rows, err = manifest.NewLoader(manifestPath).Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
	}

	var jobs []ingestJob
	if len(args) == 0 {
		for _, r := range rows {
			jobs = append(jobs, ingestJob{path: r.ImagePath, edits: mergeEdits(r.Edits(), flagEdits)})
		}
		return jobs, nil
	}

	idx := manifest.Index(rows)
	for _, path := range args {
		edits := flagEdits
		if r, ok := idx[filepath.Base(path)]; ok {
			edits = mergeEdits(r.Edits(), flagEdits)
		}
		jobs = append(jobs, ingestJob{path: path, edits: edits})
	}
	return jobs, nil
}

func mergeEdits(base, override pipeline.Edits) pipeline.Edits {
	out := base
	if override.Title != nil {
		out.Title = override.Title
	}
	if override.Description != nil {
		out.Description = override.Description
	}
	if override.Price != nil {
		out.Price = override.Price
	}
	if override.Stock != nil {
		out.Stock = override.Stock
	}
	if override.Dimensions != nil {
		out.Dimensions = override.Dimensions
	}
	if override.Tags != nil {
		out.Tags = override.Tags
	}
	if len(override.Specifications) > 0 {
		specs := make(map[string]string, len(base.Specifications)+len(override.Specifications))
		for k, v := range base.Specifications {
			specs[k] = v
		}
		for k, v := range override.Specifications {
			specs[k] = v
		}
		out.Specifications = specs
	}
	return out
}

func runJobs(ctx context.Context, a *app, jobs []ingestJob, parallelism int) []ingestResult {
	results := make([]ingestResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(max(1, parallelism))
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = ingestOne(ctx, a, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func ingestOne(ctx context.Context, a *app, job ingestJob) ingestResult {
	result := ingestResult{path: job.path}

	data, err := os.ReadFile(job.path)
	if err != nil {
		result.err = fmt.Errorf("failed to read image: %w", err)
		slog.Error("Skipping image", "path", job.path, "err", result.err)
		return result
	}

	asset, err := images.Decode(filepath.Base(job.path), data)
	if err != nil {
		result.err = err
		slog.Error("Skipping image", "path", job.path, "err", err)
		return result
	}

	p := a.newPipeline()
	snap, err := p.Upload(ctx, asset)
	if err != nil {
		result.err = err
		slog.Error("Processing failed", "path", job.path, "err", err)
		return result
	}
	result.note = snap.LastError

	snap, err = p.Submit(ctx, job.edits)
	if err != nil {
		result.err = err
		slog.Error("Publish failed", "path", job.path, "err", err)
		return result
	}
	result.entry = snap.LastEntry
	return result
}

func writeViews(outDir string, entry models.CatalogEntry) error {
	dir := filepath.Join(outDir, strconv.Itoa(entry.ID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, img := range entry.Variations {
		path := filepath.Join(dir, fmt.Sprintf("view_%d%s", i+1, extensionFor(img.MIMEType)))
		if err := os.WriteFile(path, img.Data, 0644); err != nil {
			return fmt.Errorf("failed to write view: %w", err)
		}
	}
	slog.Debug("Wrote generated views", "entry_id", entry.ID, "dir", dir, "count", len(entry.Variations))
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func exportCatalog(path string, store *catalog.Store) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := catalog.Export(f, format, store.List()); err != nil {
		return err
	}
	return f.Close()
}

func summaryTable(results []ingestResult) string {
	headers := []string{"ID", "Image", "Title", "Category", "Price", "Stock", "Dimensions", "Views", "Notes"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		name := filepath.Base(r.path)
		if r.err != nil {
			rows = append(rows, []string{"-", name, "", "", "", "", "", "", "failed: " + r.err.Error()})
			continue
		}
		e := r.entry
		rows = append(rows, []string{
			strconv.Itoa(e.ID),
			name,
			e.Title,
			e.Category,
			fmt.Sprintf("$%.2f", e.Price),
			strconv.Itoa(e.Stock),
			e.Dimensions.String(),
			strconv.Itoa(len(e.Variations)),
			r.note,
		})
	}
	return renderTable(headers, rows, aligns)
}
