package manifest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads batch manifests in JSONL or Parquet form
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every row. Relative image paths are resolved against the manifest's directory.
func (l *Loader) Load() ([]Row, error) {
	var (
		rows []Row
		err  error
	)

	ext := strings.ToLower(filepath.Ext(l.path))
	switch ext {
	case ".parquet":
		rows, err = l.loadParquet()
	case ".jsonl", ".json":
		rows, err = l.loadJSONL()
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s (supported: .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(l.path)
	for i := range rows {
		if rows[i].ImagePath == "" {
			return nil, fmt.Errorf("manifest row %d has no image_path", i+1)
		}
		if !filepath.IsAbs(rows[i].ImagePath) {
			rows[i].ImagePath = filepath.Join(dir, rows[i].ImagePath)
		}
	}

	slog.Debug("Loaded manifest", "path", l.path, "rows", len(rows))
	return rows, nil
}

func (l *Loader) loadJSONL() ([]Row, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return rows, nil
}

func (l *Loader) loadParquet() ([]Row, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet manifest opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	for {
		// fresh batch each read: the reader reuses slice storage of the rows it fills
		batch := make([]Row, 128)
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

// Index keys rows by image file name so positional CLI arguments can find their edits
func Index(rows []Row) map[string]Row {
	idx := make(map[string]Row, len(rows))
	for _, r := range rows {
		idx[filepath.Base(r.ImagePath)] = r
	}
	return idx
}
