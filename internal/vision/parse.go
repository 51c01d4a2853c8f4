package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/furnicon/furnicon/internal/models"
)

var (
	ErrMalformedResponse = errors.New("malformed analysis response")
	ErrUnexpectedShape   = errors.New("analysis response has unexpected shape")
)

// parseRecord turns a provider answer into a metadata record.
// Unknown keys are ignored and missing keys keep their zero value.
func parseRecord(response string) (models.MetadataRecord, error) {
	response = stripFences(response)
	if response == "" {
		return models.MetadataRecord{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		// Some models wrap the object in prose; try the outermost braces once
		start, end := strings.Index(response, "{"), strings.LastIndex(response, "}")
		if start < 0 || end <= start {
			return models.MetadataRecord{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
			return models.MetadataRecord{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if raw == nil {
		return models.MetadataRecord{}, fmt.Errorf("%w: not a JSON object", ErrUnexpectedShape)
	}

	record := models.MetadataRecord{
		Category:       stringField(raw, "category", "detected_type", "type"),
		Title:          stringField(raw, "title"),
		Description:    stringField(raw, "description"),
		Material:       stringField(raw, "material", "primary_material"),
		Color:          stringField(raw, "color"),
		Style:          stringField(raw, "style"),
		Tags:           listField(raw, "tags", "suggested_tags"),
		Specifications: models.SpecsFromAny(firstPresent(raw, "specifications", "specs")),
		PriceEstimate:  numberField(raw, "price_estimate", "price"),
	}.Normalize()

	if record.Category == "" && record.Description == "" && len(record.Specifications) == 0 {
		return models.MetadataRecord{}, fmt.Errorf("%w: no recognised fields", ErrUnexpectedShape)
	}
	return record, nil
}

// stripFences removes markdown code fences some models wrap around JSON
func stripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(raw map[string]any, keys ...string) string {
	switch v := firstPresent(raw, keys...).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func listField(raw map[string]any, keys ...string) []string {
	switch v := firstPresent(raw, keys...).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(v, ",")
	default:
		return nil
	}
}

func numberField(raw map[string]any, keys ...string) float64 {
	switch v := firstPresent(raw, keys...).(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "$"), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
