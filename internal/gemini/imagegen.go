package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/furnicon/furnicon/internal/images"
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/variation"
	"google.golang.org/genai"
)

// ErrNoImage is returned when the service answers successfully but without image data
var ErrNoImage = errors.New("no image returned")

// ImageClient generates product images through the Gemini API.
// Requests carrying a source image go to the image-capable Gemini model (generateContent with
// IMAGE output); text-only requests go to Imagen.
type ImageClient struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the SDK default
	BaseURL     string
	ImageModel  string
	TextModel   string
	AspectRatio string
	HTTPClient  *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewImageClient returns a client with default models and endpoint
func NewImageClient(apiKey, imageModel, textModel string) *ImageClient {
	return &ImageClient{
		APIKey:      apiKey,
		ImageModel:  imageModel,
		TextModel:   textModel,
		AspectRatio: "1:1",
		HTTPClient:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Generate implements variation.Generator
func (c *ImageClient) Generate(ctx context.Context, req variation.Request) ([]models.Image, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, errors.New("image instruction required")
	}

	client, err := c.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	if req.Source != nil && !req.Source.Empty() {
		return c.generateFromImage(ctx, client, req)
	}
	return c.generateFromText(ctx, client, req)
}

func (c *ImageClient) genaiClient(ctx context.Context) (*genai.Client, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: c.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini image client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *ImageClient) generateFromImage(ctx context.Context, client *genai.Client, req variation.Request) ([]models.Image, error) {
	mimeType := req.Source.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Source.Data, mimeType),
			genai.NewPartFromText(req.Instruction),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, c.ImageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}

	var out []models.Image
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out = append(out, toImage(part.InlineData.MIMEType, part.InlineData.Data))
			if req.Count > 0 && len(out) >= req.Count {
				return out, nil
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoImage
	}
	return out, nil
}

func (c *ImageClient) generateFromText(ctx context.Context, client *genai.Client, req variation.Request) ([]models.Image, error) {
	resp, err := client.Models.GenerateImages(ctx, c.TextModel, req.Instruction, &genai.GenerateImagesConfig{
		NumberOfImages: int32(max(1, req.Count)),
		AspectRatio:    c.AspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	var out []models.Image
	for _, g := range resp.GeneratedImages {
		if g == nil || g.Image == nil || len(g.Image.ImageBytes) == 0 {
			continue
		}
		out = append(out, toImage(g.Image.MIMEType, g.Image.ImageBytes))
	}
	if len(out) == 0 {
		return nil, ErrNoImage
	}
	return out, nil
}

func toImage(mimeType string, data []byte) models.Image {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return images.Inspect(models.Image{MIMEType: mimeType, Data: data})
}
