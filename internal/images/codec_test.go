package images

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/furnicon/furnicon/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	asset, err := Decode("chair.png", pngBytes(t, 40, 20))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if asset.Original.MIMEType != "image/png" {
		t.Errorf("Expected image/png, got %s", asset.Original.MIMEType)
	}
	if asset.Original.Width != 40 || asset.Original.Height != 20 {
		t.Errorf("Expected 40x20, got %dx%d", asset.Original.Width, asset.Original.Height)
	}
	if asset.Pixels == nil {
		t.Error("Expected decoded pixel buffer")
	}
}

func TestDecodeRejectsNonImages(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "text", data: []byte("definitely not a picture")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("x", tt.data)
			if !errors.Is(err, ErrNotImage) {
				t.Errorf("Expected ErrNotImage, got %v", err)
			}
		})
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name    string
		w       int
		h       int
		maxEdge int
		expectW int
		expectH int
	}{
		{name: "landscape", w: 3000, h: 1500, maxEdge: 1024, expectW: 1024, expectH: 512},
		{name: "portrait", w: 1200, h: 2400, maxEdge: 1024, expectW: 512, expectH: 1024},
		{name: "within bounds", w: 800, h: 600, maxEdge: 1024, expectW: 800, expectH: 600},
		{name: "disabled", w: 2000, h: 100, maxEdge: 0, expectW: 2000, expectH: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Downscale(src, tt.maxEdge).Bounds()
			if got.Dx() != tt.expectW || got.Dy() != tt.expectH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectW, tt.expectH, got.Dx(), got.Dy())
			}
		})
	}
}

func TestPrepareForAnalysis(t *testing.T) {
	asset, err := Decode("big.png", pngBytes(t, 2048, 1024))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	img, err := PrepareForAnalysis(asset, 1024, 85)
	if err != nil {
		t.Fatalf("PrepareForAnalysis failed: %v", err)
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("Expected jpeg, got %s", img.MIMEType)
	}
	if img.Width != 1024 || img.Height != 512 {
		t.Errorf("Expected 1024x512, got %dx%d", img.Width, img.Height)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("Encoded bytes do not decode: %v", err)
	}
	if format != "jpeg" || cfg.Width != 1024 {
		t.Errorf("Unexpected encoded image: %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestInspect(t *testing.T) {
	img := Inspect(models.Image{Data: pngBytes(t, 12, 7)})
	if img.Width != 12 || img.Height != 7 || img.MIMEType != "image/png" {
		t.Errorf("Unexpected inspected image: %+v", img)
	}
}
