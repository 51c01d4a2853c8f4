package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/furnicon/furnicon/internal/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxUploadBytes bounds a single uploaded photo
const MaxUploadBytes = 10 * 1024 * 1024

var (
	ErrNotImage = errors.New("data is not a supported image")
	ErrTooLarge = errors.New("image too large")
)

// Decode turns uploaded bytes into a RawAsset with its decoded pixel buffer
func Decode(filename string, data []byte) (*models.RawAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrNotImage)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes, max %d)", ErrTooLarge, len(data), MaxUploadBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	b := img.Bounds()
	return &models.RawAsset{
		Filename: filename,
		Original: models.Image{
			MIMEType: mimeFor(format, data),
			Data:     data,
			Width:    b.Dx(),
			Height:   b.Dy(),
		},
		Pixels:     img,
		UploadedAt: time.Now(),
	}, nil
}

// Inspect decodes just enough of an encoded image to fill in its dimensions
func Inspect(img models.Image) models.Image {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return img
	}
	img.Width, img.Height = cfg.Width, cfg.Height
	if img.MIMEType == "" {
		img.MIMEType = mimeFor(format, img.Data)
	}
	return img
}

// Downscale resizes img so its long edge is at most maxEdge, keeping aspect ratio.
// Images already within bounds are returned unchanged.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxEdge
		nh = max(1, h*maxEdge/w)
	} else {
		nh = maxEdge
		nw = max(1, w*maxEdge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG re-encodes img as JPEG. Lossy, which is fine for analysis requests.
func EncodeJPEG(img image.Image, quality int) (models.Image, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return models.Image{}, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	b := img.Bounds()
	return models.Image{
		MIMEType: "image/jpeg",
		Data:     buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// PrepareForAnalysis bounds an upload for a vision request: long edge <= maxEdge, JPEG at quality
func PrepareForAnalysis(asset *models.RawAsset, maxEdge, quality int) (models.Image, error) {
	if asset == nil {
		return models.Image{}, errors.New("no asset to prepare")
	}
	pixels := asset.Pixels
	if pixels == nil {
		img, _, err := image.Decode(bytes.NewReader(asset.Original.Data))
		if err != nil {
			return models.Image{}, fmt.Errorf("%w: %v", ErrNotImage, err)
		}
		pixels = img
	}
	return EncodeJPEG(Downscale(pixels, maxEdge), quality)
}

func mimeFor(format string, data []byte) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
