package models

import (
	"image"
	"time"
)

// Image is an encoded image as it travels between the pipeline and external services
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Empty reports whether the image carries no bytes
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// RawAsset is the uploaded product photo
type RawAsset struct {
	Filename   string      `json:"filename"`
	Original   Image       `json:"original"`
	Pixels     image.Image `json:"-"`
	UploadedAt time.Time   `json:"uploaded_at"`
}

// Dimensions are physical product dimensions in centimetres
type Dimensions struct {
	Height float64 `json:"height" yaml:"height"`
	Width  float64 `json:"width" yaml:"width"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

// IsZero reports whether no dimension has been set
func (d Dimensions) IsZero() bool {
	return d.Height == 0 && d.Width == 0 && d.Depth == 0
}
