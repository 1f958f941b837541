// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging validates uploaded featured images. It sniffs the real
// content type and decodes only the image header, rejecting anything that
// is not a raster image or whose dimensions are implausibly large.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// MaxPixels caps width*height to guard against decompression bombs.
const MaxPixels = 50_000_000

// ErrUnsupported is returned for uploads that are not an accepted image.
var ErrUnsupported = errors.New("unsupported image type")

// allowedTypes maps accepted MIME types to the file extension they are
// stored under.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Info describes a validated image.
type Info struct {
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Inspect checks that data is an accepted image and returns its type and
// dimensions.
func Inspect(data []byte) (*Info, error) {
	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupported)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}

	return &Info{ContentType: contentType, Ext: ext, Width: cfg.Width, Height: cfg.Height}, nil
}
