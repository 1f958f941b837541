// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage keeps featured images either in an S3-compatible bucket
// or on the local disk. Both backends hand out public URLs and delete by
// the same URL.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImageStore stores public image assets.
type ImageStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Delete removes the asset behind a URL returned by Put.
	Delete(ctx context.Context, url string) error
}

// NewKey returns a unique object key for a post image with the given
// extension, grouped by month.
func NewKey(ext string) string {
	now := time.Now()
	return fmt.Sprintf("posts/%d/%02d/%s%s", now.Year(), now.Month(), uuid.New().String(), ext)
}
