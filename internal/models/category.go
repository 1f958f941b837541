// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"
)

// Category is a post classification. Its slug is unique among categories
// that have not been soft-deleted.
type Category struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	SEOTitle       *string         `json:"seo_title"`
	SEODescription *string         `json:"seo_description"`
	CanonicalURL   *string         `json:"canonical_url"`
	OGData         json.RawMessage `json:"og_data"`
	TwitterData    json.RawMessage `json:"twitter_data"`
	SchemaJSON     json.RawMessage `json:"schema_json"`
	OrderColumn    int             `json:"order_column"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Tag is a free-form post label. Its slug is unique among live tags.
type Tag struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	SEOTitle       *string   `json:"seo_title"`
	SEODescription *string   `json:"seo_description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TermRef is the compact {id, name, slug} form of a category or tag used
// when embedding taxonomy in post responses.
type TermRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewTerm describes a category (or tag) the caller wants created on the fly.
// An empty Slug means "derive it from Name".
type NewTerm struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug,omitempty" validate:"omitempty,max=255"`
}
