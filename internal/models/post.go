// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"slices"
	"time"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

var postStatuses = []PostStatus{
	PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusArchived,
}

// Valid reports whether s is one of the four known statuses.
func (s PostStatus) Valid() bool {
	return slices.Contains(postStatuses, s)
}

// Post is a blog article. A post belongs to any number of categories and
// tags, and may name one primary category that is not required to be among
// its categories.
type Post struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Slug              string          `json:"slug"`
	Excerpt           *string         `json:"excerpt"`
	ContentHTML       *string         `json:"content_html"`
	ContentMarkdown   *string         `json:"content_markdown"`
	FeaturedImage     *string         `json:"featured_image"`
	FeaturedImageAlt  *string         `json:"featured_image_alt"`
	SEOTitle          *string         `json:"seo_title"`
	SEODescription    *string         `json:"seo_description"`
	CanonicalURL      *string         `json:"canonical_url"`
	OGData            json.RawMessage `json:"og_data"`
	TwitterData       json.RawMessage `json:"twitter_data"`
	SchemaJSON        json.RawMessage `json:"schema_json"`
	AuthorName        string          `json:"author_name"`
	ReadTime          *string         `json:"read_time"`
	WordCount         int             `json:"word_count"`
	Views             int64           `json:"views"`
	Status            PostStatus      `json:"status"`
	PublishedAt       *time.Time      `json:"published_at"`
	IsFeatured        bool            `json:"is_featured"`
	PrimaryCategoryID *int64          `json:"primary_category_id"`
	Meta              json.RawMessage `json:"meta"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         *time.Time      `json:"deleted_at,omitempty"`

	PrimaryCategory *TermRef  `json:"primary_category"`
	Categories      []TermRef `json:"categories"`
	Tags            []TermRef `json:"tags"`

	// ContentRendered is the HTML a reader sees: content_html when present,
	// otherwise the markdown rendered on the fly. Never persisted.
	ContentRendered string `json:"content_rendered,omitempty"`
}

// CategoryIDs returns the primary category followed by the attached
// categories, without duplicates. Used to find related posts.
func (p *Post) CategoryIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if p.PrimaryCategoryID != nil {
		add(*p.PrimaryCategoryID)
	}
	for _, c := range p.Categories {
		add(c.ID)
	}
	return ids
}

// PostInput carries the decoded create/update payload. Pointer fields are
// nil when the client did not send them, which matters because create fills
// defaults for missing fields while update clears them.
type PostInput struct {
	Title            *string    `json:"title" validate:"omitempty,max=255"`
	Slug             *string    `json:"slug" validate:"omitempty,max=255"`
	Excerpt          *string    `json:"excerpt" validate:"omitempty,max=1000"`
	ContentMarkdown  *string    `json:"content_markdown"`
	ContentHTML      *string    `json:"content_html"`
	FeaturedImageAlt *string    `json:"featured_image_alt" validate:"omitempty,max=255"`
	SEOTitle         *string    `json:"seo_title" validate:"omitempty,max=255"`
	SEODescription   *string    `json:"seo_description" validate:"omitempty,max=500"`
	CanonicalURL     *string    `json:"canonical_url" validate:"omitempty,max=500"`
	OGData           RawObject  `json:"og_data"`
	TwitterData      RawObject  `json:"twitter_data"`
	SchemaJSON       RawObject  `json:"schema_json"`
	AuthorName       *string    `json:"author_name" validate:"omitempty,max=255"`
	ReadTime         *string    `json:"read_time" validate:"omitempty,max=50"`
	WordCount        *FlexInt   `json:"word_count" validate:"omitempty,min=0"`
	Status           *string    `json:"status"`
	PublishedAt      *FlexTime  `json:"published_at"`
	IsFeatured       *FlexBool  `json:"is_featured"`
	Meta             RawObject  `json:"meta"`

	// PrimaryCategoryID is an existing category id when positive. A negative
	// value refers to the first entry of CategoriesNew. Zero means unset.
	PrimaryCategoryID *int64 `json:"primary_category_id"`

	CategoriesExistingIDs []int64   `json:"categories_existing_ids" validate:"omitempty,dive,min=1"`
	CategoriesNew         []NewTerm `json:"categories_new" validate:"omitempty,dive"`
	TagsExistingNames     []string  `json:"tags_existing_names" validate:"omitempty,dive,max=255"`
	TagsNewNames          []string  `json:"tags_new_names" validate:"omitempty,dive,max=255"`

	// FeaturedImage is the stored URL of a newly uploaded image, set by the
	// HTTP layer after the upload succeeds.
	FeaturedImage *string `json:"-"`
}

// WordCountValue returns the requested word count, or nil when absent.
func (in *PostInput) WordCountValue() *int {
	if in.WordCount == nil {
		return nil
	}
	n := int(*in.WordCount)
	return &n
}

// PublishedTime returns the requested publish time. An empty date string
// counts as absent.
func (in *PostInput) PublishedTime() *time.Time {
	if in.PublishedAt == nil || in.PublishedAt.IsZero() {
		return nil
	}
	t := in.PublishedAt.Time
	return &t
}

// Featured reports whether the post should be flagged as featured.
func (in *PostInput) Featured() bool {
	return in.IsFeatured != nil && bool(*in.IsFeatured)
}

// RawObject holds a client-supplied JSON value that is stored verbatim.
// A JSON null decodes to nil, same as an absent field.
type RawObject json.RawMessage

// UnmarshalJSON keeps the raw bytes, mapping null to nil.
func (r *RawObject) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}

// MarshalJSON writes the stored value, or null.
func (r RawObject) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// DBValue returns the value as a query parameter: a JSON string or nil.
func (r RawObject) DBValue() any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}
