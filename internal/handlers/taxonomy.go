// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"sebencms/internal/models"
	"sebencms/internal/slug"
	"sebencms/internal/store"
)

// CategoryRepository is the category storage the handlers need.
type CategoryRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Create(ctx context.Context, name, slug string) (*models.Category, error)
}

// TagRepository is the tag storage the handlers need.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	Create(ctx context.Context, name, slug string) (*models.Tag, error)
}

// Taxonomy serves the category and tag endpoints.
type Taxonomy struct {
	categories CategoryRepository
	tags       TagRepository
}

// NewTaxonomy creates the taxonomy handler group.
func NewTaxonomy(categories CategoryRepository, tags TagRepository) *Taxonomy {
	return &Taxonomy{categories: categories, tags: tags}
}

// termRequest is the body of POST /categories and POST /tags.
type termRequest struct {
	Name string  `json:"name" validate:"required,max=255"`
	Slug *string `json:"slug" validate:"omitempty,max=255"`
}

// CategoryIndex lists categories; ?active_only=1 hides inactive ones.
func (t *Taxonomy) CategoryIndex(w http.ResponseWriter, r *http.Request) {
	items, err := t.categories.List(r.Context(), queryBool(r, "active_only"))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

// CategoryStore creates a category.
func (t *Taxonomy) CategoryStore(w http.ResponseWriter, r *http.Request) {
	name, termSlug, ok := readTerm(w, r)
	if !ok {
		return
	}
	c, err := t.categories.Create(r.Context(), name, termSlug)
	if err != nil {
		termError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}

// TagIndex lists tags by name.
func (t *Taxonomy) TagIndex(w http.ResponseWriter, r *http.Request) {
	items, err := t.tags.List(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

// TagStore creates a tag.
func (t *Taxonomy) TagStore(w http.ResponseWriter, r *http.Request) {
	name, termSlug, ok := readTerm(w, r)
	if !ok {
		return
	}
	tag, err := t.tags.Create(r.Context(), name, termSlug)
	if err != nil {
		termError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tag)
}

// readTerm decodes and validates a term body, deriving the slug from the
// name when none was sent. It writes the error response itself.
func readTerm(w http.ResponseWriter, r *http.Request) (name, termSlug string, ok bool) {
	var req termRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, "The request body must be valid JSON.")
		return "", "", false
	}
	req.Name = strings.TrimSpace(req.Name)
	if fe := validateStruct(&req); fe != nil {
		writeValidation(w, fe)
		return "", "", false
	}

	if req.Slug != nil {
		termSlug = strings.TrimSpace(*req.Slug)
	}
	if termSlug == "" {
		termSlug = slug.Generate(req.Name)
	}
	if termSlug == "" {
		writeValidation(w, fieldErrors{"slug": {"The slug field is required."}})
		return "", "", false
	}
	return req.Name, termSlug, true
}

func termError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrSlugTaken) {
		writeValidation(w, fieldErrors{"slug": {"The slug has already been taken."}})
		return
	}
	serverError(w, r, err)
}
