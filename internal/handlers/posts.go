// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sebencms/internal/markdown"
	"sebencms/internal/metrics"
	"sebencms/internal/models"
	"sebencms/internal/storage"
	"sebencms/internal/store"
)

// PostRepository is the post storage the handlers need.
type PostRepository interface {
	List(ctx context.Context, f store.PostFilter) (store.Page[models.Post], error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	Related(ctx context.Context, slug string, limit int) ([]models.Post, error)
	Create(ctx context.Context, in *models.PostInput) (*models.Post, error)
	Update(ctx context.Context, id int64, in *models.PostInput) (*models.Post, string, error)
	Delete(ctx context.Context, id int64) (*models.Post, error)
	IncrementViews(ctx context.Context, id int64) error
}

// Posts serves the post endpoints.
type Posts struct {
	posts     PostRepository
	images    storage.ImageStore
	maxUpload int64
}

// NewPosts creates the post handler group. maxUpload bounds featured
// image size in bytes.
func NewPosts(posts PostRepository, images storage.ImageStore, maxUpload int64) *Posts {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Posts{posts: posts, images: images, maxUpload: maxUpload}
}

// Index lists posts with filters and pagination.
func (p *Posts) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := p.posts.List(r.Context(), store.PostFilter{
		Status:       q.Get("status"),
		Featured:     queryBool(r, "featured"),
		CategorySlug: q.Get("category_slug"),
		TagSlug:      q.Get("tag_slug"),
		Query:        strings.TrimSpace(q.Get("q")),
		Sort:         q.Get("sort"),
		Page:         queryInt(r, "page"),
		PerPage:      queryInt(r, "per_page"),
	})
	if err != nil {
		serverError(w, r, err)
		return
	}
	writePage(w, page)
}

// ShowBySlug returns a post of any status by slug and counts the view.
func (p *Posts) ShowBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := p.posts.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}

	if err := p.posts.IncrementViews(r.Context(), post.ID); err != nil {
		slog.Warn("increment views failed", "post_id", post.ID, "error", err)
	} else {
		post.Views++
	}
	p.writeDetail(w, post)
}

// ShowByID returns a post by numeric id, for edit screens.
func (p *Posts) ShowByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	post, err := p.posts.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	p.writeDetail(w, post)
}

func (p *Posts) writeDetail(w http.ResponseWriter, post *models.Post) {
	rendered, err := markdown.Rendered(post.ContentHTML, post.ContentMarkdown)
	if err != nil {
		slog.Warn("render markdown failed", "post_id", post.ID, "error", err)
	}
	post.ContentRendered = rendered
	writeData(w, http.StatusOK, post)
}

// Related lists published posts sharing a category with the given post.
func (p *Posts) Related(w http.ResponseWriter, r *http.Request) {
	posts, err := p.posts.Related(r.Context(), chi.URLParam(r, "slug"), queryInt(r, "limit"))
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeData(w, http.StatusOK, posts)
}

// Store creates a post from a multipart or JSON payload.
func (p *Posts) Store(w http.ResponseWriter, r *http.Request) {
	in, img, ok := p.readPostForm(w, r, true)
	if !ok {
		return
	}
	normalize(in)
	if fe := checkCreate(in); fe != nil {
		writeValidation(w, fe)
		return
	}

	stored, ok := p.storeImage(w, r, in, img)
	if !ok {
		return
	}

	post, err := p.posts.Create(r.Context(), in)
	if err != nil {
		p.discard(r.Context(), stored)
		p.writeError(w, r, err)
		return
	}
	metrics.PostWritten("create")
	writeData(w, http.StatusCreated, post)
}

// Update fully replaces a post. Optional fields missing from the payload
// are cleared.
func (p *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	in, img, ok := p.readPostForm(w, r, false)
	if !ok {
		return
	}
	normalize(in)
	if fe := checkUpdate(in); fe != nil {
		writeValidation(w, fe)
		return
	}

	stored, ok := p.storeImage(w, r, in, img)
	if !ok {
		return
	}

	post, replaced, err := p.posts.Update(r.Context(), id, in)
	if err != nil {
		p.discard(r.Context(), stored)
		p.writeError(w, r, err)
		return
	}
	p.discard(r.Context(), replaced)
	metrics.PostWritten("update")
	writeJSON(w, http.StatusOK, map[string]any{"message": "Updated", "data": post})
}

// Destroy soft-deletes a post and then removes its image.
func (p *Posts) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return
	}
	post, err := p.posts.Delete(r.Context(), id)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	if post.FeaturedImage != nil {
		p.discard(r.Context(), *post.FeaturedImage)
	}
	metrics.PostWritten("delete")
	writeMessage(w, http.StatusOK, "Deleted")
}

// storeImage uploads img, when present, and points in at its URL. It
// returns the stored URL so a failed write can remove it again.
func (p *Posts) storeImage(w http.ResponseWriter, r *http.Request, in *models.PostInput, img *upload) (string, bool) {
	if img == nil {
		return "", true
	}
	if p.images == nil {
		writeValidation(w, fieldErrors{"featured_image": {"Image uploads are not configured."}})
		return "", false
	}
	url, err := p.images.Put(r.Context(), storage.NewKey(img.info.Ext), img.info.ContentType, img.data)
	if err != nil {
		serverError(w, r, err)
		return "", false
	}
	in.FeaturedImage = &url
	return url, true
}

// discard removes an image that is no longer referenced. Failures are
// logged; the database stays the source of truth.
func (p *Posts) discard(ctx context.Context, url string) {
	if url == "" || p.images == nil {
		return
	}
	if err := p.images.Delete(context.WithoutCancel(ctx), url); err != nil {
		slog.Warn("delete image failed", "url", url, "error", err)
	}
}

// referenceFields names the input field behind each foreign key a post
// write can violate.
var referenceFields = map[string]string{
	store.FKPostPrimaryCategory:  "primary_category_id",
	store.FKCategoryPostCategory: "categories_existing_ids",
	store.FKPostTagTag:           "tags_existing_names",
}

func (p *Posts) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, store.ErrSlugTaken):
		writeValidation(w, fieldErrors{"slug": {"The slug has already been taken."}})
	case errors.Is(err, store.ErrInvalidReference):
		field, ok := referenceFields[store.Constraint(err)]
		if !ok {
			writeMessage(w, http.StatusUnprocessableEntity, "The given data was invalid.")
			return
		}
		writeValidation(w, fieldErrors{field: {"The selected " + strings.ReplaceAll(field, "_", " ") + " is invalid."}})
	default:
		serverError(w, r, err)
	}
}

// normalize trims the identifying text fields and drops a blank slug so the
// store derives one.
func normalize(in *models.PostInput) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if blank(in.Slug) {
		in.Slug = nil
	} else {
		s := strings.TrimSpace(*in.Slug)
		in.Slug = &s
	}
}
