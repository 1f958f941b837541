// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory fakes behind the handler interfaces
// and request helpers shared by the handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"sebencms/internal/models"
	"sebencms/internal/store"
)

type fakeCategories struct {
	items      []models.Category
	activeOnly bool
	created    []string
	err        error
}

func (f *fakeCategories) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	f.activeOnly = activeOnly
	return f.items, f.err
}

func (f *fakeCategories) Create(_ context.Context, name, slug string) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, slug)
	return &models.Category{ID: int64(len(f.created)), Name: name, Slug: slug, IsActive: true}, nil
}

type fakeTags struct {
	items []models.Tag
	err   error
}

func (f *fakeTags) List(context.Context) ([]models.Tag, error) { return f.items, f.err }

func (f *fakeTags) Create(_ context.Context, name, slug string) (*models.Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Tag{ID: 1, Name: name, Slug: slug}, nil
}

// fakePosts records the calls the post handlers make.
type fakePosts struct {
	filter   store.PostFilter
	page     store.Page[models.Post]
	post     *models.Post
	related  []models.Post
	created  *models.PostInput
	updated  *models.PostInput
	replaced string
	views    int
	err      error
}

func (f *fakePosts) List(_ context.Context, pf store.PostFilter) (store.Page[models.Post], error) {
	f.filter = pf
	return f.page, f.err
}

func (f *fakePosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.post == nil || f.post.Slug != slug {
		return nil, store.ErrNotFound
	}
	return f.post, nil
}

func (f *fakePosts) FindByID(_ context.Context, id int64) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.post == nil || f.post.ID != id {
		return nil, store.ErrNotFound
	}
	return f.post, nil
}

func (f *fakePosts) Related(_ context.Context, slug string, limit int) ([]models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.related, nil
}

func (f *fakePosts) Create(_ context.Context, in *models.PostInput) (*models.Post, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	p := &models.Post{ID: 1, Title: *in.Title, Status: models.PostStatus(*in.Status), FeaturedImage: in.FeaturedImage}
	return p, nil
}

func (f *fakePosts) Update(_ context.Context, id int64, in *models.PostInput) (*models.Post, string, error) {
	f.updated = in
	if f.err != nil {
		return nil, "", f.err
	}
	return &models.Post{ID: id, FeaturedImage: in.FeaturedImage}, f.replaced, nil
}

func (f *fakePosts) Delete(_ context.Context, id int64) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.post, nil
}

func (f *fakePosts) IncrementViews(context.Context, int64) error {
	f.views++
	return nil
}

// fakeImages keeps stored images in memory.
type fakeImages struct {
	mu      sync.Mutex
	put     []string
	deleted []string
	err     error
}

func (f *fakeImages) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	url := "https://cdn.test/" + key
	f.put = append(f.put, url)
	return url, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

// serve routes req through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with a payload field and, when img is
// not nil, a featured_image file.
func multipartRequest(t *testing.T, method, target, payload string, img []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if payload != "" {
		require.NoError(t, mw.WriteField("payload", payload))
	}
	if img != nil {
		fw, err := mw.CreateFormFile("featured_image", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// decode unmarshals a response body into a generic map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// fieldMessages returns the 422 messages for one field.
func fieldMessages(t *testing.T, rec *httptest.ResponseRecorder, field string) []any {
	t.Helper()
	body := decode(t, rec)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok, "no errors object in %s", rec.Body.String())
	msgs, _ := errs[field].([]any)
	return msgs
}
