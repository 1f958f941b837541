// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sebencms/internal/models"
	"sebencms/internal/store"
)

func strPtr(s string) *string { return &s }

func TestPostIndexFilters(t *testing.T) {
	posts := &fakePosts{page: store.Page[models.Post]{
		Items:   []models.Post{{ID: 7, Title: "Hello", Slug: "hello"}},
		Total:   13,
		Page:    2,
		PerPage: 12,
	}}
	h := NewPosts(posts, &fakeImages{}, 0)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet,
		"/posts?q=+go+&category_slug=news&tag_slug=golang&status=published&featured=1&sort=title&page=2&per_page=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.PostFilter{
		Status:       "published",
		Featured:     true,
		CategorySlug: "news",
		TagSlug:      "golang",
		Query:        "go",
		Sort:         "title",
		Page:         2,
		PerPage:      500,
	}, posts.filter)

	body := decode(t, rec)
	assert.EqualValues(t, 2, body["current_page"])
	assert.EqualValues(t, 13, body["total"])
	assert.EqualValues(t, 2, body["last_page"])
	assert.EqualValues(t, 13, body["from"])
	assert.EqualValues(t, 13, body["to"])
	assert.EqualValues(t, 1, body["count"])
}

func TestPostIndexEmptyPage(t *testing.T) {
	h := NewPosts(&fakePosts{page: store.Page[models.Post]{Page: 1, PerPage: 12}}, nil, 0)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	body := decode(t, rec)
	assert.Equal(t, []any{}, body["data"])
	assert.EqualValues(t, 0, body["from"])
	assert.EqualValues(t, 1, body["last_page"])
}

func TestPostShowBySlug(t *testing.T) {
	posts := &fakePosts{post: &models.Post{
		ID: 3, Slug: "hello", Views: 4,
		ContentMarkdown: strPtr("# Hi"),
	}}
	h := NewPosts(posts, nil, 0)

	rec := serve(t, http.MethodGet, "/posts/{slug}", h.ShowBySlug,
		httptest.NewRequest(http.MethodGet, "/posts/hello", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, posts.views)
	data := decode(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 5, data["views"])
	assert.Contains(t, data["content_rendered"], "<h1")

	rec = serve(t, http.MethodGet, "/posts/{slug}", h.ShowBySlug,
		httptest.NewRequest(http.MethodGet, "/posts/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Post not found"}`, rec.Body.String())
}

func TestPostShowByID(t *testing.T) {
	h := NewPosts(&fakePosts{post: &models.Post{ID: 9, ContentHTML: strPtr("<p>x</p>")}}, nil, 0)

	rec := serve(t, http.MethodGet, "/posts/by-id/{id}", h.ShowByID,
		httptest.NewRequest(http.MethodGet, "/posts/by-id/9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>x</p>", decode(t, rec)["data"].(map[string]any)["content_rendered"])

	for _, id := range []string{"8", "abc", "-1"} {
		rec = serve(t, http.MethodGet, "/posts/by-id/{id}", h.ShowByID,
			httptest.NewRequest(http.MethodGet, "/posts/by-id/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestPostRelated(t *testing.T) {
	h := NewPosts(&fakePosts{}, nil, 0)
	rec := serve(t, http.MethodGet, "/posts/{slug}/related", h.Related,
		httptest.NewRequest(http.MethodGet, "/posts/x/related", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	h = NewPosts(&fakePosts{err: store.ErrNotFound}, nil, 0)
	rec = serve(t, http.MethodGet, "/posts/{slug}/related", h.Related,
		httptest.NewRequest(http.MethodGet, "/posts/x/related?limit=5", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostStoreMultipart(t *testing.T) {
	posts := &fakePosts{}
	images := &fakeImages{}
	h := NewPosts(posts, images, 0)

	payload := `{"title":"  Hello World ","status":"published","categories_new":[{"name":"Tech"}],"primary_category_id":-1,"tags_new_names":["go"]}`
	rec := httptest.NewRecorder()
	h.Store(rec, multipartRequest(t, http.MethodPost, "/posts", payload, pngBytes(t)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, posts.created)
	assert.Equal(t, "Hello World", *posts.created.Title)
	assert.Nil(t, posts.created.Slug)
	assert.Equal(t, int64(-1), *posts.created.PrimaryCategoryID)
	assert.Equal(t, []models.NewTerm{{Name: "Tech"}}, posts.created.CategoriesNew)

	require.Len(t, images.put, 1)
	assert.True(t, strings.HasSuffix(images.put[0], ".png"))
	assert.Equal(t, images.put[0], *posts.created.FeaturedImage)
	assert.Empty(t, images.deleted)
}

func TestPostStoreJSONBody(t *testing.T) {
	posts := &fakePosts{}
	h := NewPosts(posts, &fakeImages{}, 0)

	rec := httptest.NewRecorder()
	h.Store(rec, jsonRequest(http.MethodPost, "/posts", `{"title":"Draft","status":"draft","slug":"  "}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, posts.created.Slug)
}

func TestPostStorePublishedAtFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-10-14T10:30:00Z", time.Date(2025, 10, 14, 10, 30, 0, 0, time.UTC)},
		{"2025-10-14T12:30:00+02:00", time.Date(2025, 10, 14, 10, 30, 0, 0, time.UTC)},
		{"2025-10-14", time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)},
		{"2025-10-14 10:00:00", time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-10-14T10:30", time.Date(2025, 10, 14, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			posts := &fakePosts{}
			h := NewPosts(posts, &fakeImages{}, 0)

			body := fmt.Sprintf(`{"title":"Dated","status":"scheduled","published_at":%q}`, tt.in)
			rec := httptest.NewRecorder()
			h.Store(rec, jsonRequest(http.MethodPost, "/posts", body))

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			got := posts.created.PublishedTime()
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v, want %v", *got, tt.want)
		})
	}
}

func TestPostStoreStringScalars(t *testing.T) {
	posts := &fakePosts{}
	h := NewPosts(posts, &fakeImages{}, 0)

	payload := `{"title":"Form","status":"draft","word_count":"120","is_featured":"1","published_at":""}`
	rec := httptest.NewRecorder()
	h.Store(rec, multipartRequest(t, http.MethodPost, "/posts", payload, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, posts.created.WordCountValue())
	assert.Equal(t, 120, *posts.created.WordCountValue())
	assert.True(t, posts.created.Featured())
	assert.Nil(t, posts.created.PublishedTime())

	for _, v := range []string{`"0"`, `"false"`, `false`, `0`} {
		posts := &fakePosts{}
		h := NewPosts(posts, &fakeImages{}, 0)
		rec := httptest.NewRecorder()
		h.Store(rec, jsonRequest(http.MethodPost, "/posts", `{"title":"Form","status":"draft","is_featured":`+v+`}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.False(t, posts.created.Featured(), "is_featured %s", v)
	}
}

func TestPostStoreRejects(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		message string
		field   string
		want    string
	}{
		{
			name:    "missing payload",
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, http.MethodPost, "/posts", "", nil) },
			message: "Missing payload",
		},
		{
			name:    "invalid payload json",
			req:     func(t *testing.T) *http.Request { return multipartRequest(t, http.MethodPost, "/posts", "{nope", nil) },
			message: "Invalid JSON in payload",
		},
		{
			name: "unparseable publish date",
			req: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/posts", `{"title":"x","status":"draft","published_at":"next tuesday"}`)
			},
			field: "published_at", want: "The published at field must be a valid date.",
		},
		{
			name: "word count not a number",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, http.MethodPost, "/posts", `{"title":"x","status":"draft","word_count":"many"}`, nil)
			},
			field: "word_count", want: "The word count field must be an integer.",
		},
		{
			name: "featured flag not a boolean",
			req: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/posts", `{"title":"x","status":"draft","is_featured":"maybe"}`)
			},
			field: "is_featured", want: "The is featured field must be true or false.",
		},
		{
			name:  "title not a string",
			req:   func(t *testing.T) *http.Request { return jsonRequest(http.MethodPost, "/posts", `{"title":5,"status":"draft"}`) },
			field: "title", want: "The title field must be a string.",
		},
		{
			name:  "missing title",
			req:   func(t *testing.T) *http.Request { return jsonRequest(http.MethodPost, "/posts", `{"status":"draft"}`) },
			field: "title", want: "The title field is required.",
		},
		{
			name:  "missing status",
			req:   func(t *testing.T) *http.Request { return jsonRequest(http.MethodPost, "/posts", `{"title":"x"}`) },
			field: "status", want: "The status field is required.",
		},
		{
			name:  "unknown status",
			req:   func(t *testing.T) *http.Request { return jsonRequest(http.MethodPost, "/posts", `{"title":"x","status":"live"}`) },
			field: "status", want: "The selected status is invalid.",
		},
		{
			name:  "title without slug characters",
			req:   func(t *testing.T) *http.Request { return jsonRequest(http.MethodPost, "/posts", `{"title":"???","status":"draft"}`) },
			field: "slug", want: "The slug field is required.",
		},
		{
			name: "long title",
			req: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/posts", fmt.Sprintf(`{"title":%q,"status":"draft"}`, strings.Repeat("a", 256)))
			},
			field: "title", want: "The title field must not be greater than 255 characters.",
		},
		{
			name: "not an image",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, http.MethodPost, "/posts", `{"title":"x","status":"draft"}`, []byte("plain text"))
			},
			field: "featured_image", want: "The featured image field must be a file of type: jpeg, png, gif, webp.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &fakePosts{}
			images := &fakeImages{}
			h := NewPosts(posts, images, 0)

			rec := httptest.NewRecorder()
			h.Store(rec, tt.req(t))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decode(t, rec)["message"])
			}
			if tt.field != "" {
				assert.Contains(t, fieldMessages(t, rec, tt.field), tt.want)
			}
			assert.Nil(t, posts.created, "store must not be called")
			assert.Empty(t, images.put)
		})
	}
}

func TestPostStoreTooLarge(t *testing.T) {
	h := NewPosts(&fakePosts{}, &fakeImages{}, 16)

	rec := httptest.NewRecorder()
	h.Store(rec, multipartRequest(t, http.MethodPost, "/posts", `{"title":"x","status":"draft"}`, pngBytes(t)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, fieldMessages(t, rec, "featured_image"))
}

func TestPostStoreFailureRemovesUpload(t *testing.T) {
	posts := &fakePosts{err: fmt.Errorf("create post: %w", store.ErrSlugTaken)}
	images := &fakeImages{}
	h := NewPosts(posts, images, 0)

	rec := httptest.NewRecorder()
	h.Store(rec, multipartRequest(t, http.MethodPost, "/posts", `{"title":"x","status":"draft"}`, pngBytes(t)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"The slug has already been taken."}, fieldMessages(t, rec, "slug"))
	require.Len(t, images.put, 1)
	assert.Equal(t, images.put, images.deleted)
}

func TestPostStoreUploadFailure(t *testing.T) {
	posts := &fakePosts{}
	h := NewPosts(posts, &fakeImages{err: errors.New("bucket gone")}, 0)

	rec := httptest.NewRecorder()
	h.Store(rec, multipartRequest(t, http.MethodPost, "/posts", `{"title":"x","status":"draft"}`, pngBytes(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, posts.created)
}

func TestPostUpdate(t *testing.T) {
	posts := &fakePosts{replaced: "https://cdn.test/posts/old.png"}
	images := &fakeImages{}
	h := NewPosts(posts, images, 0)

	req := multipartRequest(t, http.MethodPut, "/posts/5", `{"excerpt":"short"}`, pngBytes(t))
	rec := serve(t, http.MethodPut, "/posts/{id}", h.Update, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Updated", body["message"])
	assert.EqualValues(t, 5, body["data"].(map[string]any)["id"])
	assert.Nil(t, posts.updated.Title)
	assert.Equal(t, []string{"https://cdn.test/posts/old.png"}, images.deleted)
}

func TestPostUpdateWithoutPayload(t *testing.T) {
	posts := &fakePosts{}
	h := NewPosts(posts, &fakeImages{}, 0)

	rec := serve(t, http.MethodPut, "/posts/{id}", h.Update,
		multipartRequest(t, http.MethodPut, "/posts/5", "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, posts.updated)
}

func TestPostUpdateRejects(t *testing.T) {
	h := NewPosts(&fakePosts{}, &fakeImages{}, 0)

	rec := serve(t, http.MethodPut, "/posts/{id}", h.Update,
		jsonRequest(http.MethodPut, "/posts/5", `{"status":"gone"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"The selected status is invalid."}, fieldMessages(t, rec, "status"))

	rec = serve(t, http.MethodPut, "/posts/{id}", h.Update,
		jsonRequest(http.MethodPut, "/posts/5", `{"title":"  "}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, fieldMessages(t, rec, "title"))
}

func TestPostUpdateNotFoundRemovesUpload(t *testing.T) {
	images := &fakeImages{}
	h := NewPosts(&fakePosts{err: fmt.Errorf("update post 5: %w", store.ErrNotFound)}, images, 0)

	rec := serve(t, http.MethodPut, "/posts/{id}", h.Update,
		multipartRequest(t, http.MethodPut, "/posts/5", `{}`, pngBytes(t)))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, images.put, 1)
	assert.Equal(t, images.put, images.deleted)
}

func TestPostUpdateInvalidReference(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
		message    string
	}{
		{store.FKPostPrimaryCategory, "primary_category_id", "The selected primary category id is invalid."},
		{store.FKCategoryPostCategory, "categories_existing_ids", "The selected categories existing ids is invalid."},
		{store.FKPostTagTag, "tags_existing_names", "The selected tags existing names is invalid."},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := fmt.Errorf("update post 5: %w", &store.ConstraintError{
				Sentinel:   store.ErrInvalidReference,
				Constraint: tt.constraint,
				Err:        errors.New("insert or update violates foreign key constraint"),
			})
			h := NewPosts(&fakePosts{err: err}, &fakeImages{}, 0)

			rec := serve(t, http.MethodPut, "/posts/{id}", h.Update,
				jsonRequest(http.MethodPut, "/posts/5", `{"primary_category_id":999}`))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, []any{tt.message}, fieldMessages(t, rec, tt.field))
		})
	}

	h := NewPosts(&fakePosts{err: fmt.Errorf("update post 5: %w", store.ErrInvalidReference)}, &fakeImages{}, 0)
	rec := serve(t, http.MethodPut, "/posts/{id}", h.Update,
		jsonRequest(http.MethodPut, "/posts/5", `{}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The given data was invalid.", decode(t, rec)["message"])
}

func TestPostDestroy(t *testing.T) {
	images := &fakeImages{}
	h := NewPosts(&fakePosts{post: &models.Post{ID: 5, FeaturedImage: strPtr("https://cdn.test/posts/a.png")}}, images, 0)

	rec := serve(t, http.MethodDelete, "/posts/{id}", h.Destroy,
		httptest.NewRequest(http.MethodDelete, "/posts/5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, rec.Body.String())
	assert.Equal(t, []string{"https://cdn.test/posts/a.png"}, images.deleted)

	h = NewPosts(&fakePosts{err: store.ErrNotFound}, images, 0)
	rec = serve(t, http.MethodDelete, "/posts/{id}", h.Destroy,
		httptest.NewRequest(http.MethodDelete, "/posts/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
