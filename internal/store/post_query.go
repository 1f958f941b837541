// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"sebencms/internal/models"
)

// Listing bounds.
const (
	PostsPerPageDefault = 12
	PostsPerPageMax     = 50
	RelatedDefault      = 3
	RelatedMax          = 12
)

// PostFilter narrows a post listing. Zero values mean no filter.
type PostFilter struct {
	Status       string
	Featured     bool
	CategorySlug string
	TagSlug      string
	Query        string
	Sort         string
	Page         int
	PerPage      int
}

var postSorts = map[string]string{
	"":             "p.published_at DESC NULLS LAST, p.id DESC",
	"published_at": "p.published_at ASC NULLS LAST, p.id ASC",
	"title":        "p.title ASC, p.id DESC",
}

// searchDocument must match the expression of posts_search_idx.
const searchDocument = `to_tsvector('simple', COALESCE(p.title, '') || ' ' || COALESCE(p.excerpt, '') || ' ' || COALESCE(p.content_html, ''))`

// where builds the WHERE clause for f, appending parameters to a.
func (s *PostStore) where(f PostFilter, a *args) string {
	conds := []string{"p.deleted_at IS NULL"}
	if f.Status != "" {
		conds = append(conds, "p.status = "+a.add(f.Status))
	}
	if f.Featured {
		conds = append(conds, "p.is_featured = TRUE")
	}
	if f.CategorySlug != "" {
		ph := a.add(f.CategorySlug)
		conds = append(conds, `(EXISTS (
			SELECT 1 FROM category_post cp JOIN categories c ON c.id = cp.category_id
			WHERE cp.post_id = p.id AND c.slug = `+ph+` AND c.deleted_at IS NULL
		) OR EXISTS (
			SELECT 1 FROM categories pc
			WHERE pc.id = p.primary_category_id AND pc.slug = `+ph+` AND pc.deleted_at IS NULL
		))`)
	}
	if f.TagSlug != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM post_tag pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = `+a.add(f.TagSlug)+` AND t.deleted_at IS NULL
		)`)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		if s.opts.FullText {
			conds = append(conds, searchDocument+" @@ plainto_tsquery('simple', "+a.add(q)+")")
		} else {
			ph := a.add(likePattern(q))
			conds = append(conds, fmt.Sprintf(
				"(p.title ILIKE %[1]s OR p.excerpt ILIKE %[1]s OR p.content_html ILIKE %[1]s)", ph))
		}
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// List returns one page of live posts matching f, without bodies, with
// their taxonomy loaded.
func (s *PostStore) List(ctx context.Context, f PostFilter) (Page[models.Post], error) {
	page := Page[models.Post]{
		Page:    max(f.Page, 1),
		PerPage: clamp(f.PerPage, PostsPerPageDefault, 1, PostsPerPageMax),
	}
	order, ok := postSorts[f.Sort]
	if !ok {
		order = postSorts[""]
	}

	var countArgs args
	countCond := s.where(f, &countArgs)

	var pageArgs args
	pageCond := s.where(f, &pageArgs)
	limit := pageArgs.add(page.PerPage)
	offset := pageArgs.add(page.offset())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx,
			`SELECT COUNT(*) FROM posts p`+countCond, countArgs.values...,
		).Scan(&page.Total)
		if err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		return nil
	})

	var items []models.Post
	g.Go(func() error {
		var err error
		items, err = s.queryPosts(gctx, s.db,
			`SELECT `+postSummaryColumns+` FROM posts p`+pageCond+
				` ORDER BY `+order+` LIMIT `+limit+` OFFSET `+offset,
			pageArgs.values...)
		return err
	})
	if err := g.Wait(); err != nil {
		return page, err
	}

	if err := s.loadRelations(ctx, s.db, items); err != nil {
		return page, err
	}
	page.Items = items
	return page, nil
}

// FindBySlug retrieves a live post of any status by slug.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, `p.slug = $1`, slug)
}

// FindByID retrieves a live post of any status by ID.
func (s *PostStore) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.findOne(ctx, `p.id = $1`, id)
}

func (s *PostStore) findOne(ctx context.Context, cond string, arg any) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE `+cond+` AND p.deleted_at IS NULL`, arg)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}

	posts := []models.Post{*p}
	if err := s.loadRelations(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Related returns published posts sharing a primary or attached category
// with the post at slug, newest first. A post without categories has no
// related posts.
func (s *PostStore) Related(ctx context.Context, slug string, limit int) ([]models.Post, error) {
	src, err := s.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	ids := src.CategoryIDs()
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	limit = clamp(limit, RelatedDefault, 1, RelatedMax)

	var a args
	exclude := a.add(src.ID)
	primaryIn := a.list(ids)
	pivotIn := a.list(ids)
	query := `SELECT ` + postSummaryColumns + ` FROM posts p
		WHERE p.deleted_at IS NULL
		  AND p.status = 'published'
		  AND p.id <> ` + exclude + `
		  AND (p.primary_category_id IN (` + primaryIn + `)
		       OR EXISTS (SELECT 1 FROM category_post cp
		                  WHERE cp.post_id = p.id AND cp.category_id IN (` + pivotIn + `)))
		ORDER BY p.published_at DESC NULLS LAST, p.id DESC
		LIMIT ` + a.add(limit)

	posts, err := s.queryPosts(ctx, s.db, query, a.values...)
	if err != nil {
		return nil, fmt.Errorf("related posts: %w", err)
	}
	if err := s.loadRelations(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) queryPosts(ctx context.Context, q querier, query string, values ...any) ([]models.Post, error) {
	rows, err := q.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// loadRelations fills the primary category, categories and tags of posts
// with one query per relation. Relation slices are never nil.
func (s *PostStore) loadRelations(ctx context.Context, q querier, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[int64]int, len(posts))
	postIDs := make([]int64, len(posts))
	var primaryIDs []int64
	for i := range posts {
		posts[i].Categories = []models.TermRef{}
		posts[i].Tags = []models.TermRef{}
		index[posts[i].ID] = i
		postIDs[i] = posts[i].ID
		if posts[i].PrimaryCategoryID != nil {
			primaryIDs = append(primaryIDs, *posts[i].PrimaryCategoryID)
		}
	}

	if primaryIDs = MergeIDs(primaryIDs); len(primaryIDs) > 0 {
		var a args
		refs, err := queryRefs(ctx, q,
			`SELECT id, id, name, slug FROM categories
			 WHERE deleted_at IS NULL AND id IN (`+a.list(primaryIDs)+`)`, a.values...)
		if err != nil {
			return fmt.Errorf("load primary categories: %w", err)
		}
		byID := make(map[int64]models.TermRef, len(refs))
		for _, r := range refs {
			byID[r.owner] = r.ref
		}
		for i := range posts {
			if id := posts[i].PrimaryCategoryID; id != nil {
				if ref, ok := byID[*id]; ok {
					posts[i].PrimaryCategory = &ref
				}
			}
		}
	}

	var a args
	refs, err := queryRefs(ctx, q, `
		SELECT cp.post_id, c.id, c.name, c.slug
		FROM category_post cp JOIN categories c ON c.id = cp.category_id
		WHERE c.deleted_at IS NULL AND cp.post_id IN (`+a.list(postIDs)+`)
		ORDER BY cp.post_id, cp.order_column, cp.id`, a.values...)
	if err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}
	for _, r := range refs {
		i := index[r.owner]
		posts[i].Categories = append(posts[i].Categories, r.ref)
	}

	var b args
	refs, err = queryRefs(ctx, q, `
		SELECT pt.post_id, t.id, t.name, t.slug
		FROM post_tag pt JOIN tags t ON t.id = pt.tag_id
		WHERE t.deleted_at IS NULL AND pt.post_id IN (`+b.list(postIDs)+`)
		ORDER BY pt.post_id, pt.id`, b.values...)
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	for _, r := range refs {
		i := index[r.owner]
		posts[i].Tags = append(posts[i].Tags, r.ref)
	}
	return nil
}

type ownedRef struct {
	owner int64
	ref   models.TermRef
}

func queryRefs(ctx context.Context, q querier, query string, values ...any) ([]ownedRef, error) {
	rows, err := q.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []ownedRef
	for rows.Next() {
		var r ownedRef
		if err := rows.Scan(&r.owner, &r.ref.ID, &r.ref.Name, &r.ref.Slug); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
