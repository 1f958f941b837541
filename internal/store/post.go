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
	"time"

	"sebencms/internal/content"
	"sebencms/internal/models"
	"sebencms/internal/slug"
)

// PostStoreOptions tune a PostStore.
type PostStoreOptions struct {
	// FullText switches the listing search from ILIKE to PostgreSQL
	// full-text matching.
	FullText bool
	// DefaultAuthor is stored when a new post names no author.
	DefaultAuthor string
}

// PostStore manages posts and their taxonomy in the database.
type PostStore struct {
	db         *sql.DB
	categories *CategoryStore
	tags       *TagStore
	opts       PostStoreOptions
}

// NewPostStore returns a new PostStore.
func NewPostStore(db *sql.DB, opts PostStoreOptions) *PostStore {
	if opts.DefaultAuthor == "" {
		opts.DefaultAuthor = "Seben Team"
	}
	return &PostStore{
		db:         db,
		categories: NewCategoryStore(db),
		tags:       NewTagStore(db),
		opts:       opts,
	}
}

// postColumns is the full column list. postSummaryColumns leaves out the
// bodies, which listings never return.
const postColumns = `p.id, p.title, p.slug, p.excerpt, p.content_html, p.content_markdown,
	p.featured_image, p.featured_image_alt, p.seo_title, p.seo_description, p.canonical_url,
	p.og_data, p.twitter_data, p.schema_json, p.author_name, p.read_time, p.word_count, p.views,
	p.status, p.published_at, p.is_featured, p.primary_category_id, p.meta,
	p.created_at, p.updated_at, p.deleted_at`

const postSummaryColumns = `p.id, p.title, p.slug, p.excerpt, NULL::text, NULL::text,
	p.featured_image, p.featured_image_alt, p.seo_title, p.seo_description, p.canonical_url,
	p.og_data, p.twitter_data, p.schema_json, p.author_name, p.read_time, p.word_count, p.views,
	p.status, p.published_at, p.is_featured, p.primary_category_id, p.meta,
	p.created_at, p.updated_at, p.deleted_at`

// scanPost scans a row into a Post struct.
func scanPost(s scanner) (*models.Post, error) {
	var p models.Post
	var og, tw, schema, meta []byte
	err := s.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.ContentHTML, &p.ContentMarkdown,
		&p.FeaturedImage, &p.FeaturedImageAlt, &p.SEOTitle, &p.SEODescription, &p.CanonicalURL,
		&og, &tw, &schema, &p.AuthorName, &p.ReadTime, &p.WordCount, &p.Views,
		&p.Status, &p.PublishedAt, &p.IsFeatured, &p.PrimaryCategoryID, &meta,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.OGData, p.TwitterData, p.SchemaJSON, p.Meta = og, tw, schema, meta
	return &p, nil
}

// Create inserts a post with its taxonomy in one transaction. New
// categories and tags are found or created by slug, and the primary
// category is resolved against them.
func (s *PostStore) Create(ctx context.Context, in *models.PostInput) (*models.Post, error) {
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		newCats, err := s.upsertCategories(ctx, tx, in.CategoriesNew)
		if err != nil {
			return err
		}
		catIDs := MergeIDs(in.CategoriesExistingIDs, newCats)

		primary, err := resolvePrimary(in.PrimaryCategoryID, func(id int64) (bool, error) {
			return s.categories.exists(ctx, tx, id)
		}, newCats, catIDs)
		if err != nil {
			return err
		}

		existingTags, err := s.tags.idsByNames(ctx, tx, in.TagsExistingNames)
		if err != nil {
			return err
		}
		newTags, err := s.upsertTags(ctx, tx, in.TagsNewNames)
		if err != nil {
			return err
		}
		tagIDs := MergeIDs(existingTags, newTags)

		title := deref(in.Title)
		postSlug := deref(in.Slug)
		if postSlug == "" {
			postSlug = slug.FromTitle(title)
		}
		author := deref(in.AuthorName)
		if author == "" {
			author = s.opts.DefaultAuthor
		}
		status := models.PostStatusDraft
		if in.Status != nil {
			status = models.PostStatus(*in.Status)
		}
		stats := content.CreateStats(sourceOf(in), in.WordCountValue(), in.ReadTime)

		err = tx.QueryRowContext(ctx, `
			INSERT INTO posts (
				title, slug, excerpt, content_markdown, content_html,
				featured_image, featured_image_alt, seo_title, seo_description, canonical_url,
				og_data, twitter_data, schema_json, author_name, read_time, word_count,
				status, published_at, is_featured, primary_category_id, meta
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			RETURNING id`,
			title, postSlug, in.Excerpt, in.ContentMarkdown, in.ContentHTML,
			in.FeaturedImage, in.FeaturedImageAlt, in.SEOTitle, in.SEODescription, in.CanonicalURL,
			in.OGData.DBValue(), in.TwitterData.DBValue(), in.SchemaJSON.DBValue(),
			author, stats.ReadTime, stats.WordCount,
			string(status), in.PublishedTime(), in.Featured(), primary, in.Meta.DBValue(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert post: %w", translate(err))
		}

		if err := syncCategories(ctx, tx, id, catIDs); err != nil {
			return err
		}
		return syncTags(ctx, tx, id, tagIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update replaces a post's fields and taxonomy in one transaction. Optional
// content fields missing from in are cleared; title, status, author and
// publish date keep their stored values. It returns the updated post and the
// image URL that a newly uploaded image replaced, if any.
func (s *PostStore) Update(ctx context.Context, id int64, in *models.PostInput) (*models.Post, string, error) {
	var replaced string
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+postColumns+` FROM posts p WHERE p.id = $1 AND p.deleted_at IS NULL FOR UPDATE`, id)
		cur, err := scanPost(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}

		title := cur.Title
		if in.Title != nil {
			title = *in.Title
		}
		postSlug := deref(in.Slug)
		if postSlug == "" {
			postSlug = slug.Generate(title)
		}
		status := cur.Status
		if in.Status != nil {
			status = models.PostStatus(*in.Status)
		}
		author := cur.AuthorName
		if in.AuthorName != nil {
			author = *in.AuthorName
		}
		publishedAt := cur.PublishedAt
		if t := in.PublishedTime(); t != nil {
			publishedAt = t
		}
		var primary *int64
		if in.PrimaryCategoryID != nil && *in.PrimaryCategoryID > 0 {
			primary = in.PrimaryCategoryID
		}
		image := cur.FeaturedImage
		if in.FeaturedImage != nil {
			image = in.FeaturedImage
			if cur.FeaturedImage != nil && *cur.FeaturedImage != *in.FeaturedImage {
				replaced = *cur.FeaturedImage
			}
		}
		stats := content.UpdateStats(sourceOf(in), in.WordCountValue(), in.ReadTime)

		_, err = tx.ExecContext(ctx, `
			UPDATE posts SET
				title = $1, slug = $2, excerpt = $3, content_markdown = $4, content_html = $5,
				featured_image = $6, featured_image_alt = $7, seo_title = $8, seo_description = $9,
				canonical_url = $10, og_data = $11, twitter_data = $12, schema_json = $13,
				author_name = $14, read_time = $15, word_count = $16, status = $17,
				published_at = $18, is_featured = $19, primary_category_id = $20,
				meta = COALESCE($21, meta), updated_at = NOW()
			WHERE id = $22`,
			title, postSlug, in.Excerpt, in.ContentMarkdown, in.ContentHTML,
			image, in.FeaturedImageAlt, in.SEOTitle, in.SEODescription,
			in.CanonicalURL, in.OGData.DBValue(), in.TwitterData.DBValue(), in.SchemaJSON.DBValue(),
			author, stats.ReadTime, stats.WordCount, string(status),
			publishedAt, in.Featured(), primary,
			in.Meta.DBValue(), id,
		)
		if err != nil {
			return fmt.Errorf("update post: %w", translate(err))
		}

		var named []models.NewTerm
		for _, c := range in.CategoriesNew {
			if strings.TrimSpace(c.Name) != "" {
				named = append(named, c)
			}
		}
		newCats, err := s.upsertCategories(ctx, tx, named)
		if err != nil {
			return err
		}
		if err := syncCategories(ctx, tx, id, MergeIDs(in.CategoriesExistingIDs, newCats)); err != nil {
			return err
		}

		names := append(append([]string{}, in.TagsExistingNames...), in.TagsNewNames...)
		tagIDs, err := s.upsertTags(ctx, tx, names)
		if err != nil {
			return err
		}
		return syncTags(ctx, tx, id, MergeIDs(tagIDs))
	})
	if err != nil {
		return nil, "", fmt.Errorf("update post %d: %w", id, err)
	}

	p, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return p, replaced, nil
}

// Delete detaches a post from its taxonomy and soft-deletes it in one
// transaction. The deleted post is returned so the caller can remove its
// image once the transaction has committed.
func (s *PostStore) Delete(ctx context.Context, id int64) (*models.Post, error) {
	var p *models.Post
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+postColumns+` FROM posts p WHERE p.id = $1 AND p.deleted_at IS NULL FOR UPDATE`, id)
		var err error
		p, err = scanPost(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM category_post WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("detach categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tag WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("detach tags: %w", err)
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET deleted_at = $1, updated_at = $1 WHERE id = $2`, now, id); err != nil {
			return fmt.Errorf("soft delete post: %w", err)
		}
		p.DeletedAt = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete post %d: %w", id, err)
	}
	return p, nil
}

// IncrementViews bumps the view counter of a live post.
func (s *PostStore) IncrementViews(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET views = views + 1 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// resolvePrimary picks the primary category. A positive id is used when the
// category exists; a negative id stands for the first newly created
// category; otherwise the first id of the merged set wins.
func resolvePrimary(requested *int64, exists func(int64) (bool, error), newIDs, merged []int64) (*int64, error) {
	var primary int64
	if requested != nil {
		switch id := *requested; {
		case id > 0:
			ok, err := exists(id)
			if err != nil {
				return nil, err
			}
			if ok {
				primary = id
			}
		case id < 0:
			if len(newIDs) > 0 {
				primary = newIDs[0]
			}
		}
	}
	if primary == 0 && len(merged) > 0 {
		primary = merged[0]
	}
	if primary == 0 {
		return nil, nil
	}
	return &primary, nil
}

func (s *PostStore) upsertCategories(ctx context.Context, q querier, terms []models.NewTerm) ([]int64, error) {
	var ids []int64
	for _, t := range terms {
		sl := t.Slug
		if sl == "" {
			sl = slug.Generate(t.Name)
		}
		c, err := s.categories.upsertBySlug(ctx, q, sl, t.Name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *PostStore) upsertTags(ctx context.Context, q querier, names []string) ([]int64, error) {
	var ids []int64
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := s.tags.upsertBySlug(ctx, q, slug.Generate(name), name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// syncCategories makes the post's category pivots exactly ids, recording
// each id's position as its order.
func syncCategories(ctx context.Context, q querier, postID int64, ids []int64) error {
	var a args
	del := `DELETE FROM category_post WHERE post_id = ` + a.add(postID)
	if len(ids) > 0 {
		del += ` AND category_id NOT IN (` + a.list(ids) + `)`
	}
	if _, err := q.ExecContext(ctx, del, a.values...); err != nil {
		return fmt.Errorf("prune categories: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var b args
	rows := make([]string, len(ids))
	for i, id := range ids {
		rows[i] = "(" + b.add(postID) + ", " + b.add(id) + ", " + b.add(i) + ")"
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO category_post (post_id, category_id, order_column)
		VALUES `+strings.Join(rows, ", ")+`
		ON CONFLICT (post_id, category_id)
		DO UPDATE SET order_column = EXCLUDED.order_column, updated_at = NOW()`,
		b.values...,
	)
	if err != nil {
		return fmt.Errorf("attach categories: %w", translate(err))
	}
	return nil
}

// syncTags makes the post's tag pivots exactly ids.
func syncTags(ctx context.Context, q querier, postID int64, ids []int64) error {
	var a args
	del := `DELETE FROM post_tag WHERE post_id = ` + a.add(postID)
	if len(ids) > 0 {
		del += ` AND tag_id NOT IN (` + a.list(ids) + `)`
	}
	if _, err := q.ExecContext(ctx, del, a.values...); err != nil {
		return fmt.Errorf("prune tags: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var b args
	rows := make([]string, len(ids))
	for i, id := range ids {
		rows[i] = "(" + b.add(postID) + ", " + b.add(id) + ")"
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO post_tag (post_id, tag_id)
		VALUES `+strings.Join(rows, ", ")+`
		ON CONFLICT (post_id, tag_id) DO NOTHING`,
		b.values...,
	)
	if err != nil {
		return fmt.Errorf("attach tags: %w", translate(err))
	}
	return nil
}

func sourceOf(in *models.PostInput) content.Source {
	return content.Source{
		Title:    deref(in.Title),
		Excerpt:  deref(in.Excerpt),
		HTML:     deref(in.ContentHTML),
		Markdown: deref(in.ContentMarkdown),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
