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

	"sebencms/internal/models"
)

// TagStore manages tags in the database.
type TagStore struct {
	db *sql.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `id, name, slug, seo_title, seo_description, created_at, updated_at`

func scanTag(s scanner) (*models.Tag, error) {
	var t models.Tag
	err := s.Scan(&t.ID, &t.Name, &t.Slug, &t.SEOTitle, &t.SEODescription, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all live tags ordered by name.
func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// Create inserts a new tag, failing with ErrSlugTaken on a live duplicate.
func (s *TagStore) Create(ctx context.Context, name, slug string) (*models.Tag, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug)
		VALUES ($1, $2)
		RETURNING `+tagColumns,
		name, slug,
	)
	t, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", translate(err))
	}
	return t, nil
}

// UpsertBySlug returns the live tag with the given slug, creating it with
// name when there is none. An existing tag keeps its name.
func (s *TagStore) UpsertBySlug(ctx context.Context, slug, name string) (*models.Tag, error) {
	return s.upsertBySlug(ctx, s.db, slug, name)
}

func (s *TagStore) upsertBySlug(ctx context.Context, q querier, slug, name string) (*models.Tag, error) {
	t, err := s.findBySlug(ctx, q, slug)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (slug) WHERE deleted_at IS NULL DO NOTHING
		RETURNING `+tagColumns,
		name, slug,
	)
	t, err = scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.findBySlug(ctx, q, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert tag %q: %w", slug, err)
	}
	return t, nil
}

func (s *TagStore) findBySlug(ctx context.Context, q querier, slug string) (*models.Tag, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = $1 AND deleted_at IS NULL`, slug)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by slug: %w", err)
	}
	return t, nil
}

// idsByNames resolves live tags whose name matches any of names, ignoring
// case. Unknown names are skipped.
func (s *TagStore) idsByNames(ctx context.Context, q querier, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var a args
	ph := make([]string, len(names))
	for i, n := range names {
		ph[i] = a.add(strings.ToLower(n))
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM tags WHERE deleted_at IS NULL AND LOWER(name) IN (`+strings.Join(ph, ", ")+`) ORDER BY id`,
		a.values...,
	)
	if err != nil {
		return nil, fmt.Errorf("find tags by name: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
