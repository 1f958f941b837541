// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sebencms/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, seo_title, seo_description, canonical_url,
	og_data, twitter_data, schema_json, order_column, is_active, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(s scanner) (*models.Category, error) {
	var c models.Category
	var og, tw, schema []byte
	err := s.Scan(
		&c.ID, &c.Name, &c.Slug, &c.SEOTitle, &c.SEODescription, &c.CanonicalURL,
		&og, &tw, &schema, &c.OrderColumn, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.OGData, c.TwitterData, c.SchemaJSON = og, tw, schema
	return &c, nil
}

// List returns live categories ordered by order_column, then name. With
// activeOnly set, inactive categories are left out.
func (s *CategoryStore) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY order_column, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Create inserts a new category. A live category with the same slug makes
// it fail with ErrSlugTaken.
func (s *CategoryStore) Create(ctx context.Context, name, slug string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug)
		VALUES ($1, $2)
		RETURNING `+categoryColumns,
		name, slug,
	)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", translate(err))
	}
	return c, nil
}

// UpsertBySlug returns the live category with the given slug, creating it
// with name when there is none. An existing category keeps its name.
func (s *CategoryStore) UpsertBySlug(ctx context.Context, slug, name string) (*models.Category, error) {
	return s.upsertBySlug(ctx, s.db, slug, name)
}

func (s *CategoryStore) upsertBySlug(ctx context.Context, q querier, slug, name string) (*models.Category, error) {
	c, err := s.findBySlug(ctx, q, slug)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug)
		VALUES ($1, $2)
		ON CONFLICT (slug) WHERE deleted_at IS NULL DO NOTHING
		RETURNING `+categoryColumns,
		name, slug,
	)
	c, err = scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Another writer created it between our lookup and insert.
		return s.findBySlug(ctx, q, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert category %q: %w", slug, err)
	}
	return c, nil
}

func (s *CategoryStore) findBySlug(ctx context.Context, q querier, slug string) (*models.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1 AND deleted_at IS NULL`, slug)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// exists reports whether a live category with id exists.
func (s *CategoryStore) exists(ctx context.Context, q querier, id int64) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check category %d: %w", id, err)
	}
	return ok, nil
}
