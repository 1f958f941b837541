// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements PostgreSQL persistence for taxonomy, posts and
// chatbot leads. Stores wrap a *sql.DB; multi-row writes run in a single
// transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a referenced row does not exist or has
	// been soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrSlugTaken is returned when a slug collides with a live row.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrInvalidReference is returned when a write points at a row that
	// does not exist, such as an unknown category id.
	ErrInvalidReference = errors.New("invalid reference")
)

// PostgreSQL error codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier is satisfied by both *sql.DB and *sql.Tx so helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Foreign keys whose violation callers report against a specific field.
const (
	FKPostPrimaryCategory  = "posts_primary_category_id_fkey"
	FKCategoryPostCategory = "category_post_category_id_fkey"
	FKPostTagTag           = "post_tag_tag_id_fkey"
)

// ConstraintError is a translated constraint violation. It matches its
// sentinel with errors.Is and names the constraint that failed.
type ConstraintError struct {
	Sentinel   error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s", e.Sentinel, e.Constraint)
}

func (e *ConstraintError) Is(target error) bool { return target == e.Sentinel }

func (e *ConstraintError) Unwrap() error { return e.Err }

// Constraint returns the name of the constraint err violated, or "" when
// err is not a translated violation.
func Constraint(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// translate maps constraint violations onto the package sentinels, keeping
// the original error in the chain.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Sentinel: ErrSlugTaken, Constraint: pgErr.ConstraintName, Err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Sentinel: ErrInvalidReference, Constraint: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// args accumulates positional parameters and hands out $n placeholders.
type args struct {
	values []any
}

// add appends v and returns its placeholder.
func (a *args) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

// list appends every id and returns a comma separated placeholder list for
// an IN clause.
func (a *args) list(ids []int64) string {
	ph := make([]string, len(ids))
	for i, id := range ids {
		ph[i] = a.add(id)
	}
	return strings.Join(ph, ", ")
}

// jsonParam turns a JSON column value into a query parameter.
func jsonParam(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// likePattern wraps q for a substring ILIKE match, escaping wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// MergeIDs concatenates id lists, dropping duplicates and non-positive ids
// while keeping first-seen order.
func MergeIDs(lists ...[]int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, list := range lists {
		for _, id := range list {
			if id > 0 && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// LastPage is the number of the final page, at least 1.
func (p Page[T]) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// From is the 1-based position of the first item on the page, or 0 when
// the page is empty.
func (p Page[T]) From() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.Page-1)*p.PerPage + 1
}

// To is the 1-based position of the last item on the page, or 0 when the
// page is empty.
func (p Page[T]) To() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.From() + len(p.Items) - 1
}

func (p Page[T]) offset() int {
	return (p.Page - 1) * p.PerPage
}

// clamp bounds v to [lo, hi], using def when v is not positive.
func clamp(v, def, lo, hi int) int {
	if v <= 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
