// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sebencms/internal/models"
)

// FlowStore manages chatbot flows in the database.
type FlowStore struct {
	db *sql.DB
}

// NewFlowStore returns a new FlowStore.
func NewFlowStore(db *sql.DB) *FlowStore {
	return &FlowStore{db: db}
}

// ActiveSteps returns the steps of the first active flow, or nil when no
// flow is active.
func (s *FlowStore) ActiveSteps(ctx context.Context) ([]models.FlowStep, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT steps FROM chatbot_flows WHERE is_active = TRUE ORDER BY id LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active flow: %w", err)
	}

	steps := []models.FlowStep{}
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("decode flow steps: %w", err)
	}
	return steps, nil
}

// Upsert creates or replaces the flow stored under key.
func (s *FlowStore) Upsert(ctx context.Context, key string, steps []models.FlowStep, active bool) (*models.ChatbotFlow, error) {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode flow steps: %w", err)
	}

	f := &models.ChatbotFlow{Key: key, Steps: steps, IsActive: active}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO chatbot_flows (key, steps, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET steps = EXCLUDED.steps, is_active = EXCLUDED.is_active, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		key, string(encoded), active,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert flow %q: %w", key, err)
	}
	return f, nil
}
