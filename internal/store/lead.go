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
	"strings"

	"sebencms/internal/chatbot"
	"sebencms/internal/models"
)

// Lead listing page size bounds.
const (
	LeadsPerPageDefault = 20
	LeadsPerPageMin     = 5
	LeadsPerPageMax     = 100
)

// LeadFilter narrows a lead listing. Dates are calendar days (YYYY-MM-DD)
// and both ends are inclusive.
type LeadFilter struct {
	Query    string
	Status   string
	DateFrom string
	DateTo   string
	Sort     string
	Page     int
	PerPage  int
}

// leadSorts maps accepted sort keys onto ORDER BY clauses.
var leadSorts = map[string]string{
	"-id":         "l.id DESC",
	"-created_at": "l.created_at DESC",
	"created_at":  "l.created_at ASC",
	"name":        "l.name ASC, l.id DESC",
}

// LeadStore manages chatbot leads and their transcripts.
type LeadStore struct {
	db *sql.DB
}

// NewLeadStore returns a new LeadStore.
func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

const leadColumns = `l.id, l.name, l.phone, l.email, l.answers, l.meta, l.status, l.created_at, l.updated_at,
	(SELECT COUNT(*) FROM chatbot_messages m WHERE m.lead_id = l.id)`

func scanLead(s scanner, withMeta bool) (*models.ChatbotLead, error) {
	var l models.ChatbotLead
	var answers, meta []byte
	err := s.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &answers, &meta, &l.Status,
		&l.CreatedAt, &l.UpdatedAt, &l.MessagesCount,
	)
	if err != nil {
		return nil, err
	}
	l.Answers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &l.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of lead %d: %w", l.ID, err)
		}
		if l.Answers == nil {
			l.Answers = map[string]string{}
		}
	}
	if withMeta && len(meta) > 0 {
		var m models.LeadMeta
		if err := json.Unmarshal(meta, &m); err != nil {
			return nil, fmt.Errorf("decode meta of lead %d: %w", l.ID, err)
		}
		l.Meta = &m
	}
	return &l, nil
}

// List returns one page of leads matching f, each with its message count.
func (s *LeadStore) List(ctx context.Context, f LeadFilter) (Page[models.ChatbotLead], error) {
	page := Page[models.ChatbotLead]{
		Page:    max(f.Page, 1),
		PerPage: clamp(f.PerPage, LeadsPerPageDefault, LeadsPerPageMin, LeadsPerPageMax),
	}

	var a args
	var where []string
	if st := models.LeadStatus(f.Status); st.Valid() {
		where = append(where, "l.status = "+a.add(string(st)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := a.add(likePattern(q))
		where = append(where, fmt.Sprintf(
			"(l.name ILIKE %[1]s OR l.email ILIKE %[1]s OR l.phone ILIKE %[1]s OR l.answers::text ILIKE %[1]s)", p))
	}
	if f.DateFrom != "" {
		where = append(where, "l.created_at::date >= "+a.add(f.DateFrom)+"::date")
	}
	if f.DateTo != "" {
		where = append(where, "l.created_at::date <= "+a.add(f.DateTo)+"::date")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chatbot_leads l`+cond, a.values...,
	).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count leads: %w", err)
	}

	order, ok := leadSorts[f.Sort]
	if !ok {
		order = leadSorts["-id"]
	}
	limit := a.add(page.PerPage)
	offset := a.add(page.offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM chatbot_leads l`+cond+
			` ORDER BY `+order+` LIMIT `+limit+` OFFSET `+offset,
		a.values...,
	)
	if err != nil {
		return page, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	page.Items = []models.ChatbotLead{}
	for rows.Next() {
		l, err := scanLead(rows, false)
		if err != nil {
			return page, fmt.Errorf("scan lead: %w", err)
		}
		page.Items = append(page.Items, *l)
	}
	return page, rows.Err()
}

// FindByID retrieves a lead with its meta and message count.
func (s *LeadStore) FindByID(ctx context.Context, id int64) (*models.ChatbotLead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM chatbot_leads l WHERE l.id = $1`, id)
	l, err := scanLead(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead by id: %w", err)
	}
	return l, nil
}

// Messages returns the transcript of a lead in the order it was written.
func (s *LeadStore) Messages(ctx context.Context, leadID int64) ([]models.ChatbotMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, direction, content, step_key, created_at
		FROM chatbot_messages
		WHERE lead_id = $1
		ORDER BY created_at, id`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ChatbotMessage{}
	for rows.Next() {
		var m models.ChatbotMessage
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Direction, &m.Content, &m.StepKey, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// WithinTx runs fn in a transaction over the lead tables.
func (s *LeadStore) WithinTx(ctx context.Context, fn func(chatbot.LeadTx) error) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(leadTx{q: tx})
	})
}

// leadTx implements chatbot.LeadTx on top of one transaction.
type leadTx struct {
	q querier
}

func (t leadTx) Lead(ctx context.Context, id int64) (*models.ChatbotLead, error) {
	row := t.q.QueryRowContext(ctx, `
		SELECT l.id, l.name, l.phone, l.email, l.answers, l.meta, l.status, l.created_at, l.updated_at, 0
		FROM chatbot_leads l WHERE l.id = $1 FOR UPDATE`, id)
	l, err := scanLead(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock lead %d: %w", id, err)
	}
	return l, nil
}

func (t leadTx) CreateLead(ctx context.Context, l *models.ChatbotLead) error {
	answers, meta, err := encodeLead(l)
	if err != nil {
		return err
	}
	err = t.q.QueryRowContext(ctx, `
		INSERT INTO chatbot_leads (name, phone, email, answers, meta, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		l.Name, l.Phone, l.Email, answers, meta, string(l.Status),
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (t leadTx) SaveLead(ctx context.Context, l *models.ChatbotLead) error {
	answers, _, err := encodeLead(l)
	if err != nil {
		return err
	}
	err = t.q.QueryRowContext(ctx, `
		UPDATE chatbot_leads
		SET name = $1, phone = $2, email = $3, answers = $4, status = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`,
		l.Name, l.Phone, l.Email, answers, string(l.Status), l.ID,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save lead %d: %w", l.ID, err)
	}
	return nil
}

func (t leadTx) AppendMessage(ctx context.Context, m *models.ChatbotMessage) error {
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO chatbot_messages (lead_id, direction, content, step_key, ip, ua)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		m.LeadID, string(m.Direction), m.Content, m.StepKey, m.IP, m.UA,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append lead message: %w", translate(err))
	}
	return nil
}

func encodeLead(l *models.ChatbotLead) (answers, meta any, err error) {
	a := l.Answers
	if a == nil {
		a = map[string]string{}
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return nil, nil, fmt.Errorf("encode lead answers: %w", err)
	}
	answers = string(ab)
	if l.Meta != nil {
		mb, err := json.Marshal(l.Meta)
		if err != nil {
			return nil, nil, fmt.Errorf("encode lead meta: %w", err)
		}
		meta = string(mb)
	}
	return answers, meta, nil
}
