// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sebencms/internal/models"
)

// LeadTx is the set of lead writes available inside one transaction.
type LeadTx interface {
	// Lead returns the lead with id locked for update, or nil when absent.
	Lead(ctx context.Context, id int64) (*models.ChatbotLead, error)
	CreateLead(ctx context.Context, l *models.ChatbotLead) error
	SaveLead(ctx context.Context, l *models.ChatbotLead) error
	AppendMessage(ctx context.Context, m *models.ChatbotMessage) error
}

// LeadRepo runs fn in a transaction, committing when it returns nil.
type LeadRepo interface {
	WithinTx(ctx context.Context, fn func(LeadTx) error) error
}

// FlowSource yields the steps of the active flow, or nil when none is stored.
type FlowSource interface {
	ActiveSteps(ctx context.Context) ([]models.FlowStep, error)
}

// SaveLeadRequest is one chat widget submission. Field and Value carry a
// single answer; Completed finishes the lead with optional full Answers and
// the Messages transcript.
type SaveLeadRequest struct {
	LeadID    int64                    `json:"lead_id"`
	Field     string                   `json:"field"`
	Value     string                   `json:"value"`
	Completed bool                     `json:"completed"`
	Answers   map[string]string        `json:"answers"`
	Messages  []models.TranscriptEntry `json:"messages"`
	UTM       json.RawMessage          `json:"utm"`
}

// UnmarshalJSON reads a submission leniently: lead_id may be a numeric
// string, and value and answers may hold numbers or booleans, which are
// kept as their literal text.
func (r *SaveLeadRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		LeadID    models.FlexInt               `json:"lead_id"`
		Field     models.FlexString            `json:"field"`
		Value     models.FlexString            `json:"value"`
		Completed models.FlexBool              `json:"completed"`
		Answers   map[string]models.FlexString `json:"answers"`
		Messages  []models.TranscriptEntry     `json:"messages"`
		UTM       json.RawMessage              `json:"utm"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = SaveLeadRequest{
		LeadID:    int64(wire.LeadID),
		Field:     string(wire.Field),
		Value:     string(wire.Value),
		Completed: bool(wire.Completed),
		Messages:  wire.Messages,
		UTM:       wire.UTM,
	}
	if wire.Answers != nil {
		r.Answers = make(map[string]string, len(wire.Answers))
		for k, v := range wire.Answers {
			r.Answers[k] = string(v)
		}
	}
	return nil
}

// Client identifies the caller of a submission.
type Client struct {
	IP string
	UA string
}

// SaveLeadResult is what the widget needs to continue the conversation.
type SaveLeadResult struct {
	LeadID  int64             `json:"lead_id"`
	Status  models.LeadStatus `json:"status"`
	Answers map[string]string `json:"answers"`
}

// Service wires the flow and lead persistence together.
type Service struct {
	flows FlowSource
	leads LeadRepo
}

// NewService creates a chatbot service.
func NewService(flows FlowSource, leads LeadRepo) *Service {
	return &Service{flows: flows, leads: leads}
}

// Flow returns the active flow's steps, or the built-in steps when no flow
// is active.
func (s *Service) Flow(ctx context.Context) ([]models.FlowStep, error) {
	steps, err := s.flows.ActiveSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	if steps == nil {
		return DefaultSteps(), nil
	}
	return steps, nil
}

// SaveLead starts or resumes a lead, records an optional single answer and
// an optional completion. The answer is validated before anything is
// written; every write of one call shares a transaction.
func (s *Service) SaveLead(ctx context.Context, req SaveLeadRequest, c Client) (*SaveLeadResult, error) {
	field := strings.TrimSpace(req.Field)
	if field != "" {
		if err := ValidateField(field, req.Value); err != nil {
			return nil, err
		}
	}

	var result *SaveLeadResult
	err := s.leads.WithinTx(ctx, func(tx LeadTx) error {
		var lead *models.ChatbotLead
		if req.LeadID > 0 {
			l, err := tx.Lead(ctx, req.LeadID)
			if err != nil {
				return err
			}
			lead = l
		}
		if lead == nil {
			utm := req.UTM
			if len(utm) == 0 || string(utm) == "null" {
				utm = json.RawMessage(`{}`)
			}
			lead = models.NewLead(models.LeadMeta{IP: c.IP, UA: c.UA, UTM: utm})
			if err := tx.CreateLead(ctx, lead); err != nil {
				return err
			}
		}

		if field != "" {
			lead.RecordAnswer(field, req.Value)
			if err := tx.SaveLead(ctx, lead); err != nil {
				return err
			}
			key := field
			if err := tx.AppendMessage(ctx, message(lead.ID, models.DirectionUser, req.Value, &key, c)); err != nil {
				return err
			}
		}

		if req.Completed {
			lead.Complete(req.Answers)
			if err := tx.SaveLead(ctx, lead); err != nil {
				return err
			}
			for _, m := range req.Messages {
				msg := message(lead.ID, models.DirectionOf(m.Type), m.Content, m.StepKey, c)
				if err := tx.AppendMessage(ctx, msg); err != nil {
					return err
				}
			}
		}

		answers := lead.Answers
		if answers == nil {
			answers = map[string]string{}
		}
		result = &SaveLeadResult{LeadID: lead.ID, Status: lead.Status, Answers: answers}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}
	return result, nil
}

func message(leadID int64, dir models.MessageDirection, content string, stepKey *string, c Client) *models.ChatbotMessage {
	m := &models.ChatbotMessage{
		LeadID:    leadID,
		Direction: dir,
		Content:   content,
		StepKey:   stepKey,
	}
	if c.IP != "" {
		ip := c.IP
		m.IP = &ip
	}
	ua := c.UA
	m.UA = &ua
	return m
}
