// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sebencms/internal/chatbot"
	"sebencms/internal/metrics"
	"sebencms/internal/middleware"
	"sebencms/internal/models"
	"sebencms/internal/store"
)

// ChatbotService runs the chat flow and records leads.
type ChatbotService interface {
	Flow(ctx context.Context) ([]models.FlowStep, error)
	SaveLead(ctx context.Context, req chatbot.SaveLeadRequest, c chatbot.Client) (*chatbot.SaveLeadResult, error)
}

// LeadRepository is the read side of lead storage.
type LeadRepository interface {
	List(ctx context.Context, f store.LeadFilter) (store.Page[models.ChatbotLead], error)
	FindByID(ctx context.Context, id int64) (*models.ChatbotLead, error)
	Messages(ctx context.Context, leadID int64) ([]models.ChatbotMessage, error)
}

// Chatbot serves the chat widget and the lead inbox.
type Chatbot struct {
	service ChatbotService
	leads   LeadRepository
}

// NewChatbot creates the chatbot handler group.
func NewChatbot(service ChatbotService, leads LeadRepository) *Chatbot {
	return &Chatbot{service: service, leads: leads}
}

// Flow returns the steps the widget should ask.
func (c *Chatbot) Flow(w http.ResponseWriter, r *http.Request) {
	steps, err := c.service.Flow(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"steps": steps})
}

// SaveLead records one answer and/or completes a lead.
func (c *Chatbot) SaveLead(w http.ResponseWriter, r *http.Request) {
	var req chatbot.SaveLeadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err, "The request body must be valid JSON.")
		return
	}

	res, err := c.service.SaveLead(r.Context(), req, chatbot.Client{
		IP: middleware.ClientIP(r),
		UA: r.UserAgent(),
	})
	if fe, ok := chatbot.AsFieldError(err); ok {
		writeValidation(w, fieldErrors{fe.Field: {fe.Message}})
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	metrics.LeadSaved(string(res.Status))
	writeData(w, http.StatusOK, res)
}

// Leads lists leads for the inbox.
func (c *Chatbot) Leads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fe := fieldErrors{}
	from, ok := parseDay(q.Get("date_from"))
	if !ok {
		fe.add("date_from", "The date from field must be a valid date.")
	}
	to, ok := parseDay(q.Get("date_to"))
	if !ok {
		fe.add("date_to", "The date to field must be a valid date.")
	}
	if len(fe) > 0 {
		writeValidation(w, fe)
		return
	}

	page, err := c.leads.List(r.Context(), store.LeadFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Status:   q.Get("status"),
		DateFrom: from,
		DateTo:   to,
		Sort:     q.Get("sort"),
		Page:     queryInt(r, "page"),
		PerPage:  queryInt(r, "per_page"),
	})
	if err != nil {
		serverError(w, r, err)
		return
	}
	writePage(w, page)
}

// leadDetail adds the transcript to a lead, present even when empty.
type leadDetail struct {
	*models.ChatbotLead
	Messages []models.ChatbotMessage `json:"messages"`
}

// ShowLead returns one lead; ?include=messages adds the transcript.
func (c *Chatbot) ShowLead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Lead not found")
		return
	}
	lead, err := c.leads.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}

	include := strings.Split(r.URL.Query().Get("include"), ",")
	if !slices.Contains(include, "messages") {
		writeData(w, http.StatusOK, lead)
		return
	}
	msgs, err := c.leads.Messages(r.Context(), lead.ID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatbotMessage{}
	}
	writeData(w, http.StatusOK, leadDetail{ChatbotLead: lead, Messages: msgs})
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day. An empty value is valid and stays empty.
func parseDay(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", true
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.Format(time.DateOnly), true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format(time.DateOnly), true
	}
	return "", false
}
