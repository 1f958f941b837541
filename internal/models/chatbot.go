// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"
)

// FlowStep is one scripted chatbot question.
type FlowStep struct {
	Key         string `json:"key"`
	Question    string `json:"question"`
	Placeholder string `json:"placeholder"`
	Type        string `json:"type"`
	IsButton    bool   `json:"is_button,omitempty"`
}

// ChatbotFlow is a stored question script. Only an active flow is served.
type ChatbotFlow struct {
	ID        int64      `json:"id"`
	Key       string     `json:"key"`
	Steps     []FlowStep `json:"steps"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LeadStatus is the state of a lead. in_progress is the initial state and
// submitted is terminal.
type LeadStatus string

const (
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusSubmitted  LeadStatus = "submitted"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	return s == LeadStatusInProgress || s == LeadStatusSubmitted
}

// LeadMeta is captured from the request that created the lead.
type LeadMeta struct {
	IP  string          `json:"ip"`
	UA  string          `json:"ua"`
	UTM json.RawMessage `json:"utm"`
}

// Contact fields mirrored from the answer map into their own columns.
var contactFields = []string{"name", "phone", "email"}

// ChatbotLead is a prospective contact assembled from chatbot answers.
type ChatbotLead struct {
	ID            int64             `json:"id"`
	Name          *string           `json:"name"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	Answers       map[string]string `json:"answers"`
	Meta          *LeadMeta         `json:"meta,omitempty"`
	Status        LeadStatus        `json:"status"`
	MessagesCount int               `json:"messages_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	Messages []ChatbotMessage `json:"messages,omitempty"`
}

// NewLead returns an empty in-progress lead.
func NewLead(meta LeadMeta) *ChatbotLead {
	return &ChatbotLead{
		Answers: map[string]string{},
		Meta:    &meta,
		Status:  LeadStatusInProgress,
	}
}

// RecordAnswer stores a single step answer and mirrors it into the contact
// column when the field is name, phone or email.
func (l *ChatbotLead) RecordAnswer(field, value string) {
	if l.Answers == nil {
		l.Answers = map[string]string{}
	}
	l.Answers[field] = value
	l.setContact(field, value)
}

// Complete marks the lead submitted. Supplied answers are merged over the
// existing ones, new values winning, and non-empty contact answers are
// mirrored again.
func (l *ChatbotLead) Complete(answers map[string]string) {
	l.Status = LeadStatusSubmitted
	if answers == nil {
		return
	}
	if l.Answers == nil {
		l.Answers = map[string]string{}
	}
	for k, v := range answers {
		l.Answers[k] = v
	}
	for _, field := range contactFields {
		if v := l.Answers[field]; v != "" {
			l.setContact(field, v)
		}
	}
}

func (l *ChatbotLead) setContact(field, value string) {
	v := value
	switch field {
	case "name":
		l.Name = &v
	case "phone":
		l.Phone = &v
	case "email":
		l.Email = &v
	}
}

// MessageDirection says who authored a transcript message.
type MessageDirection string

const (
	DirectionBot  MessageDirection = "bot"
	DirectionUser MessageDirection = "user"
)

// DirectionOf maps a client transcript entry type to a direction. Only the
// exact tag "user" is a user message.
func DirectionOf(entryType string) MessageDirection {
	if entryType == "user" {
		return DirectionUser
	}
	return DirectionBot
}

// ChatbotMessage is one append-only transcript line.
type ChatbotMessage struct {
	ID        int64            `json:"id"`
	LeadID    int64            `json:"-"`
	Direction MessageDirection `json:"type"`
	Content   string           `json:"content"`
	StepKey   *string          `json:"step_key"`
	IP        *string          `json:"-"`
	UA        *string          `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// TranscriptEntry is a message as sent by the chat widget on completion.
type TranscriptEntry struct {
	Type    string  `json:"type"`
	Content string  `json:"content"`
	StepKey *string `json:"step_key"`
}
