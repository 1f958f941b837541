// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package chatbot runs the lead-capture conversation: it serves the question
// flow and records answers and transcripts against a lead.
package chatbot

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"sebencms/internal/models"
)

// DefaultSteps returns the flow served when no active flow is stored.
func DefaultSteps() []models.FlowStep {
	return []models.FlowStep{
		{
			Key:         "greeting",
			Question:    "Hi! 👋 I'm Seben Assistant. Can I help you get started?",
			Placeholder: "Click 'Yes' to continue",
			Type:        "button",
			IsButton:    true,
		},
		{Key: "name", Question: "What's your name?", Placeholder: "Enter your name", Type: "text"},
		{Key: "phone", Question: "Great, {name}. What's your phone number?", Placeholder: "Enter your phone number", Type: "phone"},
		{Key: "email", Question: "Lastly, your email?", Placeholder: "Enter your email address", Type: "email"},
	}
}

// phonePattern accepts ten digit mobile numbers starting with 6 to 9.
var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// FieldError reports an answer that failed its field rule.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsFieldError returns the FieldError carried by err, if any.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var validate = validator.New()

// ValidateField checks value against the rule for field. Only email and
// phone have rules; any other field accepts free text.
func ValidateField(field, value string) error {
	switch field {
	case "email":
		if validate.Var(value, "email") != nil {
			return &FieldError{Field: "value", Message: "The value field must be a valid email address."}
		}
	case "phone":
		if !phonePattern.MatchString(value) {
			return &FieldError{Field: "value", Message: "The value field format is invalid."}
		}
	}
	return nil
}
