// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Form clients send scalars as strings as often as not, so these types
// accept both spellings. A value that fits neither fails with a
// *json.UnmarshalTypeError, which the decoder tags with the field name.

// flexTimeLayouts are tried in order. Layouts without a zone are read as UTC.
var flexTimeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// FlexTime is a timestamp given as RFC 3339, "2006-01-02 15:04:05",
// "2006-01-02" or a datetime-local "2006-01-02T15:04". An empty string
// decodes to the zero time.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return typeError(data, reflect.TypeOf(time.Time{}))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return typeError(data, reflect.TypeOf(time.Time{}))
}

// FlexInt is an integer given as a JSON number or a numeric string. An
// empty string decodes to 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unq)
		if raw == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return typeError(data, reflect.TypeOf(0))
	}
	*n = FlexInt(v)
	return nil
}

// FlexBool is a boolean given as true/false, 1/0 or their string forms.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.ToLower(strings.TrimSpace(unq))
	}
	switch raw {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return typeError(data, reflect.TypeOf(false))
	}
	return nil
}

// FlexString is a string that also accepts a JSON number or boolean and
// keeps its literal text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return typeError(data, reflect.TypeOf(""))
		}
		*s = FlexString(v)
		return nil
	}
	switch {
	case len(data) == 0, data[0] == '{', data[0] == '[':
		return typeError(data, reflect.TypeOf(""))
	case string(data) == "null":
		*s = ""
	default:
		*s = FlexString(data)
	}
	return nil
}

func typeError(data []byte, t reflect.Type) error {
	return &json.UnmarshalTypeError{Value: string(data), Type: t}
}
