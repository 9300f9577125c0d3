// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field-level rule failures and turns them into a
// single [apperr.AppError].
//
// Services build one [Validator] per operation, chain the rules and finish
// with either [Validator.Err] (VALIDATION_ERROR) or [Validator.Insufficient]
// (BAD_REQUEST, used when a parameter is simply missing).
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/pkg/uuid"
)

// ErrInvalidJSON is returned when a request body cannot be decoded.
var ErrInvalidJSON = apperr.BadRequest("Invalid JSON payload")

// Validator accumulates [apperr.FieldError] values. It is not safe for
// concurrent use.
type Validator struct {
	failures []apperr.FieldError
}

// # Rules

// Required fails when value is empty after trimming whitespace.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(field, strings.TrimSpace(value) == "", "This field is required")
}

// MaxLen fails when value has more than limit characters.
func (v *Validator) MaxLen(field, value string, limit int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) > limit, fmt.Sprintf("Maximum %d characters", limit))
}

// MinLen fails when value has fewer than limit characters.
func (v *Validator) MinLen(field, value string, limit int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) < limit, fmt.Sprintf("Minimum %d characters", limit))
}

// Email fails unless value is a bare address such as "karli@toeic.app".
// Display-name forms ("Karli <karli@toeic.app>") are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	return v.Custom(field, err != nil || address.Address != value, "Must be a valid email address")
}

// UUID fails unless value parses as a hyphenated UUID of any version.
func (v *Validator) UUID(field, value string) *Validator {
	return v.Custom(field, !uuid.Valid(value), "Must be a valid UUID")
}

// Custom records message against field when failed is true.
//
//	v.Custom("data[0].title", title == "", "This field is required")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.failures = append(v.failures, apperr.FieldError{Field: field, Message: message})
	}
	return v
}

// # Results

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.failures) > 0
}

// Err returns a VALIDATION_ERROR carrying every failure, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.failures...)
}

// Insufficient returns a BAD_REQUEST naming the first failed field, or nil.
func (v *Validator) Insufficient() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.BadRequest("Insufficient request parameters! "+v.failures[0].Field+" is required.", v.failures...)
}
