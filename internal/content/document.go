// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content manages the schema-light learning documents of the platform.

Every business entity (exams, words, articles, categories, results, roles and
route permissions) is stored as a [Document]: a JSONB payload tagged with its
[Kind] plus the audit and lifecycle columns shared by all kinds.

# Architecture

  - Registry: Each kind declares its required keys, its reference fields and
    the dependents that follow it on deletion (kinds.go).
  - Service: Generic create / list / count / update / delete use cases with
    synchronous cascades evaluated inside one transaction.
  - Repository: Postgres `content.document` with JSON containment filters.
*/
package content

import (
	"encoding/json"
	"time"
)

// # Domain Entities

// Kind names a document collection (e.g. "exam", "word_topic").
type Kind string

// Document is one stored business record.
type Document struct {
	ID        string
	Kind      Kind
	Data      map[string]any
	IsActive  bool
	IsDeleted bool
	AddedBy   *string
	UpdatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON flattens the payload next to the envelope columns, so clients
// read `{id, name, category, ..., isActive, createdAt}`.
func (document Document) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(document.Data)+8)
	for key, value := range document.Data {
		flat[key] = value
	}

	flat[FieldID] = document.ID
	flat[FieldIsActive] = document.IsActive
	flat[FieldIsDeleted] = document.IsDeleted
	flat[FieldAddedBy] = document.AddedBy
	flat[FieldUpdatedBy] = document.UpdatedBy
	flat[FieldCreatedAt] = document.CreatedAt
	flat[FieldUpdatedAt] = document.UpdatedAt

	return json.Marshal(flat)
}

// # Field Identifiers

// Envelope keys. They are stripped from incoming payloads and never stored in Data.
const (
	FieldID        = "id"
	FieldIsActive  = "isActive"
	FieldIsDeleted = "isDeleted"
	FieldAddedBy   = "addedBy"
	FieldUpdatedBy = "updatedBy"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// reservedFields lists the keys owned by the envelope.
var reservedFields = map[string]bool{
	FieldID: true, "_id": true, FieldIsActive: true, FieldIsDeleted: true,
	FieldAddedBy: true, FieldUpdatedBy: true, FieldCreatedAt: true, FieldUpdatedAt: true,
}

// splitPayload separates the envelope flags from the business payload.
func splitPayload(payload map[string]any) (data map[string]any, isActive *bool) {
	data = make(map[string]any, len(payload))
	for key, value := range payload {
		if key == FieldIsActive {
			if flag, ok := value.(bool); ok {
				isActive = &flag
			}
			continue
		}
		if !reservedFields[key] {
			data[key] = value
		}
	}
	return data, isActive
}

// # Cascade Reporting

// Counts reports, per kind, how many documents a delete touched (or would touch).
type Counts map[Kind]int

// Total sums every kind.
func (counts Counts) Total() int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}

// DeleteResult describes the outcome of a (soft) delete.
type DeleteResult struct {
	// Deleted is the number of root documents matched.
	Deleted int `json:"deleted"`

	// Dependents counts the cascaded documents per kind.
	Dependents Counts `json:"dependents"`

	// Warning is true when nothing was changed and the counts are a preview.
	Warning bool `json:"isWarning"`
}
