// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuid mints the primary keys of identities, sessions and content
// documents. Keys are UUIDv7 so B-tree inserts stay append-mostly.
package uuid

import "github.com/google/uuid"

// New returns a UUIDv7 string.
//
// It panics only when the system entropy source fails.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Valid reports whether value is a canonical hyphenated UUID.
func Valid(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
