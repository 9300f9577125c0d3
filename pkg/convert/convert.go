// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert reads loosely typed query-string values.

Malformed input falls back to a default instead of failing the request, so
use it only where "absent" and "garbage" mean the same thing.
*/
package convert

import (
	"strconv"
	"strings"
)

// ToIntD parses s as a base-10 int, returning fallback when s is blank or invalid.
func ToIntD(s string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return value
}

// ToBool accepts the strconv.ParseBool spellings plus "yes"/"no".
// Anything else is false.
func ToBool(s string) bool {
	switch normalized := strings.ToLower(strings.TrimSpace(s)); normalized {
	case "yes", "y":
		return true
	case "no", "n", "":
		return false
	default:
		value, _ := strconv.ParseBool(normalized)
		return value
	}
}
