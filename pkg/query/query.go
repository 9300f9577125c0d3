// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued query parameters such as ?ids=a,b,c.
package query

import "strings"

// StringSlice splits a comma-separated value, trimming entries and dropping
// blanks and repeats. It returns nil when nothing is left.
func StringSlice(value string) []string {
	var (
		result []string
		seen   = make(map[string]struct{})
	)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		result = append(result, part)
	}
	return result
}
