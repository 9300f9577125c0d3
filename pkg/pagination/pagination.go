// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested (query string or the
// `options` block of a list body) and how the resulting metadata is delivered
// in the `paginator` block of the response envelope.
package pagination

import (
	"net/http"

	"github.com/taibuivan/toeic/pkg/convert"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 10
	// MaxLimit is the upper bound for items per page to prevent system abuse.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the parsed page and limit of a list request.
type Params struct {
	Page  int
	Limit int
}

// New clamps page and limit into the accepted ranges.
//
// # Clamping
//
// Invalid, negative, or excessive values fall back to [DefaultPage],
// [DefaultLimit], or [MaxLimit].
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset returns the SQL OFFSET value derived from [Page] and [Limit].
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	ItemCount   int  `json:"itemCount"`
	PerPage     int  `json:"perPage"`
	PageCount   int  `json:"pageCount"`
	CurrentPage int  `json:"currentPage"`
	SlNo        int  `json:"slNo"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	Prev        *int `json:"prev"`
	Next        *int `json:"next"`
}

// NewMeta constructs pagination metadata for a response.
//
// It derives the page count, the serial number of the first item on the page
// and the neighbouring page numbers from the total count.
func NewMeta(params Params, total int) Meta {
	pageCount := 0
	if params.Limit > 0 {
		pageCount = (total + params.Limit - 1) / params.Limit
	}

	meta := Meta{
		ItemCount:   total,
		PerPage:     params.Limit,
		PageCount:   pageCount,
		CurrentPage: params.Page,
		SlNo:        params.Offset() + 1,
		HasPrevPage: params.Page > 1,
		HasNextPage: params.Page < pageCount,
	}

	if meta.HasPrevPage {
		prev := params.Page - 1
		meta.Prev = &prev
	}
	if meta.HasNextPage {
		next := params.Page + 1
		meta.Next = &next
	}
	return meta
}

// FromRequest parses "page" and "limit" query parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	query := r.URL.Query()
	return New(
		convert.ToIntD(query.Get("page"), DefaultPage),
		convert.ToIntD(query.Get("limit"), DefaultLimit),
	)
}
