// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"sort"
)

// # Kinds

const (
	KindExam          Kind = "exam"
	KindExamCategory  Kind = "exam_category"
	KindWord          Kind = "word"
	KindWordCategory  Kind = "word_category"
	KindWordTopic     Kind = "word_topic"
	KindGroupQuestion Kind = "group_question"
	KindQuestion      Kind = "question"
	KindResult        Kind = "result"
	KindArticle       Kind = "article"
	KindArticleCat    Kind = "article_category"
	KindCategory      Kind = "category"
	KindBanner        Kind = "banner"
	KindRole          Kind = "role"
	KindProjectRoute  Kind = "project_route"
	KindRouteRole     Kind = "route_role"
	KindUserRole      Kind = "user_role"
)

// Dependent is a kind whose documents reference a parent through Field.
type Dependent struct {
	Kind  Kind
	Field string
}

// Spec describes the rules attached to a kind.
type Spec struct {
	// Required keys must be present and non-empty on create and full update.
	Required []string

	// References hold ids of other records and must be UUIDs when set.
	References []string

	// ClientWritable kinds accept writes from the client and device platforms.
	ClientWritable bool

	// Dependents follow a document of this kind on (soft) deletion.
	Dependents []Dependent
}

var registry = map[Kind]Spec{
	KindExam: {
		References: []string{"category"},
	},
	KindExamCategory: {
		Required:   []string{"name"},
		Dependents: []Dependent{{Kind: KindExam, Field: "category"}},
	},
	KindWord: {
		Required:   []string{"word"},
		References: []string{"category", "topic"},
	},
	KindWordCategory: {Required: []string{"name"}},
	KindWordTopic:    {Required: []string{"name"}},
	KindGroupQuestion: {
		References: []string{"exam"},
	},
	KindQuestion: {},
	KindResult: {
		References:     []string{"user", "exam"},
		ClientWritable: true,
	},
	KindArticle: {
		Required:   []string{"title"},
		References: []string{"category"},
	},
	KindArticleCat: {
		Required:   []string{"name"},
		Dependents: []Dependent{{Kind: KindArticle, Field: "category"}},
	},
	KindCategory: {
		Required:   []string{"name"},
		References: []string{"parentCategoryId"},
		Dependents: []Dependent{{Kind: KindCategory, Field: "parentCategoryId"}},
	},
	KindBanner: {},
	KindRole: {
		Required: []string{"name", "code"},
		Dependents: []Dependent{
			{Kind: KindRouteRole, Field: "roleId"},
			{Kind: KindUserRole, Field: "roleId"},
		},
	},
	KindProjectRoute: {
		Required:   []string{"route_name", "method"},
		Dependents: []Dependent{{Kind: KindRouteRole, Field: "routeId"}},
	},
	KindRouteRole: {
		Required:   []string{"roleId", "routeId"},
		References: []string{"roleId", "routeId"},
	},
	KindUserRole: {
		Required:   []string{"userId", "roleId"},
		References: []string{"userId", "roleId"},
	},
}

// Lookup resolves a path segment into a known kind.
func Lookup(raw string) (Kind, Spec, bool) {
	kind := Kind(raw)
	spec, ok := registry[kind]
	return kind, spec, ok
}

// Kinds returns every registered kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// # User Cascade

// UserReference is a kind that points at identities through Field.
type UserReference struct {
	Kind  Kind
	Field string
}

// userReferences lists the payload fields (beyond addedBy/updatedBy) that
// follow an identity on deletion.
var userReferences = []UserReference{
	{Kind: KindUserRole, Field: "userId"},
}
