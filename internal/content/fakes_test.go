// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/apperr"
)

// # In-memory Repository

var errStoreDown = errors.New("store down")

type memoryRepository struct {
	mu        sync.Mutex
	documents map[string]*content.Document
	order     []string

	// failOn makes every write on this kind fail.
	failOn content.Kind
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{documents: make(map[string]*content.Document)}
}

func (repo *memoryRepository) snapshot() map[string]content.Document {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := make(map[string]content.Document, len(repo.documents))
	for id, document := range repo.documents {
		copied[id] = *document
	}
	return copied
}

func (repo *memoryRepository) restore(saved map[string]content.Document) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.documents = make(map[string]*content.Document, len(saved))
	for id, document := range saved {
		restored := document
		repo.documents[id] = &restored
	}
	repo.order = repo.order[:0]
	for id := range saved {
		repo.order = append(repo.order, id)
	}
	sort.Strings(repo.order)
}

func (repo *memoryRepository) get(id string) (content.Document, bool) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	document, ok := repo.documents[id]
	if !ok {
		return content.Document{}, false
	}
	return *document, true
}

func (repo *memoryRepository) WithinTx(_ context.Context, fn func(content.Repository) error) error {
	saved := repo.snapshot()
	if err := fn(repo); err != nil {
		repo.restore(saved)
		return err
	}
	return nil
}

func (repo *memoryRepository) Create(_ context.Context, documents ...*content.Document) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, document := range documents {
		if document.Kind == repo.failOn {
			return errStoreDown
		}
		copied := *document
		repo.documents[document.ID] = &copied
		repo.order = append(repo.order, document.ID)
	}
	return nil
}

func (repo *memoryRepository) FindByID(_ context.Context, kind content.Kind, id string) (*content.Document, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	document, ok := repo.documents[id]
	if !ok || document.Kind != kind || document.IsDeleted {
		return nil, apperr.RecordNotFound("Record not found with specified criteria")
	}
	copied := *document
	return &copied, nil
}

func (repo *memoryRepository) List(_ context.Context, kind content.Kind, query content.ListQuery) ([]content.Document, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var matched []content.Document
	for _, id := range repo.order {
		document, ok := repo.documents[id]
		if !ok || document.Kind != kind || (document.IsDeleted && !query.IncludeDeleted) || !contains(document.Data, query.Filter) {
			continue
		}
		matched = append(matched, *document)
	}

	if query.Paginate {
		offset := query.Page.Offset()
		if offset >= len(matched) {
			return nil, nil
		}
		end := min(offset+query.Page.Limit, len(matched))
		matched = matched[offset:end]
	}
	return matched, nil
}

func (repo *memoryRepository) Count(_ context.Context, kind content.Kind, filter map[string]any, includeDeleted bool) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	total := 0
	for _, document := range repo.documents {
		if document.Kind == kind && (includeDeleted || !document.IsDeleted) && contains(document.Data, filter) {
			total++
		}
	}
	return total, nil
}

func (repo *memoryRepository) Update(_ context.Context, kind content.Kind, id string, data map[string]any, isActive *bool, replace bool, actor *string, now time.Time) (*content.Document, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	document, ok := repo.documents[id]
	if !ok || document.Kind != kind || document.IsDeleted {
		return nil, apperr.RecordNotFound("Record not found with specified criteria")
	}

	merged := make(map[string]any, len(data))
	if !replace {
		for key, value := range document.Data {
			merged[key] = value
		}
	}
	for key, value := range data {
		merged[key] = value
	}

	document.Data = merged
	if isActive != nil {
		document.IsActive = *isActive
	}
	document.UpdatedBy = actor
	document.UpdatedAt = now

	copied := *document
	return &copied, nil
}

func (repo *memoryRepository) UpdateMany(_ context.Context, kind content.Kind, filter map[string]any, patch map[string]any, actor *string, now time.Time) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	updated := 0
	for _, document := range repo.documents {
		if document.Kind != kind || document.IsDeleted || !contains(document.Data, filter) {
			continue
		}
		merged := make(map[string]any, len(document.Data)+len(patch))
		for key, value := range document.Data {
			merged[key] = value
		}
		for key, value := range patch {
			merged[key] = value
		}
		document.Data = merged
		document.UpdatedBy = actor
		document.UpdatedAt = now
		updated++
	}
	return updated, nil
}

func (repo *memoryRepository) FindIDs(_ context.Context, kind content.Kind, selector content.Selector) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.matching(kind, selector, false), nil
}

func (repo *memoryRepository) SoftDelete(_ context.Context, kind content.Kind, selector content.Selector, actor *string, now time.Time) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if kind == repo.failOn {
		return nil, errStoreDown
	}

	ids := repo.matching(kind, selector, false)
	for _, id := range ids {
		document := repo.documents[id]
		document.IsDeleted = true
		document.IsActive = false
		document.UpdatedBy = actor
		document.UpdatedAt = now
	}
	return ids, nil
}

func (repo *memoryRepository) Delete(_ context.Context, kind content.Kind, selector content.Selector) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if kind == repo.failOn {
		return nil, errStoreDown
	}

	ids := repo.matching(kind, selector, true)
	for _, id := range ids {
		delete(repo.documents, id)
	}
	return ids, nil
}

func (repo *memoryRepository) matching(kind content.Kind, selector content.Selector, includeDeleted bool) []string {
	wanted := make(map[string]bool, len(selector.Values))
	for _, value := range selector.Values {
		wanted[value] = true
	}

	var ids []string
	for _, id := range repo.order {
		document, ok := repo.documents[id]
		if !ok || document.Kind != kind || (document.IsDeleted && !includeDeleted) {
			continue
		}
		if wanted[fieldValue(document, selector.Field)] {
			ids = append(ids, id)
		}
	}
	return ids
}

func fieldValue(document *content.Document, field string) string {
	switch field {
	case content.FieldID:
		return document.ID
	case content.FieldAddedBy:
		return deref(document.AddedBy)
	case content.FieldUpdatedBy:
		return deref(document.UpdatedBy)
	}
	if value, ok := document.Data[field]; ok && value != nil {
		return fmt.Sprint(value)
	}
	return ""
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// contains mirrors the top-level JSON containment used by Postgres.
func contains(data, filter map[string]any) bool {
	for key, want := range filter {
		if !reflect.DeepEqual(data[key], want) {
			return false
		}
	}
	return true
}
