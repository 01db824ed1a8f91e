// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/doipub/internal/apperr"
	"github.com/tomtom215/doipub/internal/models"
)

// MemoryStore is an in-process Store. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*models.DoiRecord
	prefixes map[string]*models.DoiPrefix
	nextID   int64
	nextPID  int64
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*models.DoiRecord),
		prefixes: make(map[string]*models.DoiPrefix),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func recordKey(prefix, suffix string) string {
	return prefix + "/" + suffix
}

func (m *MemoryStore) FindByPrefixSuffix(_ context.Context, prefix, suffix string) (*models.DoiRecord, error) {
	start := time.Now()
	m.mu.RLock()
	rec, ok := m.records[recordKey(prefix, suffix)]
	m.mu.RUnlock()
	if !ok {
		err := apperr.NotFound("DOI %s/%s not found", prefix, suffix)
		observe("memory", "find", start, err)
		return nil, err
	}
	observe("memory", "find", start, nil)
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) FindBySubject(_ context.Context, subjectID string) (*models.DoiRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *models.DoiRecord
	for _, rec := range m.records {
		if rec.SubjectID == subjectID && (found == nil || rec.ID > found.ID) {
			found = rec
		}
	}
	if found == nil {
		return nil, apperr.NotFound("no DOI minted for dataset %s", subjectID)
	}
	cp := *found
	return &cp, nil
}

func (m *MemoryStore) NextSuffixNumber(_ context.Context, prefix, tag string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	suffixes := make([]string, 0, len(m.records))
	for _, rec := range m.records {
		if rec.Prefix == prefix {
			suffixes = append(suffixes, rec.Suffix)
		}
	}
	return NextFromSuffixes(suffixes, tag), nil
}

func (m *MemoryStore) Create(_ context.Context, rec *models.DoiRecord) (*models.DoiRecord, error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(rec.Prefix, rec.Suffix)
	if _, exists := m.records[key]; exists {
		err := apperr.Conflict("DOI %s already exists", key)
		observe("memory", "create", start, err)
		return nil, err
	}

	m.nextID++
	cp := *rec
	cp.ApplyDefaults()
	cp.ID = m.nextID
	cp.CreatedAt = m.now()
	cp.ModifiedAt = cp.CreatedAt
	m.records[key] = &cp

	observe("memory", "create", start, nil)
	out := cp
	return &out, nil
}

func (m *MemoryStore) UpdateMetadata(_ context.Context, prefix, suffix, metadata string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey(prefix, suffix)]
	if !ok {
		return apperr.NotFound("DOI %s/%s not found", prefix, suffix)
	}
	rec.Metadata = metadata
	rec.ModifiedAt = m.now()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, prefix, suffix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(prefix, suffix)
	if _, ok := m.records[key]; !ok {
		return 0, nil
	}
	delete(m.records, key)
	return 1, nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]models.DoiRecord, error) {
	m.mu.RLock()
	out := make([]models.DoiRecord, 0, len(m.records))
	for _, rec := range m.records {
		if f.Prefix != "" && rec.Prefix != f.Prefix {
			continue
		}
		if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
			continue
		}
		out = append(out, *rec)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f.Offset, normalizeLimit(f.Limit)), nil
}

func (m *MemoryStore) ListPrefixes(_ context.Context) ([]models.DoiPrefix, error) {
	m.mu.RLock()
	out := make([]models.DoiPrefix, 0, len(m.prefixes))
	for _, p := range m.prefixes {
		out = append(out, *p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Prefix, out[j].Prefix) < 0 })
	return out, nil
}

func (m *MemoryStore) GetPrefix(_ context.Context, prefix string) (*models.DoiPrefix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prefixes[prefix]
	if !ok {
		return nil, apperr.NotFound("prefix %s not found", prefix)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) CreatePrefix(_ context.Context, p *models.DoiPrefix) (*models.DoiPrefix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.prefixes[p.Prefix]; exists {
		return nil, apperr.Conflict("prefix %s already exists", p.Prefix)
	}
	m.nextPID++
	cp := *p
	cp.ID = m.nextPID
	m.prefixes[p.Prefix] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prefixes[prefix]; !ok {
		return 0, nil
	}
	delete(m.prefixes, prefix)
	return 1, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
