package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
)

// MemoryRepo is an in-memory editing.Store used for tests and local runs
// without MongoDB. Each conditional transition runs under the write lock.
type MemoryRepo struct {
	kind  editing.Kind
	mu    sync.RWMutex
	store map[string]*editing.Document
}

func NewMemoryRepo(kind editing.Kind) *MemoryRepo {
	return &MemoryRepo{kind: kind, store: make(map[string]*editing.Document)}
}

func (m *MemoryRepo) Create(ctx context.Context, doc *editing.Document) (*editing.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := doc.Clone()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Kind == "" {
		d.Kind = m.kind
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	m.store[d.ID] = d
	return d.Clone(), nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*editing.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, editing.ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*editing.Document, error) {
	return m.filter(func(*editing.Document) bool { return true }), nil
}

func (m *MemoryRepo) ListLeased(ctx context.Context) ([]*editing.Document, error) {
	return m.filter(func(d *editing.Document) bool { return d.Leased() }), nil
}

func (m *MemoryRepo) filter(keep func(*editing.Document) bool) []*editing.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*editing.Document, 0, len(m.store))
	for _, d := range m.store {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryRepo) AcquireLease(ctx context.Context, id, userID string, at time.Time) (*editing.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, false, editing.ErrNotFound
	}
	if d.Leased() {
		return d.Clone(), false, nil
	}
	holder := userID
	started := at
	d.PriorityEditor = &holder
	d.PriorityEditStartedAt = &started
	return d.Clone(), true, nil
}

func (m *MemoryRepo) ReleaseLease(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return false, editing.ErrNotFound
	}
	if !d.HeldBy(userID) {
		return false, nil
	}
	d.PriorityEditor = nil
	d.PriorityEditStartedAt = nil
	return true, nil
}

func (m *MemoryRepo) SaveContent(ctx context.Context, id string, s editing.ContentSave) (*editing.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, editing.ErrNotFound
	}
	if !d.HeldBy(s.UserID) || d.Version != s.ExpectedVersion {
		return nil, editing.ErrPreconditionFailed
	}
	if d.Fields == nil {
		d.Fields = make(map[string]interface{}, len(s.Fields))
	}
	for k, v := range s.Fields {
		d.Fields[k] = v
	}
	at := s.At
	d.Version++
	d.Status = editing.StatusDraft
	d.EditedBy = s.UserID
	d.EditedAt = &at
	d.UpdatedAt = at
	d.PriorityEditor = nil
	d.PriorityEditStartedAt = nil
	return d.Clone(), nil
}

func (m *MemoryRepo) SetStatus(ctx context.Context, id string, status editing.Status, at time.Time) (*editing.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, editing.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = at
	return d.Clone(), nil
}

func (m *MemoryRepo) ClearStaleLeases(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.store {
		if d.Leased() && d.PriorityEditStartedAt != nil && d.PriorityEditStartedAt.Before(olderThan) {
			d.PriorityEditor = nil
			d.PriorityEditStartedAt = nil
			n++
		}
	}
	return n, nil
}
