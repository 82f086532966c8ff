package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/internal/model"
)

// MemoryCaseStore is an in-process CaseStore and ReportStore for the terminal
// client and tests.
type MemoryCaseStore struct {
	mu      sync.Mutex
	cases   map[int64]model.FinalizedCase
	reports map[int64]model.Report
	now     func() time.Time
}

func NewMemoryCaseStore() *MemoryCaseStore {
	return &MemoryCaseStore{
		cases:   make(map[int64]model.FinalizedCase),
		reports: make(map[int64]model.Report),
		now:     time.Now,
	}
}

// Create implements CaseStore. A session gets one case: creating again
// returns the id already stored for it.
func (s *MemoryCaseStore) Create(_ context.Context, c model.FinalizedCase) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.SessionID != "" {
		for existing, stored := range s.cases {
			if stored.SessionID == c.SessionID {
				return existing, nil
			}
		}
	}

	c.ID = id.New()
	if c.ReportState == "" {
		c.ReportState = model.ReportStatePending
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Conversation = append([]model.ConversationTurn(nil), c.Conversation...)
	s.cases[c.ID] = c
	return c.ID, nil
}

// GetByID implements CaseStore.
func (s *MemoryCaseStore) GetByID(_ context.Context, id int64) (model.FinalizedCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return model.FinalizedCase{}, ErrNotFound
	}
	return c, nil
}

// List implements CaseStore, newest first.
func (s *MemoryCaseStore) List(_ context.Context, limit int32) ([]model.FinalizedCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.FinalizedCase, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ClaimForReport implements CaseStore.
func (s *MemoryCaseStore) ClaimForReport(_ context.Context, id int64) (model.FinalizedCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return model.FinalizedCase{}, ErrNotFound
	}
	if c.ReportState != model.ReportStatePending && c.ReportState != model.ReportStateFailed {
		return model.FinalizedCase{}, ErrNotClaimable
	}
	c.ReportState = model.ReportStateGenerating
	c.UpdatedAt = s.now().UTC()
	s.cases[id] = c
	return c, nil
}

// SetReportState implements CaseStore.
func (s *MemoryCaseStore) SetReportState(_ context.Context, id int64, state model.ReportState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil
	}
	c.ReportState = state
	c.UpdatedAt = s.now().UTC()
	s.cases[id] = c
	return nil
}

// Reports returns a ReportStore view backed by the same memory.
func (s *MemoryCaseStore) Reports() ReportStore {
	return memoryReportStore{s}
}

type memoryReportStore struct {
	s *MemoryCaseStore
}

func (m memoryReportStore) Create(_ context.Context, r model.Report) (model.Report, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.reports[r.CaseID]; exists {
		return model.Report{}, ErrNotClaimable
	}
	r.ID = id.New()
	r.CreatedAt = m.s.now().UTC()
	m.s.reports[r.CaseID] = r
	return r, nil
}

func (m memoryReportStore) GetByCase(_ context.Context, caseID int64) (model.Report, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.reports[caseID]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return r, nil
}
