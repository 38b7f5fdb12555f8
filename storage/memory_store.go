package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"amazon-scraper/models"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	listings  map[string]map[string]*models.Listing
	indexed   map[string]bool
	schedules map[string]*models.Schedule
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings:  make(map[string]map[string]*models.Listing),
		indexed:   make(map[string]bool),
		schedules: make(map[string]*models.Schedule),
	}
}

func (m *MemoryStore) EnsureIndexes(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed[collection] = true
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, collection string, l *models.Listing) error {
	if err := ValidateListing(l); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.listings[collection]
	if !ok {
		coll = make(map[string]*models.Listing)
		m.listings[collection] = coll
	}
	cp := *l
	cp.Tags = append([]string(nil), l.Tags...)
	coll[l.ID] = &cp
	return nil
}

func (m *MemoryStore) FetchListings(_ context.Context, collection string) ([]*models.Listing, error) {
	return m.Listings(collection), nil
}

// Listings returns the stored listings of collection ordered by asin.
func (m *MemoryStore) Listings(collection string) []*models.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Listing, 0, len(m.listings[collection]))
	for _, l := range m.listings[collection] {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Indexed reports whether EnsureIndexes was called for collection.
func (m *MemoryStore) Indexed(collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexed[collection]
}

func (m *MemoryStore) ListIdle(_ context.Context) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Schedule
	for _, s := range m.schedules {
		if !s.IsRunning {
			out = append(out, copySchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return false, ErrScheduleNotFound
	}
	if s.IsRunning {
		return false, nil
	}
	s.IsRunning = true
	s.Status = models.StatusActive
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, id string) error {
	return m.finish(id, models.StatusIdle, nil)
}

func (m *MemoryStore) Complete(_ context.Context, id string, at time.Time) error {
	return m.finish(id, models.StatusComplete, &at)
}

func (m *MemoryStore) Fail(_ context.Context, id string) error {
	return m.finish(id, models.StatusFailed, nil)
}

func (m *MemoryStore) ResetRunning(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.schedules {
		if s.IsRunning {
			s.IsRunning = false
			s.Status = models.StatusFailed
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) finish(id string, status models.ScheduleStatus, lastRun *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	s.IsRunning = false
	s.Status = status
	if lastRun != nil {
		at := *lastRun
		s.LastRun = &at
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, s *models.Schedule) (*models.Schedule, error) {
	created := newSchedule(s)
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[created.ID] = created
	return copySchedule(created), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, copySchedule(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return copySchedule(s), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copySchedule(s *models.Schedule) *models.Schedule {
	cp := *s
	if s.LastRun != nil {
		at := *s.LastRun
		cp.LastRun = &at
	}
	if s.Categories != nil {
		cp.Categories = make(map[string]string, len(s.Categories))
		for k, v := range s.Categories {
			cp.Categories[k] = v
		}
	}
	return &cp
}
