package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

var (
	// ErrNotFound is returned when no dashboard has been generated yet, or none
	// falls into the requested range.
	ErrNotFound = errors.New("no dashboard data")
)

// MemoryStore is a concurrency-safe in-memory history of generated dashboards.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by GeneratedAt ascending
	dashboards []tank.Dashboard

	// retention configuration
	maxHistory int           // max number of dashboards kept
	maxAge     time.Duration // optional max age of dashboards

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveDashboard appends a dashboard and enforces retention. The newest
// dashboard is always kept, whatever its age.
func (s *MemoryStore) SaveDashboard(d tank.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dashboards = append(s.dashboards, d)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.dashboards) > s.maxHistory {
		over := len(s.dashboards) - s.maxHistory
		s.dashboards = append([]tank.Dashboard(nil), s.dashboards[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.dashboards)-1; i++ {
			if !s.dashboards[i].GeneratedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.dashboards = append([]tank.Dashboard(nil), s.dashboards[i:]...)
		}
	}
}

// GetLatest returns the most recent dashboard.
func (s *MemoryStore) GetLatest() (tank.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.dashboards) == 0 {
		return tank.Dashboard{}, ErrNotFound
	}
	return s.dashboards[len(s.dashboards)-1], nil
}

// GetRange returns all dashboards generated between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]tank.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []tank.Dashboard
	for _, d := range s.dashboards {
		if !d.GeneratedAt.Before(from) && !d.GeneratedAt.After(to) {
			result = append(result, d)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports how many dashboards are retained.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dashboards)
}
