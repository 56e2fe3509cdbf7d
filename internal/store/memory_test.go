package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

func dashboardAt(id string, ts time.Time) tank.Dashboard {
	return tank.Dashboard{ID: id, GeneratedAt: ts}
}

func TestMemoryStoreEmpty(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)

	if _, err := s.GetLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetRange(time.Time{}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	now := time.Now().UTC()

	s.SaveDashboard(dashboardAt("a", now.Add(-3*time.Minute)))
	s.SaveDashboard(dashboardAt("b", now.Add(-2*time.Minute)))
	s.SaveDashboard(dashboardAt("c", now.Add(-1*time.Minute)))

	if s.Len() != 2 {
		t.Fatalf("expected 2 dashboards, got %d", s.Len())
	}
	latest, err := s.GetLatest()
	if err != nil || latest.ID != "c" {
		t.Fatalf("expected latest c, got %q (%v)", latest.ID, err)
	}
}

func TestMemoryStoreRetentionByAgeKeepsNewest(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.SaveDashboard(dashboardAt("old", now.Add(-3*time.Hour)))
	s.SaveDashboard(dashboardAt("older-still-newest", now.Add(-2*time.Hour)))
	if s.Len() != 1 {
		t.Fatalf("expected only the newest dashboard to survive, got %d", s.Len())
	}

	s.SaveDashboard(dashboardAt("fresh", now.Add(-time.Minute)))
	latest, _ := s.GetLatest()
	if s.Len() != 1 || latest.ID != "fresh" {
		t.Fatalf("expected only fresh, got %d dashboards (latest %q)", s.Len(), latest.ID)
	}
}

func TestMemoryStoreGetRangeInclusive(t *testing.T) {
	s := NewMemoryStore(0, 0)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		s.SaveDashboard(dashboardAt(id, t0.Add(time.Duration(i)*time.Hour)))
	}

	got, err := s.GetRange(t0.Add(time.Hour), t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected range result %+v", got)
	}

	if _, err := s.GetRange(t0.Add(10*time.Hour), t0.Add(11*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty range, got %v", err)
	}
}
