// Package store owns every tourist, team and alert of the command center.
// It performs no locking: callers run on the command loop.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/mr1hm/safetrek/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	tourists []*models.Tourist
	teams    []*models.Team
	alerts   []*models.Alert
}

func New(tourists []*models.Tourist, teams []*models.Team) *Store {
	return &Store{
		tourists: tourists,
		teams:    teams,
	}
}

// TouristFilter is what the view sends for list queries. An empty Status or
// "all" matches every status; Search is a case-insensitive name substring.
type TouristFilter struct {
	Status models.TouristStatus
	Search string
}

// AllStatuses is the filter value that matches every status.
const AllStatuses models.TouristStatus = "all"

func (f TouristFilter) Match(t *models.Tourist) bool {
	if f.Status != "" && f.Status != AllStatuses && t.Status != f.Status {
		return false
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		return strings.Contains(strings.ToLower(t.Name), strings.ToLower(term))
	}
	return true
}

type TeamFilter struct {
	Status models.TeamStatus
}

func (f TeamFilter) Match(t *models.Team) bool {
	return f.Status == "" || t.Status == f.Status
}

// Select returns the items matching pred, preserving order.
func Select[T any](items []*T, pred func(*T) bool) []*T {
	out := make([]*T, 0, len(items))
	for _, item := range items {
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

func find[T any](items []*T, match func(*T) bool) (*T, bool) {
	for _, item := range items {
		if match(item) {
			return item, true
		}
	}
	return nil, false
}

func (s *Store) FindTourist(id string) (*models.Tourist, bool) {
	return find(s.tourists, func(t *models.Tourist) bool { return t.ID == id })
}

func (s *Store) FindTeam(id string) (*models.Team, bool) {
	return find(s.teams, func(t *models.Team) bool { return t.ID == id })
}

func (s *Store) FindAlert(id string) (*models.Alert, bool) {
	return find(s.alerts, func(a *models.Alert) bool { return a.ID == id })
}

func (s *Store) FindAlertForTourist(touristID string) (*models.Alert, bool) {
	return find(s.alerts, func(a *models.Alert) bool { return a.TouristID == touristID })
}

func (s *Store) Tourists() []*models.Tourist { return s.tourists }
func (s *Store) Teams() []*models.Team { return s.teams }
func (s *Store) Alerts() []*models.Alert { return s.alerts }

func (s *Store) ListTourists(f TouristFilter) []*models.Tourist {
	return Select(s.tourists, f.Match)
}

func (s *Store) ListTeams(f TeamFilter) []*models.Team {
	return Select(s.teams, f.Match)
}

func (s *Store) AddAlert(a *models.Alert) {
	s.alerts = append(s.alerts, a)
}

// RemoveAlerts drops every alert for which drop returns true and reports how
// many went away.
func (s *Store) RemoveAlerts(drop func(*models.Alert) bool) int {
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if !drop(a) {
			kept = append(kept, a)
		}
	}
	removed := len(s.alerts) - len(kept)
	clear(s.alerts[len(kept):])
	s.alerts = kept
	return removed
}

// Snapshot copies the collections so observers never share memory with the store.
func (s *Store) Snapshot(now time.Time) models.Snapshot {
	snap := models.Snapshot{
		Tourists: make([]models.Tourist, len(s.tourists)),
		Teams:    make([]models.Team, len(s.teams)),
		Alerts:   make([]models.Alert, len(s.alerts)),
		TakenAt:  now,
	}
	for i, t := range s.tourists {
		snap.Tourists[i] = *t
	}
	for i, t := range s.teams {
		snap.Teams[i] = *t
	}
	for i, a := range s.alerts {
		snap.Alerts[i] = *a
	}
	return snap
}
