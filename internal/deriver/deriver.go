// Package deriver keeps the alert set in step with tourist status: one alert
// per tourist in danger, none for anybody else.
package deriver

import (
	"fmt"
	"time"

	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/store"
)

type Result struct {
	Created []*models.Alert
	Removed int
}

func (r Result) Changed() bool {
	return len(r.Created) > 0 || r.Removed > 0
}

// Reconcile retires alerts whose tourist is gone or no longer in danger,
// drops duplicates for the same tourist, then raises an alert for every
// tourist in danger that lacks one. Running it twice with no tourist change
// in between leaves the alert set untouched.
func Reconcile(s *store.Store, now time.Time) Result {
	var res Result

	seen := make(map[string]bool)
	res.Removed = s.RemoveAlerts(func(a *models.Alert) bool {
		t, ok := s.FindTourist(a.TouristID)
		if !ok || t.Status != models.TouristStatusDanger || seen[a.TouristID] {
			return true
		}
		seen[a.TouristID] = true
		return false
	})

	for _, t := range s.Tourists() {
		if t.Status != models.TouristStatusDanger || seen[t.ID] {
			continue
		}
		a := NewAlert(t, now)
		s.AddAlert(a)
		seen[t.ID] = true
		res.Created = append(res.Created, a)
	}

	return res
}

// NewAlert raises a HIGH emergency alert for t. The location is copied by
// value, so later movement of t leaves the alert where it was raised.
func NewAlert(t *models.Tourist, now time.Time) *models.Alert {
	return &models.Alert{
		ID:               fmt.Sprintf("alert_%s_%d", t.ID, now.UnixMilli()),
		TouristID:        t.ID,
		Type:             models.AlertTypeEmergency,
		Severity:         models.AlertSeverityHigh,
		Message:          fmt.Sprintf("%s - Critical status detected", t.Name),
		Timestamp:        now,
		Location:         t.Location,
		AutoTriggered:    true,
		EvidenceCaptured: true,
		FundsReserved:    true,
	}
}
