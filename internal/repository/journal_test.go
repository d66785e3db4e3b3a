package repository

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/models"
)

func TestJournal_RecordsLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := NewJournal(db, 1, 8)
	j.Start(ctx)

	now := time.Now()
	view := &emergency.View{
		ID:        "s1",
		State:     emergency.StateOpenNoTeam,
		Alert:     models.Alert{ID: "alert_t1", Message: "Alice - Critical status detected"},
		Tourist:   models.Tourist{ID: "t1"},
		StartTime: now,
	}
	j.SessionChanged(view)

	// selection and close produce no records
	selected := *view
	selected.State = emergency.StateOpenTeamSelected
	j.SessionChanged(&selected)
	j.SessionChanged(nil)

	j.TeamDispatched(emergency.DispatchEvent{
		SessionID:   "s1",
		AlertID:     "alert_t1",
		TouristID:   "t1",
		TouristName: "Alice",
		TeamID:      "team1",
		TeamName:    "Alpha",
		ETA:         5 * time.Minute,
		At:          now.Add(time.Second),
	})
	j.Escalated(emergency.EscalationEvent{SessionID: "s2", AlertID: "alert_t2", TouristID: "t2", At: now.Add(2 * time.Second)})

	// Stop drains the queue
	j.Stop()

	results, err := db.ListIncidents(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 incidents, got %d", len(results))
	}

	kinds := map[models.IncidentKind]models.IncidentRecord{}
	for _, r := range results {
		if r.ID == "" {
			t.Error("expected incident to have an id")
		}
		kinds[r.Kind] = r
	}
	if got := kinds[models.IncidentEmergencyOpened].TouristID; got != "t1" {
		t.Errorf("expected opened incident for t1, got '%s'", got)
	}
	if got := kinds[models.IncidentTeamDispatched].Message; got != "Alpha dispatched to Alice - ETA: 5 min" {
		t.Errorf("unexpected dispatch message '%s'", got)
	}
	if got := kinds[models.IncidentEscalated].SessionID; got != "s2" {
		t.Errorf("expected escalated session s2, got '%s'", got)
	}
}

func TestJournal_DropsWhenStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := setupTestDB(t)
	defer db.Close()

	j := NewJournal(db, 1, 1)
	j.Start(context.Background())
	j.Stop()

	j.Escalated(emergency.EscalationEvent{SessionID: "s1", At: time.Now()})

	results, err := db.ListIncidents(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no incidents after stop, got %d", len(results))
	}
}
