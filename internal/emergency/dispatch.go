package emergency

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/store"
)

type DispatchEvent struct {
	SessionID   string        `json:"session_id"`
	AlertID     string        `json:"alert_id"`
	TouristID   string        `json:"tourist_id"`
	TouristName string        `json:"tourist_name"`
	TeamID      string        `json:"team_id"`
	TeamName    string        `json:"team_name"`
	ETA         time.Duration `json:"eta"`
	At          time.Time     `json:"at"`
}

type EscalationEvent struct {
	SessionID string    `json:"session_id"`
	AlertID   string    `json:"alert_id"`
	TouristID string    `json:"tourist_id"`
	At        time.Time `json:"at"`
}

// Coordinator commits team assignments for the open session.
type Coordinator struct {
	store   *store.Store
	session *Session
	clock   schedule.Clock
}

func NewCoordinator(s *store.Store, session *Session, clock schedule.Clock) *Coordinator {
	return &Coordinator{
		store:   s,
		session: session,
		clock:   clock,
	}
}

// Dispatch deploys the selected team to the session's tourist and closes the
// session. The team is checked again at commit time; when it is gone or no
// longer available nothing changes and ErrStaleSelection is returned.
func (c *Coordinator) Dispatch() (DispatchEvent, error) {
	cur, ok := c.session.selection()
	if !ok {
		return DispatchEvent{}, fmt.Errorf("%w: dispatch needs a selected team (state %s)", ErrInvalidTransition, c.session.State())
	}

	team, ok := c.store.FindTeam(cur.selectedTeamID)
	if !ok {
		return DispatchEvent{}, fmt.Errorf("%w: team %s no longer exists", ErrStaleSelection, cur.selectedTeamID)
	}
	if team.Status != models.TeamStatusAvailable {
		return DispatchEvent{}, fmt.Errorf("%w: team %s is now %s", ErrStaleSelection, team.Name, team.Status)
	}

	team.Status = models.TeamStatusDeployed
	team.AssignedTouristID = cur.tourist.ID

	ev := DispatchEvent{
		SessionID:   cur.id,
		AlertID:     cur.alert.ID,
		TouristID:   cur.tourist.ID,
		TouristName: cur.tourist.Name,
		TeamID:      team.ID,
		TeamName:    team.Name,
		ETA:         team.EstimatedArrival,
		At:          c.clock.Now(),
	}
	slog.Info("team dispatched", "session_id", ev.SessionID, "team_id", ev.TeamID, "tourist_id", ev.TouristID, "eta", ev.ETA)

	c.session.Close()
	return ev, nil
}

// Escalate hands the emergency to regional command. Teams and tourists are
// left as they are; the session closes.
func (c *Coordinator) Escalate() (EscalationEvent, error) {
	cur := c.session.cur
	if cur == nil {
		return EscalationEvent{}, fmt.Errorf("%w: no emergency is open", ErrInvalidTransition)
	}

	ev := EscalationEvent{
		SessionID: cur.id,
		AlertID:   cur.alert.ID,
		TouristID: cur.tourist.ID,
		At:        c.clock.Now(),
	}
	slog.Warn("emergency escalated", "session_id", ev.SessionID, "tourist_id", ev.TouristID)

	c.session.Close()
	return ev, nil
}
