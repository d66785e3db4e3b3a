// Package emergency implements the operator workflow for answering one alert:
// the emergency session state machine and the dispatch of a rescue team.
package emergency

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/store"
)

type State string

const (
	StateClosed           State = "CLOSED"
	StateOpenNoTeam       State = "OPEN_NO_TEAM"
	StateOpenTeamSelected State = "OPEN_TEAM_SELECTED"
)

var transitions = map[State]map[State]bool{
	StateClosed:           {StateOpenNoTeam: true},
	StateOpenNoTeam:       {StateOpenTeamSelected: true, StateClosed: true},
	StateOpenTeamSelected: {StateOpenTeamSelected: true, StateClosed: true},
}

func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// View is the read-only picture of an open session handed to observers.
type View struct {
	ID             string         `json:"id"`
	State          State          `json:"state"`
	Alert          models.Alert   `json:"alert"`
	Tourist        models.Tourist `json:"tourist"`
	StartTime      time.Time      `json:"start_time"`
	SelectedTeamID string         `json:"selected_team_id,omitempty"`
	Elapsed        time.Duration  `json:"elapsed"`
}

// Hooks receive session notifications. Either may be nil.
type Hooks struct {
	// Changed fires on every state transition; v is nil once the session closes.
	Changed func(v *View)
	// Tick fires on the elapsed-time cadence while the session is open.
	Tick func(v View)
}

type active struct {
	id             string
	alert          models.Alert
	tourist        models.Tourist
	startTime      time.Time
	selectedTeamID string
	timer          schedule.Task
}

// Session tracks at most one live emergency.
type Session struct {
	store        *store.Store
	clock        schedule.Clock
	sched        schedule.Scheduler
	tickInterval time.Duration
	hooks        Hooks

	cur *active
}

func NewSession(s *store.Store, clock schedule.Clock, sched schedule.Scheduler, tickInterval time.Duration, hooks Hooks) *Session {
	return &Session{
		store:        s,
		clock:        clock,
		sched:        sched,
		tickInterval: tickInterval,
		hooks:        hooks,
	}
}

func (s *Session) State() State {
	switch {
	case s.cur == nil:
		return StateClosed
	case s.cur.selectedTeamID == "":
		return StateOpenNoTeam
	default:
		return StateOpenTeamSelected
	}
}

// View returns the current session, or nil when closed.
func (s *Session) View() *View {
	if s.cur == nil {
		return nil
	}
	v := s.view()
	return &v
}

func (s *Session) view() View {
	return View{
		ID:             s.cur.id,
		State:          s.State(),
		Alert:          s.cur.alert,
		Tourist:        s.cur.tourist,
		StartTime:      s.cur.startTime,
		SelectedTeamID: s.cur.selectedTeamID,
		Elapsed:        s.clock.Now().Sub(s.cur.startTime),
	}
}

// Open starts a session for a HIGH alert. The alert and its tourist are
// captured as they are right now.
func (s *Session) Open(alertID string) error {
	if !CanTransition(s.State(), StateOpenNoTeam) {
		return fmt.Errorf("%w: emergency %s is already open", ErrInvalidTransition, s.cur.id)
	}

	alert, ok := s.store.FindAlert(alertID)
	if !ok {
		return fmt.Errorf("alert %s: %w", alertID, store.ErrNotFound)
	}
	if alert.Severity != models.AlertSeverityHigh {
		return fmt.Errorf("%w: alert %s has severity %s", ErrInvalidTransition, alertID, alert.Severity)
	}
	tourist, ok := s.store.FindTourist(alert.TouristID)
	if !ok {
		return fmt.Errorf("tourist %s: %w", alert.TouristID, store.ErrNotFound)
	}

	cur := &active{
		id:        uuid.NewString(),
		alert:     *alert,
		tourist:   *tourist,
		startTime: s.clock.Now(),
	}
	s.cur = cur
	cur.timer = s.sched.Every(s.tickInterval, func() { s.tick(cur) })

	slog.Info("emergency opened", "session_id", cur.id, "alert_id", alert.ID, "tourist_id", tourist.ID)
	s.changed()
	return nil
}

func (s *Session) tick(owner *active) {
	if s.cur != owner {
		// session closed or replaced since this timer was started
		owner.timer.Stop()
		return
	}
	if s.hooks.Tick != nil {
		s.hooks.Tick(s.view())
	}
}

// SelectTeam picks, or replaces, the candidate team. Only available teams qualify.
func (s *Session) SelectTeam(teamID string) error {
	if !CanTransition(s.State(), StateOpenTeamSelected) {
		return fmt.Errorf("%w: no emergency is open", ErrInvalidTransition)
	}

	team, ok := s.store.FindTeam(teamID)
	if !ok {
		return fmt.Errorf("team %s: %w", teamID, store.ErrNotFound)
	}
	if team.Status != models.TeamStatusAvailable {
		return fmt.Errorf("%w: team %s is %s", ErrInvalidTransition, team.Name, team.Status)
	}

	s.cur.selectedTeamID = team.ID
	slog.Info("team selected", "session_id", s.cur.id, "team_id", team.ID)
	s.changed()
	return nil
}

// Close ends the session from any state and stops its timer. It reports
// whether a session was open.
func (s *Session) Close() bool {
	if s.cur == nil {
		return false
	}
	cur := s.cur
	s.cur = nil
	cur.timer.Stop()

	slog.Info("emergency closed", "session_id", cur.id)
	s.changed()
	return true
}

func (s *Session) changed() {
	if s.hooks.Changed != nil {
		s.hooks.Changed(s.View())
	}
}

func (s *Session) selection() (cur *active, ok bool) {
	if s.State() != StateOpenTeamSelected {
		return nil, false
	}
	return s.cur, true
}
