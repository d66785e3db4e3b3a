// Package dashboard is the composition root of the command center core. It
// wires the entity store, alert derivation, the emergency session, dispatch
// and the simulation together and exposes them as operator commands.
//
// A Center is not safe for concurrent use. Every method must be called from
// the single command loop that also runs the scheduler callbacks.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mr1hm/safetrek/internal/deriver"
	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/simulation"
	"github.com/mr1hm/safetrek/internal/store"
)

type Config struct {
	EmergencyTick     time.Duration
	ConfirmationDelay time.Duration
	DemoOpenDelay     time.Duration
	ContactDelay      time.Duration
	Simulation        simulation.Config
}

type Center struct {
	store    *store.Store
	rand     schedule.Rand
	clock    schedule.Clock
	sched    schedule.Scheduler
	cfg      Config
	observer Observer

	session *emergency.Session
	coord   *emergency.Coordinator
	driver  *simulation.Driver
}

func New(s *store.Store, r schedule.Rand, clock schedule.Clock, sched schedule.Scheduler, cfg Config, observer Observer) *Center {
	if observer == nil {
		observer = NopObserver{}
	}
	c := &Center{
		store:    s,
		rand:     r,
		clock:    clock,
		sched:    sched,
		cfg:      cfg,
		observer: observer,
	}

	c.session = emergency.NewSession(s, clock, sched, cfg.EmergencyTick, emergency.Hooks{
		Changed: observer.SessionChanged,
		Tick:    observer.SessionTick,
	})
	c.coord = emergency.NewCoordinator(s, c.session, clock)
	c.driver = simulation.NewDriver(s, r, clock, sched, cfg.Simulation, simulation.Hooks{
		Changed: c.publish,
		Notify:  observer.Notify,
	})

	deriver.Reconcile(s, clock.Now())
	return c
}

// Start begins the simulation and publishes the initial state.
func (c *Center) Start() {
	c.driver.Start()
	c.publish()
	c.observer.Notify("SafeTrek Command Center initialized successfully", models.NoticeSuccess)
}

// Stop halts the simulation and closes any open emergency.
func (c *Center) Stop() {
	c.driver.Stop()
	c.session.Close()
}

func (c *Center) publish() {
	c.observer.EntitiesChanged(c.store.Snapshot(c.clock.Now()))
}

func (c *Center) reject(action string, err error) error {
	slog.Warn("command rejected", "action", action, "error", err)
	c.observer.Notify(capitalize(err.Error()), levelFor(err))
	return err
}

func levelFor(err error) models.NoticeLevel {
	if errors.Is(err, store.ErrNotFound) {
		return models.NoticeError
	}
	return models.NoticeWarning
}

func (c *Center) Snapshot() models.Snapshot {
	return c.store.Snapshot(c.clock.Now())
}

func (c *Center) Tourists(f store.TouristFilter) []models.Tourist {
	return copyAll(c.store.ListTourists(f))
}

func (c *Center) Tourist(id string) (models.Tourist, error) {
	t, ok := c.store.FindTourist(id)
	if !ok {
		return models.Tourist{}, fmt.Errorf("tourist %s: %w", id, store.ErrNotFound)
	}
	return *t, nil
}

func (c *Center) Teams(f store.TeamFilter) []models.Team {
	return copyAll(c.store.ListTeams(f))
}

func (c *Center) Alerts() []models.Alert {
	return copyAll(c.store.Alerts())
}

// Session returns the open emergency, or nil.
func (c *Center) Session() *emergency.View {
	return c.session.View()
}

func (c *Center) SessionState() emergency.State {
	return c.session.State()
}

func (c *Center) OpenEmergency(alertID string) error {
	if err := c.session.Open(alertID); err != nil {
		return c.reject("open_emergency", err)
	}
	return nil
}

// OpenFirstAlert opens the emergency for the oldest outstanding alert.
func (c *Center) OpenFirstAlert() error {
	alerts := c.store.Alerts()
	if len(alerts) == 0 {
		return c.reject("open_first_alert", fmt.Errorf("alert: %w", store.ErrNotFound))
	}
	return c.OpenEmergency(alerts[0].ID)
}

// TriggerEmergencyResponse opens the emergency for a tourist in danger.
func (c *Center) TriggerEmergencyResponse(touristID string) error {
	t, ok := c.store.FindTourist(touristID)
	if !ok {
		return c.reject("emergency_response", fmt.Errorf("tourist %s: %w", touristID, store.ErrNotFound))
	}
	if t.Status != models.TouristStatusDanger {
		return c.reject("emergency_response", fmt.Errorf("%w: %s is %s", emergency.ErrInvalidTransition, t.Name, t.Status))
	}
	a, ok := c.store.FindAlertForTourist(t.ID)
	if !ok {
		return c.reject("emergency_response", fmt.Errorf("alert for %s: %w", t.ID, store.ErrNotFound))
	}
	return c.OpenEmergency(a.ID)
}

// CandidateTeams lists the teams the operator may pick for dispatch.
func (c *Center) CandidateTeams() []models.Team {
	return c.Teams(store.TeamFilter{Status: models.TeamStatusAvailable})
}

func (c *Center) SelectTeam(teamID string) error {
	if err := c.session.SelectTeam(teamID); err != nil {
		return c.reject("select_team", err)
	}
	return nil
}

func (c *Center) Dispatch() (emergency.DispatchEvent, error) {
	ev, err := c.coord.Dispatch()
	switch {
	case errors.Is(err, emergency.ErrInvalidTransition):
		slog.Warn("command rejected", "action", "dispatch", "error", err)
		c.observer.Notify("Please select a team to dispatch", models.NoticeWarning)
		return ev, err
	case errors.Is(err, emergency.ErrStaleSelection):
		slog.Warn("command rejected", "action", "dispatch", "error", err)
		c.observer.Notify("Selected team is no longer available - select another team", models.NoticeWarning)
		return ev, err
	case err != nil:
		return ev, c.reject("dispatch", err)
	}

	c.publish()
	c.observer.TeamDispatched(ev)
	c.observer.Notify(fmt.Sprintf("%s dispatched to %s", ev.TeamName, ev.TouristName), models.NoticeSuccess)

	eta := models.FormatETA(ev.ETA)
	c.sched.After(c.cfg.ConfirmationDelay, func() {
		c.observer.Notify(fmt.Sprintf("ETA: %s - Tourist notified", eta), models.NoticeSuccess)
	})
	return ev, nil
}

func (c *Center) Escalate() (emergency.EscalationEvent, error) {
	ev, err := c.coord.Escalate()
	if err != nil {
		return ev, c.reject("escalate", err)
	}
	c.observer.Escalated(ev)
	c.observer.Notify("Emergency escalated to regional command center", models.NoticeWarning)
	return ev, nil
}

// CloseEmergency dismisses the open session, if any.
func (c *Center) CloseEmergency() bool {
	return c.session.Close()
}

func (c *Center) Refresh() {
	c.observer.Notify("Refreshing real-time data...", models.NoticeSuccess)
	c.driver.Refresh()
	c.observer.Notify("Data refreshed successfully", models.NoticeSuccess)
}

// DemoEmergency puts the first safe tourist in danger and, after a short
// pause, opens the emergency for the new alert unless the operator is
// already handling one.
func (c *Center) DemoEmergency() (models.Alert, error) {
	t, ok := c.driver.Degrade()
	if !ok {
		return models.Alert{}, c.reject("demo_emergency", fmt.Errorf("safe tourist: %w", store.ErrNotFound))
	}
	a, ok := c.store.FindAlertForTourist(t.ID)
	if !ok {
		return models.Alert{}, c.reject("demo_emergency", fmt.Errorf("alert for %s: %w", t.ID, store.ErrNotFound))
	}
	slog.Info("demo emergency", "tourist_id", t.ID, "alert_id", a.ID)
	c.observer.Notify("DEMO: Emergency scenario activated!", models.NoticeError)

	alertID := a.ID
	c.sched.After(c.cfg.DemoOpenDelay, func() {
		if c.session.State() != emergency.StateClosed {
			return
		}
		if _, ok := c.store.FindAlert(alertID); !ok {
			return
		}
		c.OpenEmergency(alertID)
	})
	return *a, nil
}

// ResetDemo restores every entity first and only then closes the session, so
// observers never see a closed session next to stale alerts or deployments.
func (c *Center) ResetDemo() {
	c.driver.Reset()
	c.session.Close()
	slog.Info("demo reset")
	c.observer.Notify("Demo reset complete", models.NoticeSuccess)
}

func (c *Center) ContactTourist(touristID string) error {
	t, ok := c.store.FindTourist(touristID)
	if !ok {
		return c.reject("contact_tourist", fmt.Errorf("tourist %s: %w", touristID, store.ErrNotFound))
	}
	slog.Info("contacting tourist", "tourist_id", t.ID)
	c.observer.Notify(fmt.Sprintf("Contacting %s via in-app messaging...", t.Name), models.NoticeSuccess)
	c.sched.After(c.cfg.ContactDelay, func() {
		c.observer.Notify("Tourist contacted successfully", models.NoticeSuccess)
	})
	return nil
}

// UpdateRiskAssessment re-evaluates a tourist; one in warning is cleared to
// safe once the assessment completes.
func (c *Center) UpdateRiskAssessment(touristID string) error {
	t, ok := c.store.FindTourist(touristID)
	if !ok {
		return c.reject("risk_assessment", fmt.Errorf("tourist %s: %w", touristID, store.ErrNotFound))
	}
	slog.Info("risk assessment requested", "tourist_id", t.ID, "status", t.Status)
	c.observer.Notify(fmt.Sprintf("Risk assessment updated for %s", t.Name), models.NoticeSuccess)
	c.sched.After(c.cfg.ConfirmationDelay, func() {
		if c.driver.Recover(touristID) {
			c.observer.Notify("Risk level decreased to Safe", models.NoticeSuccess)
		}
	})
	return nil
}

// Analytics is the operator's summary panel. Response time and the historic
// emergency count are simulated; the rest is counted from the store.
type Analytics struct {
	AvgResponseMinutes float64                      `json:"avg_response_minutes"`
	TotalEmergencies   int                          `json:"total_emergencies"`
	ActiveAlerts       int                          `json:"active_alerts"`
	Tourists           map[models.TouristStatus]int `json:"tourists"`
	Teams              map[models.TeamStatus]int    `json:"teams"`
	GeneratedAt        time.Time                    `json:"generated_at"`
}

func (c *Center) Analytics() Analytics {
	a := Analytics{
		AvgResponseMinutes: math.Round((3.5+c.rand.Float64()*2)*10) / 10,
		TotalEmergencies:   120 + int(c.rand.Float64()*20),
		ActiveAlerts:       len(c.store.Alerts()),
		Tourists:           make(map[models.TouristStatus]int),
		Teams:              make(map[models.TeamStatus]int),
		GeneratedAt:        c.clock.Now(),
	}
	for _, t := range c.store.Tourists() {
		a.Tourists[t.Status]++
	}
	for _, t := range c.store.Teams() {
		a.Teams[t.Status]++
	}
	c.observer.Notify("Analytics data updated", models.NoticeSuccess)
	return a
}

func copyAll[T any](items []*T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = *item
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
