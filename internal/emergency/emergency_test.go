package emergency

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safetrek/internal/deriver"
	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/store"
)

type fixture struct {
	store   *store.Store
	clock   *schedule.Manual
	session *Session
	coord   *Coordinator
	changes []*View
	ticks   []View
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.New(
			[]*models.Tourist{
				{ID: "t1", Name: "Sarah Johnson", Status: models.TouristStatusSafe, HeartRate: 72, Location: models.Location{Lat: 13.08, Lng: 80.27}},
				{ID: "t2", Name: "Mike Chen", Status: models.TouristStatusSafe, HeartRate: 70},
			},
			[]*models.Team{
				{ID: "teamA", Name: "Mountain Rescue Alpha", Status: models.TeamStatusAvailable, EstimatedArrival: 12 * time.Minute},
				{ID: "teamB", Name: "Coastal Guard Beta", Status: models.TeamStatusAvailable, EstimatedArrival: 7 * time.Minute},
				{ID: "teamC", Name: "Medical Response Gamma", Status: models.TeamStatusBusy},
			},
		),
		clock: schedule.NewManual(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)),
	}
	f.session = NewSession(f.store, f.clock, f.clock, time.Second, Hooks{
		Changed: func(v *View) { f.changes = append(f.changes, v) },
		Tick:    func(v View) { f.ticks = append(f.ticks, v) },
	})
	f.coord = NewCoordinator(f.store, f.session, f.clock)
	return f
}

// raise puts the tourist in danger and returns its freshly derived alert.
func (f *fixture) raise(t *testing.T, touristID string) *models.Alert {
	t.Helper()
	tourist, ok := f.store.FindTourist(touristID)
	require.True(t, ok)
	tourist.Status = models.TouristStatusDanger
	tourist.SetHeartRate(135)
	deriver.Reconcile(f.store, f.clock.Now())

	alert, ok := f.store.FindAlertForTourist(touristID)
	require.True(t, ok)
	return alert
}

func TestEndToEnd_DispatchFlow(t *testing.T) {
	f := newFixture(t)
	alert := f.raise(t, "t1")
	require.Len(t, f.store.Alerts(), 1)
	assert.Equal(t, models.AlertSeverityHigh, alert.Severity)

	require.NoError(t, f.session.Open(alert.ID))
	assert.Equal(t, StateOpenNoTeam, f.session.State())

	require.NoError(t, f.session.SelectTeam("teamA"))
	assert.Equal(t, StateOpenTeamSelected, f.session.State())

	ev, err := f.coord.Dispatch()
	require.NoError(t, err)

	team, _ := f.store.FindTeam("teamA")
	assert.Equal(t, models.TeamStatusDeployed, team.Status)
	assert.Equal(t, "t1", team.AssignedTouristID)
	assert.Equal(t, StateClosed, f.session.State())
	assert.Nil(t, f.session.View())

	assert.Equal(t, "teamA", ev.TeamID)
	assert.Equal(t, "t1", ev.TouristID)
	assert.Equal(t, alert.ID, ev.AlertID)
	assert.Equal(t, 12*time.Minute, ev.ETA)

	require.Len(t, f.changes, 3)
	assert.Equal(t, StateOpenNoTeam, f.changes[0].State)
	assert.Equal(t, StateOpenTeamSelected, f.changes[1].State)
	assert.Nil(t, f.changes[2])
}

func TestDispatch_InvalidTransitionLeavesEntitiesAlone(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Dispatch()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))

	_, err = f.coord.Dispatch()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateOpenNoTeam, f.session.State())

	for _, team := range f.store.Teams() {
		assert.Empty(t, team.AssignedTouristID, team.ID)
	}
	teamA, _ := f.store.FindTeam("teamA")
	assert.Equal(t, models.TeamStatusAvailable, teamA.Status)
}

func TestDispatch_StaleSelection(t *testing.T) {
	f := newFixture(t)
	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))
	require.NoError(t, f.session.SelectTeam("teamA"))

	// something else deployed the team between selection and commit
	teamA, _ := f.store.FindTeam("teamA")
	teamA.Status = models.TeamStatusDeployed

	_, err := f.coord.Dispatch()

	assert.ErrorIs(t, err, ErrStaleSelection)
	assert.Empty(t, teamA.AssignedTouristID)
	assert.Equal(t, models.TeamStatusDeployed, teamA.Status)
	tourist, _ := f.store.FindTourist("t1")
	assert.Equal(t, models.TouristStatusDanger, tourist.Status)
	assert.Equal(t, StateOpenTeamSelected, f.session.State())
	assert.Equal(t, "teamA", f.session.View().SelectedTeamID)

	// re-selecting a free team recovers
	require.NoError(t, f.session.SelectTeam("teamB"))
	_, err = f.coord.Dispatch()
	require.NoError(t, err)
}

func TestOpen_Rejections(t *testing.T) {
	f := newFixture(t)

	err := f.session.Open("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, StateClosed, f.session.State())

	f.store.AddAlert(&models.Alert{ID: "orphan", TouristID: "ghost", Severity: models.AlertSeverityHigh})
	err = f.session.Open("orphan")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, StateClosed, f.session.State())

	f.store.AddAlert(&models.Alert{ID: "low", TouristID: "t2", Severity: models.AlertSeverityLow})
	err = f.session.Open("low")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateClosed, f.session.State())

	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))
	err = f.session.Open(alert.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Empty(t, f.clock.Now().Sub(f.session.View().StartTime))
	assert.Len(t, f.changes, 1)
}

func TestSelectTeam(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.session.SelectTeam("teamA"), ErrInvalidTransition)

	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))

	assert.ErrorIs(t, f.session.SelectTeam("missing"), store.ErrNotFound)
	assert.ErrorIs(t, f.session.SelectTeam("teamC"), ErrInvalidTransition)
	assert.Equal(t, StateOpenNoTeam, f.session.State())

	require.NoError(t, f.session.SelectTeam("teamA"))
	require.NoError(t, f.session.SelectTeam("teamB"))
	assert.Equal(t, StateOpenTeamSelected, f.session.State())
	assert.Equal(t, "teamB", f.session.View().SelectedTeamID)
}

func TestClose_AlwaysLegal(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.session.Close())

	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))
	require.NoError(t, f.session.SelectTeam("teamA"))

	assert.True(t, f.session.Close())
	assert.Equal(t, StateClosed, f.session.State())

	// a new session starts without the old selection
	require.NoError(t, f.session.Open(alert.ID))
	assert.Empty(t, f.session.View().SelectedTeamID)
}

func TestSession_SnapshotsAlertAndTourist(t *testing.T) {
	f := newFixture(t)
	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))

	tourist, _ := f.store.FindTourist("t1")
	tourist.SetHeartRate(90)

	v := f.session.View()
	assert.Equal(t, 135.0, v.Tourist.HeartRate)
	assert.Equal(t, alert.ID, v.Alert.ID)
}

func TestSession_ElapsedTimerStopsOnClose(t *testing.T) {
	f := newFixture(t)
	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))

	f.clock.Advance(3 * time.Second)
	require.Len(t, f.ticks, 3)
	assert.Equal(t, 3*time.Second, f.ticks[2].Elapsed)
	assert.Equal(t, 1, f.clock.Pending())

	f.session.Close()
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(5 * time.Second)
	assert.Len(t, f.ticks, 3)
}

func TestSession_OldTimerIgnoresNewSession(t *testing.T) {
	f := newFixture(t)
	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))
	old := f.session.cur

	f.session.Close()
	require.NoError(t, f.session.Open(alert.ID))

	// fire the stale owner's tick by hand: it must not report the new session
	f.session.tick(old)
	assert.Empty(t, f.ticks)
}

func TestEscalate(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Escalate()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	alert := f.raise(t, "t1")
	require.NoError(t, f.session.Open(alert.ID))
	require.NoError(t, f.session.SelectTeam("teamA"))

	ev, err := f.coord.Escalate()
	require.NoError(t, err)
	assert.Equal(t, "t1", ev.TouristID)
	assert.Equal(t, StateClosed, f.session.State())

	teamA, _ := f.store.FindTeam("teamA")
	assert.Equal(t, models.TeamStatusAvailable, teamA.Status)
	assert.Empty(t, teamA.AssignedTouristID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateClosed, StateOpenNoTeam))
	assert.False(t, CanTransition(StateClosed, StateOpenTeamSelected))
	assert.False(t, CanTransition(StateClosed, StateClosed))
	assert.True(t, CanTransition(StateOpenTeamSelected, StateOpenTeamSelected))
	assert.True(t, CanTransition(StateOpenNoTeam, StateClosed))
	assert.False(t, errors.Is(ErrStaleSelection, ErrInvalidTransition))
}
