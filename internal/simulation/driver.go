// Package simulation stands in for a live telemetry feed: it perturbs tourist
// positions, status and vitals on timers and re-derives alerts after every pass.
package simulation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/safetrek/internal/deriver"
	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/store"
)

const (
	positionJitter = 0.0001

	driftChance    = 0.05
	toWarningBias  = 0.3
	toSafeBias     = 0.8
	refreshChance  = 0.1
	recoverBias    = 0.7
	heartRateDelta = 5.0
	batteryDrain   = 2.0

	lowBattery      = 10.0
	connectionFault = 0.02
)

type Config struct {
	PositionInterval time.Duration
	DriftInterval    time.Duration
	StreamInterval   time.Duration
	ReconnectDelay   time.Duration
}

type Hooks struct {
	// Changed fires once after each pass, when mutation and reconciliation are done.
	Changed func()
	Notify  func(message string, level models.NoticeLevel)
}

type Driver struct {
	store *store.Store
	rand  schedule.Rand
	clock schedule.Clock
	sched schedule.Scheduler
	cfg   Config
	hooks Hooks

	tasks []schedule.Task
}

func NewDriver(s *store.Store, r schedule.Rand, clock schedule.Clock, sched schedule.Scheduler, cfg Config, hooks Hooks) *Driver {
	return &Driver{
		store: s,
		rand:  r,
		clock: clock,
		sched: sched,
		cfg:   cfg,
		hooks: hooks,
	}
}

// Start registers the periodic processes. Calling it twice is a no-op.
func (d *Driver) Start() {
	if len(d.tasks) > 0 {
		return
	}
	d.tasks = append(d.tasks,
		d.sched.Every(d.cfg.PositionInterval, d.PositionTick),
		d.sched.Every(d.cfg.DriftInterval, d.DriftTick),
		d.sched.Every(d.cfg.StreamInterval, d.StreamTick),
	)
	slog.Info("simulation started",
		"position_interval", d.cfg.PositionInterval,
		"drift_interval", d.cfg.DriftInterval,
		"stream_interval", d.cfg.StreamInterval)
}

func (d *Driver) Stop() {
	for _, t := range d.tasks {
		t.Stop()
	}
	d.tasks = nil
}

// PositionTick nudges every tourist not in danger. Tourists in danger stay
// where the emergency was raised.
func (d *Driver) PositionTick() {
	moved := 0
	for _, t := range d.store.Tourists() {
		if t.Status == models.TouristStatusDanger {
			continue
		}
		t.Location.Lat += (d.rand.Float64() - 0.5) * positionJitter
		t.Location.Lng += (d.rand.Float64() - 0.5) * positionJitter
		moved++
	}
	slog.Debug("position tick", "moved", moved)
	d.settle()
}

// DriftTick occasionally moves one random tourist between safe and warning,
// favoring recovery. It never puts anybody in danger.
func (d *Driver) DriftTick() {
	tourists := d.store.Tourists()
	if len(tourists) == 0 || d.rand.Float64() >= driftChance {
		return
	}

	t := tourists[int(d.rand.Float64()*float64(len(tourists)))]
	switch {
	case t.Status == models.TouristStatusSafe && d.rand.Float64() < toWarningBias:
		t.Status = models.TouristStatusWarning
		d.notify(fmt.Sprintf("%s status changed to Warning", t.Name), models.NoticeWarning)
	case t.Status == models.TouristStatusWarning && d.rand.Float64() < toSafeBias:
		t.Status = models.TouristStatusSafe
		d.notify(fmt.Sprintf("%s status improved to Safe", t.Name), models.NoticeSuccess)
	default:
		return
	}
	slog.Debug("status drift", "tourist_id", t.ID, "status", t.Status)
	d.settle()
}

// StreamTick reports how many devices are still streaming and now and then
// simulates a short connection drop.
func (d *Driver) StreamTick() {
	active := len(store.Select(d.store.Tourists(), func(t *models.Tourist) bool {
		return t.Battery > lowBattery
	}))
	slog.Debug("streaming telemetry", "active_tourists", active)

	if d.rand.Float64() < connectionFault {
		d.notify("Temporary connection issue detected - reconnecting...", models.NoticeWarning)
		d.sched.After(d.cfg.ReconnectDelay, func() {
			d.notify("Connection restored - all systems operational", models.NoticeSuccess)
		})
	}
}

// Refresh pulls a fresh reading for every tourist: status may improve one
// step, heart rate wanders within bounds and the battery drains.
func (d *Driver) Refresh() {
	now := d.clock.Now()
	for _, t := range d.store.Tourists() {
		if d.rand.Float64() < refreshChance && t.Status != models.TouristStatusSafe && d.rand.Float64() < recoverBias {
			t.Status = t.Status.Safer()
		}
		t.SetHeartRate(t.HeartRate + (d.rand.Float64()-0.5)*heartRateDelta)
		t.DrainBattery(d.rand.Float64() * batteryDrain)
		t.LastUpdate = now
	}
	slog.Info("data refreshed", "tourists", len(d.store.Tourists()))
	d.settle()
}

// Degrade forces the first safe tourist into danger with a heart-rate spike.
func (d *Driver) Degrade() (*models.Tourist, bool) {
	t, ok := firstSafe(d.store.Tourists())
	if !ok {
		return nil, false
	}
	t.Status = models.TouristStatusDanger
	t.SetHeartRate(130 + d.rand.Float64()*20)
	t.LastUpdate = d.clock.Now()
	d.settle()
	return t, true
}

// Recover marks a tourist in warning as safe. Other statuses are left alone.
func (d *Driver) Recover(touristID string) bool {
	t, ok := d.store.FindTourist(touristID)
	if !ok || t.Status != models.TouristStatusWarning {
		return false
	}
	t.Status = models.TouristStatusSafe
	d.settle()
	return true
}

// Reset returns every tourist to safe with fresh vitals and frees every team.
func (d *Driver) Reset() {
	for _, t := range d.store.Tourists() {
		t.Status = models.TouristStatusSafe
		t.SetHeartRate(65 + d.rand.Float64()*20)
		t.Battery = 70 + d.rand.Float64()*30
	}
	for _, team := range d.store.Teams() {
		team.Status = models.TeamStatusAvailable
		team.AssignedTouristID = ""
	}
	d.settle()
}

// settle re-derives alerts and then tells observers. Mutations must never be
// published before reconciliation.
func (d *Driver) settle() {
	res := deriver.Reconcile(d.store, d.clock.Now())
	if res.Changed() {
		slog.Info("alerts reconciled", "created", len(res.Created), "removed", res.Removed)
	}
	if d.hooks.Changed != nil {
		d.hooks.Changed()
	}
}

func (d *Driver) notify(message string, level models.NoticeLevel) {
	if d.hooks.Notify != nil {
		d.hooks.Notify(message, level)
	}
}

func firstSafe(tourists []*models.Tourist) (*models.Tourist, bool) {
	for _, t := range tourists {
		if t.Status == models.TouristStatusSafe {
			return t, true
		}
	}
	return nil, false
}
