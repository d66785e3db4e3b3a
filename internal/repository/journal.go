package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mr1hm/safetrek/internal/dashboard"
	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/worker"
)

// Journal records emergency lifecycle incidents. Observer calls arrive on
// the command loop, so writes are handed to a worker pool and never block it.
type Journal struct {
	dashboard.NopObserver

	repo IncidentRepository
	pool *worker.WorkerPool[*models.IncidentRecord]
}

func NewJournal(repo IncidentRepository, workers, bufferSize int) *Journal {
	j := &Journal{repo: repo}
	j.pool = worker.NewWorkerPool(workers, bufferSize, j.write)
	j.pool.OnError(func(r *models.IncidentRecord, err error) {
		slog.Error("failed to journal incident", "id", r.ID, "kind", r.Kind, "error", err)
	})
	return j
}

func (j *Journal) Start(ctx context.Context) {
	j.pool.Start(ctx)
}

// Stop waits for queued incidents to be written.
func (j *Journal) Stop() {
	j.pool.Stop()
}

func (j *Journal) write(ctx context.Context, r *models.IncidentRecord) error {
	return j.repo.Add(ctx, r)
}

func (j *Journal) SessionChanged(v *emergency.View) {
	if v == nil || v.State != emergency.StateOpenNoTeam {
		return
	}
	j.record(&models.IncidentRecord{
		Kind:      models.IncidentEmergencyOpened,
		SessionID: v.ID,
		AlertID:   v.Alert.ID,
		TouristID: v.Tourist.ID,
		Message:   v.Alert.Message,
		CreatedAt: v.StartTime,
	})
}

func (j *Journal) TeamDispatched(ev emergency.DispatchEvent) {
	j.record(&models.IncidentRecord{
		Kind:      models.IncidentTeamDispatched,
		SessionID: ev.SessionID,
		AlertID:   ev.AlertID,
		TouristID: ev.TouristID,
		TeamID:    ev.TeamID,
		Message:   fmt.Sprintf("%s dispatched to %s - ETA: %s", ev.TeamName, ev.TouristName, models.FormatETA(ev.ETA)),
		CreatedAt: ev.At,
	})
}

func (j *Journal) Escalated(ev emergency.EscalationEvent) {
	j.record(&models.IncidentRecord{
		Kind:      models.IncidentEscalated,
		SessionID: ev.SessionID,
		AlertID:   ev.AlertID,
		TouristID: ev.TouristID,
		Message:   "Escalated to higher authorities",
		CreatedAt: ev.At,
	})
}

func (j *Journal) record(r *models.IncidentRecord) {
	r.ID = uuid.NewString()
	if !j.pool.TrySubmit(r) {
		slog.Warn("incident journal full, dropping record", "kind", r.Kind, "session_id", r.SessionID)
	}
}
