package repository

import (
	"context"
	"time"

	"github.com/mr1hm/safetrek/internal/models"
)

type Filter struct {
	Limit     int
	Offset    int
	Since     *time.Time
	Kind      *models.IncidentKind
	TouristID string
	SessionID string
}

type IncidentRepository interface {
	Add(ctx context.Context, r *models.IncidentRecord) error
	GetByID(ctx context.Context, id string) (*models.IncidentRecord, error)
	ListIncidents(ctx context.Context, opts Filter) ([]models.IncidentRecord, error)
}
