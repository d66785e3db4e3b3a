package models

import "time"

type IncidentKind string

const (
	IncidentEmergencyOpened IncidentKind = "emergency_opened"
	IncidentTeamDispatched  IncidentKind = "team_dispatched"
	IncidentEscalated       IncidentKind = "escalated"
)

// IncidentRecord is one journal line about an emergency handled by the operator.
type IncidentRecord struct {
	ID        string       `json:"id"`
	Kind      IncidentKind `json:"kind"`
	SessionID string       `json:"session_id"`
	AlertID   string       `json:"alert_id"`
	TouristID string       `json:"tourist_id"`
	TeamID    string       `json:"team_id,omitempty"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}
