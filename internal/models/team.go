package models

import (
	"fmt"
	"time"
)

type TeamStatus string

const (
	TeamStatusAvailable TeamStatus = "available"
	TeamStatusDeployed  TeamStatus = "deployed"
	TeamStatusBusy      TeamStatus = "busy"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusAvailable, TeamStatusDeployed, TeamStatusBusy:
		return true
	}
	return false
}

type Team struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Status           TeamStatus    `json:"status"`
	Location         Location      `json:"location"`
	Members          int           `json:"members"`
	Equipment        string        `json:"equipment"`
	EstimatedArrival time.Duration `json:"estimated_arrival"`
	// AssignedTouristID is only set by a dispatch. Seeded deployed/busy teams carry none.
	AssignedTouristID string `json:"assigned_tourist_id,omitempty"`
}

// ETA renders EstimatedArrival the way operators read it, e.g. "12 min".
func (t *Team) ETA() string {
	return FormatETA(t.EstimatedArrival)
}

func FormatETA(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d/time.Minute))
}
