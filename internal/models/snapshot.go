package models

import "time"

// Snapshot is a detached copy of the entity collections handed to observers.
type Snapshot struct {
	Tourists []Tourist `json:"tourists"`
	Teams    []Team    `json:"teams"`
	Alerts   []Alert   `json:"alerts"`
	TakenAt  time.Time `json:"taken_at"`
}
