package models

import "time"

type AlertSeverity string

// Only HIGH is produced today; the other levels stay so views and filters can handle them.
const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityModerate AlertSeverity = "MODERATE"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

const AlertTypeEmergency = "EMERGENCY"

type Alert struct {
	ID               string        `json:"id"`
	TouristID        string        `json:"tourist_id"`
	Type             string        `json:"type"`
	Severity         AlertSeverity `json:"severity"`
	Message          string        `json:"message"`
	Timestamp        time.Time     `json:"timestamp"`
	Location         Location      `json:"location"` // copied from the tourist when the alert was raised
	AutoTriggered    bool          `json:"auto_triggered"`
	EvidenceCaptured bool          `json:"evidence_captured"`
	FundsReserved    bool          `json:"funds_reserved"`
}
