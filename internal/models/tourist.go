package models

import "time"

type TouristStatus string

const (
	TouristStatusSafe    TouristStatus = "safe"
	TouristStatusWarning TouristStatus = "warning"
	TouristStatusDanger  TouristStatus = "danger"
)

// touristStatusOrder runs from best to worst.
var touristStatusOrder = []TouristStatus{TouristStatusSafe, TouristStatusWarning, TouristStatusDanger}

// Safer returns the status one step toward safe. Safe stays safe.
func (s TouristStatus) Safer() TouristStatus {
	for i, st := range touristStatusOrder {
		if st == s && i > 0 {
			return touristStatusOrder[i-1]
		}
	}
	return s
}

func (s TouristStatus) Valid() bool {
	for _, st := range touristStatusOrder {
		if st == s {
			return true
		}
	}
	return false
}

const (
	MinHeartRate = 50.0
	MaxHeartRate = 150.0
	MinBattery   = 5.0
	MaxBattery   = 100.0
)

type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

type Tourist struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Status           TouristStatus `json:"status"`
	Location         Location      `json:"location"`
	HeartRate        float64       `json:"heart_rate"`
	Battery          float64       `json:"battery"`
	LastUpdate       time.Time     `json:"last_update"`
	Nationality      string        `json:"nationality"`
	EmergencyContact string        `json:"emergency_contact"`
	DecentralizedID  string        `json:"decentralized_id"`
}

// SetHeartRate stores bpm clamped to the monitored range.
func (t *Tourist) SetHeartRate(bpm float64) {
	t.HeartRate = max(MinHeartRate, min(MaxHeartRate, bpm))
}

// DrainBattery lowers the battery by pct, never below MinBattery.
func (t *Tourist) DrainBattery(pct float64) {
	if pct < 0 {
		pct = 0
	}
	t.Battery = max(MinBattery, t.Battery-pct)
}
