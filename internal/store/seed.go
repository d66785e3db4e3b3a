package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/schedule"
)

var touristNames = []string{
	"Sarah Johnson", "Mike Chen", "Elena Rodriguez", "David Kim",
	"Anna Petrov", "James Wilson", "Lisa Anderson", "Carlos Silva",
	"Yuki Tanaka", "Ahmed Hassan", "Sophie Martin", "Lucas Brown",
}

var teamNames = []string{
	"Mountain Rescue Alpha", "Coastal Guard Beta", "Medical Response Gamma",
	"Fire & Rescue Delta", "Emergency Response Echo", "Search & Rescue Foxtrot",
	"Paramedic Team Golf", "Helicopter Rescue Hotel",
}

var landmarks = []models.Location{
	{Lat: 13.0827, Lng: 80.2707, Name: "Marina Beach Trail"},
	{Lat: 13.0878, Lng: 80.2785, Name: "Lighthouse Point"},
	{Lat: 13.0756, Lng: 80.2634, Name: "Fort St. George"},
	{Lat: 13.0569, Lng: 80.2993, Name: "Adyar River Walk"},
	{Lat: 13.1067, Lng: 80.2842, Name: "Kapaleeshwarar Temple"},
	{Lat: 13.0475, Lng: 80.2829, Name: "Santhome Beach"},
}

var (
	nationalities = []string{"US", "UK", "CA", "AU", "DE", "FR", "JP", "KR"}
	equipment     = []string{"Medical Kit", "Rescue Gear", "Communication", "Transport"}
)

const (
	MaxSeedTourists = 12
	MaxSeedTeams    = 8
)

func pick[T any](r schedule.Rand, items []T) T {
	return items[int(r.Float64()*float64(len(items)))]
}

// Seed builds the synthetic population the dashboard starts with. Counts are
// capped at the number of available names.
func Seed(r schedule.Rand, now time.Time, touristCount, teamCount int) *Store {
	touristCount = min(max(touristCount, 1), MaxSeedTourists)
	teamCount = min(max(teamCount, 1), MaxSeedTeams)

	tourists := make([]*models.Tourist, 0, touristCount)
	for i, name := range touristNames[:touristCount] {
		tourists = append(tourists, seedTourist(r, now, i, name))
	}

	teams := make([]*models.Team, 0, teamCount)
	for i, name := range teamNames[:teamCount] {
		teams = append(teams, seedTeam(r, i, name))
	}

	return New(tourists, teams)
}

func seedTourist(r schedule.Rand, now time.Time, i int, name string) *models.Tourist {
	landmark := landmarks[i%len(landmarks)]

	status := pick(r, []models.TouristStatus{models.TouristStatusSafe, models.TouristStatusWarning, models.TouristStatusDanger})
	if r.Float64() <= 0.7 {
		status = models.TouristStatusSafe
	}

	var heartRate float64
	switch status {
	case models.TouristStatusDanger:
		heartRate = 120 + r.Float64()*20
	case models.TouristStatusWarning:
		heartRate = 85 + r.Float64()*15
	default:
		heartRate = 65 + r.Float64()*20
	}

	t := &models.Tourist{
		ID:     fmt.Sprintf("tourist_%d", i+1),
		Name:   name,
		Status: status,
		Location: models.Location{
			Lat:  landmark.Lat + (r.Float64()-0.5)*0.02,
			Lng:  landmark.Lng + (r.Float64()-0.5)*0.02,
			Name: landmark.Name,
		},
		Battery:          20 + r.Float64()*80,
		LastUpdate:       now.Add(-time.Duration(r.Float64() * float64(5*time.Minute))),
		Nationality:      pick(r, nationalities),
		EmergencyContact: fmt.Sprintf("+1-555-%d", 1000+int(r.Float64()*9000)),
		DecentralizedID:  "did:ethr:0x" + randomHex(r, 40),
	}
	t.SetHeartRate(heartRate)
	return t
}

func seedTeam(r schedule.Rand, i int, name string) *models.Team {
	landmark := landmarks[i%len(landmarks)]

	status := pick(r, []models.TeamStatus{models.TeamStatusAvailable, models.TeamStatusDeployed, models.TeamStatusBusy})
	if r.Float64() <= 0.6 {
		status = models.TeamStatusAvailable
	}

	return &models.Team{
		ID:     fmt.Sprintf("team_%d", i+1),
		Name:   name,
		Status: status,
		Location: models.Location{
			Lat: landmark.Lat + (r.Float64()-0.5)*0.03,
			Lng: landmark.Lng + (r.Float64()-0.5)*0.03,
		},
		Members:          3 + int(r.Float64()*5),
		Equipment:        pick(r, equipment),
		EstimatedArrival: time.Duration(5+int(r.Float64()*15)) * time.Minute,
	}
}

func randomHex(r schedule.Rand, n int) string {
	const digits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(digits[int(r.Float64()*16)])
	}
	return b.String()
}
