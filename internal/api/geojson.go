package api

import (
	"github.com/mr1hm/safetrek/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func point(loc models.Location) Geometry {
	return Geometry{
		Type:        "Point",
		Coordinates: []float64{loc.Lng, loc.Lat},
	}
}

// toGeoJSON renders tourists and teams as map markers, tourists first.
func toGeoJSON(snap models.Snapshot) FeatureCollection {
	features := make([]Feature, 0, len(snap.Tourists)+len(snap.Teams))

	alerted := make(map[string]bool, len(snap.Alerts))
	for _, a := range snap.Alerts {
		alerted[a.TouristID] = true
	}

	for _, t := range snap.Tourists {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(t.Location),
			Properties: map[string]any{
				"kind":       "tourist",
				"id":         t.ID,
				"name":       t.Name,
				"status":     t.Status,
				"location":   t.Location.Name,
				"heart_rate": t.HeartRate,
				"battery":    t.Battery,
				"alert":      alerted[t.ID],
			},
		})
	}

	for _, tm := range snap.Teams {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(tm.Location),
			Properties: map[string]any{
				"kind":     "team",
				"id":       tm.ID,
				"name":     tm.Name,
				"status":   tm.Status,
				"location": tm.Location.Name,
				"members":  tm.Members,
				"eta":      tm.ETA(),
			},
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
