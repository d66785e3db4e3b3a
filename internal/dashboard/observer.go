package dashboard

import (
	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/models"
)

// Observer is how the view layer and other sinks learn about the command
// center. Calls happen on the command loop, after the state they describe
// has been fully reconciled.
type Observer interface {
	EntitiesChanged(snap models.Snapshot)
	// SessionChanged receives nil once the session closes.
	SessionChanged(v *emergency.View)
	SessionTick(v emergency.View)
	Notify(message string, level models.NoticeLevel)
	TeamDispatched(ev emergency.DispatchEvent)
	Escalated(ev emergency.EscalationEvent)
}

// Observers fans every call out to each member in order.
type Observers []Observer

func (o Observers) EntitiesChanged(snap models.Snapshot) {
	for _, ob := range o {
		ob.EntitiesChanged(snap)
	}
}

func (o Observers) SessionChanged(v *emergency.View) {
	for _, ob := range o {
		ob.SessionChanged(v)
	}
}

func (o Observers) SessionTick(v emergency.View) {
	for _, ob := range o {
		ob.SessionTick(v)
	}
}

func (o Observers) Notify(message string, level models.NoticeLevel) {
	for _, ob := range o {
		ob.Notify(message, level)
	}
}

func (o Observers) TeamDispatched(ev emergency.DispatchEvent) {
	for _, ob := range o {
		ob.TeamDispatched(ev)
	}
}

func (o Observers) Escalated(ev emergency.EscalationEvent) {
	for _, ob := range o {
		ob.Escalated(ev)
	}
}

// NopObserver ignores everything. Embed it to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) EntitiesChanged(models.Snapshot) {}
func (NopObserver) SessionChanged(*emergency.View) {}
func (NopObserver) SessionTick(emergency.View) {}
func (NopObserver) Notify(string, models.NoticeLevel) {}
func (NopObserver) TeamDispatched(emergency.DispatchEvent) {}
func (NopObserver) Escalated(emergency.EscalationEvent) {}
