package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/models"
)

type Type string

const (
	TypeEntities    Type = "entities"
	TypeSession     Type = "session"
	TypeSessionTick Type = "session_tick"
	TypeNotice      Type = "notice"
	TypeDispatched  Type = "dispatched"
	TypeEscalated   Type = "escalated"
)

type Event struct {
	Type Type      `json:"type"`
	Data any       `json:"data"`
	Time time.Time `json:"time"`
}

type Notice struct {
	Title   string             `json:"title"`
	Message string             `json:"message"`
	Level   models.NoticeLevel `json:"level"`
}

const subscriberBuffer = 100

// Broadcaster turns command center notifications into events and fans them
// out to every subscriber. Slow subscribers miss events rather than stall the
// command loop.
type Broadcaster struct {
	subscribers map[uint64]chan Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
	now         func() time.Time
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
		now:         time.Now,
	}
}

func (b *Broadcaster) Subscribe() (uint64, chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

func (b *Broadcaster) publish(t Type, data any) {
	b.Broadcast(Event{Type: t, Data: data, Time: b.now()})
}

func (b *Broadcaster) EntitiesChanged(snap models.Snapshot) {
	b.publish(TypeEntities, snap)
}

// SessionChanged publishes nil data once the session closes.
func (b *Broadcaster) SessionChanged(v *emergency.View) {
	b.publish(TypeSession, v)
}

func (b *Broadcaster) SessionTick(v emergency.View) {
	b.publish(TypeSessionTick, v)
}

func (b *Broadcaster) Notify(message string, level models.NoticeLevel) {
	b.publish(TypeNotice, Notice{Title: level.Title(), Message: message, Level: level})
}

func (b *Broadcaster) TeamDispatched(ev emergency.DispatchEvent) {
	b.publish(TypeDispatched, ev)
}

func (b *Broadcaster) Escalated(ev emergency.EscalationEvent) {
	b.publish(TypeEscalated, ev)
}
